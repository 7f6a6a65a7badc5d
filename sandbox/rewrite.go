package sandbox

import (
	stderrors "errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/grafana/sobek"
)

// frameRe matches one stack frame line as produced by the runtime:
// "at fn (file:line:col(pc))" or "at file:line:col(pc)".
var frameRe = regexp.MustCompile(`^\s*at\s+(?:(.*?)\s+\()?([^():]+):(\d+):(\d+)`)

// RewriteStack maps a raised error's stack frames back through recorded
// source maps to original source locations. Returns the annotated frames and
// whether any frame was found. Best-effort: frames without a registered map
// pass through unchanged, and a nil result never masks the original error.
func (e *Executor) RewriteStack(err error) ([]string, bool) {
	var ex *sobek.Exception
	if !stderrors.As(err, &ex) {
		return nil, false
	}

	lines := strings.Split(ex.String(), "\n")
	if len(lines) < 2 {
		return nil, false
	}

	var frames []string
	for _, line := range lines[1:] {
		m := frameRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		frames = append(frames, e.rewriteFrame(m[1], m[2], m[3], m[4]))
	}

	return frames, len(frames) > 0
}

// rewriteFrame maps a single frame; unmapped frames keep their generated
// position.
func (e *Executor) rewriteFrame(fn, file, lineStr, colStr string) string {
	line, _ := strconv.Atoi(lineStr)
	col, _ := strconv.Atoi(colStr)

	pos := fmt.Sprintf("%s:%d:%d", file, line, col)
	if c := e.consumer(file); c != nil && line > preludeLines {
		genLine := line - preludeLines
		genCol := col - 1
		if genCol < 0 {
			genCol = 0
		}
		if source, _, origLine, origCol, ok := c.Source(genLine, genCol); ok && source != "" {
			pos = fmt.Sprintf("%s:%d:%d", source, origLine, origCol)
		}
	}

	if fn == "" {
		return pos
	}
	return fmt.Sprintf("%s (%s)", fn, pos)
}
