package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	modulerunner "github.com/wippyai/module-runner"
)

// depsHeader marks the optional first line of a pre-transformed module file
// declaring its static dependency specifiers, e.g. "//! deps: /a.js ./b.js".
const depsHeader = "//! deps:"

// fileTransformer is the demo transform collaborator: it serves files under
// the root that are already written in the runner's linkage convention.
// A sidecar <file>.map is attached as the module's source map when present.
type fileTransformer struct {
	root string
}

func newFileTransformer(root string) *fileTransformer {
	return &fileTransformer{root: root}
}

// fileFor maps a canonical URL to its on-disk path.
func (t *fileTransformer) fileFor(url string) string {
	return filepath.Join(t.root, filepath.FromSlash(strings.TrimPrefix(url, "/")))
}

// Transform implements modulerunner.Transformer.
func (t *fileTransformer) Transform(ctx context.Context, url string) (*modulerunner.TransformResult, error) {
	path := t.fileFor(url)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	code := string(data)
	var deps []string
	if strings.HasPrefix(code, depsHeader) {
		line := code
		if idx := strings.IndexByte(code, '\n'); idx >= 0 {
			line = code[:idx]
			code = code[idx+1:]
		} else {
			code = ""
		}
		deps = strings.Fields(strings.TrimPrefix(line, depsHeader))
	}

	result := &modulerunner.TransformResult{Code: code, Deps: deps}
	if m, err := os.ReadFile(path + ".map"); err == nil {
		result.Map = m
	}
	return result, nil
}
