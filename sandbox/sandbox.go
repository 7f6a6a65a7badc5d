package sandbox

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"sync"

	"github.com/go-sourcemap/sourcemap"
	"github.com/grafana/sobek"
	"go.uber.org/zap"

	"github.com/wippyai/module-runner/errors"
)

// Mode selects the execution strategy.
type Mode int

const (
	// ModeInline embeds the source map as a data-URL comment; the engine
	// consumes it at parse time and reports original-source positions
	// natively. Mapping cost is paid on every compile.
	ModeInline Mode = iota
	// ModeMapped registers the parsed source map with the executor so failed
	// executions report exact original-source stack frames.
	ModeMapped
)

// Source carries the diagnostic metadata for one compiled unit: the module's
// canonical URL, the originating file path (or "" for virtual modules), and
// an optional source map for the generated code.
type Source struct {
	URL  string
	File string
	Map  []byte
}

// preludeLines is the number of lines the function wrapper inserts before
// the module body; stack frame lines are shifted back by this amount before
// source map lookup.
const preludeLines = 1

// Executor compiles code strings into callable units and invokes them in an
// isolated scope. One Executor wraps one sobek runtime; not safe for
// concurrent use (the owning runner serializes access).
type Executor struct {
	vm   *sobek.Runtime
	mode Mode

	mu   sync.Mutex
	maps map[string]*sourcemap.Consumer
}

// New creates an Executor over the given runtime.
func New(vm *sobek.Runtime, mode Mode) *Executor {
	return &Executor{
		vm:   vm,
		mode: mode,
		maps: make(map[string]*sourcemap.Consumer),
	}
}

// Runtime returns the underlying sobek runtime.
func (e *Executor) Runtime() *sobek.Runtime {
	return e.vm
}

// Mode returns the configured execution strategy.
func (e *Executor) Mode() Mode {
	return e.mode
}

// Run compiles code as a function accepting exactly params as its formal
// parameters and invokes it with args positionally matched. The unit may
// return a promise (a body containing suspension points); Run requires it to
// be settled by the time control returns.
func (e *Executor) Run(params []string, args []sobek.Value, code string, src Source) error {
	name := src.File
	if name == "" {
		name = src.URL
	}

	var b strings.Builder
	b.WriteString("(function(")
	b.WriteString(strings.Join(params, ", "))
	b.WriteString(") {\n")
	b.WriteString(code)
	b.WriteString("\n})")
	text := b.String()

	if len(src.Map) > 0 {
		switch e.mode {
		case ModeInline:
			if adjusted := offsetMappings(src.Map, preludeLines); adjusted != nil {
				text += "\n//# sourceMappingURL=data:application/json;base64," +
					base64.StdEncoding.EncodeToString(adjusted)
			} else {
				Logger().Debug("inline source map dropped", zap.String("module", name))
			}
		case ModeMapped:
			e.register(name, src.Map)
		}
	}

	prg, err := sobek.Compile(name, text, true)
	if err != nil {
		return errors.Wrap(errors.PhaseExecute, errors.KindFailed, err, "compile module body")
	}

	v, err := e.vm.RunProgram(prg)
	if err != nil {
		return err
	}
	fn, ok := sobek.AssertFunction(v)
	if !ok {
		return errors.InvalidInput(errors.PhaseExecute, "compiled unit is not callable")
	}

	res, err := fn(sobek.Undefined(), args...)
	if err != nil {
		return err
	}
	if res == nil {
		return nil
	}

	if p, ok := res.Export().(*sobek.Promise); ok {
		switch p.State() {
		case sobek.PromiseStateRejected:
			return errors.New(errors.PhaseExecute, errors.KindThrown).
				URL(src.URL).
				Detail("completion promise rejected: %s", p.Result().String()).
				Build()
		case sobek.PromiseStatePending:
			return errors.Unsettled(src.URL)
		}
	}

	return nil
}

// offsetMappings shifts a source map down by the given number of generated
// lines, compensating for the function wrapper prepended to the module body.
// The inlined map is resolved against the wrapped text, so its mappings must
// account for the prelude. Returns nil for a malformed map.
func offsetMappings(data []byte, lines int) []byte {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	mappings, ok := m["mappings"].(string)
	if !ok {
		return nil
	}
	m["mappings"] = strings.Repeat(";", lines) + mappings
	out, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return out
}

// register parses and stores a source map consumer for a compiled unit.
// Best-effort: a malformed map disables rewriting for that unit only.
func (e *Executor) register(name string, data []byte) {
	consumer, err := sourcemap.Parse("", data)
	if err != nil {
		Logger().Debug("source map parse failed", zap.String("module", name), zap.Error(err))
		return
	}
	e.mu.Lock()
	e.maps[name] = consumer
	e.mu.Unlock()
}

// Release drops the source map registered for a compiled unit, if any.
// Called when a module record is invalidated.
func (e *Executor) Release(name string) {
	e.mu.Lock()
	delete(e.maps, name)
	e.mu.Unlock()
}

func (e *Executor) consumer(name string) *sourcemap.Consumer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maps[name]
}
