package sandbox

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/grafana/sobek"

	"github.com/wippyai/module-runner/errors"
)

// realMap maps line 1 of the generated code to src/real.ts line 10.
var realMap = []byte(`{"version":3,"sources":["src/real.ts"],"names":[],"mappings":"AASA"}`)

func TestRunInvokesWithArgs(t *testing.T) {
	for _, mode := range []Mode{ModeInline, ModeMapped} {
		vm := sobek.New()
		e := New(vm, mode)

		out := vm.NewObject()
		err := e.Run([]string{"out"}, []sobek.Value{out}, "out.x = 1;", Source{URL: "/m.js"})
		if err != nil {
			t.Fatalf("mode %d: Run: %v", mode, err)
		}
		if got := out.Get("x").ToInteger(); got != 1 {
			t.Errorf("mode %d: out.x = %d, want 1", mode, got)
		}
	}
}

func TestRunCompileError(t *testing.T) {
	e := New(sobek.New(), ModeMapped)

	err := e.Run(nil, nil, "function (", Source{URL: "/bad.js"})
	if err == nil {
		t.Fatal("expected compile error")
	}
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseExecute, Kind: errors.KindFailed}) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunThrow(t *testing.T) {
	e := New(sobek.New(), ModeMapped)

	err := e.Run(nil, nil, "throw new Error('boom');", Source{URL: "/t.js"})
	if err == nil {
		t.Fatal("expected error")
	}
	var ex *sobek.Exception
	if !stderrors.As(err, &ex) {
		t.Fatalf("error is not the raised exception: %v", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("message lost: %v", err)
	}
}

func TestRunRejectedPromise(t *testing.T) {
	e := New(sobek.New(), ModeMapped)

	err := e.Run(nil, nil, "return Promise.reject(new Error('nope'));", Source{URL: "/p.js"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseExecute, Kind: errors.KindThrown}) {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(err.Error(), "nope") {
		t.Errorf("rejection reason lost: %v", err)
	}
}

func TestRunPendingPromise(t *testing.T) {
	e := New(sobek.New(), ModeMapped)

	err := e.Run(nil, nil, "return new Promise(function() {});", Source{URL: "/never.js"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseExecute, Kind: errors.KindUnsettled}) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRewriteStackMapped(t *testing.T) {
	e := New(sobek.New(), ModeMapped)

	err := e.Run(nil, nil, "throw new Error('boom');", Source{URL: "/m.js", Map: realMap})
	if err == nil {
		t.Fatal("expected error")
	}

	frames, ok := e.RewriteStack(err)
	if !ok {
		t.Fatalf("no frames rewritten from %v", err)
	}
	found := false
	for _, f := range frames {
		if strings.Contains(f, "src/real.ts:10") {
			found = true
		}
	}
	if !found {
		t.Errorf("no frame mapped to original source: %v", frames)
	}
}

func TestRewriteStackInline(t *testing.T) {
	e := New(sobek.New(), ModeInline)

	// The engine resolves the embedded map at parse time, so the raised
	// exception already carries original-source positions.
	err := e.Run(nil, nil, "throw new Error('boom');", Source{URL: "/err.js", Map: realMap})
	if err == nil {
		t.Fatal("expected error")
	}

	frames, ok := e.RewriteStack(err)
	if !ok {
		t.Fatalf("no frames parsed from %v", err)
	}
	found := false
	for _, f := range frames {
		if strings.Contains(f, "src/real.ts:10") {
			found = true
		}
	}
	if !found {
		t.Errorf("no frame references original source: %v", frames)
	}
}

func TestOffsetMappings(t *testing.T) {
	out := offsetMappings([]byte(`{"version":3,"sources":["a.ts"],"mappings":"AASA"}`), 1)
	if out == nil {
		t.Fatal("valid map rejected")
	}
	if !strings.Contains(string(out), `";AASA"`) {
		t.Errorf("prelude offset missing: %s", out)
	}

	if offsetMappings([]byte(`not json`), 1) != nil {
		t.Error("malformed map accepted")
	}
	if offsetMappings([]byte(`{"version":3}`), 1) != nil {
		t.Error("map without mappings accepted")
	}
}

func TestRewriteStackUnmapped(t *testing.T) {
	e := New(sobek.New(), ModeMapped)

	// No map registered: frames keep their generated position.
	err := e.Run(nil, nil, "throw new Error('boom');", Source{URL: "/plain.js"})
	if err == nil {
		t.Fatal("expected error")
	}

	frames, ok := e.RewriteStack(err)
	if !ok {
		t.Fatalf("no frames parsed from %v", err)
	}
	found := false
	for _, f := range frames {
		if strings.Contains(f, "/plain.js:2:") {
			found = true
		}
	}
	if !found {
		t.Errorf("generated position lost: %v", frames)
	}
}

func TestRewriteStackNonException(t *testing.T) {
	e := New(sobek.New(), ModeMapped)

	if frames, ok := e.RewriteStack(errors.Load("not a throw", nil)); ok || frames != nil {
		t.Errorf("rewrote a non-exception error: %v", frames)
	}
}

func TestRelease(t *testing.T) {
	e := New(sobek.New(), ModeMapped)

	err := e.Run(nil, nil, "throw new Error('boom');", Source{URL: "/r.js", Map: realMap})
	if err == nil {
		t.Fatal("expected error")
	}

	e.Release("/r.js")

	frames, ok := e.RewriteStack(err)
	if !ok {
		t.Fatalf("no frames parsed from %v", err)
	}
	for _, f := range frames {
		if strings.Contains(f, "src/real.ts") {
			t.Errorf("released map still applied: %v", frames)
		}
	}
}

func TestModesProduceSameResult(t *testing.T) {
	code := "out.sum = a + b;"
	for _, mode := range []Mode{ModeInline, ModeMapped} {
		vm := sobek.New()
		e := New(vm, mode)
		out := vm.NewObject()
		args := []sobek.Value{out, vm.ToValue(2), vm.ToValue(3)}

		if err := e.Run([]string{"out", "a", "b"}, args, code, Source{URL: "/sum.js", Map: realMap}); err != nil {
			t.Fatalf("mode %d: %v", mode, err)
		}
		if got := out.Get("sum").ToInteger(); got != 5 {
			t.Errorf("mode %d: sum = %d, want 5", mode, got)
		}
	}
}
