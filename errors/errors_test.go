package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:     PhaseResolve,
				Kind:      KindNotFound,
				URL:       "/app/main.js",
				Specifier: "lodash",
				Detail:    "no host module registered",
			},
			contains: []string{"[resolve]", "not_found", "/app/main.js", `"lodash"`, "no host module registered"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseTransform,
				Kind:  KindFailed,
			},
			contains: []string{"[transform]", "failed"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseExecute,
				Kind:   KindThrown,
				URL:    "/a.js",
				Cause:  errors.New("boom"),
				Detail: "module threw",
			},
			contains: []string{"[execute]", "thrown", "/a.js", "module threw", "caused by", "boom"},
		},
		{
			name: "error with frames",
			err: &Error{
				Phase:  PhaseExecute,
				Kind:   KindThrown,
				Cause:  errors.New("boom"),
				Frames: []string{"handler (src/real.ts:10:4)"},
			},
			contains: []string{"at handler (src/real.ts:10:4)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseLoad,
		Kind:  KindFailed,
		Cause: cause,
	}

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap did not return the cause")
	}
}

func TestError_Is(t *testing.T) {
	err := Transform("/a.js", nil)

	if !errors.Is(err, &Error{Phase: PhaseTransform, Kind: KindFailed}) {
		t.Error("expected phase/kind match")
	}
	if errors.Is(err, &Error{Phase: PhaseExecute, Kind: KindFailed}) {
		t.Error("unexpected match on different phase")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("nope")
	err := New(PhaseResolve, KindNotFound).
		URL("/importer.js").
		Specifier("./missing.js").
		Detail("tried %d roots", 3).
		Cause(cause).
		Build()

	if err.Phase != PhaseResolve || err.Kind != KindNotFound {
		t.Errorf("unexpected phase/kind: %s/%s", err.Phase, err.Kind)
	}
	if err.URL != "/importer.js" {
		t.Errorf("unexpected URL: %s", err.URL)
	}
	if err.Detail != "tried 3 roots" {
		t.Errorf("unexpected detail: %s", err.Detail)
	}
	if err.Cause != cause {
		t.Error("cause not set")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	if e := Resolution("pkg", "/imp.js", nil); e.Phase != PhaseResolve || e.Specifier != "pkg" {
		t.Errorf("Resolution: %v", e)
	}
	if e := Transform("/a.js", nil); e.Kind != KindFailed || e.URL != "/a.js" {
		t.Errorf("Transform: %v", e)
	}
	if e := Execution("/a.js", errors.New("x"), nil); e.Kind != KindThrown {
		t.Errorf("Execution: %v", e)
	}
	if e := Unsettled("/a.js"); e.Kind != KindUnsettled {
		t.Errorf("Unsettled: %v", e)
	}
	if e := NotFound(PhaseResolve, "host module", "fs"); !strings.Contains(e.Detail, `"fs"`) {
		t.Errorf("NotFound: %v", e)
	}
}
