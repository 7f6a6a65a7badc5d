package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the load pipeline the error occurred
type Phase string

const (
	PhaseResolve   Phase = "resolve"   // specifier to URL/path mapping
	PhaseTransform Phase = "transform" // source compilation
	PhaseLink      Phase = "link"      // import/export wiring
	PhaseExecute   Phase = "execute"   // module code execution
	PhaseLoad      Phase = "load"      // load orchestration
	PhaseWatch     Phase = "watch"     // file watching / invalidation
)

// Kind categorizes the error
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindFailed       Kind = "failed"
	KindThrown       Kind = "thrown"
	KindInvalidInput Kind = "invalid_input"
	KindFrozen       Kind = "frozen"
	KindUnsettled    Kind = "unsettled"
)

// Error is the structured error type used throughout the module runner
type Error struct {
	Cause     error
	Phase     Phase
	Kind      Kind
	URL       string
	Specifier string
	Detail    string
	Frames    []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.URL != "" {
		b.WriteString(" at ")
		b.WriteString(e.URL)
	}

	if e.Specifier != "" {
		b.WriteString(": specifier ")
		b.WriteString(fmt.Sprintf("%q", e.Specifier))
	}

	if e.Detail != "" {
		if e.Specifier != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	if len(e.Frames) > 0 {
		for _, f := range e.Frames {
			b.WriteString("\n    at ")
			b.WriteString(f)
		}
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// URL sets the module URL the error is attributed to
func (b *Builder) URL(url string) *Builder {
	b.err.URL = url
	return b
}

// Specifier sets the import specifier that triggered the error
func (b *Builder) Specifier(s string) *Builder {
	b.err.Specifier = s
	return b
}

// Frames sets the (possibly source-mapped) stack frames
func (b *Builder) Frames(frames []string) *Builder {
	b.err.Frames = frames
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Resolution creates a resolution failure for a specifier
func Resolution(specifier, importer string, cause error) *Error {
	return &Error{
		Phase:     PhaseResolve,
		Kind:      KindNotFound,
		URL:       importer,
		Specifier: specifier,
		Detail:    "cannot resolve to a loadable resource",
		Cause:     cause,
	}
}

// Transform creates a transform failure for a URL
func Transform(url string, cause error) *Error {
	return &Error{
		Phase:  PhaseTransform,
		Kind:   KindFailed,
		URL:    url,
		Detail: "transform produced no result",
		Cause:  cause,
	}
}

// Execution creates an execution error preserving the thrown cause.
// Frames carry the source-mapped stack when rewriting succeeded.
func Execution(url string, cause error, frames []string) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindThrown,
		URL:    url,
		Cause:  cause,
		Frames: frames,
	}
}

// Unsettled reports a module body whose completion promise never settled
func Unsettled(url string) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindUnsettled,
		URL:    url,
		Detail: "module completion promise did not settle",
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates a load orchestration error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindFailed,
		Detail: detail,
		Cause:  cause,
	}
}
