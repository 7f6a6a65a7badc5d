// Package errors provides structured error types for the module runner.
//
// Errors are categorized by Phase (where in the load pipeline the error
// occurred) and Kind (error category). The Error type includes rich context:
// the module URL, the import specifier, rewritten stack frames, and a cause
// chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseResolve, errors.KindNotFound).
//		URL("/app/main.js").
//		Specifier("lodash").
//		Detail("no host module registered").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Transform("/app/main.js", cause)
//	err := errors.Execution("/app/main.js", thrown, frames)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
