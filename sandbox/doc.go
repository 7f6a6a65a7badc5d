// Package sandbox compiles code strings into callable units and invokes
// them in an isolated scope, attaching source-map metadata for diagnostics.
//
// # Execution Strategies
//
// Two strategies are selectable at construction:
//
//   - ModeInline appends a source-map-reference comment and compiles the
//     code directly. Faster; appropriate for production-like execution.
//   - ModeMapped registers the parsed source map with the executor so that
//     failed executions report exact original-source stack frames.
//     Appropriate for interactive development.
//
// Both strategies produce behaviorally identical results for passing code;
// they differ only in diagnostic quality and speed.
//
// # Parameter Passing
//
// The compiled unit receives its environment exclusively through an explicit
// parameter list; there is no ambient global state beyond the runtime's
// standard built-ins.
package sandbox
