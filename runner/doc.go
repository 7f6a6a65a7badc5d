// Package runner implements on-demand module instantiation.
//
// # Main Types
//
//   - Runner: load coordinator and instantiation engine
//   - Namespace: the realized export surface of one module
//
// # Load Protocol
//
// A load request enters the coordinator, which either returns an existing
// completed result or starts the engine. The engine obtains transformed
// code for the URL, publishes a stub namespace onto the module record,
// builds the linkage functions (static import, dynamic import, export-all),
// and executes the body in the sandbox. Namespaces freeze together when the
// outermost load unwinds: by then the runtime has drained the promise job
// queue, so exports assigned in dynamic-import continuations land before
// the seal.
//
// Cycles are tolerated: a static import that revisits a module on the
// current ancestor path resolves immediately to that module's live stub.
// Export reads are late-binding, so the importer observes final values once
// the cycle resolves.
//
// # Thread Safety
//
// Runner is safe for concurrent use; all instantiation work is serialized
// internally. Namespace values returned by Load are frozen and immutable.
package runner
