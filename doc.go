// Package modulerunner provides an on-demand module loading and server-side
// instantiation engine: given a URL identifying a source module, it produces
// a fully linked, executable module namespace, tolerating circular
// dependencies, deduplicating concurrent requests for the same module, and
// propagating failures with source-mapped diagnostics.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	modulerunner/        Root package with collaborator interfaces and URL helpers
//	├── runner/          Instantiation engine, load coordinator, namespaces, interop
//	├── sandbox/         Sandboxed execution of compiled module code (sobek)
//	├── graph/           Module record store and file-watch driven invalidation
//	├── resolve/         Host module registry for external package resolution
//	└── errors/          Structured error types for diagnostics
//
// # Quick Start
//
// Load a module through a runner wired to a transform collaborator:
//
//	r, err := runner.New(runner.Options{
//	    Transformer: myTransform,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ns, err := r.Load(ctx, "/app/main.js")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	v, _ := ns.GetExport("handler")
//
// The transform collaborator is a black box producing executable code, a
// dependency list, and an optional source map per URL. The runner guarantees
// at most one instantiation per URL per cache generation, resolves cyclic
// imports through early-published stubs with late-binding accessors, and
// freezes every namespace before returning it.
package modulerunner
