package runner

import (
	"context"

	"github.com/grafana/sobek"
	"go.uber.org/zap"

	modulerunner "github.com/wippyai/module-runner"
	"github.com/wippyai/module-runner/errors"
	"github.com/wippyai/module-runner/graph"
	"github.com/wippyai/module-runner/sandbox"
)

// instantiate runs the module state machine for one record: transform,
// stub publication, linkage, execution, export normalization, freeze.
// Called at most once per URL per cache generation; r.mu is held.
func (r *Runner) instantiate(ctx context.Context, node *graph.Node, ancestors []string) (*Namespace, error) {
	url := node.URL

	tr := node.Transform
	if tr == nil {
		var err error
		tr, err = r.transformer.Transform(ctx, url)
		if err != nil || tr == nil {
			terr := errors.Transform(url, err)
			r.report(terr)
			return nil, terr
		}
		node.Transform = tr
	}

	// Publish the stub before any dependency is awaited so a cyclic importer
	// captures it instead of re-entering instantiation.
	ns := newNamespace(r.vm, url)
	node.Instance = ns

	// Each recursive branch gets its own copy of the ancestor path.
	path := make([]string, 0, len(ancestors)+1)
	path = append(path, ancestors...)
	path = append(path, url)

	link := &linkage{runner: r, node: node, ns: ns, path: path, ctx: ctx}

	err := r.exec.Run(moduleParameters, link.arguments(), tr.Code, sandbox.Source{
		URL:  url,
		File: node.File,
		Map:  tr.Map,
	})
	if err != nil {
		if link.depErr != nil {
			// A dependency load failed inside the executing body; it was
			// reported at its origin, so propagate without re-wrapping.
			return nil, link.depErr
		}
		frames, _ := r.exec.RewriteStack(err)
		eerr := errors.Execution(url, err, frames)
		r.report(eerr)
		return nil, eerr
	}

	// A module that never declared the export-map convention gets it
	// synthesized, with default pointing at the namespace itself.
	if !ns.ESModule() {
		ns.markESModule()
		if _, ok := ns.GetExport("default"); !ok {
			ns.setDefaultSelf()
		}
	}

	// Completion is not yet the freeze: continuations queued by dynamic
	// imports run when the outermost body returns, and may still add
	// exports. The root Load seals everything once the queue has drained.
	ns.complete()
	node.Instance = ns
	r.finished = append(r.finished, ns)
	Logger().Debug("module instantiated",
		zap.String("url", url),
		zap.Int("deps", len(tr.Deps)),
		zap.Int("exports", len(ns.ExportNames())))
	return ns, nil
}

// linkage carries the per-instantiation state the three linkage functions
// close over: the module's identity and its ancestor path.
type linkage struct {
	runner *Runner
	node   *graph.Node
	ns     *Namespace
	path   []string
	ctx    context.Context

	// depErr records the first dependency failure surfaced through the
	// sandbox, so the engine can propagate the original error rather than
	// wrapping the resulting JS exception.
	depErr error
}

// arguments builds the positional argument values matching moduleParameters.
func (l *linkage) arguments() []sobek.Value {
	vm := l.runner.vm
	meta := vm.NewObject()
	_ = meta.Set("url", l.node.URL)

	return []sobek.Value{
		vm.ToValue(l.staticImport),
		vm.ToValue(l.dynamicImport),
		l.ns.Object(),
		vm.ToValue(l.exportAll),
		meta,
	}
}

// staticImport resolves a static import specifier to a namespace object,
// synchronously. A failure aborts the executing module body.
func (l *linkage) staticImport(call sobek.FunctionCall) sobek.Value {
	specifier := call.Argument(0).String()
	v, err := l.resolve(specifier)
	if err != nil {
		if l.depErr == nil {
			l.depErr = err
		}
		panic(l.runner.vm.NewGoError(err))
	}
	return v
}

// dynamicImport resolves a specifier relative to the current module and
// returns an already-settled promise. A failure rejects the promise instead
// of aborting the module.
func (l *linkage) dynamicImport(call sobek.FunctionCall) sobek.Value {
	specifier := call.Argument(0).String()
	promise, resolveFn, rejectFn := l.runner.vm.NewPromise()
	v, err := l.resolve(specifier)
	if err != nil {
		rejectFn(err)
	} else {
		resolveFn(v)
	}
	return l.runner.vm.ToValue(promise)
}

// exportAll copies every export name except default from the resolved
// dependency namespace onto the current stub as late-binding accessors.
func (l *linkage) exportAll(call sobek.FunctionCall) sobek.Value {
	if obj, ok := call.Argument(0).(*sobek.Object); ok {
		l.ns.linkAll(obj)
	}
	return sobek.Undefined()
}

// resolve maps a specifier to its namespace value: external packages go
// through resolution and the interop shim; project modules normalize to a
// canonical URL and recurse through the coordinator, short-circuiting true
// cycles to the dependency's current (possibly still-stub) namespace.
func (l *linkage) resolve(specifier string) (sobek.Value, error) {
	r := l.runner

	if modulerunner.IsBareSpecifier(specifier) {
		return r.loadExternal(specifier, l.node.File)
	}

	depURL := modulerunner.ResolveRelative(specifier, l.node.URL)

	if r.isCycle(l.path, depURL) {
		if depNode := r.graph.Get(depURL); depNode != nil {
			if depNS, ok := depNode.Instance.(*Namespace); ok {
				Logger().Debug("circular import resolved to live namespace",
					zap.String("importer", l.node.URL),
					zap.String("dependency", depURL))
				return depNS.Object(), nil
			}
		}
		// The revisited URL has no live namespace; treat it as a fresh load.
	}

	r.addPending(l.node.URL, depURL)
	defer r.removePending(l.node.URL, depURL)

	depNS, err := r.load(l.ctx, depURL, l.path)
	if err != nil {
		return nil, err
	}
	return depNS.Object(), nil
}
