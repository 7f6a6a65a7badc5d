package runner

import (
	"context"
	"sync"

	"github.com/grafana/sobek"
	"go.uber.org/zap"

	modulerunner "github.com/wippyai/module-runner"
	"github.com/wippyai/module-runner/errors"
	"github.com/wippyai/module-runner/graph"
	"github.com/wippyai/module-runner/sandbox"
)

// Options configures a Runner.
type Options struct {
	// Transformer turns URLs into executable code. Required.
	Transformer modulerunner.Transformer

	// Graph is the module record store. Created if nil.
	Graph *graph.Graph

	// Packages resolves bare specifiers to host module paths. Optional;
	// bare imports fail with a resolution error when absent.
	Packages modulerunner.PackageResolver

	// HostModules loads raw exports for resolved external packages.
	HostModules modulerunner.HostLoader

	// Reporter receives formatted error messages. Defaults to the package
	// logger.
	Reporter modulerunner.Reporter

	// Resolve is passed through to the package resolver.
	Resolve modulerunner.ResolveOptions

	// Mode selects the sandbox execution strategy.
	Mode sandbox.Mode
}

// Runner loads modules on demand: it resolves a URL to a record, obtains
// transformed code, links imports recursively, executes the module body,
// and caches the frozen namespace.
//
// Load is safe for concurrent use. All instantiation work is serialized on
// one mutex, realizing the cooperative single-threaded model: the shared
// load tables are mutated only synchronously, and at most one instantiation
// per URL is ever active.
type Runner struct {
	vm          *sobek.Runtime
	exec        *sandbox.Executor
	graph       *graph.Graph
	transformer modulerunner.Transformer
	packages    modulerunner.PackageResolver
	hostLoader  modulerunner.HostLoader
	reporter    modulerunner.Reporter
	resolveOpts modulerunner.ResolveOptions

	mu sync.Mutex

	// inflight marks URLs whose instantiation has started but not finished.
	inflight map[string]struct{}

	// pendingDeps maps an in-progress module's URL to the dependency URLs it
	// is currently awaiting. Multiple simultaneous entries per module are
	// supported since dynamic imports may overlap.
	pendingDeps map[string]map[string]struct{}

	// external caches interop-wrapped package namespaces by resolved path.
	external map[string]sobek.Value

	// finished collects namespaces completed during the current root load.
	// They freeze together when the outermost load unwinds, after the
	// runtime has drained the promise job queue, so dynamic-import
	// continuations in dependencies can still add exports.
	finished []*Namespace
}

// New creates a Runner.
func New(opts Options) (*Runner, error) {
	if opts.Transformer == nil {
		return nil, errors.InvalidInput(errors.PhaseLoad, "transformer is required")
	}

	g := opts.Graph
	if g == nil {
		g = graph.New()
	}

	reporter := opts.Reporter
	if reporter == nil {
		reporter = modulerunner.NewZapReporter(Logger())
	}

	vm := sobek.New()
	return &Runner{
		vm:          vm,
		exec:        sandbox.New(vm, opts.Mode),
		graph:       g,
		transformer: opts.Transformer,
		packages:    opts.Packages,
		hostLoader:  opts.HostModules,
		reporter:    reporter,
		resolveOpts: opts.Resolve,
		inflight:    make(map[string]struct{}),
		pendingDeps: make(map[string]map[string]struct{}),
		external:    make(map[string]sobek.Value),
	}, nil
}

// Graph returns the module record store.
func (r *Runner) Graph() *graph.Graph {
	return r.graph
}

// Load returns the frozen namespace for url, instantiating it and its
// dependency graph on first request. Concurrent requests for the same URL
// share one instantiation and resolve to the identical namespace.
// The context is consulted before the load starts; a started instantiation
// runs to completion or failure.
func (r *Runner) Load(ctx context.Context, url string) (*Namespace, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Load("context done before load of "+url, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	ns, err := r.load(ctx, modulerunner.CanonicalURL(url), nil)
	r.freezeFinished()
	return ns, err
}

// freezeFinished seals every namespace completed during the root load.
// Runs after the outermost module body has returned, which is when the
// runtime drains the job queue; no further exports can arrive.
func (r *Runner) freezeFinished() {
	for _, ns := range r.finished {
		ns.freeze()
	}
	r.finished = r.finished[:0]
}

// Invalidate clears the record for url, forcing re-instantiation on the
// next request. The previously returned namespace keeps its old values.
func (r *Runner) Invalidate(url string) {
	canonical := modulerunner.CanonicalURL(url)
	node := r.graph.Get(canonical)
	if node == nil {
		return
	}
	name := node.File
	if name == "" {
		name = canonical
	}
	r.graph.Invalidate(node)
	r.exec.Release(name)
}

// load is the concurrency coordinator. Callers must hold r.mu; recursive
// loads re-enter here directly on the same goroutine.
func (r *Runner) load(ctx context.Context, url string, ancestors []string) (*Namespace, error) {
	node := r.graph.EnsureEntry(url)

	// Frozen covers results cached by earlier root loads; completed covers
	// re-imports of a module that already executed within this root load.
	if ns, ok := node.Instance.(*Namespace); ok && (ns.frozen || ns.completed) {
		return ns, nil
	}

	if _, ok := r.inflight[url]; ok {
		// Instantiation already started for this URL; the stub was published
		// before any dependency work, so return it. Reachable only through a
		// dependency cycle.
		if ns, ok := node.Instance.(*Namespace); ok {
			Logger().Debug("load joined in-flight instantiation", zap.String("url", url))
			return ns, nil
		}
		return nil, errors.New(errors.PhaseLink, errors.KindFailed).
			URL(url).
			Detail("in-flight module has no published stub").
			Build()
	}

	r.inflight[url] = struct{}{}
	ns, err := r.instantiate(ctx, node, ancestors)
	delete(r.inflight, url)
	if err != nil {
		// Leave a clean slate so a later request retries from scratch.
		delete(r.pendingDeps, url)
		node.Instance = nil
		return nil, err
	}
	return ns, nil
}

// report forwards an error to the logging collaborator.
func (r *Runner) report(err error) {
	r.reporter.Report(err.Error(), modulerunner.ReportOptions{
		Timestamp: true,
		Err:       err,
	})
}

// addPending records that owner is currently awaiting dep.
func (r *Runner) addPending(owner, dep string) {
	set, ok := r.pendingDeps[owner]
	if !ok {
		set = make(map[string]struct{})
		r.pendingDeps[owner] = set
	}
	set[dep] = struct{}{}
}

// removePending clears one awaited dependency entry.
func (r *Runner) removePending(owner, dep string) {
	if set, ok := r.pendingDeps[owner]; ok {
		delete(set, dep)
		if len(set) == 0 {
			delete(r.pendingDeps, owner)
		}
	}
}

// isCycle reports whether depURL revisits a module currently being
// instantiated on this load path. Ancestor path containment is the
// authoritative test; the pending-dependency table is consulted as an
// optimization to avoid redundant waits on overlapping dynamic imports.
func (r *Runner) isCycle(path []string, depURL string) bool {
	for _, ancestor := range path {
		if ancestor == depURL {
			return true
		}
	}
	for _, ancestor := range path {
		if deps, ok := r.pendingDeps[ancestor]; ok {
			if _, awaited := deps[depURL]; awaited {
				return true
			}
		}
	}
	return false
}
