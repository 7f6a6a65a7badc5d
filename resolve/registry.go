package resolve

import (
	"sync"

	modulerunner "github.com/wippyai/module-runner"
	"github.com/wippyai/module-runner/errors"
)

// Loader produces the raw exports value for a host module. Invoked at most
// once per registry; the result is cached.
type Loader func() (any, error)

// Registry is the default package-resolution and host-loading collaborator:
// a table of host modules registered from Go, addressed by bare specifier.
// It implements both modulerunner.PackageResolver and modulerunner.HostLoader.
// Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	modules    map[string]Loader
	conditions map[string]map[string]Loader // specifier -> condition -> loader
	aliases    map[string]string
	cache      map[string]any
}

// NewRegistry creates an empty host module registry.
func NewRegistry() *Registry {
	return &Registry{
		modules:    make(map[string]Loader),
		conditions: make(map[string]map[string]Loader),
		aliases:    make(map[string]string),
		cache:      make(map[string]any),
	}
}

// Register binds a bare specifier to a loader. Overwrites any previous
// binding for the same specifier.
func (r *Registry) Register(specifier string, loader Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[specifier] = loader
}

// RegisterValue binds a bare specifier to a fixed raw exports value.
func (r *Registry) RegisterValue(specifier string, exports any) {
	r.Register(specifier, func() (any, error) { return exports, nil })
}

// RegisterCondition binds a specifier to a loader used only when the given
// resolution condition is requested (e.g. "node", "development").
func (r *Registry) RegisterCondition(specifier, condition string, loader Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byCond, ok := r.conditions[specifier]
	if !ok {
		byCond = make(map[string]Loader)
		r.conditions[specifier] = byCond
	}
	byCond[condition] = loader
}

// Alias maps one specifier to another before lookup.
func (r *Registry) Alias(from, to string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[from] = to
}

// ResolvePackage implements modulerunner.PackageResolver. The returned path
// is the registry key the host loader accepts. Dedupe entries resolve from
// the root registry regardless of importer, which is the registry's only
// behavior anyway; the option is accepted for interface compatibility.
func (r *Registry) ResolvePackage(specifier, importerFile string, opts modulerunner.ResolveOptions) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name := specifier
	if target, ok := r.aliases[name]; ok {
		name = target
	}

	for _, cond := range opts.Conditions {
		if byCond, ok := r.conditions[name]; ok {
			if _, ok := byCond[cond]; ok {
				return name + "#" + cond, nil
			}
		}
	}

	if _, ok := r.modules[name]; ok {
		return name, nil
	}

	return "", errors.NotFound(errors.PhaseResolve, "host module", specifier)
}

// LoadHostModule implements modulerunner.HostLoader. Results are cached per
// resolved path so a host module is constructed once.
func (r *Registry) LoadHostModule(path string) (any, error) {
	r.mu.RLock()
	if cached, ok := r.cache[path]; ok {
		r.mu.RUnlock()
		return cached, nil
	}
	loader := r.lookupLoader(path)
	r.mu.RUnlock()

	if loader == nil {
		return nil, errors.NotFound(errors.PhaseResolve, "host module", path)
	}

	exports, err := loader()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseResolve, errors.KindFailed, err, "load host module "+path)
	}

	r.mu.Lock()
	r.cache[path] = exports
	r.mu.Unlock()
	return exports, nil
}

// lookupLoader must be called with r.mu held (read or write).
func (r *Registry) lookupLoader(path string) Loader {
	if name, cond, ok := splitCondition(path); ok {
		if byCond, ok := r.conditions[name]; ok {
			if loader, ok := byCond[cond]; ok {
				return loader
			}
		}
		return nil
	}
	return r.modules[path]
}

func splitCondition(path string) (name, condition string, ok bool) {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '#' {
			return path[:i], path[i+1:], true
		}
	}
	return path, "", false
}
