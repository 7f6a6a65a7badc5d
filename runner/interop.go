package runner

import (
	"github.com/grafana/sobek"

	"github.com/wippyai/module-runner/errors"
)

// packageNamespace normalizes an externally-loaded package's export shape
// into the uniform namespace contract. It is a read-through view over the
// raw exports rather than a copy, so mutations to the underlying external
// module remain visible.
type packageNamespace struct {
	vm     *sobek.Runtime
	raw    sobek.Value
	rawObj *sobek.Object // nil when the raw exports value is not an object

	// esModule records whether the package already declared the export-map
	// convention; when false, default is synthesized as the whole raw value.
	esModule bool
}

// wrapPackage builds the namespace face for a raw exports value.
func wrapPackage(vm *sobek.Runtime, raw sobek.Value) *sobek.Object {
	pn := &packageNamespace{vm: vm, raw: raw}
	if obj, ok := raw.(*sobek.Object); ok {
		pn.rawObj = obj
		if marker := obj.Get(esModuleMarker); marker != nil && marker.ToBoolean() {
			pn.esModule = true
		}
	}
	return vm.NewDynamicObject(pn)
}

// Get implements sobek.DynamicObject.
func (pn *packageNamespace) Get(key string) sobek.Value {
	switch key {
	case esModuleMarker:
		return pn.vm.ToValue(true)
	case "default":
		if pn.esModule {
			if v := pn.rawObj.Get("default"); v != nil {
				return v
			}
			return sobek.Undefined()
		}
		return pn.raw
	}
	if pn.rawObj != nil {
		if v := pn.rawObj.Get(key); v != nil {
			return v
		}
	}
	return sobek.Undefined()
}

// Set implements sobek.DynamicObject. Package namespaces are never writable
// through the shim.
func (pn *packageNamespace) Set(key string, val sobek.Value) bool {
	return false
}

// Has implements sobek.DynamicObject.
func (pn *packageNamespace) Has(key string) bool {
	if key == "default" || key == esModuleMarker {
		return true
	}
	if pn.rawObj == nil {
		return false
	}
	for _, name := range pn.rawObj.Keys() {
		if name == key {
			return true
		}
	}
	return false
}

// Delete implements sobek.DynamicObject.
func (pn *packageNamespace) Delete(key string) bool {
	return false
}

// Keys implements sobek.DynamicObject.
func (pn *packageNamespace) Keys() []string {
	if pn.rawObj == nil {
		return []string{"default"}
	}
	rawKeys := pn.rawObj.Keys()
	keys := make([]string, 0, len(rawKeys)+1)
	hasDefault := false
	for _, name := range rawKeys {
		if name == esModuleMarker {
			continue
		}
		if name == "default" {
			hasDefault = true
		}
		keys = append(keys, name)
	}
	if !hasDefault {
		keys = append(keys, "default")
	}
	return keys
}

// loadExternal resolves a bare specifier through the package resolution
// collaborator, loads its raw exports through the host loader, and wraps
// them in the interop shim. Results are cached per resolved path.
func (r *Runner) loadExternal(specifier, importerFile string) (sobek.Value, error) {
	if r.packages == nil || r.hostLoader == nil {
		rerr := errors.Resolution(specifier, importerFile, nil)
		r.report(rerr)
		return nil, rerr
	}

	pathKey, err := r.packages.ResolvePackage(specifier, importerFile, r.resolveOpts)
	if err != nil {
		rerr := errors.Resolution(specifier, importerFile, err)
		r.report(rerr)
		return nil, rerr
	}

	if cached, ok := r.external[pathKey]; ok {
		return cached, nil
	}

	raw, err := r.hostLoader.LoadHostModule(pathKey)
	if err != nil {
		rerr := errors.Resolution(specifier, importerFile, err)
		r.report(rerr)
		return nil, rerr
	}

	wrapped := wrapPackage(r.vm, r.vm.ToValue(raw))
	r.external[pathKey] = wrapped
	return wrapped, nil
}
