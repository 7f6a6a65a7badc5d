package runner

import (
	"github.com/grafana/sobek"
	"go.uber.org/zap"

	"github.com/wippyai/module-runner/errors"
)

// moduleParameters is the fixed formal parameter list every compiled module
// body receives. Linkage is passed explicitly; there is no ambient state.
var moduleParameters = []string{
	"__ssr_import__",
	"__ssr_dynamic_import__",
	"__ssr_exports__",
	"__ssr_export_all__",
	"__ssr_import_meta__",
}

// esModuleMarker is the property a module sets on its exports object to
// declare the export-map convention. Synthesized by the engine when absent.
const esModuleMarker = "__esModule"

// linkBinding is a late-binding re-export: reads go through to the source
// object's current value rather than a snapshot taken at link time.
type linkBinding struct {
	src  *sobek.Object
	name string
}

// Namespace is the realized export surface of one module: a name-to-value
// mapping plus a default slot. Before completion it is a live stub published
// on the module record so cyclic importers can capture it. A completed
// namespace still accepts exports from dynamic-import continuations, which
// run when the outermost module body returns; once the root load unwinds it
// is frozen and no export may be added, removed, or reassigned.
//
// Namespace implements sobek.DynamicObject, so every export read is computed
// on access. A consumer that captured the stub during a cycle observes the
// final value once the producing module finishes.
type Namespace struct {
	vm        *sobek.Runtime
	url       string
	own       map[string]sobek.Value
	names     []string
	links     map[string]linkBinding
	linkNames []string
	obj       *sobek.Object
	esModule  bool
	completed bool
	frozen    bool
}

func newNamespace(vm *sobek.Runtime, url string) *Namespace {
	ns := &Namespace{
		vm:    vm,
		url:   url,
		own:   make(map[string]sobek.Value),
		links: make(map[string]linkBinding),
	}
	ns.obj = vm.NewDynamicObject(ns)
	return ns
}

// URL returns the module's canonical URL.
func (ns *Namespace) URL() string {
	return ns.url
}

// Frozen reports whether the namespace is sealed against mutation.
func (ns *Namespace) Frozen() bool {
	return ns.frozen
}

// ESModule reports whether the module follows the export-map convention.
func (ns *Namespace) ESModule() bool {
	return ns.esModule
}

// Object returns the namespace's JavaScript face.
func (ns *Namespace) Object() *sobek.Object {
	return ns.obj
}

// GetExport returns an export value and a presence flag.
func (ns *Namespace) GetExport(name string) (sobek.Value, bool) {
	if v, ok := ns.own[name]; ok {
		return v, true
	}
	if lb, ok := ns.links[name]; ok {
		return lb.src.Get(lb.name), true
	}
	return nil, false
}

// ExportNames returns the export names in declaration order, re-exported
// names last.
func (ns *Namespace) ExportNames() []string {
	names := make([]string, 0, len(ns.names)+len(ns.linkNames))
	names = append(names, ns.names...)
	for _, name := range ns.linkNames {
		if _, shadowed := ns.own[name]; !shadowed {
			names = append(names, name)
		}
	}
	return names
}

// Get implements sobek.DynamicObject. Values are computed on each read.
func (ns *Namespace) Get(key string) sobek.Value {
	if key == esModuleMarker {
		if ns.esModule {
			return ns.vm.ToValue(true)
		}
		return sobek.Undefined()
	}
	if v, ok := ns.own[key]; ok {
		return v
	}
	if lb, ok := ns.links[key]; ok {
		return lb.src.Get(lb.name)
	}
	return sobek.Undefined()
}

// Set implements sobek.DynamicObject. Rejected once the namespace is frozen.
func (ns *Namespace) Set(key string, val sobek.Value) bool {
	if ns.frozen {
		Logger().Debug("namespace write rejected",
			zap.Error(errors.New(errors.PhaseLink, errors.KindFrozen).
				URL(ns.url).
				Detail("set %q after freeze", key).
				Build()))
		return false
	}
	if key == esModuleMarker {
		ns.esModule = val.ToBoolean()
		return true
	}
	if _, exists := ns.own[key]; !exists {
		ns.names = append(ns.names, key)
	}
	ns.own[key] = val
	return true
}

// Has implements sobek.DynamicObject.
func (ns *Namespace) Has(key string) bool {
	if key == esModuleMarker {
		return ns.esModule
	}
	if _, ok := ns.own[key]; ok {
		return true
	}
	_, ok := ns.links[key]
	return ok
}

// Delete implements sobek.DynamicObject. Rejected once frozen.
func (ns *Namespace) Delete(key string) bool {
	if ns.frozen {
		Logger().Debug("namespace delete rejected",
			zap.Error(errors.New(errors.PhaseLink, errors.KindFrozen).
				URL(ns.url).
				Detail("delete %q after freeze", key).
				Build()))
		return false
	}
	if _, ok := ns.own[key]; ok {
		delete(ns.own, key)
		for i, name := range ns.names {
			if name == key {
				ns.names = append(ns.names[:i], ns.names[i+1:]...)
				break
			}
		}
	}
	return true
}

// Keys implements sobek.DynamicObject. The marker property is deliberately
// non-enumerable, matching host module namespace objects.
func (ns *Namespace) Keys() []string {
	return ns.ExportNames()
}

// linkAll copies every export name except default from src onto the
// namespace as a late-binding accessor reading through to src's live value.
// Own exports shadow re-exported names.
func (ns *Namespace) linkAll(src *sobek.Object) {
	if ns.frozen {
		return
	}
	for _, name := range src.Keys() {
		if name == "default" || name == esModuleMarker {
			continue
		}
		if _, ok := ns.links[name]; !ok {
			ns.linkNames = append(ns.linkNames, name)
		}
		ns.links[name] = linkBinding{src: src, name: name}
	}
}

// markESModule records the export-map convention marker.
func (ns *Namespace) markESModule() {
	ns.esModule = true
}

// setDefaultSelf points the default export at the namespace itself,
// supporting consumers written for the single-export convention.
func (ns *Namespace) setDefaultSelf() {
	if _, exists := ns.own["default"]; !exists {
		ns.names = append(ns.names, "default")
	}
	ns.own["default"] = ns.obj
}

// complete marks the module body as finished executing. The namespace stays
// writable until freeze so continuations scheduled by dynamic imports can
// still add exports when the job queue drains.
func (ns *Namespace) complete() {
	ns.completed = true
}

// freeze seals the namespace; no further mutation is accepted.
func (ns *Namespace) freeze() {
	ns.frozen = true
}
