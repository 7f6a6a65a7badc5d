package runner

import (
	stderrors "errors"
	"testing"

	"github.com/grafana/sobek"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/module-runner/errors"
)

func TestNamespaceMarkerNotEnumerable(t *testing.T) {
	vm := sobek.New()
	ns := newNamespace(vm, "/m.js")
	ns.Set(esModuleMarker, vm.ToValue(true))
	ns.Set("a", vm.ToValue(1))

	if !ns.ESModule() {
		t.Error("marker write not recorded")
	}
	for _, key := range ns.Keys() {
		if key == esModuleMarker {
			t.Error("marker is enumerable")
		}
	}
	if !ns.Has(esModuleMarker) {
		t.Error("marker not visible to Has")
	}
}

func TestNamespaceOwnShadowsLink(t *testing.T) {
	vm := sobek.New()

	src := newNamespace(vm, "/dep.js")
	src.Set("x", vm.ToValue(1))
	src.Set("y", vm.ToValue(2))

	ns := newNamespace(vm, "/m.js")
	ns.Set("x", vm.ToValue(10))
	ns.linkAll(src.Object())

	if v := ns.Get("x"); v.ToInteger() != 10 {
		t.Errorf("x = %v, own export should shadow re-export", v)
	}
	if v := ns.Get("y"); v.ToInteger() != 2 {
		t.Errorf("y = %v, want 2", v)
	}

	names := ns.ExportNames()
	seen := map[string]int{}
	for _, n := range names {
		seen[n]++
	}
	if seen["x"] != 1 {
		t.Errorf("x listed %d times in %v", seen["x"], names)
	}
}

func TestNamespaceLinkIsLateBinding(t *testing.T) {
	vm := sobek.New()

	src := newNamespace(vm, "/dep.js")
	src.Set("v", vm.ToValue(1))

	ns := newNamespace(vm, "/m.js")
	ns.linkAll(src.Object())

	src.Set("v", vm.ToValue(2))
	if got := ns.Get("v").ToInteger(); got != 2 {
		t.Errorf("v = %d, re-export snapshotted instead of reading through", got)
	}
}

func TestFrozenRejectionLogged(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(zap.NewNop())

	vm := sobek.New()
	ns := newNamespace(vm, "/m.js")
	ns.Set("x", vm.ToValue(1))
	ns.freeze()

	if ns.Set("y", vm.ToValue(2)) {
		t.Fatal("set accepted after freeze")
	}
	if ns.Delete("x") {
		t.Fatal("delete accepted after freeze")
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d log entries, want 2", len(entries))
	}
	for _, entry := range entries {
		var logged error
		for _, f := range entry.Context {
			if f.Key == "error" {
				logged, _ = f.Interface.(error)
			}
		}
		if !stderrors.Is(logged, &errors.Error{Phase: errors.PhaseLink, Kind: errors.KindFrozen}) {
			t.Errorf("unexpected logged error for %q: %v", entry.Message, logged)
		}
	}
}

func TestNamespaceDeleteBeforeFreeze(t *testing.T) {
	vm := sobek.New()
	ns := newNamespace(vm, "/m.js")
	ns.Set("a", vm.ToValue(1))

	if !ns.Delete("a") {
		t.Fatal("delete rejected before freeze")
	}
	if _, ok := ns.GetExport("a"); ok {
		t.Error("export survived delete")
	}
	if len(ns.ExportNames()) != 0 {
		t.Errorf("names = %v", ns.ExportNames())
	}
}
