package graph

import (
	"sort"
	"testing"

	modulerunner "github.com/wippyai/module-runner"
)

func TestEnsureEntryIdentity(t *testing.T) {
	g := New()

	a := g.EnsureEntry("/a.js")
	b := g.EnsureEntry("/a.js")
	if a != b {
		t.Error("same URL produced two records")
	}
	if a.URL != "/a.js" {
		t.Errorf("URL = %q", a.URL)
	}
	if g.EnsureEntry("/b.js") == a {
		t.Error("different URLs share a record")
	}
}

func TestGetUnreferenced(t *testing.T) {
	g := New()
	if g.Get("/never.js") != nil {
		t.Error("Get created a record")
	}
}

func TestFileResolver(t *testing.T) {
	g := New(WithFileResolver(func(url string) string {
		if url == "/virtual.js" {
			return ""
		}
		return "/srv" + url
	}))

	node := g.EnsureEntry("/a.js")
	if node.File != "/srv/a.js" {
		t.Errorf("File = %q, want /srv/a.js", node.File)
	}

	virtual := g.EnsureEntry("/virtual.js")
	if virtual.File != "" {
		t.Errorf("virtual module got file %q", virtual.File)
	}
}

func TestInvalidate(t *testing.T) {
	g := New()
	node := g.EnsureEntry("/a.js")
	node.Instance = "instance"
	node.Transform = &modulerunner.TransformResult{Code: "x"}

	if node.Invalidated() {
		t.Fatal("populated node reported invalidated")
	}
	g.Invalidate(node)
	if !node.Invalidated() {
		t.Error("node not cleared")
	}
	if node.Instance != nil || node.Transform != nil {
		t.Error("cached fields survived invalidation")
	}

	// Identity survives invalidation.
	if g.EnsureEntry("/a.js") != node {
		t.Error("invalidation replaced the record")
	}
}

func TestInvalidateFile(t *testing.T) {
	g := New(WithFileResolver(func(url string) string {
		return "/srv/shared.ts"
	}))

	a := g.EnsureEntry("/a.js")
	b := g.EnsureEntry("/b.js")
	a.Instance = "a"
	b.Instance = "b"

	urls := g.InvalidateFile("/srv/shared.ts")
	sort.Strings(urls)
	if len(urls) != 2 || urls[0] != "/a.js" || urls[1] != "/b.js" {
		t.Fatalf("urls = %v", urls)
	}
	if !a.Invalidated() || !b.Invalidated() {
		t.Error("records not cleared")
	}

	if got := g.InvalidateFile("/srv/unknown.ts"); got != nil {
		t.Errorf("unknown path invalidated %v", got)
	}
}

func TestSetFile(t *testing.T) {
	g := New()
	node := g.EnsureEntry("/a.js")
	node.Instance = "a"

	g.SetFile(node, "/srv/a.ts")
	if urls := g.InvalidateFile("/srv/a.ts"); len(urls) != 1 || urls[0] != "/a.js" {
		t.Fatalf("urls = %v", urls)
	}

	// Rebinding removes the old index entry.
	node.Instance = "a"
	g.SetFile(node, "/srv/a2.ts")
	if urls := g.InvalidateFile("/srv/a.ts"); urls != nil {
		t.Errorf("stale binding still indexed: %v", urls)
	}
	if urls := g.InvalidateFile("/srv/a2.ts"); len(urls) != 1 {
		t.Errorf("new binding not indexed: %v", urls)
	}
}

func TestNodes(t *testing.T) {
	g := New()
	g.EnsureEntry("/a.js")
	g.EnsureEntry("/b.js")

	nodes := g.Nodes()
	if len(nodes) != 2 {
		t.Fatalf("got %d nodes", len(nodes))
	}
}
