package graph

import (
	"sync"

	"go.uber.org/zap"

	modulerunner "github.com/wippyai/module-runner"
)

// Node is the module record for one canonical URL. Instance holds the
// runner's namespace object (published as a stub during instantiation,
// frozen on completion); Transform holds the cached transform result.
// Both are cleared together on invalidation.
type Node struct {
	URL       string
	File      string
	Instance  any
	Transform *modulerunner.TransformResult
}

// Invalidated reports whether the node carries neither a cached instance
// nor a cached transform.
func (n *Node) Invalidated() bool {
	return n.Instance == nil && n.Transform == nil
}

// FileResolver maps a canonical URL to an on-disk path. Returning "" marks
// the module as virtual (no backing file).
type FileResolver func(url string) string

// Graph is the persistent module record store. It owns node identity:
// one record per canonical URL, created lazily on first reference.
// Safe for concurrent use; node cached fields are mutated only by the
// runner, serialized by its one-in-flight-per-URL invariant.
type Graph struct {
	mu          sync.RWMutex
	urlToNode   map[string]*Node
	fileToNodes map[string]map[*Node]struct{}
	resolveFile FileResolver
}

// Option configures a Graph.
type Option func(*Graph)

// WithFileResolver sets the URL-to-file mapping used when records are created.
func WithFileResolver(fn FileResolver) Option {
	return func(g *Graph) { g.resolveFile = fn }
}

// New creates an empty module graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		urlToNode:   make(map[string]*Node),
		fileToNodes: make(map[string]map[*Node]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// EnsureEntry returns the record for url, creating it on first reference.
func (g *Graph) EnsureEntry(url string) *Node {
	g.mu.Lock()
	defer g.mu.Unlock()

	if node, ok := g.urlToNode[url]; ok {
		return node
	}

	node := &Node{URL: url}
	if g.resolveFile != nil {
		node.File = g.resolveFile(url)
	}
	g.urlToNode[url] = node
	if node.File != "" {
		g.indexFile(node)
	}
	return node
}

// Get returns the record for url, or nil if it was never referenced.
func (g *Graph) Get(url string) *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.urlToNode[url]
}

// SetFile binds a record to an on-disk path, replacing any previous binding.
func (g *Graph) SetFile(node *Node, file string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if node.File != "" {
		if set, ok := g.fileToNodes[node.File]; ok {
			delete(set, node)
			if len(set) == 0 {
				delete(g.fileToNodes, node.File)
			}
		}
	}
	node.File = file
	if file != "" {
		g.indexFile(node)
	}
}

// indexFile must be called with g.mu held.
func (g *Graph) indexFile(node *Node) {
	set, ok := g.fileToNodes[node.File]
	if !ok {
		set = make(map[*Node]struct{})
		g.fileToNodes[node.File] = set
	}
	set[node] = struct{}{}
}

// Invalidate clears the record's cached instance and transform, forcing
// re-instantiation on the next request. The old instance is never mutated;
// consumers holding it keep the stale value until they re-fetch.
func (g *Graph) Invalidate(node *Node) {
	g.mu.Lock()
	defer g.mu.Unlock()

	node.Instance = nil
	node.Transform = nil
	Logger().Debug("module invalidated", zap.String("url", node.URL))
}

// InvalidateFile invalidates every record backed by the given path and
// returns their URLs.
func (g *Graph) InvalidateFile(path string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	set, ok := g.fileToNodes[path]
	if !ok {
		return nil
	}
	urls := make([]string, 0, len(set))
	for node := range set {
		node.Instance = nil
		node.Transform = nil
		urls = append(urls, node.URL)
	}
	Logger().Debug("file invalidated", zap.String("path", path), zap.Int("modules", len(urls)))
	return urls
}

// Nodes returns a snapshot of all records.
func (g *Graph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes := make([]*Node, 0, len(g.urlToNode))
	for _, node := range g.urlToNode {
		nodes = append(nodes, node)
	}
	return nodes
}
