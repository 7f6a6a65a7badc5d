// Package graph implements the persistent module record store.
//
// Each canonical URL owns exactly one Node holding the cached instantiated
// namespace and the cached transform result. Records are created lazily on
// first reference and invalidated by clearing both cached fields, forcing
// re-instantiation on the next request. The Watcher maps filesystem events
// back to records through the file index and performs that invalidation.
package graph
