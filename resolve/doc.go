// Package resolve provides the default package-resolution collaborator:
// a registry of host modules addressed by bare specifier.
//
// External packages are dependencies resolved through host rules rather
// than project-relative paths. The registry binds each bare specifier to a
// Go loader producing the package's raw exports; the runner's interop shim
// then normalizes the export shape into a namespace. Conditional bindings
// and aliases cover the conditions/mainFields knobs of fuller resolvers.
package resolve
