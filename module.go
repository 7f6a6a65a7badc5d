package modulerunner

import "context"

// TransformResult is the output of the transform collaborator for one module:
// executable code following the runner's linkage convention, the list of
// static dependency specifiers in declaration order, and an optional source
// map for the generated code.
type TransformResult struct {
	Code string
	Deps []string
	Map  []byte
}

// Transformer turns a module URL into executable code plus its dependency
// list. A (nil, nil) result signals the module cannot be found or compiled
// and is fatal for the requesting load.
type Transformer interface {
	Transform(ctx context.Context, url string) (*TransformResult, error)
}

// TransformerFunc adapts a function to the Transformer interface.
type TransformerFunc func(ctx context.Context, url string) (*TransformResult, error)

func (f TransformerFunc) Transform(ctx context.Context, url string) (*TransformResult, error) {
	return f(ctx, url)
}

// ResolveOptions configures package resolution for bare specifiers.
type ResolveOptions struct {
	Conditions []string
	Dedupe     []string
	MainFields []string
}

// PackageResolver maps a bare specifier to a loadable path for an
// externally-installed package. Project-relative specifiers never reach it.
type PackageResolver interface {
	ResolvePackage(specifier, importerFile string, opts ResolveOptions) (string, error)
}

// HostLoader produces the raw exports value for a resolved external package
// path, using the host's native loading mechanism. Never used for project
// source.
type HostLoader interface {
	LoadHostModule(path string) (any, error)
}

// ReportOptions controls how a report line is emitted.
type ReportOptions struct {
	Err         error
	Timestamp   bool
	ClearScreen bool
}

// Reporter is the logging collaborator: a sink for formatted error and
// status messages.
type Reporter interface {
	Report(msg string, opts ReportOptions)
}
