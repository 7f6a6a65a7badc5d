package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/term"

	modulerunner "github.com/wippyai/module-runner"
	"github.com/wippyai/module-runner/graph"
	"github.com/wippyai/module-runner/resolve"
	"github.com/wippyai/module-runner/runner"
	"github.com/wippyai/module-runner/sandbox"
)

func main() {
	var (
		root        = flag.String("root", ".", "Serving root containing pre-transformed module files")
		entry       = flag.String("entry", "", "Entry module URL, e.g. /main.js")
		mode        = flag.String("mode", "mapped", "Execution strategy: inline or mapped")
		watch       = flag.Bool("watch", false, "Watch the root and invalidate modules on change")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	if *entry == "" {
		fmt.Fprintln(os.Stderr, "Usage: run -root <dir> -entry </main.js> [-mode inline|mapped] [-watch]")
		fmt.Fprintln(os.Stderr, "       run -root <dir> -entry </main.js> -i  (interactive mode)")
		os.Exit(1)
	}

	execMode := sandbox.ModeMapped
	if *mode == "inline" {
		execMode = sandbox.ModeInline
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "interactive mode requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*root, *entry, execMode); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*root, *entry, execMode, *watch, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(root, entry string, mode sandbox.Mode, watch, verbose bool) error {
	ctx := context.Background()

	logger := zap.NewNop()
	if verbose {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			return err
		}
		runner.SetLogger(logger)
		graph.SetLogger(logger)
		sandbox.SetLogger(logger)
	}

	r, g, err := newRunner(root, mode, logger)
	if err != nil {
		return err
	}

	ns, err := r.Load(ctx, entry)
	if err != nil {
		return err
	}

	printNamespace(ns)

	if !watch {
		return nil
	}

	w, err := graph.NewWatcher(g)
	if err != nil {
		return err
	}
	if err := w.AddRoot(root); err != nil {
		return err
	}
	defer w.Stop()

	reload := make(chan []string, 16)
	w.OnChange(func(urls []string) { reload <- urls })
	w.Start(ctx)

	fmt.Println("\nwatching for changes, ctrl+c to exit")
	for urls := range reload {
		for _, url := range urls {
			fmt.Printf("reloading %s\n", url)
		}
		ns, err := r.Load(ctx, entry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			continue
		}
		printNamespace(ns)
	}
	return nil
}

// newRunner wires a runner for the serving root: a file-backed transform,
// a record store mapping URLs into the root, and a small host registry.
func newRunner(root string, mode sandbox.Mode, logger *zap.Logger) (*runner.Runner, *graph.Graph, error) {
	transformer := newFileTransformer(root)
	g := graph.New(graph.WithFileResolver(transformer.fileFor))

	registry := resolve.NewRegistry()
	registry.RegisterValue("host:env", envExports())

	r, err := runner.New(runner.Options{
		Transformer: transformer,
		Graph:       g,
		Packages:    registry,
		HostModules: registry,
		Reporter:    modulerunner.NewZapReporter(logger),
		Mode:        mode,
	})
	if err != nil {
		return nil, nil, err
	}
	return r, g, nil
}

// envExports exposes the process environment as a host module.
func envExports() map[string]any {
	env := make(map[string]any)
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				env[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return map[string]any{"env": env}
}

func printNamespace(ns *runner.Namespace) {
	names := ns.ExportNames()
	sort.Strings(names)
	fmt.Printf("Module: %s\n", ns.URL())
	fmt.Printf("Exports:\n")
	for _, name := range names {
		v, _ := ns.GetExport(name)
		fmt.Printf("  %s = %v\n", name, v)
	}
}
