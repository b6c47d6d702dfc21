// Lama CLI - runs Lama programs, the REPL and the evaluation servers.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"

	"github.com/chazu/lama/compiler"
	"github.com/chazu/lama/journal"
	"github.com/chazu/lama/manifest"
	"github.com/chazu/lama/server"
	"github.com/chazu/lama/vm"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("lama")

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	interactive := flag.Bool("i", false, "Start interactive REPL")
	serveMode := flag.Bool("serve", false, "Start evaluation server (Connect HTTP + gRPC)")
	servePort := flag.Int("port", 0, "Connect server port (used with --serve, default 4567)")
	grpcPort := flag.Int("grpc-port", 0, "gRPC server port (used with --serve, default 4568)")
	journalPath := flag.String("journal", "", "SQLite journal of evaluated worlds (used with --serve)")
	lspMode := flag.Bool("lsp", false, "Start the language server on stdio")
	checked := flag.Bool("checked", false, "Fault on 64-bit overflow instead of promoting to BigNumber")
	multiWorld := flag.Bool("multi-world", false, "Disable the single-world assumption")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: lama [options] [files...]\n\n")
		fmt.Fprintf(os.Stderr, "Runs each Lama file in a fresh world on stdin/stdout.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  lama fib.lama              # Run a program\n")
		fmt.Fprintf(os.Stderr, "  lama -i                    # Start REPL\n")
		fmt.Fprintf(os.Stderr, "  lama --serve --port 8080   # Serve evaluations on :8080\n")
		fmt.Fprintf(os.Stderr, "  lama --lsp                 # Language server for editors\n")
	}
	flag.Parse()

	m, err := manifest.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg := defaultConfig()
	if m != nil {
		if err := cfg.applyManifest(m); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	// Flags override the manifest
	if *checked {
		cfg.opts.Arithmetic = vm.CheckedOverflow
	}
	if *multiWorld {
		cfg.opts.Worlds = vm.MultiWorldMode
	}
	if *servePort != 0 {
		cfg.addr = fmt.Sprintf(":%d", *servePort)
	}
	if *grpcPort != 0 {
		cfg.grpcAddr = fmt.Sprintf(":%d", *grpcPort)
	}
	if *journalPath != "" {
		cfg.journal = *journalPath
	}
	if *verbose {
		cfg.verbosity = 2
	} else if !*serveMode && cfg.verbosity == 0 {
		// Keep program output clean unless asked
		cfg.verbosity = -1
	}
	commonlog.Configure(cfg.verbosity, cfg.logFile)

	switch {
	case *lspMode:
		if err := server.NewLSP().Run(); err != nil {
			fmt.Fprintf(os.Stderr, "LSP error: %v\n", err)
			os.Exit(1)
		}
	case *serveMode:
		if err := serve(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
	default:
		paths := flag.Args()
		if len(paths) == 0 && cfg.entry != "" && !*interactive {
			paths = []string{cfg.entry}
		}
		engine := vm.NewEngine(cfg.opts)
		for _, path := range paths {
			if err := runFile(engine, path, os.Stdin, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
				os.Exit(1)
			}
		}
		if *interactive || len(paths) == 0 {
			prompt := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
			runREPL(engine, os.Stdin, os.Stdout, prompt)
		}
	}
}

// config is the merged result of manifest and flags.
type config struct {
	opts      vm.Options
	entry     string
	addr      string
	grpcAddr  string
	journal   string
	verbosity int
	logFile   *string
}

func defaultConfig() *config {
	return &config{
		opts:     vm.DefaultOptions(),
		addr:     ":4567",
		grpcAddr: ":4568",
	}
}

func (c *config) applyManifest(m *manifest.Manifest) error {
	opts, err := m.EngineOptions()
	if err != nil {
		return err
	}
	c.opts = opts
	c.entry = m.EntryPath()
	if m.Server.Address != "" {
		c.addr = m.Server.Address
	}
	if m.Server.GRPCAddress != "" {
		c.grpcAddr = m.Server.GRPCAddress
	}
	c.journal = m.JournalPath()
	c.verbosity = m.Log.Verbosity
	if m.Log.File != "" {
		path := m.Log.File
		c.logFile = &path
	}
	log.Debugf("loaded manifest %s", m.Path)
	return nil
}

// runFile parses and runs one source file in a fresh world.
func runFile(engine *vm.Engine, path string, in io.Reader, out io.Writer) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	prog, err := compiler.Parse(engine, string(src))
	if err != nil {
		return err
	}
	w := engine.NewWorld(vm.NewReaderInput(in), vm.NewWriterOutput(out))
	defer w.Close()
	_, err = w.Run(prog)
	if err != nil {
		return describeFault(err, string(src))
	}
	return nil
}

// describeFault adds the line and source text of a fault's location.
func describeFault(err error, src string) error {
	f, ok := vm.AsFault(err)
	if !ok || f.Section == nil || f.Section.End() > len(src) {
		return err
	}
	line := strings.Count(src[:f.Section.CharIndex], "\n") + 1
	return fmt.Errorf("line %d: %w\n  %s", line, err, src[f.Section.CharIndex:f.Section.End()])
}

func serve(cfg *config) error {
	var options []server.ServerOption
	if cfg.journal != "" {
		j, err := journal.Open(cfg.journal)
		if err != nil {
			return err
		}
		defer j.Close()
		options = append(options, server.WithJournal(j))
	}

	srv := server.New(cfg.opts, options...)
	defer srv.Stop()

	errs := make(chan error, 2)
	go func() { errs <- srv.ListenAndServeGRPC(cfg.grpcAddr) }()
	go func() { errs <- srv.ListenAndServe(cfg.addr) }()
	return <-errs
}
