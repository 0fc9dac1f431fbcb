package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/agenthands/nbrain/pkg/compiler/optimizer"
	"github.com/agenthands/nbrain/pkg/compiler/parser"
	"github.com/agenthands/nbrain/pkg/config"
	"github.com/agenthands/nbrain/pkg/core/token"
	"github.com/agenthands/nbrain/pkg/vm"
	"github.com/agenthands/nbrain/pkg/vm/image"
)

const (
	appName = "nbrain"
	version = "0.1.0"
)

var log = commonlog.GetLogger(appName)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch cmd := os.Args[1]; cmd {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "build":
		os.Exit(cmdBuild(os.Args[2:]))
	case "exec":
		os.Exit(cmdExec(os.Args[2:]))
	case "version":
		fmt.Println(version)
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", appName, cmd)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Printf(`nbrain %s

Usage:
  %s run <file.bf> [flags]      Run a source file on stdin/stdout.
  %s repl [flags]               Start an interactive session.
  %s build <file.bf> [flags]    Compile a source file to a program image.
  %s exec <file.nbi> [flags]    Run a program image.
  %s version                    Print the version.

Run '%s <command> -h' for command flags.
`, version, appName, appName, appName, appName, appName, appName)
}

func fail(format string, args ...any) int {
	fmt.Fprintf(os.Stderr, appName+": "+format+"\n", args...)
	return 1
}

// loadConfig finds the nearest nbrain.toml above dir, falling back to
// defaults when there is none.
func loadConfig(dir string) (*config.Config, error) {
	cfg, err := config.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return config.Default(), nil
	}
	log.Infof("using %s", filepath.Join(cfg.Dir, config.FileName))
	return cfg, nil
}

// compile runs the full source pipeline: optional textual optimization,
// then parsing with or without run-length compression.
func compile(src string, optimize, compress bool) (token.Program, error) {
	if optimize {
		before := len(src)
		src = optimizer.Optimize(src)
		log.Debugf("optimizer: %d -> %d bytes", before, len(src))
	}
	if compress {
		return parser.ParseCompress(src)
	}
	return parser.Parse(src)
}

func cmdRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	tape := fs.Int("tape", 0, "tape size in cells (overrides nbrain.toml)")
	noOptimize := fs.Bool("no-optimize", false, "skip the textual optimizer")
	noCompress := fs.Bool("no-compress", false, "disable run-length compression")
	force := fs.Bool("force", false, "run files regardless of extension")
	verbosity := fs.Int("v", 0, "log verbosity")

	if len(args) < 1 || strings.HasPrefix(args[0], "-") {
		fmt.Fprintf(os.Stderr, "usage: %s run <file.bf> [flags]\n", appName)
		return 2
	}
	file := args[0]
	fs.Parse(args[1:])
	commonlog.Configure(*verbosity, nil)

	cfg, err := loadConfig(filepath.Dir(file))
	if err != nil {
		return fail("%v", err)
	}

	if ext := filepath.Ext(file); !*force && !cfg.AllowsExtension(ext) {
		return fail("%s: unrecognized extension %q (use -force to run anyway)", file, ext)
	}

	src, err := os.ReadFile(file)
	if err != nil {
		return fail("cannot read %s: %v", file, err)
	}

	prog, err := compile(string(src), cfg.OptimizeEnabled() && !*noOptimize, cfg.CompressEnabled() && !*noCompress)
	if err != nil {
		return fail("%s: %v", file, err)
	}

	size := cfg.Interpreter.TapeSize
	if *tape > 0 {
		size = *tape
	}
	m, err := vm.NewStandard(size)
	if err != nil {
		return fail("%v", err)
	}

	log.Infof("running %s: %d tokens, %d-cell tape", file, len(prog), size)
	if err := m.Run(prog); err != nil {
		return fail("%v", err)
	}
	return 0
}

func cmdBuild(args []string) int {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	out := fs.String("o", "", "output file (default: source name with .nbi)")
	tape := fs.Int("tape", 0, "tape size recorded in the image")
	noOptimize := fs.Bool("no-optimize", false, "skip the textual optimizer")
	verbosity := fs.Int("v", 0, "log verbosity")

	if len(args) < 1 || strings.HasPrefix(args[0], "-") {
		fmt.Fprintf(os.Stderr, "usage: %s build <file.bf> [flags]\n", appName)
		return 2
	}
	file := args[0]
	fs.Parse(args[1:])
	commonlog.Configure(*verbosity, nil)

	cfg, err := loadConfig(filepath.Dir(file))
	if err != nil {
		return fail("%v", err)
	}

	src, err := os.ReadFile(file)
	if err != nil {
		return fail("cannot read %s: %v", file, err)
	}

	prog, err := compile(string(src), cfg.OptimizeEnabled() && !*noOptimize, true)
	if err != nil {
		return fail("%s: %v", file, err)
	}

	size := cfg.Interpreter.TapeSize
	if *tape > 0 {
		size = *tape
	}

	target := *out
	if target == "" {
		target = strings.TrimSuffix(file, filepath.Ext(file)) + ".nbi"
	}
	f, err := os.Create(target)
	if err != nil {
		return fail("cannot create %s: %v", target, err)
	}
	defer f.Close()

	if err := image.Write(f, image.Pack(prog, size)); err != nil {
		return fail("cannot write %s: %v", target, err)
	}
	log.Infof("built %s: %d tokens, %d-cell tape", target, len(prog), size)
	return 0
}

func cmdExec(args []string) int {
	fs := flag.NewFlagSet("exec", flag.ExitOnError)
	verbosity := fs.Int("v", 0, "log verbosity")

	if len(args) < 1 || strings.HasPrefix(args[0], "-") {
		fmt.Fprintf(os.Stderr, "usage: %s exec <file.nbi> [flags]\n", appName)
		return 2
	}
	file := args[0]
	fs.Parse(args[1:])
	commonlog.Configure(*verbosity, nil)

	f, err := os.Open(file)
	if err != nil {
		return fail("cannot read %s: %v", file, err)
	}
	defer f.Close()

	img, err := image.Read(f)
	if err != nil {
		return fail("%s: %v", file, err)
	}
	prog, err := img.Unpack()
	if err != nil {
		return fail("%s: %v", file, err)
	}

	m, err := vm.NewStandard(img.TapeSize)
	if err != nil {
		return fail("%s: %v", file, err)
	}

	log.Infof("executing %s: %d tokens, %d-cell tape", file, len(prog), img.TapeSize)
	if err := m.Run(prog); err != nil {
		return fail("%v", err)
	}
	return 0
}
