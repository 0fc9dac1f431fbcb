package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"github.com/tliron/commonlog"

	"github.com/agenthands/nbrain/pkg/compiler/parser"
	"github.com/agenthands/nbrain/pkg/vm"
)

const (
	historyFile = ".nbrain_history"
	prompt      = "bf> "
)

const replHelp = `
REPL commands:
  :tape    Show the tape around the cursor
  :reset   Zero the tape and return the cursor home
  :help    Show this help
  :quit    Exit the REPL
`

// cmdRepl executes lines one at a time against a single persistent
// machine, so cell contents and cursor position carry over between
// inputs.
func cmdRepl(args []string) int {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	tape := fs.Int("tape", 0, "tape size in cells (overrides nbrain.toml)")
	verbosity := fs.Int("v", 0, "log verbosity")
	fs.Parse(args)
	commonlog.Configure(*verbosity, nil)

	cfg, err := loadConfig(".")
	if err != nil {
		return fail("%v", err)
	}
	size := cfg.Interpreter.TapeSize
	if *tape > 0 {
		size = *tape
	}

	m, err := vm.NewStandard(size)
	if err != nil {
		return fail("%v", err)
	}

	fmt.Printf("nbrain %s REPL, %d-cell tape\nCtrl+C cancels input, Ctrl+D exits. Type :help for commands.\n", version, size)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	for {
		line, err := ln.Prompt(prompt)
		if err != nil {
			if err == liner.ErrPromptAborted {
				continue
			}
			fmt.Println()
			return 0
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)

		if strings.HasPrefix(line, ":") {
			if quit := replCommand(m, line); quit {
				return 0
			}
			continue
		}

		prog, err := parser.ParseCompress(line)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		if err := m.Run(prog); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

func replCommand(m *vm.Machine, line string) (quit bool) {
	switch line {
	case ":quit", ":q":
		return true
	case ":reset":
		m.Reset()
	case ":tape":
		printTape(m)
	case ":help":
		fmt.Print(replHelp)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %s (try :help)\n", line)
	}
	return false
}

// printTape shows one row of cells around the cursor.
func printTape(m *vm.Machine) {
	const window = 8

	start := m.Cursor() - window/2
	if start < 0 {
		start = 0
	}
	end := start + window
	if end > m.Len() {
		end = m.Len()
	}

	fmt.Printf("cursor %d of %d\n", m.Cursor(), m.Len())
	for i := start; i < end; i++ {
		marker := " "
		if i == m.Cursor() {
			marker = ">"
		}
		fmt.Printf("%s [%d] = %d\n", marker, i, m.Cell(i))
	}
}
