package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gookit/color"
	"github.com/peterh/liner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/timewinder-dev/watchpoint/config"
	"github.com/timewinder-dev/watchpoint/interp"
	"github.com/timewinder-dev/watchpoint/vm"
	"go.starlark.net/syntax"
)

const replHistoryFile = ".watchpoint_history"

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Evaluate statements interactively with watches enabled",
	Args:  cobra.NoArgs,
	Run:   replCommand,
}

func init() {
	replCmd.Flags().StringVar(&outputFlag, "output", "", "Write change reports to stdout, stderr or a file")
	replCmd.Flags().StringSliceVar(&trackFlag, "track", nil, "Default track mode: variable, object")
	replCmd.Flags().BoolVar(&historyFlag, "history", false, "Record every watched value")
}

func replCommand(cmd *cobra.Command, args []string) {
	s := &config.File{Output: outputFlag, Track: trackFlag, History: historyFlag}
	m := interp.NewMachine(nil)
	r, closeOut, err := newRegistry(m, s)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid settings")
	}
	defer closeOut()
	defer r.Close()

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, replHistoryFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Println(color.Bold.Sprint("watchpoint repl"), "- watch(x) to follow a value, Ctrl-D to exit")
	for {
		src, f, err := readStatement(ln)
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, color.Red.Sprint(err))
			continue
		}
		if len(f.Stmts) == 0 {
			continue
		}
		ln.AppendHistory(strings.TrimSpace(strings.ReplaceAll(src, "\n", " ")))
		if err := evalStatement(m, src, f); err != nil {
			fmt.Fprintln(os.Stderr, color.Red.Sprint(err))
		}
	}
}

// readStatement prompts until one complete statement has been entered.
func readStatement(ln *liner.State) (string, *syntax.File, error) {
	var b strings.Builder
	readline := func() ([]byte, error) {
		prompt := ">>> "
		if b.Len() > 0 {
			prompt = "... "
		}
		line, err := ln.Prompt(prompt)
		if err != nil {
			return nil, err
		}
		b.WriteString(line)
		b.WriteByte('\n')
		return []byte(line + "\n"), nil
	}
	f, err := vm.ParseInteractive("<stdin>", readline)
	return b.String(), f, err
}

// evalStatement echoes bare expressions and executes everything else
// against the session's globals.
func evalStatement(m *interp.Machine, src string, f *syntax.File) error {
	if len(f.Stmts) == 1 {
		if es, ok := f.Stmts[0].(*syntax.ExprStmt); ok {
			if _, isCall := es.X.(*syntax.CallExpr); !isCall {
				v, err := m.Eval(strings.TrimSpace(src))
				if err != nil {
					return err
				}
				fmt.Println(color.Cyan.Sprint(interp.FormatValue(v)))
				return nil
			}
		}
	}
	prog, err := vm.Compile(f)
	if err != nil {
		return err
	}
	prog.Filename = "<stdin>"
	return m.Exec(prog)
}
