package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gookit/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/timewinder-dev/watchpoint/config"
	"github.com/timewinder-dev/watchpoint/interp"
	"github.com/timewinder-dev/watchpoint/vm"
	"github.com/timewinder-dev/watchpoint/watch"
)

var (
	configPath  string
	outputFlag  string
	trackFlag   []string
	historyFlag bool
	followFlag  bool
	watchFlag   []string
)

var runCmd = &cobra.Command{
	Use:   "run [SCRIPT]",
	Short: "Run a script with watches enabled",
	Args:  cobra.MaximumNArgs(1),
	Run:   runCommand,
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "Load settings from a TOML or YAML file")
	runCmd.Flags().StringVar(&outputFlag, "output", "", "Write change reports to stdout, stderr or a file")
	runCmd.Flags().StringSliceVar(&trackFlag, "track", nil, "Default track mode: variable, object")
	runCmd.Flags().BoolVar(&historyFlag, "history", false, "Record every watched value and print a summary at exit")
	runCmd.Flags().BoolVar(&followFlag, "follow", false, "Run again whenever the script changes")
	runCmd.Flags().StringSliceVar(&watchFlag, "watch", nil, "Watch these globals from the start of the run")
}

// settings merges the config file, if any, with the command line.
func settings(args []string) (*config.File, error) {
	s := &config.File{}
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		s = loaded
	}
	flags := &config.File{Output: outputFlag, Track: trackFlag, History: historyFlag, Watch: watchFlag}
	if len(args) > 0 {
		flags.Script = args[0]
	}
	s.Merge(flags)
	if s.Script == "" {
		return nil, errors.New("no script given")
	}
	if _, err := s.TrackMode(); err != nil {
		return nil, err
	}
	return s, nil
}

func runCommand(cmd *cobra.Command, args []string) {
	s, err := settings(args)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid settings")
	}
	if s.LogLevel != "" && !cmd.Flags().Changed("log-level") {
		setLogLevel(s.LogLevel)
	}
	if s.Color != nil && !*s.Color {
		color.Disable()
	}
	if !followFlag {
		if err := runOnce(s); err != nil {
			os.Exit(1)
		}
		return
	}
	if err := follow(s); err != nil {
		log.Fatal().Err(err).Msg("Couldn't follow script")
	}
}

// runOnce compiles and runs the script on a fresh machine. Script errors
// are reported and returned.
func runOnce(s *config.File) error {
	prog, err := vm.CompilePath(s.Script)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.Red.Sprint(err))
		return err
	}
	m := interp.NewMachine(prog)
	r, closeOut, err := newRegistry(m, s)
	if err != nil {
		log.Error().Err(err).Msg("Couldn't set up watches")
		return err
	}
	defer closeOut()
	defer r.Close()

	log.Debug().Str("script", s.Script).Msg("Running script")
	err = m.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, color.Red.Sprint(err))
	}
	if h := r.History(); h != nil {
		fmt.Fprint(os.Stderr, formatHistory(h))
	}
	return err
}

// newRegistry builds the registry a run or repl session uses. The returned
// func closes an output file opened for it.
func newRegistry(m *interp.Machine, s *config.File) (*watch.Registry, func(), error) {
	track, err := s.TrackMode()
	if err != nil {
		return nil, nil, err
	}
	defaults := watch.Config{Track: track, History: s.History}
	closeOut := func() {}
	if s.Output != "" {
		w, c, err := watch.OpenOutput(s.Output)
		if err != nil {
			return nil, nil, err
		}
		defaults.Output = w
		if c != nil {
			closeOut = func() { c.Close() }
		}
	}
	r := watch.NewRegistry(m, defaults)
	for _, name := range s.Watch {
		if _, err := r.WatchGlobal(name, 0, nil); err != nil {
			closeOut()
			return nil, nil, err
		}
	}
	return r, closeOut, nil
}

func formatHistory(h *watch.History) string {
	recs := h.Records()
	out := color.Bold.Sprintf("History: %d changes\n", len(recs))
	for _, rec := range recs {
		out += fmt.Sprintf("  %s %s %s\n", color.Cyan.Sprint(rec.Location), rec.Target, rec.Kind)
		if rec.HasNew {
			if v, err := h.Value(rec.New); err == nil {
				out += fmt.Sprintf("    = %s (%s)\n", interp.FormatValue(v), color.Gray.Sprint(rec.New))
			}
		}
	}
	return out
}

// follow reruns the script each time it is written, until interrupted.
func follow(s *config.File) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	// Editors often replace files, so watch the directory.
	if err := w.Add(filepath.Dir(s.Script)); err != nil {
		return err
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	defer signal.Stop(sigc)

	target := filepath.Clean(s.Script)
	runOnce(s)
	var rerun <-chan time.Time
	for {
		select {
		case ev := <-w.Events:
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			rerun = time.After(100 * time.Millisecond)
		case <-rerun:
			rerun = nil
			fmt.Fprintln(os.Stderr, color.Cyan.Sprintf("--- %s changed, running again", s.Script))
			runOnce(s)
		case err := <-w.Errors:
			log.Warn().Err(err).Msg("File watcher error")
		case <-sigc:
			return nil
		}
	}
}
