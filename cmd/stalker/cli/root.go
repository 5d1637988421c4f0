// Package cli implements the stalker command-line interface using Cobra.
// Stalker traces the syscall activity of one Linux process, either by
// launching a program under supervision or by attaching to a running pid.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/XDRAGON2002/stalker/internal/config"
	"github.com/XDRAGON2002/stalker/internal/log"
	"github.com/XDRAGON2002/stalker/internal/trace"
)

var (
	attachPID int
	verbose   bool
	jsonLogs  bool
	debugDir  string

	// exitCode carries the tracee's terminal status out of runTrace so the
	// stalker process can exit with it.
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "stalker [flags] <command> [args...]",
	Short: "Stalker - live syscall tracing for Linux processes",
	Long: `Stalker observes the syscall activity of a Linux process on x86-64
and prints one line per completed syscall: pid, resolved name, the first
three argument registers, and the return value, all as hex words.

Launch mode runs a program under tracing from its very first instruction.
Attach mode (-p) joins an already-running process mid-execution; depending on
the kernel's tracing policy this may need elevated privilege, and tracing
continues until stalker itself is terminated.

Forked or cloned children of the tracee are not followed.

Examples:
  # Trace a new process from its first instruction
  stalker ls -al /etc/hosts

  # Attach to a running process (may need sudo under YAMA)
  stalker -p 51942

  # Pipe the trace while keeping diagnostics out of the stream
  stalker ls 2>/dev/null | grep openat`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		globalCfg, _ := config.LoadGlobal()

		if !cmd.Flags().Changed("verbose") {
			verbose = globalCfg.Log.Verbose
		}
		if debugDir == "" {
			debugDir = globalCfg.Debug.Dir
		}
		// Structured text reads poorly once stderr is captured by another
		// tool; fall back to JSON there unless the user decided.
		if !cmd.Flags().Changed("json") {
			jsonLogs = globalCfg.Log.JSON || !isatty.IsTerminal(os.Stderr.Fd())
		}

		if err := log.Init(log.Options{
			Verbose:       verbose,
			JSONFormat:    jsonLogs,
			DebugDir:      debugDir,
			RetentionDays: globalCfg.Debug.RetentionDays,
		}); err != nil {
			cmd.PrintErrf("Warning: failed to initialize debug logging: %v\n", err)
		}
		return nil
	},
	RunE: runTrace,
}

// Execute runs the root command and returns the process exit code: the
// tracee's exit code (128+N when it died to signal N), or 1 when stalker
// itself failed.
func Execute() int {
	defer log.Close()
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return exitCode
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose diagnostics on stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json", false, "JSON-formatted diagnostics")
	rootCmd.PersistentFlags().StringVar(&debugDir, "debug-dir", "", "directory for debug log files")
	rootCmd.Flags().IntVarP(&attachPID, "pid", "p", 0, "attach to an existing process instead of launching one")

	// Flag parsing stops at the first positional argument, so the traced
	// command's own flags pass through untouched: stalker -v ls -al
	rootCmd.Flags().SetInterspersed(false)
}

// buildConfig validates the invocation and maps it to a trace target.
// Exactly one mode is active per session.
func buildConfig(pid int, args []string) (trace.Config, error) {
	switch {
	case pid > 0 && len(args) > 0:
		return trace.Config{}, errors.New("-p and a command are mutually exclusive")
	case pid < 0:
		return trace.Config{}, fmt.Errorf("invalid pid %d", pid)
	case pid > 0:
		return trace.Config{PID: pid}, nil
	case len(args) > 0:
		return trace.Config{Path: args[0], Args: args[1:]}, nil
	default:
		return trace.Config{}, errors.New("nothing to trace: give a command or -p <pid>")
	}
}

func runTrace(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(attachPID, args)
	if err != nil {
		return err
	}

	tracer, err := trace.New(cfg)
	if err != nil {
		return err
	}

	// The trace stream goes to stdout, one line per completed syscall, in
	// emission order. Formatter write failures (e.g. a closed pipe) are
	// diagnostics, not trace output.
	formatter := trace.NewFormatter(os.Stdout)
	tracer.OnSyscall(func(e trace.SyscallEvent) {
		if err := formatter.Event(e); err != nil {
			log.Error("writing trace event", "error", err)
		}
	})

	if err := tracer.Start(); err != nil {
		return err
	}
	tlog := log.With("pid", tracer.Pid())
	tlog.Debug("tracing started")

	status, err := tracer.Wait()
	if err != nil {
		return err
	}
	tlog.Debug("tracing finished", "signaled", status.Signaled)
	if err := formatter.Exit(status); err != nil {
		return err
	}
	exitCode = exitStatusCode(status)
	return nil
}

// exitStatusCode maps the tracee's terminal status onto stalker's own exit
// code, using the shell convention of 128+N for a death to signal N.
func exitStatusCode(s trace.ExitStatus) int {
	if s.Signaled {
		return 128 + s.Signal
	}
	return s.Code
}
