// Command webx-session-manager is the privileged supervisor: it
// authenticates login requests, spawns per-user Xorg/window-manager
// pairs, and answers login/who/logout over a local IPC socket.
package main

import (
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// errExit is a sentinel error returned by cobra RunE functions to signal
// non-zero exit. The command has already written its own error to stderr.
var errExit = errors.New("exit")

// configFlag holds the value of the --config persistent flag. Empty
// means "use the default search path" (see internal/config.Load).
var configFlag string

// run executes the webx-session-manager CLI with the given args, writing
// output to stdout and errors to stderr. Returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}

// newRootCmd creates the root cobra command with all subcommands.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "webx-session-manager",
		Short:         "Privileged X11 session supervisor",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&configFlag, "config", "",
		"path to webx-session-manager.toml (default: searches /etc/webx, then ./)")
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(
		newServeCmd(stdout, stderr),
		newConfigCmd(stdout, stderr),
		newVersionCmd(stdout),
		newEventsCmd(stdout, stderr),
	)
	root.AddCommand(newGenDocCmd(stdout, stderr, root))
	return root
}
