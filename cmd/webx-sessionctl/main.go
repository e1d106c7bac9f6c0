// Command webx-sessionctl is the unprivileged client for
// webx-session-manager: it issues login/who/logout requests over the
// supervisor's Unix domain socket and prints the response.
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

// socketFlag holds the value of the --socket persistent flag.
var socketFlag string

const defaultSocketPath = "/run/webx/webx-session-manager.ipc"

// run executes the webx-sessionctl CLI with the given args, writing
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
		Use:           "webx-sessionctl",
		Short:         "Client for webx-session-manager",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&socketFlag, "socket", defaultSocketPath,
		"path to the webx-session-manager IPC socket")
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(
		newLoginCmd(stdout, stderr),
		newWhoCmd(stdout, stderr),
		newLogoutCmd(stdout, stderr),
	)
	root.AddCommand(newGenDocCmd(stdout, stderr, root))
	return root
}
