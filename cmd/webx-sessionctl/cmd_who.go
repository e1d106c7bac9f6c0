package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/illgrenoble/webx-session-manager/internal/ipc"
	"github.com/illgrenoble/webx-session-manager/internal/session"
)

func newWhoCmd(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "who",
		Short: "List all live sessions",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if doWho(stdout, stderr) != 0 {
				return errExit
			}
			return nil
		},
	}
}

func doWho(stdout, stderr io.Writer) int {
	c := newClient(socketFlag)
	resp, err := c.call(ipc.Request{Kind: ipc.RequestWho})
	if err != nil {
		fmt.Fprintf(stderr, "webx-sessionctl who: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}
	if resp.Kind == ipc.ResponseError {
		fmt.Fprintf(stderr, "webx-sessionctl who: %s\n", resp.Error.Message) //nolint:errcheck // best-effort stderr
		return 1
	}
	if len(resp.Who) == 0 {
		fmt.Fprintln(stdout, "No live sessions.") //nolint:errcheck // best-effort stdout
		return 0
	}
	for _, v := range resp.Who {
		printView(stdout, v)
	}
	return 0
}

// printView renders a SessionView in the single-line key=value format
// the teacher's "String() for logging" methods use throughout
// internal/session.
func printView(stdout io.Writer, v session.View) {
	fmt.Fprintf(stdout, "id=%s username=%s uid=%d display=%s xorg_pid=%d wm_pid=%d xauthority=%s size=%dx%d\n", //nolint:errcheck // best-effort stdout
		v.ID, v.Username, v.UID, v.DisplayID, v.XorgProcessID, v.WindowManagerProcessID, v.XauthorityFilePath, v.Width, v.Height)
}
