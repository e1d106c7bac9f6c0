package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/illgrenoble/webx-session-manager/internal/ipc"
)

func newLogoutCmd(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "logout <session-id>",
		Short: "Terminate a live session by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if doLogout(args[0], stdout, stderr) != 0 {
				return errExit
			}
			return nil
		},
	}
}

func doLogout(id string, stdout, stderr io.Writer) int {
	c := newClient(socketFlag)
	resp, err := c.call(ipc.Request{Kind: ipc.RequestLogout, Logout: &ipc.LogoutContent{ID: id}})
	if err != nil {
		fmt.Fprintf(stderr, "webx-sessionctl logout: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}
	if resp.Kind == ipc.ResponseError {
		fmt.Fprintf(stderr, "webx-sessionctl logout: %s\n", resp.Error.Message) //nolint:errcheck // best-effort stderr
		return 1
	}
	fmt.Fprintf(stdout, "Session %s logged out.\n", id) //nolint:errcheck // best-effort stdout
	return 0
}
