package main

import (
	"bufio"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/illgrenoble/webx-session-manager/internal/ipc"
)

func newLoginCmd(stdout, stderr io.Writer) *cobra.Command {
	var username, password string
	var width, height uint32
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Start (or attach to) a session for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if doLogin(cmd, username, password, width, height, stdout, stderr) != 0 {
				return errExit
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account to authenticate as (required)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted on stdin if omitted)")
	cmd.Flags().Uint32Var(&width, "width", 1920, "requested screen width in pixels")
	cmd.Flags().Uint32Var(&height, "height", 1080, "requested screen height in pixels")
	return cmd
}

func doLogin(cmd *cobra.Command, username, password string, width, height uint32, stdout, stderr io.Writer) int {
	if username == "" {
		fmt.Fprintln(stderr, "webx-sessionctl login: --username is required") //nolint:errcheck // best-effort stderr
		return 1
	}
	if password == "" {
		fmt.Fprint(stdout, "Password: ") //nolint:errcheck // best-effort stdout
		reader := bufio.NewReader(cmd.InOrStdin())
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintf(stderr, "webx-sessionctl login: reading password: %v\n", err) //nolint:errcheck // best-effort stderr
			return 1
		}
		password = trimNewline(line)
	}

	c := newClient(socketFlag)
	resp, err := c.call(ipc.Request{
		Kind: ipc.RequestLogin,
		Login: &ipc.LoginContent{
			Username: username,
			Password: password,
			Width:    width,
			Height:   height,
		},
	})
	if err != nil {
		fmt.Fprintf(stderr, "webx-sessionctl login: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}
	if resp.Kind == ipc.ResponseError {
		fmt.Fprintf(stderr, "webx-sessionctl login: %s\n", resp.Error.Message) //nolint:errcheck // best-effort stderr
		return 1
	}
	printView(stdout, resp.Login)
	return 0
}

// trimNewline strips a trailing "\n" or "\r\n" from a line read by
// bufio.Reader.ReadString('\n').
func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
