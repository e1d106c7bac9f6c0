package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/illgrenoble/webx-session-manager/internal/config"
	"github.com/illgrenoble/webx-session-manager/internal/events"
	"github.com/illgrenoble/webx-session-manager/internal/fsys"
)

var eventsTypeFlag string

// newEventsCmd exposes the post-hoc audit trail spec.md §2's "Session
// audit log" describes: every create/idempotent-login/terminate/reap the
// running (or a previously-running) supervisor recorded, read directly
// off disk rather than through the IPC socket, since the reader doesn't
// need the supervisor to be up.
func newEventsCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the session audit log (events.jsonl)",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if doEvents(stdout, stderr) != 0 {
				return errExit
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&eventsTypeFlag, "type", "", "only show events of this type (e.g. session.created)")
	return cmd
}

func doEvents(stdout, stderr io.Writer) int {
	cfg, err := config.Load(fsys.OSFS{}, configFlag)
	if err != nil {
		fmt.Fprintf(stderr, "webx-session-manager: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}

	path := filepath.Join(cfg.Xorg.AuthorityPath, "events.jsonl")
	rec, err := events.NewFileRecorder(path, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "webx-session-manager: opening %s: %v\n", path, err) //nolint:errcheck // best-effort stderr
		return 1
	}
	defer rec.Close() //nolint:errcheck // best-effort cleanup

	entries, err := rec.List(events.Filter{Type: eventsTypeFlag})
	if err != nil {
		fmt.Fprintf(stderr, "webx-session-manager: reading %s: %v\n", path, err) //nolint:errcheck // best-effort stderr
		return 1
	}
	if len(entries) == 0 {
		fmt.Fprintln(stdout, "No events.") //nolint:errcheck // best-effort stdout
		return 0
	}
	for _, e := range entries {
		fmt.Fprintf(stdout, "seq=%d ts=%s type=%s actor=%s subject=%s message=%q\n", //nolint:errcheck // best-effort stdout
			e.Seq, e.Ts.Format("2006-01-02T15:04:05Z07:00"), e.Type, e.Actor, e.Subject, e.Message)
	}
	return 0
}
