package main

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/illgrenoble/webx-session-manager/internal/events"
	"github.com/illgrenoble/webx-session-manager/internal/ipc"
)

func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"sessionctl": func() { os.Exit(run(os.Args[1:], os.Stdout, os.Stderr)) },
	})
}

// TestScripts drives testdata/*.txtar against a fake webx-session-manager
// listening on a per-test socket, the same Main-registered-virtual-binary
// pattern as the teacher's cmd/gc/main_test.go TestTutorial01.
func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata",
		Setup: func(env *testscript.Env) error {
			socketPath := env.WorkDir + "/webx-session-manager.ipc"
			srv := ipc.NewServer(socketPath, newScriptFakeEngine(), events.Discard, os.Stderr)
			ctx, cancel := newCancelContext()
			go srv.Serve(ctx) //nolint:errcheck // best-effort in test harness
			env.Setenv("SOCK", socketPath)
			env.Defer(cancel)
			return waitForSocket(socketPath)
		},
	})
}
