package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/illgrenoble/webx-session-manager/internal/auth"
	"github.com/illgrenoble/webx-session-manager/internal/config"
	"github.com/illgrenoble/webx-session-manager/internal/display"
	"github.com/illgrenoble/webx-session-manager/internal/events"
	"github.com/illgrenoble/webx-session-manager/internal/fsys"
	"github.com/illgrenoble/webx-session-manager/internal/hostuser"
	"github.com/illgrenoble/webx-session-manager/internal/ipc"
	"github.com/illgrenoble/webx-session-manager/internal/lock"
	"github.com/illgrenoble/webx-session-manager/internal/session"
	"github.com/illgrenoble/webx-session-manager/internal/telemetry"
	"github.com/illgrenoble/webx-session-manager/internal/xauth"
)

// xSettleTimeout bounds how long Engine.Create polls for the X lock
// file to appear after spawning Xorg (spec.md §4.5 step 11's "bounded
// timeout" alternative to a fixed ~1s sleep). Not a config field — the
// teacher doesn't expose its equivalent settle delay as a setting
// either, treating it as an implementation constant.
const xSettleTimeout = 5 * time.Second

// configPollPeriod is how often watchConfig checks the settings file
// for edits while the daemon runs.
const configPollPeriod = 2 * time.Second

func newServeCmd(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the session supervisor in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if doServe(stdout, stderr) != 0 {
				return errExit
			}
			return nil
		},
	}
}

// doServe loads configuration, wires the engine and IPC server, and
// blocks until a termination signal is received. Returns the process
// exit code: 1 if not running as root or on a fatal setup error, 0 on
// clean shutdown (spec.md §6 "Exit codes").
func doServe(stdout, stderr io.Writer) int {
	if os.Geteuid() != 0 {
		fmt.Fprintln(stderr, "webx-session-manager: must be run as root (effective uid 0)") //nolint:errcheck // best-effort stderr
		return 1
	}

	fs := fsys.OSFS{}
	cfg, err := config.Load(fs, configFlag)
	if err != nil {
		fmt.Fprintf(stderr, "webx-session-manager: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "webx-session-manager: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}

	instanceLock, err := lock.Acquire(cfg.Xorg.AuthorityPath)
	if err != nil {
		fmt.Fprintf(stderr, "webx-session-manager: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}
	defer instanceLock.Release() //nolint:errcheck // best-effort cleanup

	resolver := hostuser.NewResolver()
	serviceAccount, ok, err := resolver.Lookup(cfg.ServiceUser.Name)
	if err != nil || !ok {
		fmt.Fprintf(stderr, "webx-session-manager: resolving service user %q: %v\n", cfg.ServiceUser.Name, err) //nolint:errcheck // best-effort stderr
		return 1
	}

	rec, err := events.NewFileRecorder(filepath.Join(cfg.Xorg.AuthorityPath, "events.jsonl"), stderr)
	if err != nil {
		fmt.Fprintf(stderr, "webx-session-manager: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}
	defer rec.Close() //nolint:errcheck // best-effort cleanup

	shutdownTelemetry, err := telemetry.Init(context.Background(), cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		fmt.Fprintf(stderr, "webx-session-manager: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}
	defer shutdownTelemetry.Close(context.Background()) //nolint:errcheck // best-effort cleanup

	engineCfg := session.Config{
		SessionsPath:     cfg.Xorg.AuthorityPath,
		LogPath:          cfg.Logging.Path,
		LockPath:         cfg.Xorg.LockPath,
		ServiceUserName:  cfg.ServiceUser.Name,
		WindowManagerCmd: cfg.Xorg.WindowManager,
		XorgCommand:      cfg.Xorg.ServerCommand,
		XorgConfigPath:   cfg.Xorg.ServerConfig,
		XSettleTimeout:   xSettleTimeout,
	}

	engine := session.NewEngine(
		engineCfg,
		fs,
		auth.NewService(cfg.Authentication.Service),
		resolver,
		display.NewAllocator(fs, cfg.Xorg.LockPath, cfg.Xorg.DisplayOffset),
		xauth.NewInstaller(fs, cfg.Xorg.AuthorityPath, ""),
		session.NewProcessSupervisor(),
		session.NewRegistry(),
	)

	server := ipc.NewServer(cfg.Transport.IPC, engine, rec, stderr)
	server.SocketOwner = int(serviceAccount.UID)
	server.SocketGroup = int(serviceAccount.GID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sigCh
		cancel()
	}()

	watcher := config.WatchFile(resolvedConfigPath(fs, configFlag), stderr)
	defer watcher.Close()
	go watchConfig(ctx, fs, watcher, cfg, stderr)

	rec.Record(events.Event{Type: events.ServerStarted, Actor: "session-manager"})
	fmt.Fprintf(stdout, "webx-session-manager listening on %s\n", cfg.Transport.IPC) //nolint:errcheck // best-effort stdout

	serveErr := server.Serve(ctx)

	for _, s := range engine.Drain() {
		rec.Record(events.Event{
			Type:    events.SessionTerminated,
			Actor:   "session-manager",
			Subject: s.Username,
			Message: "drained at shutdown",
		})
	}
	rec.Record(events.Event{Type: events.ServerStopped, Actor: "session-manager"})
	fmt.Fprintln(stdout, "webx-session-manager stopped.") //nolint:errcheck // best-effort stdout

	if serveErr != nil {
		fmt.Fprintf(stderr, "webx-session-manager: %v\n", serveErr) //nolint:errcheck // best-effort stderr
		return 1
	}
	return 0
}

// resolvedConfigPath re-derives the path actually used by config.Load so
// the watcher observes the right file, including when flag is empty and
// a default search path was used.
func resolvedConfigPath(fs fsys.FS, flag string) string {
	if flag != "" {
		return flag
	}
	for _, candidate := range []string{"/etc/webx/webx-session-manager.toml", "./webx-session-manager.toml"} {
		if _, err := fs.Stat(candidate); err == nil {
			return candidate
		}
	}
	return "/etc/webx/webx-session-manager.toml"
}

// watchConfig polls the config watcher and, on a debounced change, logs
// which settings differ from the ones the running engine was built
// with. Every reported change (log level, window manager, X server
// config path, socket path, display offset) is flagged as needing a
// restart; no setting is applied while running. The running Engine's configuration
// is intentionally never mutated in place — spec.md's concurrency model
// gives the engine a single immutable Config for its lifetime.
func watchConfig(ctx context.Context, fs fsys.FS, watcher *config.Watcher, original *config.Settings, stderr io.Writer) {
	ticker := time.NewTicker(configPollPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !watcher.Dirty() {
				continue
			}
			updated, err := config.Load(fs, configFlag)
			if err != nil {
				fmt.Fprintf(stderr, "webx-session-manager: config reload: %v\n", err) //nolint:errcheck // best-effort stderr
				continue
			}
			logConfigDiff(original, updated, stderr)
		}
	}
}

// logConfigDiff reports which settings changed on disk. Each of
// logging.level, xorg.window_manager and xorg.server_config gets its own
// "restart to apply" line; a change to transport.ipc or
// xorg.display_offset gets one shared "requires a full restart" line.
func logConfigDiff(old, updated *config.Settings, stderr io.Writer) {
	if old.Logging.Level != updated.Logging.Level {
		fmt.Fprintf(stderr, "webx-session-manager: config: logging.level changed to %q (restart to apply)\n", updated.Logging.Level) //nolint:errcheck // best-effort stderr
	}
	if old.Xorg.WindowManager != updated.Xorg.WindowManager {
		fmt.Fprintf(stderr, "webx-session-manager: config: xorg.window_manager changed to %q (restart to apply)\n", updated.Xorg.WindowManager) //nolint:errcheck // best-effort stderr
	}
	if old.Xorg.ServerConfig != updated.Xorg.ServerConfig {
		fmt.Fprintf(stderr, "webx-session-manager: config: xorg.server_config changed to %q (restart to apply)\n", updated.Xorg.ServerConfig) //nolint:errcheck // best-effort stderr
	}
	if old.Transport.IPC != updated.Transport.IPC || old.Xorg.DisplayOffset != updated.Xorg.DisplayOffset {
		fmt.Fprintln(stderr, "webx-session-manager: config: transport.ipc or xorg.display_offset changed — requires a full restart to take effect") //nolint:errcheck // best-effort stderr
	}
}
