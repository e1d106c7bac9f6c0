// Package config loads and validates webx-session-manager.toml
// configuration files. Grounded on the teacher's internal/config
// (BurntSushi/toml decoding through internal/fsys.FS for testability)
// and original_source/src/common/settings.rs (the section layout and
// is_valid validation rules this package reproduces in Go).
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/illgrenoble/webx-session-manager/internal/fsys"
)

// Settings is the top-level configuration for webx-session-manager.
type Settings struct {
	Logging        LoggingSettings        `toml:"logging"`
	Authentication AuthenticationSettings `toml:"authentication"`
	Transport      TransportSettings      `toml:"transport"`
	Xorg           XorgSettings           `toml:"xorg"`
	ServiceUser    ServiceUserSettings    `toml:"service_user"`
	Telemetry      TelemetrySettings      `toml:"telemetry"`
}

// LoggingSettings controls where and how verbosely the server logs.
type LoggingSettings struct {
	Level string `toml:"level"`
	Path  string `toml:"path"`
}

// AuthenticationSettings names the PAM service to authenticate against.
type AuthenticationSettings struct {
	Service string `toml:"service"`
}

// TransportSettings configures the IPC listener.
type TransportSettings struct {
	IPC string `toml:"ipc"`
}

// XorgSettings configures display allocation and the X server / window
// manager this instance spawns.
type XorgSettings struct {
	LockPath      string `toml:"lock_path"`
	AuthorityPath string `toml:"authority_path"`
	DisplayOffset uint32 `toml:"display_offset"`
	ServerCommand string `toml:"server_command"`
	ServerConfig  string `toml:"server_config"`
	WindowManager string `toml:"window_manager"`
}

// ServiceUserSettings names the unprivileged account that owns the IPC
// socket and co-owns per-user session artefacts.
type ServiceUserSettings struct {
	Name string `toml:"name"`
}

// TelemetrySettings configures OTLP export. An empty Endpoint disables
// export entirely; the server falls back to a no-op provider.
type TelemetrySettings struct {
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

// defaultConfigPaths are tried in order when no explicit path is given,
// mirroring original_source's DEFAULT_CONFIG_PATHS.
var defaultConfigPaths = []string{
	"/etc/webx/webx-session-manager.toml",
	"./webx-session-manager.toml",
}

// Load reads and parses the config at path using fs. If path is empty,
// the first existing file among defaultConfigPaths is used.
func Load(fs fsys.FS, path string) (*Settings, error) {
	resolved, err := resolvePath(fs, path)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("loading config %q: %w", resolved, err)
	}
	return Parse(data)
}

// resolvePath mirrors Settings::get_config_path: an explicit non-empty
// path wins outright; otherwise the first existing default path is
// used, falling back to the first default if none exist (Load will then
// surface a clear "file not found" error).
func resolvePath(fs fsys.FS, path string) (string, error) {
	if path != "" {
		return path, nil
	}
	for _, candidate := range defaultConfigPaths {
		if _, err := fs.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return defaultConfigPaths[0], nil
}

// Parse decodes TOML data into Settings and applies WEBX_SESSION_MANAGER_*
// environment overrides, the Go equivalent of original_source's
// config::Environment::with_prefix("WEBX_SESSION_MANAGER") merge layer.
func Parse(data []byte) (*Settings, error) {
	var s Settings
	if _, err := toml.Decode(string(data), &s); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	applyEnvOverrides(&s)
	return &s, nil
}

// Marshal encodes Settings back to TOML, used by "webx-session-manager
// config init" to write a starter file.
func (s *Settings) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return buf.Bytes(), nil
}

// envOverride replaces dst with an environment variable's value whenever
// the variable is set to a non-blank value, whatever dst already holds
// from the decoded TOML; an unset or blank variable leaves dst as it is.
func envOverride(dst *string, name string) {
	if v, ok := os.LookupEnv(name); ok && strings.TrimSpace(v) != "" {
		*dst = v
	}
}

// applyEnvOverrides lets WEBX_SESSION_MANAGER_* environment variables
// override individual TOML fields without needing a full config file
// (handy for container deployments).
func applyEnvOverrides(s *Settings) {
	envOverride(&s.Logging.Level, "WEBX_SESSION_MANAGER_LOGGING_LEVEL")
	envOverride(&s.Logging.Path, "WEBX_SESSION_MANAGER_LOGGING_PATH")
	envOverride(&s.Authentication.Service, "WEBX_SESSION_MANAGER_AUTHENTICATION_SERVICE")
	envOverride(&s.Transport.IPC, "WEBX_SESSION_MANAGER_TRANSPORT_IPC")
	envOverride(&s.Xorg.LockPath, "WEBX_SESSION_MANAGER_XORG_LOCK_PATH")
	envOverride(&s.Xorg.AuthorityPath, "WEBX_SESSION_MANAGER_XORG_AUTHORITY_PATH")
	envOverride(&s.Xorg.ServerCommand, "WEBX_SESSION_MANAGER_XORG_SERVER_COMMAND")
	envOverride(&s.Xorg.ServerConfig, "WEBX_SESSION_MANAGER_XORG_SERVER_CONFIG")
	envOverride(&s.Xorg.WindowManager, "WEBX_SESSION_MANAGER_XORG_WINDOW_MANAGER")
	envOverride(&s.ServiceUser.Name, "WEBX_SESSION_MANAGER_SERVICE_USER_NAME")
	envOverride(&s.Telemetry.OTLPEndpoint, "WEBX_SESSION_MANAGER_TELEMETRY_OTLP_ENDPOINT")
}

// Validate checks that every field the session manager needs to run is
// present, the Go equivalent of original_source's Settings::is_valid
// (there a bool-returning check that eprintln!s a reason; here an error
// so callers can log/exit consistently with the rest of the codebase).
func (s *Settings) Validate() error {
	if s.Logging.Path == "" {
		return fmt.Errorf("config: please specify a log path (logging.path)")
	}
	if s.Logging.Level == "" {
		return fmt.Errorf("config: please specify a logging level (logging.level): trace, debug, info, error")
	}
	if s.Authentication.Service == "" {
		return fmt.Errorf("config: please specify a PAM service to use (authentication.service), e.g. \"login\"")
	}
	if s.Transport.IPC == "" {
		return fmt.Errorf("config: please specify a path for the ipc socket (transport.ipc), e.g. \"/run/webx/webx-session-manager.ipc\"")
	}
	if s.Xorg.AuthorityPath == "" {
		return fmt.Errorf("config: please specify a path for xauthority files (xorg.authority_path), e.g. \"/run/webx/sessions\"")
	}
	if s.Xorg.LockPath == "" {
		return fmt.Errorf("config: please specify a path to look for X lock files (xorg.lock_path), e.g. \"/tmp/.X11-unix\"")
	}
	if s.ServiceUser.Name == "" {
		return fmt.Errorf("config: please specify the service user account (service_user.name), e.g. \"webx\"")
	}
	if s.Xorg.ServerCommand == "" {
		return fmt.Errorf("config: please specify the X server command (xorg.server_command), e.g. \"Xorg\"")
	}
	if s.Xorg.WindowManager == "" {
		return fmt.Errorf("config: please specify the window manager command (xorg.window_manager)")
	}
	return nil
}

// Default returns a Settings populated with the values documented as
// the starter config, matching DefaultCity/WizardCity's role in the
// teacher's config package: the config written by an "init" subcommand.
func Default() Settings {
	return Settings{
		Logging: LoggingSettings{
			Level: "info",
			Path:  "/var/log/webx-session-manager",
		},
		Authentication: AuthenticationSettings{Service: "webx"},
		Transport:      TransportSettings{IPC: "/run/webx/webx-session-manager.ipc"},
		Xorg: XorgSettings{
			LockPath:      "/tmp/.X11-unix",
			AuthorityPath: "/run/webx/sessions",
			DisplayOffset: 10,
			ServerCommand: "Xorg",
			ServerConfig:  "/etc/webx/xorg-dummy.conf",
			WindowManager: "/usr/bin/openbox",
		},
		ServiceUser: ServiceUserSettings{Name: "webx"},
		Telemetry:   TelemetrySettings{OTLPEndpoint: ""},
	}
}
