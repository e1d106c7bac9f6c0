// Package docgen generates JSON Schema and markdown documentation from
// the session manager's Go types: the wire protocol (for downstream
// client/tooling authors) and the CLI command tree.
package docgen

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"github.com/illgrenoble/webx-session-manager/internal/config"
	"github.com/illgrenoble/webx-session-manager/internal/ipc"
)

// ModuleRoot finds the repo root by walking up from the current directory
// looking for go.mod. Returns the absolute path.
func ModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found in any parent of %s", dir)
		}
		dir = parent
	}
}

// newReflector creates a jsonschema.Reflector with Go doc comments
// extracted from the source tree.
//
// AddGoComments requires the path parameter to be "." with the working
// directory set to the module root, so that filepath.Walk produces paths
// like "internal/ipc" which gopath.Join maps to the correct import path.
func newReflector() (*jsonschema.Reflector, error) {
	root, err := ModuleRoot()
	if err != nil {
		return nil, err
	}

	// Save and restore CWD — AddGoComments needs CWD at module root.
	orig, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	if err := os.Chdir(root); err != nil {
		return nil, fmt.Errorf("chdir to module root: %w", err)
	}
	defer func() { _ = os.Chdir(orig) }()

	r := &jsonschema.Reflector{}
	if err := r.AddGoComments("github.com/illgrenoble/webx-session-manager", "."); err != nil {
		return nil, fmt.Errorf("extracting Go comments: %w", err)
	}
	return r, nil
}

// GenerateWireSchema produces a JSON Schema document describing the IPC
// wire protocol's Request, Response, and SessionView shapes, for
// downstream client/tooling authors who don't link against this module.
func GenerateWireSchema() (*jsonschema.Schema, error) {
	r, err := newReflector()
	if err != nil {
		return nil, err
	}
	s := r.Reflect(&ipc.Response{})
	req := r.Reflect(&ipc.Request{})
	for name, def := range req.Definitions {
		s.Definitions[name] = def
	}
	s.Title = "webx-session-manager wire protocol"
	s.Description = "Schema for the Request/Response JSON messages exchanged over the session manager's IPC socket."
	return s, nil
}

// GenerateConfigSchema produces a JSON Schema for webx-session-manager.toml.
func GenerateConfigSchema() (*jsonschema.Schema, error) {
	r, err := newReflector()
	if err != nil {
		return nil, err
	}
	r.FieldNameTag = "toml"
	s := r.Reflect(&config.Settings{})
	s.Title = "webx-session-manager configuration"
	s.Description = "Schema for webx-session-manager.toml — the supervisor's configuration file."
	return s, nil
}
