// Command webx-schemagen generates JSON Schema and markdown reference
// docs from the session manager's Go types. Run from the repository
// root:
//
//	go run ./cmd/webx-schemagen
//
// Output:
//
//	docs/schema/config-schema.json
//	docs/schema/wire-schema.json
//	docs/reference/config.md
//	docs/reference/wire-protocol.md
//	docs/reference/webx-session-manager.md
//	docs/reference/webx-sessionctl.md
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"github.com/illgrenoble/webx-session-manager/internal/docgen"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "webx-schemagen: %v\n", err) //nolint:errcheck
		os.Exit(1)
	}
}

func run() error {
	if _, err := os.Stat("go.mod"); err != nil {
		return fmt.Errorf("must run from repository root (go.mod not found)")
	}

	for _, dir := range []string{"docs/schema", "docs/reference"} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	configSchema, err := docgen.GenerateConfigSchema()
	if err != nil {
		return fmt.Errorf("generating config schema: %w", err)
	}
	wireSchema, err := docgen.GenerateWireSchema()
	if err != nil {
		return fmt.Errorf("generating wire schema: %w", err)
	}

	if err := writeSchema("docs/schema/config-schema.json", configSchema); err != nil {
		return err
	}
	if err := writeSchema("docs/schema/wire-schema.json", wireSchema); err != nil {
		return err
	}

	if err := docgen.WriteMarkdown("docs/reference/config.md", configSchema); err != nil {
		return fmt.Errorf("writing config.md: %w", err)
	}
	if err := docgen.WriteMarkdown("docs/reference/wire-protocol.md", wireSchema); err != nil {
		return fmt.Errorf("writing wire-protocol.md: %w", err)
	}

	// CLI reference docs require the real command trees, which live in
	// each binary's own main package — generate them out of process, the
	// same way as the schema docs for the config/wire types above.
	for _, pkg := range []string{"./cmd/webx-session-manager", "./cmd/webx-sessionctl"} {
		genDoc := exec.Command("go", "run", pkg, "gen-doc")
		genDoc.Stdout = os.Stdout
		genDoc.Stderr = os.Stderr
		if err := genDoc.Run(); err != nil {
			return fmt.Errorf("generating CLI docs for %s: %w", pkg, err)
		}
	}

	files := []string{
		"docs/schema/config-schema.json",
		"docs/schema/wire-schema.json",
		"docs/reference/config.md",
		"docs/reference/wire-protocol.md",
		"docs/reference/webx-session-manager.md",
		"docs/reference/webx-sessionctl.md",
	}
	fmt.Println("Generated:")
	for _, f := range files {
		fmt.Printf("  %s\n", f)
	}
	return nil
}

// writeSchema writes a JSON Schema to a file using atomic write (temp + rename).
func writeSchema(path string, s *jsonschema.Schema) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".webx-schemagen-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("renaming %s: %w", path, err)
	}
	return nil
}
