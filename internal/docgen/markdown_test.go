package docgen

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderMarkdownConfigSchema(t *testing.T) {
	s, err := GenerateConfigSchema()
	if err != nil {
		t.Fatalf("GenerateConfigSchema: %v", err)
	}

	var buf bytes.Buffer
	if err := RenderMarkdown(&buf, s); err != nil {
		t.Fatalf("RenderMarkdown: %v", err)
	}

	md := buf.String()
	if md == "" {
		t.Fatal("empty markdown output")
	}

	for _, section := range []string{"## Settings", "## XorgSettings", "## LoggingSettings", "## TelemetrySettings"} {
		if !strings.Contains(md, section) {
			t.Errorf("missing section %q", section)
		}
	}

	// Settings should come first (before other sections).
	settingsIdx := strings.Index(md, "## Settings")
	xorgIdx := strings.Index(md, "## XorgSettings")
	if settingsIdx > xorgIdx {
		t.Error("Settings section should come before XorgSettings section")
	}
}

func TestRenderMarkdownTableFormat(t *testing.T) {
	s, err := GenerateConfigSchema()
	if err != nil {
		t.Fatalf("GenerateConfigSchema: %v", err)
	}

	var buf bytes.Buffer
	if err := RenderMarkdown(&buf, s); err != nil {
		t.Fatalf("RenderMarkdown: %v", err)
	}

	md := buf.String()
	lines := strings.Split(md, "\n")

	for _, line := range lines {
		if !strings.HasPrefix(line, "|") {
			continue
		}
		pipes := strings.Count(line, "|")
		escaped := strings.Count(line, "\\|")
		actual := pipes - escaped
		if actual != 6 {
			t.Errorf("table row has %d columns (expected 5): %s", actual-1, line)
		}
	}
}

func TestRenderMarkdownWireSchema(t *testing.T) {
	s, err := GenerateWireSchema()
	if err != nil {
		t.Fatalf("GenerateWireSchema: %v", err)
	}

	var buf bytes.Buffer
	if err := RenderMarkdown(&buf, s); err != nil {
		t.Fatalf("RenderMarkdown: %v", err)
	}

	md := buf.String()
	for _, section := range []string{"## Response", "## LoginContent", "## LogoutContent"} {
		if !strings.Contains(md, section) {
			t.Errorf("missing section %q", section)
		}
	}
}
