package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func TestRunParseJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := runParse(&buf, "Abstract?40&class=x", "json"); err != nil {
		t.Fatalf("runParse() error = %v", err)
	}

	var got parsedCall
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	want := parsedCall{
		Name: "abstract",
		Params: []parsedParam{
			{Value: "40"},
			{Name: "class", Value: "x", Assigned: true},
		},
		Index: map[string]string{"40": "", "class": "x"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("runParse() mismatch (-want +got):\n%s", diff)
	}
}

func TestRunParseYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := runParse(&buf, "dt?long", "yaml"); err != nil {
		t.Fatalf("runParse() error = %v", err)
	}

	var got parsedCall
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, buf.String())
	}
	if got.Name != "dt" {
		t.Errorf("Name = %q, want dt", got.Name)
	}
	if _, ok := got.Index["long"]; !ok {
		t.Errorf("Index = %v, want key long", got.Index)
	}
}

func TestRunParseErrors(t *testing.T) {
	tests := []struct {
		input  string
		format string
	}{
		{input: "1bad", format: "yaml"},
		{input: "a?b c", format: "json"},
		{input: "ok", format: "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.input+"/"+tt.format, func(t *testing.T) {
			if err := runParse(&bytes.Buffer{}, tt.input, tt.format); err == nil {
				t.Errorf("runParse(%q, %q) error = nil, want error", tt.input, tt.format)
			}
		})
	}
}

func TestHasMeta(t *testing.T) {
	tests := map[string]bool{
		"page.txt":         false,
		"docs/*.txt":       true,
		"docs/**/page.txt": true,
		"page?.txt":        true,
		"{a,b}.txt":        true,
		"[ab].txt":         true,
	}
	for in, want := range tests {
		if got := hasMeta(in); got != want {
			t.Errorf("hasMeta(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestExpandArgs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "sub/b.txt", "sub/deep/c.txt", "skip.md"} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	plain := filepath.Join(dir, "a.txt")
	got, err := expandArgs([]string{plain, filepath.Join(dir, "**", "*.txt")})
	if err != nil {
		t.Fatalf("expandArgs() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expandArgs() = %v, want 3 files", got)
	}
	if got[0] != plain {
		t.Errorf("expandArgs()[0] = %q, want %q", got[0], plain)
	}
	for _, f := range got {
		if strings.HasSuffix(f, ".md") {
			t.Errorf("expandArgs() included %q", f)
		}
	}

	if _, err := expandArgs([]string{filepath.Join(dir, "*.none")}); err == nil {
		t.Error("expandArgs() with empty glob error = nil, want error")
	}
}
