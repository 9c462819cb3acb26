package deps

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}

	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[0].Path != present {
		t.Fatalf("expected resolved path %q, got %q", present, results[0].Path)
	}
	if !results[1].Missing() {
		t.Fatal("required missing binary should report Missing")
	}
}

func TestCheckBinariesOptionalAndUnconfigured(t *testing.T) {
	results := CheckBinaries([]Requirement{
		{Name: "metaflac", Command: "clearly-not-present-binary", Optional: true},
		{Name: "mp3gain", Command: "   "},
	})
	if results[0].Missing() {
		t.Fatal("optional tool must not count as missing")
	}
	if results[1].Detail != "command not configured" {
		t.Fatalf("unexpected detail %q", results[1].Detail)
	}
	if results[1].Path != "" {
		t.Fatalf("unresolved tool should have no path, got %q", results[1].Path)
	}
}

func TestResolveBareNameThroughPath(t *testing.T) {
	binDir := t.TempDir()
	tool := filepath.Join(binDir, executableName("mp3gain"))
	if err := os.WriteFile(tool, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv("PATH", binDir)

	path, ok := Resolve("mp3gain")
	if !ok || path != tool {
		t.Fatalf("expected %q, got %q ok=%v", tool, path, ok)
	}
}

func TestResolveExplicitPath(t *testing.T) {
	dir := t.TempDir()
	tool := filepath.Join(dir, executableName("yt-dlp"))
	if err := os.WriteFile(tool, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	if path, ok := Resolve(tool); !ok || path != tool {
		t.Fatalf("expected explicit path to resolve, got %q ok=%v", path, ok)
	}
	if _, ok := Resolve(filepath.Join(dir, "missing")); ok {
		t.Fatal("expected missing explicit path to fail")
	}
	if _, ok := Resolve(dir); ok {
		t.Fatal("directories are not executables")
	}
}

func TestResolveEmpty(t *testing.T) {
	if _, ok := Resolve("  "); ok {
		t.Fatal("empty command must not resolve")
	}
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}
