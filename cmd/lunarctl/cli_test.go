package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	enc, err := run(t, "encode", "https://example.com")
	if err != nil {
		t.Fatalf("encode error = %v", err)
	}
	enc = strings.TrimSpace(enc)
	if !strings.HasPrefix(enc, "/v1/data/") {
		t.Fatalf("encode = %q; want /v1/data/ prefix", enc)
	}
	dec, err := run(t, "decode", enc)
	if err != nil || strings.TrimSpace(dec) != "https://example.com" {
		t.Fatalf("decode = %q, %v; want https://example.com", dec, err)
	}
	if _, err := run(t, "encode", "--backend", "zz", "https://example.com"); err == nil {
		t.Fatal("encode with unknown backend = nil error")
	}
}

func TestClassifyAndEval(t *testing.T) {
	out, err := run(t, "classify", "example.com")
	if err != nil {
		t.Fatalf("classify error = %v", err)
	}
	if !strings.Contains(out, "address: https://example.com") {
		t.Fatalf("classify output = %q", out)
	}
	out, err = run(t, "eval", "2+2")
	if err != nil || strings.TrimSpace(out) != "4" {
		t.Fatalf("eval 2+2 = %q, %v; want 4", out, err)
	}
	if _, err := run(t, "eval", "hello"); err == nil {
		t.Fatal("eval hello = nil error")
	}
}

func TestBookmarksAndConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lunar.db")

	out, err := run(t, "--store", path, "bookmarks", "list")
	if err != nil {
		t.Fatalf("bookmarks list error = %v", err)
	}
	if !strings.Contains(out, "Youtube") || !strings.Contains(out, "Discord") {
		t.Fatalf("bookmarks list missing defaults:\n%s", out)
	}

	out, err = run(t, "--store", path, "bookmarks", "toggle", "--name", "Go", "https://go.dev/")
	if err != nil || !strings.HasPrefix(out, "added") {
		t.Fatalf("bookmarks toggle = %q, %v; want added", out, err)
	}
	out, err = run(t, "--store", path, "bookmarks", "toggle", "https://go.dev")
	if err != nil || !strings.HasPrefix(out, "removed") {
		t.Fatalf("second toggle = %q, %v; want removed", out, err)
	}

	out, err = run(t, "--store", path, "config", "get", "backend")
	if err != nil || strings.TrimSpace(out) != `"sc"` {
		t.Fatalf("config get backend = %q, %v; want \"sc\"", out, err)
	}
	if _, err := run(t, "--store", path, "config", "get", "nope"); err == nil {
		t.Fatal("config get nope = nil error")
	}
	if out, err := run(t, "--store", path, "config", "reset"); err != nil || !strings.Contains(out, "settings reset") {
		t.Fatalf("config reset = %q, %v", out, err)
	}
}
