package main

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/jiffle/internal/journal"
	"github.com/funvibe/jiffle/internal/raster"
)

func writeSource(t *testing.T, path string, w, h int) {
	t.Helper()
	src := raster.New(image.Rect(0, 0, w, h), 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			src.SetSample(x, y, 0, float64(10*y+x))
		}
	}
	if err := raster.Save(path, src); err != nil {
		t.Fatal(err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunDirect(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, filepath.Join(dir, "src.tif"), 4, 3)
	writeFile(t, filepath.Join(dir, "double.jfl"), "init { k = 1; }\ndest = src * k;")
	writeFile(t, filepath.Join(dir, "run.yaml"), `
script: double.jfl
sources:
  - name: src
    path: src.tif
destinations:
  - name: dest
    path: out.png
vars:
  k: 2
journal: events.db
`)

	var stdout, stderr bytes.Buffer
	if code := runCommand([]string{filepath.Join(dir, "run.yaml")}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "dest: 12 pixels") {
		t.Errorf("unexpected output %q", stdout.String())
	}

	out, err := raster.Load(filepath.Join(dir, "out.png"))
	if err != nil {
		t.Fatal(err)
	}
	if got := out.Sample(3, 2, 0); got != 46 {
		t.Errorf("out[3,2] = %v, want 46", got)
	}

	j, err := journal.Open(filepath.Join(dir, "events.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	events, err := j.Events(t.Context(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || !events[0].Completed {
		t.Errorf("journal events = %+v", events)
	}
}

func TestRunIndirect(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, filepath.Join(dir, "src.tif"), 5, 5)
	writeFile(t, filepath.Join(dir, "run.yaml"), `
source: "dest = src + x();"
mode: indirect
sources:
  - name: src
    path: src.tif
destinations:
  - name: dest
    path: out.tif
`)
	var stdout, stderr bytes.Buffer
	if code := runCommand([]string{filepath.Join(dir, "run.yaml")}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	out, err := raster.Load(filepath.Join(dir, "out.tif"))
	if err != nil {
		t.Fatal(err)
	}
	// src[4,1] = 14, plus x = 4
	if got := out.Sample(4, 1, 0); got != 18 {
		t.Errorf("out[4,1] = %v, want 18", got)
	}
}

func TestRunCompileError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "run.yaml"), `
source: "breakif(1); dest = 1;"
destinations:
  - name: dest
    path: out.tif
    width: 2
    height: 2
`)
	var stdout, stderr bytes.Buffer
	if code := runCommand([]string{filepath.Join(dir, "run.yaml")}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "C001") {
		t.Errorf("expected C001 in %q", stderr.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "out.tif")); err == nil {
		t.Error("no output expected after a compile error")
	}
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.jfl")
	bad := filepath.Join(dir, "bad.jfl")
	writeFile(t, good, "images { src = read; dest = write; }\ndest = src + 1;")
	writeFile(t, bad, "images { dest = write; }\ndest = nosuch(1);")

	var stdout, stderr bytes.Buffer
	if code := checkCommand([]string{good}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d: %s%s", code, stdout.String(), stderr.String())
	}
	if !strings.Contains(stdout.String(), "ok (1 sources, 1 destinations)") {
		t.Errorf("unexpected output %q", stdout.String())
	}

	stdout.Reset()
	if code := checkCommand([]string{good, bad}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit %d, want 1", code)
	}
	if !strings.Contains(stdout.String(), "T003") {
		t.Errorf("expected T003 in %q", stdout.String())
	}

	if code := checkCommand([]string{"-mode", "sideways", good}, &stdout, &stderr); code != 2 {
		t.Errorf("bad mode: exit %d, want 2", code)
	}
}

func TestJournalCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "run.yaml"), `
source: "dest = x() + y();"
destinations:
  - name: dest
    path: out.tif
    width: 3
    height: 3
journal: events.db
`)
	var stdout, stderr bytes.Buffer
	if code := runCommand([]string{filepath.Join(dir, "run.yaml")}, &stdout, &stderr); code != 0 {
		t.Fatalf("run: exit %d: %s", code, stderr.String())
	}

	stdout.Reset()
	if code := journalCommand([]string{filepath.Join(dir, "events.db")}, &stdout, &stderr); code != 0 {
		t.Fatalf("journal: exit %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "completed") || !strings.Contains(stdout.String(), "dest") {
		t.Errorf("unexpected listing %q", stdout.String())
	}
}
