package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/lama/vm"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	// Create a temporary directory with a lama.toml
	dir := t.TempDir()
	writeFile(t, dir, TOMLFile, `
[project]
name = "test-app"
version = "0.1.0"

[source]
dirs = ["src", "lib"]
entry = "src/main.lama"

[runtime]
arithmetic = "checked"
cross-kind-equality = "error"
worlds = "multi"
max-call-depth = 200

[server]
address = ":9000"
grpc-address = ":9001"
journal = "runs.db"

[log]
verbosity = 2
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "test-app" {
		t.Errorf("project name = %q, want test-app", m.Project.Name)
	}
	if m.Project.Version != "0.1.0" {
		t.Errorf("project version = %q, want 0.1.0", m.Project.Version)
	}
	if len(m.Source.Dirs) != 2 {
		t.Errorf("source dirs count = %d, want 2", len(m.Source.Dirs))
	}
	if m.EntryPath() != filepath.Join(m.Dir, "src", "main.lama") {
		t.Errorf("entry path = %q", m.EntryPath())
	}
	if m.Server.Address != ":9000" || m.Server.GRPCAddress != ":9001" {
		t.Errorf("server = %+v", m.Server)
	}
	if m.JournalPath() != filepath.Join(m.Dir, "runs.db") {
		t.Errorf("journal path = %q", m.JournalPath())
	}
	if m.Log.Verbosity != 2 {
		t.Errorf("log verbosity = %d, want 2", m.Log.Verbosity)
	}

	opts, err := m.EngineOptions()
	if err != nil {
		t.Fatal(err)
	}
	want := vm.Options{
		Arithmetic:        vm.CheckedOverflow,
		CrossKindEquality: vm.CrossKindError,
		Worlds:            vm.MultiWorldMode,
		MaxCallDepth:      200,
	}
	if opts != want {
		t.Errorf("engine options = %+v, want %+v", opts, want)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, TOMLFile, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(m.Source.Dirs) != 1 || m.Source.Dirs[0] != "src" {
		t.Errorf("default source dirs = %v, want [src]", m.Source.Dirs)
	}
	if m.EntryPath() != "" || m.JournalPath() != "" {
		t.Errorf("unset paths resolved: %q %q", m.EntryPath(), m.JournalPath())
	}
	opts, err := m.EngineOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts != vm.DefaultOptions() {
		t.Errorf("engine options = %+v, want defaults", opts)
	}
}

func TestLoadYAMLManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, YAMLFile, `
project:
  name: yaml-app
runtime:
  arithmetic: bignum
  worlds: single
`)
	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Project.Name != "yaml-app" {
		t.Errorf("project name = %q", m.Project.Name)
	}
	if filepath.Base(m.Path) != YAMLFile {
		t.Errorf("path = %q", m.Path)
	}
}

func TestTOMLPreferredOverYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, TOMLFile, "[project]\nname = \"from-toml\"\n")
	writeFile(t, dir, YAMLFile, "project:\n  name: from-yaml\n")
	m, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.Project.Name != "from-toml" {
		t.Errorf("loaded %q, want from-toml", m.Project.Name)
	}
}

func TestInvalidRuntimeSetting(t *testing.T) {
	tests := []string{
		"[runtime]\narithmetic = \"float\"\n",
		"[runtime]\ncross-kind-equality = \"maybe\"\n",
		"[runtime]\nworlds = \"many\"\n",
		"[runtime]\nmax-call-depth = -1\n",
	}
	for _, content := range tests {
		dir := t.TempDir()
		writeFile(t, dir, TOMLFile, content)
		_, err := Load(dir)
		if !errors.Is(err, ErrInvalidRuntime) {
			t.Errorf("Load(%q) = %v, want ErrInvalidRuntime", content, err)
		}
	}
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, TOMLFile, "[project\nname = ")
	if _, err := Load(dir); err == nil {
		t.Error("expected parse error")
	}
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("expected error for missing manifest")
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, TOMLFile, "[project]\nname = \"parent\"\n")

	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(sub)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil || m.Project.Name != "parent" {
		t.Fatalf("FindAndLoad = %+v, want parent manifest", m)
	}
}

func TestFindAndLoadNone(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if m != nil {
		t.Errorf("found unexpected manifest at %s", m.Path)
	}
}
