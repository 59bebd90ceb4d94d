// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuildDefaults(t *testing.T) {
	c := Build()
	if c.Title != "URC" || c.Backend != "immediate" || c.SlotCountHint != 2 {
		t.Error("Build defaults")
	}
}

func TestBuildOverrides(t *testing.T) {
	c := Build(Title("game"), Windowed(), Size(10, 10, 640, 480), Backend("deferred"), Debug(true))
	if c.Title != "game" || !c.Windowed || c.W != 640 || c.H != 480 || c.Backend != "deferred" || !c.Debug {
		t.Error("Build overrides")
	}
}

func TestSizeRejectsOutOfRange(t *testing.T) {
	c := Build(Size(-1, -1, 5, 20_000))
	if c.X != 0 || c.Y != 0 || c.W != Defaults.W || c.H != Defaults.H {
		t.Error("Size should ignore out of range values")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "urc.yaml")
	contents := "title: loaded\nbackend: deferred\nslot_count_hint: 3\ndebug: true\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	opts, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	c := Build(opts...)
	if c.Title != "loaded" || c.Backend != "deferred" || c.SlotCountHint != 3 || !c.Debug {
		t.Error("Load did not apply file overrides")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load should fail for a missing file")
	}
}
