package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	prev := systemPaths
	systemPaths = nil
	t.Cleanup(func() { systemPaths = prev })
	return home
}

func TestDefault(t *testing.T) {
	c := Default()
	if len(c.DriveBlocks) != 2 || c.DriveBlocks[0] != "FB_DriveVirtual" {
		t.Errorf("unexpected drive blocks %v", c.DriveBlocks)
	}
	if c.Stcmd.Binary != "adsMotion" || c.Stcmd.DefaultADSPort != 851 || c.Stcmd.Precision != 3 {
		t.Errorf("unexpected stcmd defaults %+v", c.Stcmd)
	}
	if c.Log.Level != "warn" || c.Summary.Format != "text" {
		t.Errorf("unexpected defaults %+v %+v", c.Log, c.Summary)
	}
	if len(c.Check.Allow) != 0 {
		t.Errorf("nothing is allowed by default, got %v", c.Check.Allow)
	}
	if len(c.Sources) != 0 {
		t.Errorf("defaults should have no sources, got %v", c.Sources)
	}
}

func TestLoadFullLayering(t *testing.T) {
	home := isolate(t)
	userFile := filepath.Join(home, ".config", "tcparse", "config.toml")
	writeFile(t, userFile, "[stcmd]\nbinary = \"userMotion\"\ndelim = \"-\"\n")

	project := t.TempDir()
	projectFile := filepath.Join(project, ProjectFile)
	writeFile(t, projectFile, "drive_blocks = [\"FB_Custom\"]\n[stcmd]\ndelim = \"_\"\n")

	explicit := filepath.Join(t.TempDir(), "override.toml")
	writeFile(t, explicit, "[log]\nlevel = \"debug\"\n")

	c, err := LoadFull(project, explicit)
	if err != nil {
		t.Fatalf("LoadFull: %v", err)
	}
	if c.Stcmd.Binary != "userMotion" {
		t.Errorf("user layer not applied: %q", c.Stcmd.Binary)
	}
	if c.Stcmd.Delim != "_" {
		t.Errorf("project layer should win over user layer: %q", c.Stcmd.Delim)
	}
	if c.Stcmd.MotorPort != "PLC_ADS" {
		t.Errorf("untouched keys keep defaults: %q", c.Stcmd.MotorPort)
	}
	if len(c.DriveBlocks) != 1 || c.DriveBlocks[0] != "FB_Custom" {
		t.Errorf("lists replace, got %v", c.DriveBlocks)
	}
	if c.Log.Level != "debug" {
		t.Errorf("explicit layer not applied: %q", c.Log.Level)
	}
	want := []string{userFile, projectFile, explicit}
	if strings.Join(c.Sources, ",") != strings.Join(want, ",") {
		t.Errorf("sources = %v, want %v", c.Sources, want)
	}
}

func TestLoadFullMissingExplicit(t *testing.T) {
	isolate(t)
	if _, err := LoadFull("", filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadFullMalformed(t *testing.T) {
	isolate(t)
	project := t.TempDir()
	writeFile(t, filepath.Join(project, ProjectFile), "[stcmd\nbinary = 1")
	if _, err := LoadFull(project, ""); err == nil {
		t.Fatal("expected TOML error")
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"bad level", "[log]\nlevel = \"loud\"\n", "level"},
		{"unknown key", "[stcmd]\nbinery = \"x\"\n", "binery"},
		{"empty drive blocks", "drive_blocks = []\n", "drive_blocks"},
		{"port range", "[stcmd]\ndefault_ads_port = 70000\n", "default_ads_port"},
		{"format", "[summary]\nformat = \"xml\"\n", "format"},
		{"empty allow tag", "[check]\nallow = [\"\"]\n", "allow"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			explicit := filepath.Join(t.TempDir(), "c.toml")
			writeFile(t, explicit, tt.content)
			_, err := LoadFull("", explicit)
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not mention %s", err, tt.field)
			}
		})
	}
}
