package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/pelletier/go-toml/v2"
)

//go:embed defaults.toml
var defaultsTOML []byte

//go:embed schema.cue
var schemaCUE string

// ErrInvalid is returned when the merged configuration violates the schema.
var ErrInvalid = errors.New("invalid configuration")

// ProjectFile is the per-project override file, looked up next to the project.
const ProjectFile = ".tcparse.toml"

type Config struct {
	DriveBlocks []string      `toml:"drive_blocks" json:"drive_blocks"`
	Log         LogConfig     `toml:"log" json:"log"`
	Stcmd       StcmdConfig   `toml:"stcmd" json:"stcmd"`
	Summary     SummaryConfig `toml:"summary" json:"summary"`
	Check       CheckConfig   `toml:"check" json:"check"`

	// Sources lists the files applied over the defaults, in order.
	Sources []string `toml:"-" json:"-"`
}

type LogConfig struct {
	Level string `toml:"level" json:"level"`
}

type StcmdConfig struct {
	Binary string `toml:"binary" json:"binary"`
	Delim  string `toml:"delim" json:"delim"`
	// Template is a template file; empty selects the built-in one.
	Template       string `toml:"template" json:"template"`
	MotorPort      string `toml:"motor_port" json:"motor_port"`
	AsynPort       string `toml:"asyn_port" json:"asyn_port"`
	DefaultADSPort int    `toml:"default_ads_port" json:"default_ads_port"`
	Precision      int    `toml:"precision" json:"precision"`
}

type SummaryConfig struct {
	Format string `toml:"format" json:"format"`
	Color  string `toml:"color" json:"color"`
	Jobs   int    `toml:"jobs" json:"jobs"`
}

type CheckConfig struct {
	Allow []string `toml:"allow" json:"allow"`
}

var systemPaths = []string{"/etc/tcparse/config.toml"}

// Default returns the built-in configuration.
func Default() *Config {
	c, err := build(nil)
	if err != nil {
		panic(fmt.Sprintf("failed to parse default embedded config: %v", err))
	}
	return c
}

// LoadFull merges the defaults with the system file, the user file, the
// project's .tcparse.toml and finally explicit (when not empty). Only the
// explicit file is required to exist.
func LoadFull(projectDir, explicit string) (*Config, error) {
	var layers []string
	layers = append(layers, systemPaths...)
	if home, err := os.UserHomeDir(); err == nil {
		layers = append(layers, filepath.Join(home, ".config", "tcparse", "config.toml"))
	}
	if projectDir != "" {
		layers = append(layers, filepath.Join(projectDir, ProjectFile))
	}

	var found []string
	for _, path := range layers {
		if _, err := os.Stat(path); err == nil {
			found = append(found, path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		found = append(found, explicit)
	}
	return build(found)
}

func build(paths []string) (*Config, error) {
	merged, err := decode(defaultsTOML)
	if err != nil {
		return nil, fmt.Errorf("defaults: %w", err)
	}
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		layer, err := decode(content)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		merge(merged, layer)
	}
	if err := Validate(merged); err != nil {
		return nil, err
	}

	raw, err := toml.Marshal(merged)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := toml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	c.Sources = paths
	return &c, nil
}

func decode(content []byte) (map[string]any, error) {
	m := make(map[string]any)
	if err := toml.Unmarshal(content, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// merge overlays src onto dst: tables merge recursively, everything else
// (lists included) replaces.
func merge(dst, src map[string]any) {
	for k, v := range src {
		if sv, ok := v.(map[string]any); ok {
			if dv, ok := dst[k].(map[string]any); ok {
				merge(dv, sv)
				continue
			}
		}
		dst[k] = v
	}
}

// Validate checks a raw configuration tree against the embedded schema.
// Unknown keys are rejected.
func Validate(data map[string]any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	res := schema.Unify(ctx.Encode(data))
	if err := res.Validate(cue.Concrete(true)); err != nil {
		var msgs []string
		for _, e := range cueerrors.Errors(err) {
			msg := e.Error()
			if p := strings.Join(e.Path(), "."); p != "" && !strings.Contains(msg, p) {
				msg = p + ": " + msg
			}
			msgs = append(msgs, msg)
		}
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
	}
	return nil
}
