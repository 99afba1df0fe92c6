package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ManifestName is the file the CLI looks for when no unit is given explicitly.
const ManifestName = "ferrite.toml"

// Manifest is a parsed ferrite.toml together with where it was found.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors the TOML layout of ferrite.toml.
type Config struct {
	Package PackageConfig `toml:"package"`
	Units   []UnitConfig  `toml:"unit"`
	Check   CheckConfig   `toml:"check"`
}

type PackageConfig struct {
	Name string `toml:"name"`
}

// UnitConfig names one compilation unit and the snapshot the front-end wrote
// for it. Snapshot paths are relative to the manifest's directory.
type UnitConfig struct {
	Name     string `toml:"name"`
	Snapshot string `toml:"snapshot"`
}

type CheckConfig struct {
	Jobs           int `toml:"jobs"`
	MaxDiagnostics int `toml:"max_diagnostics"`
}

// FindManifest walks up from startDir to locate ferrite.toml.
func FindManifest(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// LoadManifest finds and parses the nearest ferrite.toml above startDir.
func LoadManifest(startDir string) (*Manifest, bool, error) {
	manifestPath, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := LoadConfig(manifestPath)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{
		Path:   manifestPath,
		Root:   filepath.Dir(manifestPath),
		Config: cfg,
	}, true, nil
}

// LoadConfig parses and validates one manifest file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("package") {
		return Config{}, fmt.Errorf("%s: missing [package]", path)
	}
	if !meta.IsDefined("package", "name") || strings.TrimSpace(cfg.Package.Name) == "" {
		return Config{}, fmt.Errorf("%s: missing [package].name", path)
	}
	if len(cfg.Units) == 0 {
		return Config{}, fmt.Errorf("%s: missing [[unit]] entries", path)
	}
	seen := make(map[string]struct{}, len(cfg.Units))
	for i, u := range cfg.Units {
		if strings.TrimSpace(u.Name) == "" {
			return Config{}, fmt.Errorf("%s: [[unit]] %d: missing name", path, i+1)
		}
		if strings.TrimSpace(u.Snapshot) == "" {
			return Config{}, fmt.Errorf("%s: [[unit]] %q: missing snapshot path", path, u.Name)
		}
		if _, dup := seen[u.Name]; dup {
			return Config{}, fmt.Errorf("%s: duplicate unit name %q", path, u.Name)
		}
		seen[u.Name] = struct{}{}
	}
	if cfg.Check.Jobs < 0 {
		return Config{}, fmt.Errorf("%s: [check].jobs must be non-negative", path)
	}
	if cfg.Check.MaxDiagnostics < 0 {
		return Config{}, fmt.Errorf("%s: [check].max_diagnostics must be non-negative", path)
	}
	return cfg, nil
}

// SnapshotPath resolves a unit's snapshot path against the manifest root.
func (m *Manifest) SnapshotPath(u UnitConfig) string {
	return filepath.Join(m.Root, filepath.FromSlash(u.Snapshot))
}
