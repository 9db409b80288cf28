// Package config holds the per-run exporter settings and the local settings
// override file. Settings are constructed once per run and passed by value;
// nothing here is ambient global state.
package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// SettingsFile is the name of the local override file, looked up next to
// the plugin binary.
const SettingsFile = "scene-export.yml"

// Settings is the run configuration handed to the exporter and writer.
type Settings struct {
	// StashURL is the GraphQL endpoint used outside plugin mode; in plugin
	// mode the server connection on stdin wins.
	StashURL string `yaml:"stash_url"`

	// OutputDir receives the exported metadata files.
	OutputDir string `yaml:"output_dir"`

	// TempDir is where generated preview images accumulate between runs.
	TempDir string `yaml:"stash_tmpdir"`

	// LogFile, when set, is truncated at the start of each run.
	LogFile string `yaml:"stash_logfile"`

	// PageSize is the catalog page size for the extraction loop.
	PageSize int `yaml:"page_size"`

	// LogLevel is the minimum level for stderr logging.
	LogLevel string `yaml:"log_level"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		StashURL:  "http://localhost:9999/graphql",
		OutputDir: "output",
		TempDir:   os.TempDir(),
		LogFile:   "",
		PageSize:  120,
		LogLevel:  "info",
	}
}

// Load reads the settings override file at path on top of the defaults.
// A missing file is not an error; the defaults apply unchanged.
func Load(path string) (Settings, error) {
	s := Defaults()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read settings %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse settings %s: %w", path, err)
	}

	if s.PageSize <= 0 {
		return s, fmt.Errorf("settings %s: page_size must be positive (got %d)", path, s.PageSize)
	}

	return s, nil
}

// EnsureSettingsFile writes a fully commented default settings file on first
// run so users have a template to uncomment. Idempotent: an existing file is
// left untouched.
func EnsureSettingsFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat settings %s: %w", path, err)
	}

	defaults, err := yaml.Marshal(Defaults())
	if err != nil {
		return fmt.Errorf("marshal default settings: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# Local overrides for scene-export. Uncomment a line to change a default.\n")
	scanner := bufio.NewScanner(bytes.NewReader(defaults))
	for scanner.Scan() {
		buf.WriteString("#")
		buf.Write(scanner.Bytes())
		buf.WriteString("\n")
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write settings %s: %w", path, err)
	}

	return nil
}

// EnsureOutputDir creates the output directory when it does not exist yet.
func EnsureOutputDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", dir, err)
	}
	return nil
}

// ClearTempDir removes generated preview images left in the temp directory
// by earlier runs. Files that cannot be removed are logged and skipped.
func ClearTempDir(dir string, logger zerolog.Logger) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.jpg"))
	if err != nil {
		logger.Error().Err(err).Str("dir", dir).Msg("Could not scan temp directory")
		return
	}

	removed := 0
	for _, f := range matches {
		if err := os.Remove(f); err != nil {
			logger.Error().Err(err).Str("file", f).Msg("Could not remove temp file")
			continue
		}
		removed++
	}

	logger.Debug().Int("removed", removed).Str("dir", dir).Msg("Cleared temp directory")
}

// ClearLogFile truncates the configured log file. A missing or unset file
// is a no-op.
func ClearLogFile(path string) error {
	if path == "" {
		return nil
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("stat log file %s: %w", path, err)
	}

	if err := os.Truncate(path, 0); err != nil {
		return fmt.Errorf("truncate log file %s: %w", path, err)
	}

	return nil
}
