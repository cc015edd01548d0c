// Package settings loads user configuration for keg.
package settings

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/zerr"
)

const (
	keyPrefix       = "prefix"
	keyFormulaPath  = "formula_path"
	keyWorkDir      = "work_dir"
	keyFetchTimeout = "fetch_timeout"
	keyTestTimeout  = "test_timeout"
	keyJobs         = "jobs"
)

// Loader implements ports.SettingsLoader on top of viper.
type Loader struct {
	configDir string
}

// NewLoader creates a Loader reading config.yaml from configDir. An empty
// configDir selects the user config directory.
func NewLoader(configDir string) *Loader {
	return &Loader{configDir: configDir}
}

// ConfigDir returns $XDG_CONFIG_HOME/keg, falling back to ~/.config/keg.
func ConfigDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, domain.ConfigDirName), nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", zerr.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, ".config", domain.ConfigDirName), nil
}

// DefaultPrefix expands prefix against the home directory. When the home
// directory is unknown it falls back to .local below the working directory.
func DefaultPrefix(prefix string) string {
	expanded, err := homedir.Expand(prefix)
	if err != nil {
		return ".local"
	}
	return expanded
}

// Load returns the defaults overlaid with the optional config file and the
// KEG_* environment variables.
func (l *Loader) Load(ctx context.Context) (domain.Settings, error) {
	if err := ctx.Err(); err != nil {
		return domain.Settings{}, err
	}

	defaults := domain.DefaultSettings()

	v := viper.New()
	v.SetDefault(keyPrefix, DefaultPrefix(defaults.Prefix))
	v.SetDefault(keyFormulaPath, defaults.FormulaPath)
	v.SetDefault(keyWorkDir, defaults.WorkDir)
	v.SetDefault(keyFetchTimeout, defaults.FetchTimeout)
	v.SetDefault(keyTestTimeout, defaults.TestTimeout)
	v.SetDefault(keyJobs, defaults.Jobs)

	v.SetEnvPrefix(domain.EnvPrefix)
	v.AutomaticEnv()

	configFile, err := l.configFile()
	if err != nil {
		return domain.Settings{}, zerr.Wrap(domain.ErrConfigLoadFailed, err.Error())
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return domain.Settings{}, zerr.With(zerr.Wrap(domain.ErrConfigLoadFailed, err.Error()), "path", configFile)
		}
	}

	s := domain.Settings{
		FetchTimeout: v.GetDuration(keyFetchTimeout),
		TestTimeout:  v.GetDuration(keyTestTimeout),
		Jobs:         v.GetInt(keyJobs),
	}

	if s.Prefix, err = expand(v.GetString(keyPrefix)); err != nil {
		return domain.Settings{}, err
	}
	if s.WorkDir, err = expand(v.GetString(keyWorkDir)); err != nil {
		return domain.Settings{}, err
	}
	for _, dir := range pathList(v.Get(keyFormulaPath)) {
		expanded, err := expand(dir)
		if err != nil {
			return domain.Settings{}, err
		}
		s.FormulaPath = append(s.FormulaPath, expanded)
	}

	if err := validate(s); err != nil {
		return domain.Settings{}, err
	}

	return s, nil
}

func (l *Loader) configFile() (string, error) {
	dir := l.configDir
	if dir == "" {
		var err error
		if dir, err = ConfigDir(); err != nil {
			return "", err
		}
	}

	path := filepath.Join(dir, domain.ConfigFileName+".yaml")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return path, nil
}

// pathList accepts a YAML list or an OS path list string such as
// KEG_FORMULA_PATH=/a:/b.
func pathList(raw any) []string {
	var out []string
	switch v := raw.(type) {
	case string:
		out = filepath.SplitList(v)
	case []string:
		out = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}

	dirs := out[:0:0]
	for _, dir := range out {
		if dir = strings.TrimSpace(dir); dir != "" {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

func expand(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", zerr.With(zerr.Wrap(domain.ErrConfigLoadFailed, err.Error()), "path", path)
	}
	return expanded, nil
}

func validate(s domain.Settings) error {
	switch {
	case s.Prefix == "":
		return zerr.Wrap(domain.ErrConfigLoadFailed, "prefix must not be empty")
	case s.Jobs < 1:
		return zerr.With(zerr.Wrap(domain.ErrConfigLoadFailed, "jobs must be at least 1"), keyJobs, s.Jobs)
	case s.FetchTimeout <= 0:
		return zerr.With(zerr.Wrap(domain.ErrConfigLoadFailed, "fetch_timeout must be positive"), keyFetchTimeout, s.FetchTimeout)
	case s.TestTimeout <= 0:
		return zerr.With(zerr.Wrap(domain.ErrConfigLoadFailed, "test_timeout must be positive"), keyTestTimeout, s.TestTimeout)
	}
	return nil
}
