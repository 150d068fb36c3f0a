package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// configFileNames lists the recognized configuration file names, probed in
// order within each search directory.
var configFileNames = []string{"config.ini", ".downpour.ini"}

// ErrNotFound indicates no configuration file exists in any search path.
var ErrNotFound = errors.New("could not find a valid configuration file")

// Settings holds the [settings] section. Values are kept verbatim as parsed;
// numeric fields expose typed accessors for callers that need integers.
type Settings struct {
	DestFolder       string
	Connections      string
	MaxDownloadSpeed string
	RPCPort          string
	RPCSecret        string
}

// ConnectionsInt returns the connections value as an integer.
func (s Settings) ConnectionsInt() (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s.Connections))
	if err != nil {
		return 0, fmt.Errorf("settings.connections: %w", err)
	}
	return n, nil
}

// RPCPortInt returns the rpc_port value as an integer.
func (s Settings) RPCPortInt() (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s.RPCPort))
	if err != nil {
		return 0, fmt.Errorf("settings.rpc_port: %w", err)
	}
	return n, nil
}

// Schedule is a single [schedules] entry, passed through untouched.
type Schedule struct {
	Name  string
	Value string
}

// Logging holds the optional [logging] section.
type Logging struct {
	Level  string
	Format string
}

// Config is a validated downpour configuration.
type Config struct {
	// Path is the file the configuration was loaded from.
	Path      string
	Settings  Settings
	Schedules []Schedule

	logging Logging
}

// Logging returns log settings with repository defaults applied.
func (c *Config) Logging() Logging {
	return c.logging
}

// DefaultSearchPaths returns the directories probed for a configuration file
// when the caller supplies none: the user home directory, then the current
// working directory.
func DefaultSearchPaths() []string {
	paths := make([]string, 0, 2)
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, cwd)
	}
	return paths
}

// Locate returns the first existing regular file among the recognized
// configuration names across searchPaths. Order is significant:
// directory-major, filename-minor.
func Locate(searchPaths []string) (string, error) {
	for _, dir := range searchPaths {
		for _, name := range configFileNames {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
				return candidate, nil
			}
		}
	}
	return "", ErrNotFound
}

// Load locates, parses, and validates a configuration file. A nil searchPaths
// uses DefaultSearchPaths; an empty slice searches nothing and fails with
// ErrNotFound.
func Load(searchPaths []string) (*Config, error) {
	if searchPaths == nil {
		searchPaths = DefaultSearchPaths()
	}
	path, err := Locate(searchPaths)
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile parses and validates the configuration file at path.
func LoadFile(path string) (*Config, error) {
	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}
	file, err := ini.Load(expanded)
	if err != nil {
		return nil, fmt.Errorf("parse config %q: %w", expanded, err)
	}
	if err := validate(file); err != nil {
		return nil, err
	}
	return build(expanded, file), nil
}

func build(path string, file *ini.File) *Config {
	settings := file.Section(sectionSettings)
	cfg := &Config{
		Path: path,
		Settings: Settings{
			DestFolder:       settings.Key("dest_folder").String(),
			Connections:      settings.Key("connections").String(),
			MaxDownloadSpeed: settings.Key("max_download_speed").String(),
			RPCPort:          settings.Key("rpc_port").String(),
			RPCSecret:        settings.Key("rpc_secret").String(),
		},
		logging: Logging{Level: defaultLogLevel, Format: defaultLogFormat},
	}

	for _, key := range file.Section(sectionSchedules).Keys() {
		cfg.Schedules = append(cfg.Schedules, Schedule{Name: key.Name(), Value: key.String()})
	}

	if sec, err := file.GetSection(sectionLogging); err == nil {
		if v := strings.TrimSpace(sec.Key("level").String()); v != "" {
			cfg.logging.Level = v
		}
		if v := strings.TrimSpace(sec.Key("format").String()); v != "" {
			cfg.logging.Format = v
		}
	}

	return cfg
}

// EnsureDirectories creates the download destination on a best-effort basis so
// the daemon can start when the folder has not been provisioned yet.
func (c *Config) EnsureDirectories() {
	dest, err := ExpandPath(c.Settings.DestFolder)
	if err != nil || strings.TrimSpace(dest) == "" {
		return
	}
	_ = os.MkdirAll(dest, 0o755)
}

// ExpandPath resolves a leading tilde and returns an absolute, cleaned path.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
