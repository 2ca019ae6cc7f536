package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the nova-server configuration file.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// DataDir holds the log and calendar mirror files.
	DataDir      string `yaml:"data_dir"`
	LogFile      string `yaml:"log_file"`
	CalendarFile string `yaml:"calendar_file"`

	// TwitchConfig points at the {clientId, clientSecret, channels} file.
	TwitchConfig string `yaml:"twitch_config"`

	// PublicDir is served for any path the API does not claim. Empty disables it.
	PublicDir string `yaml:"public_dir"`

	// Resync is a cron spec for rewriting calendar mirrors after failed writes.
	Resync string `yaml:"resync"`

	// ScriptAgents are User-Agent fragments identifying the voice loop.
	ScriptAgents []string `yaml:"script_agents"`
}

func Default() *Config {
	return &Config{
		Listen:       ":3000",
		DataDir:      ".",
		LogFile:      "nova-log.json",
		CalendarFile: "calendar-events.json",
		TwitchConfig: filepath.Join("config", "twitch.json"),
		PublicDir:    "public",
		Resync:       "*/5 * * * *",
		ScriptAgents: []string{"nova-voice", "Python"},
	}
}

// Normalize fills zero values with defaults so partial files still work.
func (c *Config) Normalize() {
	d := Default()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
	if c.LogFile == "" {
		c.LogFile = d.LogFile
	}
	if c.CalendarFile == "" {
		c.CalendarFile = d.CalendarFile
	}
	if c.TwitchConfig == "" {
		c.TwitchConfig = d.TwitchConfig
	}
	if c.Resync == "" {
		c.Resync = d.Resync
	}
	if c.ScriptAgents == nil {
		c.ScriptAgents = d.ScriptAgents
	}
}

// LogPath is the log mirror location, relative paths resolved against DataDir.
func (c *Config) LogPath() string {
	return c.resolve(c.LogFile)
}

func (c *Config) CalendarPath() string {
	return c.resolve(c.CalendarFile)
}

func (c *Config) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// Load reads the YAML file at path. A missing file is created with the
// defaults, which are returned together with any error from writing it.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := Default()
			return cfg, Save(path, cfg)
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".nova-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
