package config

import (
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"
)

type Config interface {
	EnvConfig
	APIConfig
	StorageConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetDataFolder() string
}

type mainConfig struct {
	EnvVars
	API
	Storage
}

// New reads the configuration from the process environment.
func New() (Config, error) {
	var c mainConfig
	if err := cleanenv.ReadEnv(&c); err != nil {
		return nil, errors.Wrap(err, "[config.New] read environment")
	}
	return c, nil
}

// GetSessionFile places the session file inside the data folder unless
// SESSION_FILE is set explicitly.
func (c mainConfig) GetSessionFile() string {
	if c.SessionFile != "" {
		return c.SessionFile
	}
	return filepath.Join(c.GetDataFolder(), "session.json")
}

// Usage returns the description of every supported environment variable.
func Usage() string {
	var c mainConfig
	help, _ := cleanenv.GetDescription(&c, nil)
	return help
}
