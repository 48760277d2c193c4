package config

import "strings"

type EnvVars struct {
	AppName    string `env:"APP_NAME" env-default:"Centavo" env-description:"application name shown in the banner"`
	Env        string `env:"ENV" env-default:"DEV" env-description:"deployment environment"`
	LogLevel   string `env:"LOG_LEVEL" env-default:"info" env-description:"zerolog level (debug, info, warn, error)"`
	DataFolder string `env:"FOLDER" env-default:"./data" env-description:"folder for local state"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return strings.ToUpper(e.Env)
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

func (e EnvVars) GetDataFolder() string {
	return e.DataFolder
}
