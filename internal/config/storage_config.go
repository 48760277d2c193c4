package config

import "path/filepath"

type StorageType string

const (
	StorageMemory StorageType = "memory"
	StorageFile   StorageType = "file"
	StorageRedis  StorageType = "redis"
)

type StorageConfig interface {
	GetSessionStore() StorageType
	GetSessionFile() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisKeyPrefix() string
}

type Storage struct {
	SessionStore   string `env:"SESSION_STORE" env-default:"file" env-description:"session storage backend (memory, file, redis)"`
	SessionFile    string `env:"SESSION_FILE" env-description:"path of the session file, defaults to <FOLDER>/session.json"`
	RedisAddr      string `env:"REDIS_ADDR" env-default:"localhost:6379" env-description:"redis address for the redis session store"`
	RedisPassword  string `env:"REDIS_PASSWORD" env-description:"redis password"`
	RedisDB        int    `env:"REDIS_DB" env-default:"0" env-description:"redis database"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX" env-default:"centavo:session:" env-description:"prefix for session keys in redis"`
}

var _ StorageConfig = Storage{}

func (s Storage) GetSessionStore() StorageType {
	switch StorageType(s.SessionStore) {
	case StorageMemory, StorageRedis:
		return StorageType(s.SessionStore)
	default:
		return StorageFile
	}
}

func (s Storage) GetSessionFile() string {
	if s.SessionFile != "" {
		return s.SessionFile
	}
	return filepath.Join("./data", "session.json")
}

func (s Storage) GetRedisAddr() string {
	return s.RedisAddr
}

func (s Storage) GetRedisPassword() string {
	return s.RedisPassword
}

func (s Storage) GetRedisDB() int {
	return s.RedisDB
}

func (s Storage) GetRedisKeyPrefix() string {
	return s.RedisKeyPrefix
}
