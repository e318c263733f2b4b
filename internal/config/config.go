package config

type Config interface {
	EnvConfig
	ProviderConfig
	BackendConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	Providers
	Backend
}

func New() Config {
	return mainConfig{}
}
