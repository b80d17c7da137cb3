package config

const (
	defaultDataDir        = "~/.local/share/groovy"
	defaultLogDir         = "~/.local/share/groovy/logs"
	defaultAPIBind        = "127.0.0.1:7519"
	defaultDefinitionsDir = "~/.config/groovy/workflows"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"

	defaultRateLimitWindowSeconds = 5
	defaultRateLimitMaxScans      = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Scanner: Scanner{
			RateLimitWindowSeconds: defaultRateLimitWindowSeconds,
			RateLimitMaxScans:      defaultRateLimitMaxScans,
		},
		Workflow: Workflow{
			DefinitionsDir: defaultDefinitionsDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
