package config

// Default values for configuration options: layer 0 of the override chain.
const (
	defaultRedirectURI      = "http://127.0.0.1:8085/callback"
	defaultPrivacy          = "private"
	defaultCategoryID       = "22"
	defaultTags             = "shorts"
	defaultBandwidthLimit   = "0"
	defaultProgressInterval = "256KiB"
	defaultBackend          = BackendFile
	defaultLogLevel         = "info"
	defaultLogFormat        = "auto"
	defaultConnectTimeout   = "10s"
	defaultDataTimeout      = "60s"
)

// defaultScopes grant upload plus read access to the channel's own videos.
var defaultScopes = []string{
	"https://www.googleapis.com/auth/youtube.upload",
	"https://www.googleapis.com/auth/youtube.readonly",
}

// DefaultConfig returns a Config populated with all default values. It is
// the starting point for TOML decoding, so unset fields keep their defaults.
func DefaultConfig() *Config {
	return &Config{
		OAuth: OAuthConfig{
			RedirectURI: defaultRedirectURI,
			Scopes:      append([]string(nil), defaultScopes...),
		},
		Upload: UploadConfig{
			DefaultPrivacy:   defaultPrivacy,
			CategoryID:       defaultCategoryID,
			DefaultTags:      defaultTags,
			BandwidthLimit:   defaultBandwidthLimit,
			ProgressInterval: defaultProgressInterval,
		},
		Storage: StorageConfig{
			Backend: defaultBackend,
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		Network: NetworkConfig{
			ConnectTimeout: defaultConnectTimeout,
			DataTimeout:    defaultDataTimeout,
		},
	}
}
