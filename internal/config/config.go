// Package config implements TOML configuration loading, validation and
// platform-specific path resolution for shorts-go. Values pass through a
// four-layer override chain: defaults -> config file -> environment -> CLI
// flags.
package config

import "time"

// Config is the top-level configuration parsed from config.toml.
type Config struct {
	OAuth   OAuthConfig   `toml:"oauth"`
	Upload  UploadConfig  `toml:"upload"`
	Storage StorageConfig `toml:"storage"`
	Logging LoggingConfig `toml:"logging"`
	Network NetworkConfig `toml:"network"`
}

// OAuthConfig is the Google OAuth client registration. AuthURL and TokenURL
// are empty for Google's own endpoints.
type OAuthConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	RedirectURI  string   `toml:"redirect_uri"`
	Scopes       []string `toml:"scopes"`
	AuthURL      string   `toml:"auth_url"`
	TokenURL     string   `toml:"token_url"`
}

// UploadConfig holds upload defaults and transfer tuning. APIURL is empty
// for YouTube's own upload endpoint.
type UploadConfig struct {
	DefaultPrivacy   string `toml:"default_privacy"`
	CategoryID       string `toml:"category_id"`
	DefaultTags      string `toml:"default_tags"`
	BandwidthLimit   string `toml:"bandwidth_limit"`
	ProgressInterval string `toml:"progress_interval"`
	APIURL           string `toml:"api_url"`
}

// StorageConfig selects where tokens are persisted.
type StorageConfig struct {
	Backend string `toml:"backend"`
	DataDir string `toml:"data_dir"`
}

// LoggingConfig controls log level and format.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// NetworkConfig controls HTTP client timeouts and the user agent.
type NetworkConfig struct {
	ConnectTimeout string `toml:"connect_timeout"`
	DataTimeout    string `toml:"data_timeout"`
	UserAgent      string `toml:"user_agent"`
}

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// CLIOverrides holds values from CLI flags. Pointer fields distinguish "not
// specified" (nil) from an explicit value.
type CLIOverrides struct {
	ConfigPath string  // --config (empty = env or default)
	LogLevel   *string // --verbose / --quiet / --debug
	DataDir    *string
}

// ProgressIntervalBytes returns progress_interval in bytes. Only valid after
// Validate has accepted the config.
func (u *UploadConfig) ProgressIntervalBytes() int64 {
	n, err := ParseSize(u.ProgressInterval)
	if err != nil {
		return 0
	}

	return n
}

// ConnectTimeoutDuration returns connect_timeout. Only valid after Validate.
func (n *NetworkConfig) ConnectTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(n.ConnectTimeout)
	return d
}

// DataTimeoutDuration returns data_timeout. Only valid after Validate.
func (n *NetworkConfig) DataTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(n.DataTimeout)
	return d
}
