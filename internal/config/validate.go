package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validation range constants.
const (
	minConnectTimeout   = 1 * time.Second
	minProgressInterval = 1024
)

// Validate checks all configuration values and returns every error found,
// so a user can fix the whole file in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateOAuth(&cfg.OAuth)...)
	errs = append(errs, validateUpload(&cfg.Upload)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateNetwork(&cfg.Network)...)

	return errors.Join(errs...)
}

func validateOAuth(o *OAuthConfig) []error {
	var errs []error

	if o.RedirectURI != "" {
		if err := validateAbsoluteURL(o.RedirectURI); err != nil {
			errs = append(errs, fmt.Errorf("oauth.redirect_uri: %w", err))
		}
	}

	for _, field := range []struct{ name, value string }{
		{"oauth.auth_url", o.AuthURL},
		{"oauth.token_url", o.TokenURL},
	} {
		if field.value == "" {
			continue
		}

		if err := validateAbsoluteURL(field.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field.name, err))
		}
	}

	for i, s := range o.Scopes {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, fmt.Errorf("oauth.scopes[%d]: must not be empty", i))
		}
	}

	return errs
}

func validateAbsoluteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must be an http or https URL, got %q", raw)
	}

	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}

	return nil
}

var validPrivacies = map[string]bool{
	"private":  true,
	"unlisted": true,
	"public":   true,
}

func validateUpload(u *UploadConfig) []error {
	var errs []error

	if !validPrivacies[strings.ToLower(u.DefaultPrivacy)] {
		errs = append(errs, fmt.Errorf(
			"upload.default_privacy: must be one of private, unlisted, public; got %q", u.DefaultPrivacy))
	}

	if u.CategoryID == "" || strings.Trim(u.CategoryID, "0123456789") != "" {
		errs = append(errs, fmt.Errorf("upload.category_id: must be numeric, got %q", u.CategoryID))
	}

	if _, err := ParseRate(u.BandwidthLimit); err != nil {
		errs = append(errs, fmt.Errorf("upload.bandwidth_limit: %w", err))
	}

	if u.APIURL != "" {
		if err := validateAbsoluteURL(u.APIURL); err != nil {
			errs = append(errs, fmt.Errorf("upload.api_url: %w", err))
		}
	}

	n, err := ParseSize(u.ProgressInterval)

	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("upload.progress_interval: %w", err))
	case n < minProgressInterval:
		errs = append(errs, fmt.Errorf("upload.progress_interval: must be at least 1KiB, got %q", u.ProgressInterval))
	}

	return errs
}

func validateStorage(s *StorageConfig) []error {
	if s.Backend != BackendFile && s.Backend != BackendSQLite {
		return []error{fmt.Errorf("storage.backend: must be %q or %q, got %q", BackendFile, BackendSQLite, s.Backend)}
	}

	return nil
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if !validLogLevels[l.LogLevel] {
		errs = append(errs, fmt.Errorf("logging.log_level: must be one of debug, info, warn, error; got %q", l.LogLevel))
	}

	if !validLogFormats[l.LogFormat] {
		errs = append(errs, fmt.Errorf("logging.log_format: must be one of auto, text, json; got %q", l.LogFormat))
	}

	return errs
}

func validateNetwork(n *NetworkConfig) []error {
	var errs []error

	if d, err := time.ParseDuration(n.ConnectTimeout); err != nil {
		errs = append(errs, fmt.Errorf("network.connect_timeout: invalid duration %q: %w", n.ConnectTimeout, err))
	} else if d < minConnectTimeout {
		errs = append(errs, fmt.Errorf("network.connect_timeout: must be >= %s, got %s", minConnectTimeout, d))
	}

	// 0 disables the per-read timeout.
	if d, err := time.ParseDuration(n.DataTimeout); err != nil {
		errs = append(errs, fmt.Errorf("network.data_timeout: invalid duration %q: %w", n.DataTimeout, err))
	} else if d < 0 {
		errs = append(errs, fmt.Errorf("network.data_timeout: must be >= 0, got %s", d))
	}

	return errs
}
