// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// DistributionCratesIO fetches pack archives from the crates.io CDN.
	DistributionCratesIO DistributionKind = "crates-io"
	// DistributionGit clones tagged releases from git repositories.
	DistributionGit DistributionKind = "git"

	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// NamePlaceholder is substituted with the pack name in GitURLPattern.
	NamePlaceholder = "{name}"
)

var (
	// ErrInvalidDistributionKind is returned when a DistributionKind value is not recognized.
	ErrInvalidDistributionKind = errors.New("invalid distribution")
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidEndpointURL is returned for registry URLs that are not http(s).
	ErrInvalidEndpointURL = errors.New("invalid endpoint URL")
	// ErrInvalidTimeout is returned for unparsable or non-positive timeouts.
	ErrInvalidTimeout = errors.New("invalid timeout")
	// ErrInvalidCacheDirPath is returned when a CacheDirPath value is whitespace-only.
	ErrInvalidCacheDirPath = errors.New("invalid cache dir path")
	// ErrInvalidGitURLPattern is returned when a pattern lacks the {name} placeholder.
	ErrInvalidGitURLPattern = errors.New("invalid git URL pattern")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// DistributionKind selects where pack archives come from.
	DistributionKind string

	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// EndpointURL is an http(s) base URL. The zero value means "use the default".
	EndpointURL string

	// Timeout is a Go duration string such as "30s". The zero value means
	// "use the default".
	Timeout string

	// CacheDirPath is the template cache directory. The zero value means
	// BATTERY_PACK_CACHE or ~/.battery-pack/cache.
	CacheDirPath string

	// GitURLPattern is a repository URL containing {name}.
	GitURLPattern string

	// InvalidValueError reports one invalid field value. It wraps the
	// sentinel of the field's type.
	InvalidValueError struct {
		Field string
		Value string
		Err   error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig and collects field-level validation errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Registry configures the crates.io API client.
		Registry RegistryConfig `json:"registry" mapstructure:"registry"`
		// Cache configures the template cache.
		Cache CacheConfig `json:"cache" mapstructure:"cache"`
		// Distribution selects "crates-io" or "git".
		Distribution DistributionKind `json:"distribution" mapstructure:"distribution"`
		// Git configures the git distribution point.
		Git GitConfig `json:"git" mapstructure:"git"`
		// UI configures the user interface.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// RegistryConfig configures the registry client.
	RegistryConfig struct {
		URL       EndpointURL `json:"url" mapstructure:"url"`
		CDNURL    EndpointURL `json:"cdn_url" mapstructure:"cdn_url"`
		UserAgent string      `json:"user_agent" mapstructure:"user_agent"`
		Timeout   Timeout     `json:"timeout" mapstructure:"timeout"`
	}

	// CacheConfig configures the template cache.
	CacheConfig struct {
		Dir         CacheDirPath `json:"dir" mapstructure:"dir"`
		ListingSize int          `json:"listing_size" mapstructure:"listing_size"`
	}

	// GitConfig configures the git distribution point.
	GitConfig struct {
		URLPattern GitURLPattern `json:"url_pattern" mapstructure:"url_pattern"`
		// TokenEnv names the environment variable holding an access token
		// for private pack repositories. Empty falls back to GITHUB_TOKEN,
		// GITLAB_TOKEN and GIT_TOKEN.
		TokenEnv string `json:"token_env" mapstructure:"token_env"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables debug logging
		Verbose bool `json:"verbose" mapstructure:"verbose"`
		// Interactive allows prompts when a choice is ambiguous
		Interactive bool `json:"interactive" mapstructure:"interactive"`
	}
)

// Error implements the error interface for InvalidValueError.
func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("%s: %v %q", e.Field, e.Err, e.Value)
}

// Unwrap returns the field's sentinel for errors.Is() compatibility.
func (e *InvalidValueError) Unwrap() error { return e.Err }

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig followed by the field errors, so
// errors.Is matches both the config sentinel and each field sentinel.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// String returns the string representation of the DistributionKind.
func (d DistributionKind) String() string { return string(d) }

// IsValid returns whether the DistributionKind is one of the defined kinds.
func (d DistributionKind) IsValid() (bool, []error) {
	switch d {
	case DistributionCratesIO, DistributionGit:
		return true, nil
	default:
		return false, []error{&InvalidValueError{Field: "distribution", Value: string(d), Err: ErrInvalidDistributionKind}}
	}
}

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidValueError{Field: "ui.color_scheme", Value: string(cs), Err: ErrInvalidColorScheme}}
	}
}

// IsValid returns whether the URL is empty or an absolute http(s) URL.
func (u EndpointURL) IsValid() (bool, []error) {
	if u == "" {
		return true, nil
	}
	parsed, err := url.Parse(string(u))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return false, []error{&InvalidValueError{Field: "url", Value: string(u), Err: ErrInvalidEndpointURL}}
	}
	return true, nil
}

// Duration parses the timeout. The zero value yields fallback.
func (t Timeout) Duration(fallback time.Duration) (time.Duration, error) {
	if t == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(string(t))
	if err != nil || d <= 0 {
		return 0, &InvalidValueError{Field: "registry.timeout", Value: string(t), Err: ErrInvalidTimeout}
	}
	return d, nil
}

// IsValid returns whether the timeout is empty or a positive duration.
func (t Timeout) IsValid() (bool, []error) {
	if _, err := t.Duration(time.Second); err != nil {
		return false, []error{err}
	}
	return true, nil
}

// String returns the string representation of the CacheDirPath.
func (p CacheDirPath) String() string { return string(p) }

// IsValid returns whether the CacheDirPath is empty or not whitespace-only.
func (p CacheDirPath) IsValid() (bool, []error) {
	if p != "" && strings.TrimSpace(string(p)) == "" {
		return false, []error{&InvalidValueError{Field: "cache.dir", Value: string(p), Err: ErrInvalidCacheDirPath}}
	}
	return true, nil
}

// IsValid returns whether the pattern is empty or contains {name}.
func (p GitURLPattern) IsValid() (bool, []error) {
	if p != "" && !strings.Contains(string(p), NamePlaceholder) {
		return false, []error{&InvalidValueError{Field: "git.url_pattern", Value: string(p), Err: ErrInvalidGitURLPattern}}
	}
	return true, nil
}

// IsValid returns whether the Config has valid fields, collecting every
// field error.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	check := func(valid bool, fieldErrs []error) {
		if !valid {
			errs = append(errs, fieldErrs...)
		}
	}

	for field, u := range map[string]EndpointURL{"registry.url": c.Registry.URL, "registry.cdn_url": c.Registry.CDNURL} {
		if valid, fieldErrs := u.IsValid(); !valid {
			for _, err := range fieldErrs {
				var ive *InvalidValueError
				if errors.As(err, &ive) {
					ive.Field = field
				}
			}
			errs = append(errs, fieldErrs...)
		}
	}
	check(c.Registry.Timeout.IsValid())
	check(c.Cache.Dir.IsValid())
	if c.Cache.ListingSize < 0 {
		errs = append(errs, &InvalidValueError{Field: "cache.listing_size", Value: fmt.Sprint(c.Cache.ListingSize), Err: ErrInvalidConfig})
	}
	check(c.Distribution.IsValid())
	check(c.Git.URLPattern.IsValid())
	check(c.UI.ColorScheme.IsValid())

	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Registry: RegistryConfig{
			URL:       "https://crates.io",
			CDNURL:    "https://static.crates.io/crates",
			UserAgent: "battery-pack (https://github.com/battery-pack-rs/battery-pack)",
			Timeout:   "60s",
		},
		Cache: CacheConfig{
			Dir:         "", // BATTERY_PACK_CACHE or ~/.battery-pack/cache
			ListingSize: 128,
		},
		Distribution: DistributionCratesIO,
		Git: GitConfig{
			URLPattern: "https://github.com/battery-pack-rs/{name}.git",
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
			Interactive: true,
		},
	}
}
