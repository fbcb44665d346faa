package config

import (
	"fmt"
	"math"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Year bounds shared with the scraper's sanity checks
const (
	MinYear = 1888
	MaxYear = 2030
)

// BasicConfigValidator provides basic configuration validation
type BasicConfigValidator struct{}

// NewBasicConfigValidator creates a new basic config validator
func NewBasicConfigValidator() *BasicConfigValidator {
	return &BasicConfigValidator{}
}

// Validate validates the configuration
func (v *BasicConfigValidator) Validate(config *Config) error {
	if err := v.validateCommon(&config.Common); err != nil {
		return fmt.Errorf("common config validation failed: %w", err)
	}

	if err := v.validateSite(&config.Site); err != nil {
		return fmt.Errorf("site config validation failed: %w", err)
	}

	if err := v.validateProxy(&config.Proxy); err != nil {
		return fmt.Errorf("proxy config validation failed: %w", err)
	}

	if err := v.validateDefaults(&config.Defaults); err != nil {
		return fmt.Errorf("defaults config validation failed: %w", err)
	}

	if err := v.validatePoster(&config.Poster); err != nil {
		return fmt.Errorf("poster config validation failed: %w", err)
	}

	return nil
}

// validateCommon validates common configuration
func (v *BasicConfigValidator) validateCommon(config *CommonConfig) error {
	if config.Limit <= 0 {
		return fmt.Errorf("limit must be positive, got: %d", config.Limit)
	}

	if config.MinRecords < 0 {
		return fmt.Errorf("min_records must be non-negative, got: %d", config.MinRecords)
	}

	validSources := []string{SourceHTML, SourceRSS, SourceAuto}
	if !v.contains(validSources, config.Source) {
		return fmt.Errorf("invalid source: %s, must be one of: %v", config.Source, validSources)
	}

	if config.Sleep < 0 {
		return fmt.Errorf("sleep must be non-negative, got: %d", config.Sleep)
	}

	if strings.TrimSpace(config.OutputPath) == "" {
		return fmt.Errorf("output_path cannot be empty")
	}

	return nil
}

// validateSite validates the site base URL
func (v *BasicConfigValidator) validateSite(config *SiteConfig) error {
	u, err := url.Parse(config.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url: %s, error: %w", config.BaseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url must be absolute, got: %q", config.BaseURL)
	}
	return nil
}

// validateProxy validates proxy configuration
func (v *BasicConfigValidator) validateProxy(config *ProxyConfig) error {
	if config.Timeout < 0 {
		return fmt.Errorf("proxy timeout must be non-negative, got: %d", config.Timeout)
	}

	if config.Retry < 0 {
		return fmt.Errorf("proxy retry must be non-negative, got: %d", config.Retry)
	}

	if !config.Switch {
		return nil
	}

	if config.Proxy != "" {
		if _, err := url.Parse(config.Proxy); err != nil {
			return fmt.Errorf("invalid proxy URL: %s, error: %w", config.Proxy, err)
		}
	}

	validTypes := []string{"http", "https", "socks5", "socks5h"}
	if !v.contains(validTypes, config.Type) {
		return fmt.Errorf("invalid proxy type: %s, must be one of: %v", config.Type, validTypes)
	}

	if config.CACertFile != "" {
		if _, err := os.Stat(config.CACertFile); os.IsNotExist(err) {
			return fmt.Errorf("CA cert file does not exist: %s", config.CACertFile)
		}
	}

	return nil
}

// validateDefaults validates the fallback field values
func (v *BasicConfigValidator) validateDefaults(config *DefaultsConfig) error {
	year, err := strconv.Atoi(config.Year)
	if err != nil || len(config.Year) != 4 {
		return fmt.Errorf("default year must be a 4-digit number, got: %q", config.Year)
	}
	if year < MinYear || year > MaxYear {
		return fmt.Errorf("default year %d out of range %d-%d", year, MinYear, MaxYear)
	}

	if config.Rating < 0 || config.Rating > 5 || math.Mod(config.Rating*2, 1) != 0 {
		return fmt.Errorf("default rating must be 0-5 in 0.5 steps, got: %v", config.Rating)
	}

	if strings.Count(config.ReviewTemplate, "%") != 1 || !strings.Contains(config.ReviewTemplate, "%s") {
		return fmt.Errorf("review_template must contain exactly one %%s, got: %q", config.ReviewTemplate)
	}

	if strings.TrimSpace(config.DateLayout) == "" {
		return fmt.Errorf("date_layout cannot be empty")
	}

	return nil
}

// validatePoster validates poster mirroring configuration
func (v *BasicConfigValidator) validatePoster(config *PosterConfig) error {
	if !config.Download {
		return nil
	}

	if strings.TrimSpace(config.Folder) == "" {
		return fmt.Errorf("poster folder cannot be empty when download is enabled")
	}

	if config.ParallelDownload < 0 {
		return fmt.Errorf("parallel_download must be non-negative, got: %d", config.ParallelDownload)
	}

	return nil
}

// contains checks if slice contains string
func (v *BasicConfigValidator) contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
