package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/nao1215/orphanscan/internal/model"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".orphanscan"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// BrowserFile holds browser settings from the configuration file.
type BrowserFile struct {
	// Bin is the Chrome/Chromium binary path.
	Bin string `yaml:"bin,omitempty"`

	// NoSandbox disables the Chrome sandbox.
	NoSandbox bool `yaml:"noSandbox,omitempty"`
}

// File represents the structure of the .orphanscan configuration file.
// Every field is optional; fields left out keep their defaults.
type File struct {
	// URL is the page to scan.
	URL string `yaml:"url,omitempty"`

	// Viewports replace the default viewport table.
	Viewports []model.Viewport `yaml:"viewports,omitempty"`

	// Selectors replace the default selector list.
	Selectors []string `yaml:"selectors,omitempty"`

	// Tolerance overrides the line grouping tolerance in pixels.
	Tolerance *int `yaml:"tolerance,omitempty"`

	// MaxOrphanChars overrides the orphan threshold.
	MaxOrphanChars *int `yaml:"maxOrphanChars,omitempty"`

	// Headers are extra HTTP headers, e.g. Authorization for a staging site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Cookie is sent with every page request, format "name=value; ...".
	Cookie string `yaml:"cookie,omitempty"`

	// Browser holds browser launch settings.
	Browser BrowserFile `yaml:"browser,omitempty"`
}

// LoadConfigFile loads a configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	return &cf, nil
}

// Apply overrides c with every field set in the file.
func (cf *File) Apply(c *Config) {
	if cf.URL != "" {
		c.TargetURL = cf.URL
	}
	if len(cf.Viewports) > 0 {
		c.Viewports = append([]model.Viewport(nil), cf.Viewports...)
	}
	if len(cf.Selectors) > 0 {
		c.Selectors = append([]string(nil), cf.Selectors...)
	}
	if cf.Tolerance != nil {
		c.Tolerance = *cf.Tolerance
	}
	if cf.MaxOrphanChars != nil {
		c.MaxOrphanChars = *cf.MaxOrphanChars
	}
	if len(cf.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(cf.Headers))
		}
		for k, v := range cf.Headers {
			c.Headers[k] = v
		}
	}
	if cf.Cookie != "" {
		c.Cookie = cf.Cookie
	}
	if cf.Browser.Bin != "" {
		c.BrowserBin = cf.Browser.Bin
	}
	if cf.Browser.NoSandbox {
		c.NoSandbox = true
	}
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .orphanscan in the current directory
// 3. Look for .orphanscan in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}
