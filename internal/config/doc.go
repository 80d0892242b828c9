// Package config provides configuration structures and utilities for orphanscan.
// It defines the viewport and selector tables scanned by default, detection
// thresholds, browser settings, and report output preferences.
package config
