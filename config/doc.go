// Package config provides unified configuration loading for warmline.
// Precedence: defaults, then YAML file, then WARMLINE_* environment
// variables.
package config
