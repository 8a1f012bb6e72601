// Package config loads runtime configuration from multiple sources (YAML files,
// environment variables, CLI flags) with precedence: CLI flags > Environment
// variables > YAML config > Defaults. Besides server settings it collects the
// host settings (the YAML "settings" section, JSON_API_* variables and --set
// flags) that seed the settings store.
package config
