// Package config loads and validates configuration from environment variables.
package config
