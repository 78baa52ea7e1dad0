// Package config loads and validates the pipeline's YAML configuration.
package config
