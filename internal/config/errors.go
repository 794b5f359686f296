package config

import (
	"fmt"
	"strings"
)

// ConfigurationError describes an invalid configuration value.
type ConfigurationError struct {
	FilePath    string   `json:"filePath"`
	Field       string   `json:"field"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions"`
}

// Error implements the error interface
func (ce ConfigurationError) Error() string {
	if ce.Field == "" {
		return fmt.Sprintf("%s: %s", ce.FilePath, ce.Message)
	}
	return fmt.Sprintf("%s: %s: %s", ce.FilePath, ce.Field, ce.Message)
}

// DetailedError returns a multi-line message including suggestions.
func (ce ConfigurationError) DetailedError() string {
	parts := []string{fmt.Sprintf("Configuration error in %s", ce.FilePath)}
	if ce.Field != "" {
		parts = append(parts, fmt.Sprintf("  Field: %s", ce.Field))
	}
	parts = append(parts, fmt.Sprintf("  Error: %s", ce.Message))

	if len(ce.Suggestions) > 0 {
		parts = append(parts, "  Suggestions:")
		for _, suggestion := range ce.Suggestions {
			parts = append(parts, fmt.Sprintf("    - %s", suggestion))
		}
	}

	return strings.Join(parts, "\n")
}
