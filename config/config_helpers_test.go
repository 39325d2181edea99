package config

import (
	"os"
	"testing"
)

// TestExpandString tests placeholder expansion with various scenarios
func TestExpandString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		envVars  map[string]string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			envVars:  map[string]string{},
			expected: "",
		},
		{
			name:     "string without placeholders",
			input:    "simple-string",
			envVars:  map[string]string{},
			expected: "simple-string",
		},
		{
			name:     "simple variable expansion",
			input:    "${EXPORT_DIR}",
			envVars:  map[string]string{"EXPORT_DIR": "/var/lib/objcache"},
			expected: "/var/lib/objcache",
		},
		{
			name:     "variable in middle of string",
			input:    "prefix-${TENANT}-suffix",
			envVars:  map[string]string{"TENANT": "acme"},
			expected: "prefix-acme-suffix",
		},
		{
			name:     "multiple variables",
			input:    "${SCHEME}://${HOST}:${PORT}",
			envVars:  map[string]string{"SCHEME": "redis", "HOST": "cache.internal", "PORT": "6379"},
			expected: "redis://cache.internal:6379",
		},
		{
			name:     "variable with default value - env var exists",
			input:    "${CACHE_MODEL:-documents}",
			envVars:  map[string]string{"CACHE_MODEL": "invoices"},
			expected: "invoices",
		},
		{
			name:     "variable with default value - env var missing",
			input:    "${CACHE_MODEL:-documents}",
			envVars:  map[string]string{},
			expected: "documents",
		},
		{
			name:     "variable with default value - env var empty",
			input:    "${CACHE_MODEL:-documents}",
			envVars:  map[string]string{"CACHE_MODEL": ""},
			expected: "documents",
		},
		{
			name:     "unresolved variable - no default",
			input:    "${MISSING_VAR}",
			envVars:  map[string]string{},
			expected: "${MISSING_VAR}",
		},
		{
			name:     "partially resolved string",
			input:    "${RESOLVED}-${UNRESOLVED}",
			envVars:  map[string]string{"RESOLVED": "value1"},
			expected: "value1-${UNRESOLVED}",
		},
		{
			name:     "mixed resolved and unresolved with defaults",
			input:    "${RESOLVED}:${UNRESOLVED:-fallback}:${MISSING}",
			envVars:  map[string]string{"RESOLVED": "value1"},
			expected: "value1:fallback:${MISSING}",
		},
		{
			name:     "default value with special characters",
			input:    "${EXPORT_LOCAL_DIR:-/tmp/objcache/exports}",
			envVars:  map[string]string{},
			expected: "/tmp/objcache/exports",
		},
		{
			name:     "default value with colon in it",
			input:    "${URL:-http://localhost:8080}",
			envVars:  map[string]string{},
			expected: "http://localhost:8080",
		},
		{
			name:     "complex real-world example",
			input:    "${DATA_DIR:-/var/lib/objcache}/exports.db",
			envVars:  map[string]string{},
			expected: "/var/lib/objcache/exports.db",
		},
		{
			name:     "environment variable set to empty string (no default)",
			input:    "${EMPTY_VAR}",
			envVars:  map[string]string{"EMPTY_VAR": ""},
			expected: "${EMPTY_VAR}",
		},
		{
			name:     "empty default value - env var missing",
			input:    "${OPTIONAL_VAR:-}",
			envVars:  map[string]string{},
			expected: "",
		},
		{
			name:     "empty default value - env var set",
			input:    "${OPTIONAL_VAR:-}",
			envVars:  map[string]string{"OPTIONAL_VAR": "actual-value"},
			expected: "actual-value",
		},
		{
			name:     "empty default value - env var empty",
			input:    "${OPTIONAL_VAR:-}",
			envVars:  map[string]string{"OPTIONAL_VAR": ""},
			expected: "",
		},
		{
			name:     "redis url with password default",
			input:    "${REDIS_URL:-redis://:secret@localhost:6379/0}",
			envVars:  map[string]string{},
			expected: "redis://:secret@localhost:6379/0",
		},
		{
			name:     "multiple placeholders some resolved some not",
			input:    "prefix-${VAR1}-${VAR2}-${VAR3}-suffix",
			envVars:  map[string]string{"VAR1": "a", "VAR3": "c"},
			expected: "prefix-a-${VAR2}-c-suffix",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				_ = os.Setenv(k, v)
			}
			defer func() {
				for k := range tt.envVars {
					_ = os.Unsetenv(k)
				}
			}()

			result := expandString(tt.input)
			if result != tt.expected {
				t.Errorf("expandString(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
