// Package config loads the file-based inputs of a pipeline run: style
// tokens (JSON) and free-form defaults (YAML).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/lessonforge/internal/domain"
)

// LoadStyleTokens reads style tokens from a JSON file. An empty path
// yields the stock theme.
func LoadStyleTokens(path string) (domain.StyleTokens, error) {
	if strings.TrimSpace(path) == "" {
		return domain.DefaultStyleTokens(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.StyleTokens{}, fmt.Errorf("read style tokens: %w", err)
	}
	tokens := domain.DefaultStyleTokens()
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return domain.StyleTokens{}, fmt.Errorf("parse style tokens: %w", err)
	}
	return tokens, nil
}

// LoadDefaults reads the defaults YAML. A missing file is equivalent to
// an empty map, not an error.
func LoadDefaults(path string) (map[string]any, error) {
	if strings.TrimSpace(path) == "" {
		return map[string]any{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read defaults: %w", err)
	}
	out := map[string]any{}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse defaults: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// DefaultString pulls a string default, falling back when absent.
func DefaultString(defaults map[string]any, key, fallback string) string {
	if defaults == nil {
		return fallback
	}
	if v, ok := defaults[key].(string); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

// DefaultFloat pulls a numeric default, tolerating YAML's int/float split.
func DefaultFloat(defaults map[string]any, key string, fallback float64) float64 {
	if defaults == nil {
		return fallback
	}
	switch v := defaults[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return fallback
	}
}
