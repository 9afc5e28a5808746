package sdk

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"
)

// ConfigSchema describes engine settings as a JSON Schema object.
type ConfigSchema struct {
	Schema      string                    `json:"$schema,omitempty"`
	Type        string                    `json:"type"`
	Title       string                    `json:"title"`
	Description string                    `json:"description,omitempty"`
	Properties  map[string]PropertySchema `json:"properties"`
	Required    []string                  `json:"required,omitempty"`
}

// PropertySchema describes a single setting.
type PropertySchema struct {
	// Type is "string", "number", "integer" or "boolean".
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Default     any      `json:"default,omitempty"`
	Enum        []any    `json:"enum,omitempty"`
	Minimum     *float64 `json:"minimum,omitempty"`
	Maximum     *float64 `json:"maximum,omitempty"`

	// Group clusters related settings in generated forms.
	Group string `json:"x-group,omitempty"`
}

// NewConfigSchema creates an empty object schema.
func NewConfigSchema(title, description string) ConfigSchema {
	return ConfigSchema{
		Schema:      "https://json-schema.org/draft/2020-12/schema",
		Type:        "object",
		Title:       title,
		Description: description,
		Properties:  make(map[string]PropertySchema),
	}
}

// AddProperty adds a property to the schema.
func (s *ConfigSchema) AddProperty(name string, prop PropertySchema) *ConfigSchema {
	if s.Properties == nil {
		s.Properties = make(map[string]PropertySchema)
	}
	s.Properties[name] = prop
	return s
}

// PropertyNames returns the property names in sorted order.
func (s ConfigSchema) PropertyNames() []string {
	return slices.Sorted(maps.Keys(s.Properties))
}

// Validate checks a raw configuration map against the schema.
// Unknown keys are allowed.
func (s ConfigSchema) Validate(config map[string]any) error {
	for _, req := range s.Required {
		if _, ok := config[req]; !ok {
			return NewConfigValidationError(req, "required field is missing", nil)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(config)) {
		prop, ok := s.Properties[name]
		if !ok {
			continue
		}
		if err := prop.Validate(name, config[name]); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks a single value.
func (p PropertySchema) Validate(name string, value any) error {
	if value == nil {
		return nil
	}

	switch p.Type {
	case "string":
		if _, ok := value.(string); !ok {
			return NewConfigValidationError(name, "must be a string", value)
		}
	case "number", "integer":
		f, ok := toFloat(value)
		if !ok {
			return NewConfigValidationError(name, "must be a number", value)
		}
		if p.Minimum != nil && f < *p.Minimum {
			return NewConfigValidationError(name, fmt.Sprintf("must be >= %v", *p.Minimum), value)
		}
		if p.Maximum != nil && f > *p.Maximum {
			return NewConfigValidationError(name, fmt.Sprintf("must be <= %v", *p.Maximum), value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return NewConfigValidationError(name, "must be a boolean", value)
		}
	}

	if len(p.Enum) > 0 && !slices.Contains(p.Enum, value) {
		return NewConfigValidationError(name, fmt.Sprintf("must be one of %v", p.Enum), value)
	}
	return nil
}

// EngineConfig holds configuration values for an engine.
type EngineConfig struct {
	Raw      map[string]any `json:"raw"`
	UserID   uuid.UUID      `json:"user_id"`
	EngineID string         `json:"engine_id"`
}

// NewEngineConfig creates a new engine configuration.
func NewEngineConfig(engineID string, userID uuid.UUID, raw map[string]any) EngineConfig {
	if raw == nil {
		raw = make(map[string]any)
	}
	return EngineConfig{
		Raw:      raw,
		UserID:   userID,
		EngineID: engineID,
	}
}

// Has checks if a configuration key exists.
func (c EngineConfig) Has(key string) bool {
	_, ok := c.Raw[key]
	return ok
}

// GetString retrieves a string configuration value.
func (c EngineConfig) GetString(key string) string {
	if v, ok := c.Raw[key].(string); ok {
		return v
	}
	return ""
}

// GetInt retrieves an integer configuration value.
func (c EngineConfig) GetInt(key string) int {
	f, _ := toFloat(c.Raw[key])
	return int(f)
}

// GetFloat retrieves a float configuration value.
func (c EngineConfig) GetFloat(key string) float64 {
	f, _ := toFloat(c.Raw[key])
	return f
}

// GetBool retrieves a boolean configuration value.
func (c EngineConfig) GetBool(key string) bool {
	v, _ := c.Raw[key].(bool)
	return v
}

// Merge returns a copy with other's values layered on top.
func (c EngineConfig) Merge(other EngineConfig) EngineConfig {
	merged := make(map[string]any, len(c.Raw)+len(other.Raw))
	maps.Copy(merged, c.Raw)
	maps.Copy(merged, other.Raw)
	return EngineConfig{
		Raw:      merged,
		UserID:   c.UserID,
		EngineID: c.EngineID,
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// FloatPtr returns a pointer to a float64 value.
func FloatPtr(f float64) *float64 {
	return &f
}
