// Package providers holds the adapter contract and the concrete adapters for
// every supported upstream: commercial question banks, LLM endpoints and the
// local answer cache.
//
// An adapter never returns a Go error from Search. Every upstream failure is
// folded into a failure Answer with one of the closed error kinds, so the
// fan-out engine can treat all adapters uniformly and nothing an upstream
// does can break a request.
package providers

import (
	"context"
	"fmt"

	"github.com/tikuhub/tikuhub/internal/qa"
)

// FieldType enumerates the supported config field types.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldInteger FieldType = "integer"
	FieldBoolean FieldType = "boolean"
)

// ConfigField describes one named field of an adapter's configuration
// schema. The schema is surfaced to clients through the provider catalogue
// endpoint so front-ends can render config forms.
type ConfigField struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Required    bool      `json:"required"`
	Default     any       `json:"default,omitempty"`
}

// Schema is an adapter's ordered list of config fields.
type Schema []ConfigField

// Validate checks cfg against the schema: required fields must be present
// and every present field must carry a value of the declared type. Unknown
// keys are ignored.
func (s Schema) Validate(cfg qa.Config) error {
	for _, f := range s {
		v, ok := cfg[f.Name]
		if !ok || v == nil {
			if f.Required {
				return fmt.Errorf("missing required field %q", f.Name)
			}
			continue
		}
		switch f.Type {
		case FieldString:
			if _, ok := v.(string); !ok {
				return fmt.Errorf("field %q must be a string", f.Name)
			}
		case FieldInteger:
			switch v.(type) {
			case int, int64, float64:
			default:
				return fmt.Errorf("field %q must be an integer", f.Name)
			}
		case FieldBoolean:
			if _, ok := v.(bool); !ok {
				return fmt.Errorf("field %q must be a boolean", f.Name)
			}
		}
	}
	return nil
}

// Descriptor is an adapter's static self-description. Name is the unique
// identifier used in requests and in cache rows.
type Descriptor struct {
	Name      string `json:"name"`
	Home      string `json:"home"`
	Free      bool   `json:"free"`
	Pay       bool   `json:"pay"`
	Cacheable bool   `json:"cacheable"`
	Schema    Schema `json:"schema"`
}

// Adapter is the uniform contract over one upstream. Search must never
// return a Go error or panic: all failures map to a failure Answer.
type Adapter interface {
	Descriptor() Descriptor
	Search(ctx context.Context, query *qa.Query, provider *qa.Provider) *qa.Answer
}

// validateConfig runs schema validation and wraps the result as a
// config_error failure. Every adapter calls this before touching config.
func validateConfig(d Descriptor, query *qa.Query, provider *qa.Provider) *qa.Answer {
	if err := d.Schema.Validate(provider.Config); err != nil {
		return qa.Failure(d.Name, query.Type, qa.ErrConfig, fmt.Sprintf("配置参数错误: %v", err))
	}
	return nil
}
