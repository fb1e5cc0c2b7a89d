package providers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tikuhub/tikuhub/internal/qa"
)

func TestRegisterRejectsDuplicateNames(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newEnncy(http.DefaultClient)))
	err := r.Register(newEnncy(http.DefaultClient))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestRegisterBuiltins(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, RegisterBuiltins(r, Deps{HTTP: http.DefaultClient}))

	all := r.All()
	require.Len(t, all, 12)

	names := make([]string, len(all))
	for i, a := range all {
		names[i] = a.Descriptor().Name
	}
	assert.Contains(t, names, "言溪题库")
	assert.Contains(t, names, "万能题库")
	assert.Contains(t, names, "Local")

	// Catalogue output must be stable.
	assert.IsIncreasing(t, names)

	// Only the local adapter opts out of write-through, and its registered
	// name is the one the engine's bypass split keys on.
	for _, a := range all {
		d := a.Descriptor()
		if d.Name == qa.LocalProviderName {
			assert.False(t, d.Cacheable)
			assert.True(t, qa.Provider{Name: d.Name}.IsLocal())
		} else {
			assert.True(t, d.Cacheable, d.Name)
			assert.False(t, qa.Provider{Name: d.Name}.IsLocal())
		}
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.Get("不存在的题库"))
}

func TestSchemaValidate(t *testing.T) {
	schema := Schema{
		{Name: "token", Type: FieldString, Required: true},
		{Name: "count", Type: FieldInteger},
		{Name: "flag", Type: FieldBoolean},
	}

	tests := []struct {
		name    string
		cfg     qa.Config
		wantErr string
	}{
		{"valid full", qa.Config{"token": "t", "count": float64(3), "flag": true}, ""},
		{"valid minimal", qa.Config{"token": "t"}, ""},
		{"missing required", qa.Config{}, "missing required"},
		{"wrong string type", qa.Config{"token": 7}, "must be a string"},
		{"wrong integer type", qa.Config{"token": "t", "count": "three"}, "must be an integer"},
		{"wrong boolean type", qa.Config{"token": "t", "flag": "yes"}, "must be a boolean"},
		{"unknown keys ignored", qa.Config{"token": "t", "extra": struct{}{}}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := schema.Validate(tc.cfg)
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}
