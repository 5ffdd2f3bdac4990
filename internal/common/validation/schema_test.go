package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mixSchema() map[string]interface{} {
	share := map[string]interface{}{"type": "number", "minimum": 0, "maximum": 1}
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"stocks", "bonds", "cash"},
		"properties": map[string]interface{}{
			"stocks": share,
			"bonds":  share,
			"cash":   share,
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		document  interface{}
		valid     bool
		badFields []string
	}{
		{
			name:     "valid document",
			document: map[string]interface{}{"stocks": 0.6, "bonds": 0.3, "cash": 0.1},
			valid:    true,
		},
		{
			name:      "out of range",
			document:  map[string]interface{}{"stocks": 1.4, "bonds": 0.3, "cash": 0.1},
			badFields: []string{"stocks"},
		},
		{
			name:      "wrong type",
			document:  map[string]interface{}{"stocks": "lots", "bonds": 0.3, "cash": 0.1},
			badFields: []string{"stocks"},
		},
		{
			name:     "missing key",
			document: map[string]interface{}{"stocks": 0.6, "bonds": 0.4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Validate(mixSchema(), tt.document)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, result.Valid)
			if !tt.valid {
				assert.NotEmpty(t, result.Errors)
				assert.NotEmpty(t, result.Error())
			}
			for _, f := range tt.badFields {
				assert.True(t, result.HasErrors(f), "expected error on %s, got %v", f, result.GetErrorMessages())
			}
		})
	}
}

func TestValidateJSON(t *testing.T) {
	result, err := ValidateJSON(mixSchema(), `{"stocks":0.5,"bonds":0.45,"cash":0.05}`)
	require.NoError(t, err)
	assert.True(t, result.Valid)

	result, err = ValidateJSON(mixSchema(), `{"stocks":-1,"bonds":0.45,"cash":0.05}`)
	require.NoError(t, err)
	assert.False(t, result.Valid)
}

func TestValidate_EmptySchemaAcceptsAnything(t *testing.T) {
	result, err := Validate(nil, map[string]interface{}{"anything": true})
	require.NoError(t, err)
	assert.True(t, result.Valid)
}
