package util

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateSchemaFromStruct(t *testing.T) {
	type params struct {
		Question string   `json:"question" description:"The question to ask"`
		Limit    int      `json:"limit,omitempty"`
		Ratio    float64  `json:"ratio"`
		Deep     bool     `json:"deep"`
		Tags     []string `json:"tags,omitempty"`
	}

	schema := CreateSchema(params{})
	assert.Equal(t, "object", schema["type"])

	properties := schema["properties"].(map[string]any)
	assert.Equal(t, "string", properties["question"].(map[string]any)["type"])
	assert.Equal(t, "The question to ask", properties["question"].(map[string]any)["description"])
	assert.Equal(t, "integer", properties["limit"].(map[string]any)["type"])
	assert.Equal(t, "number", properties["ratio"].(map[string]any)["type"])
	assert.Equal(t, "boolean", properties["deep"].(map[string]any)["type"])
	assert.Equal(t, "array", properties["tags"].(map[string]any)["type"])

	assert.ElementsMatch(t, []string{"question", "ratio", "deep"}, schema["required"])
}

func TestCreateSchemaNonStruct(t *testing.T) {
	schema := CreateSchema(42)
	assert.Equal(t, "object", schema["type"])
	assert.Empty(t, schema["properties"])
}

func TestValidateArgumentsRequired(t *testing.T) {
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"question": map[string]any{"type": "string"}},
		"required":   []string{"question"},
	}

	err := ValidateArguments(map[string]any{}, schema)
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, "question", verr.Field)

	assert.NoError(t, ValidateArguments(map[string]any{"question": "hi"}, schema))
}

func TestValidateArgumentsRequiredFromJSON(t *testing.T) {
	// schemas decoded from JSON carry []any
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"question": map[string]any{"type": "string"}},
		"required":   []any{"question"},
	}
	assert.Error(t, ValidateArguments(map[string]any{}, schema))
}

func TestValidateArgumentsTypeChecks(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"count": map[string]any{"type": "integer"},
			"rate":  map[string]any{"type": "number"},
			"flag":  map[string]any{"type": "boolean"},
			"codes": map[string]any{"type": "array"},
		},
	}

	assert.NoError(t, ValidateArguments(map[string]any{
		"count": float64(3),
		"rate":  0.5,
		"flag":  true,
		"codes": []any{"a"},
	}, schema))

	assert.Error(t, ValidateArguments(map[string]any{"count": 3.5}, schema))
	assert.Error(t, ValidateArguments(map[string]any{"flag": "yes"}, schema))
	assert.Error(t, ValidateArguments(map[string]any{"codes": "a"}, schema))
}

func TestValidateArgumentsEnum(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"metric": map[string]any{
				"type": "string",
				"enum": []string{"health", "risk"},
			},
		},
	}

	assert.NoError(t, ValidateArguments(map[string]any{"metric": "risk"}, schema))

	err := ValidateArguments(map[string]any{"metric": "vibes"}, schema)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "must be one of")
}

func TestValidateArgumentsAllowsExtraFields(t *testing.T) {
	schema := map[string]any{"type": "object", "properties": map[string]any{}}
	assert.NoError(t, ValidateArguments(map[string]any{"anything": 1}, schema))
}
