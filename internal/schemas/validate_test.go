package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateJSONString_Valid(t *testing.T) {
	schemaContent := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string"}
		}
	}`
	jsonContent := `{"name": "test"}`

	err := ValidateJSONString(schemaContent, jsonContent)
	assert.NoError(t, err)
}

func TestValidateJSONString_Invalid(t *testing.T) {
	schemaContent := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string"}
		}
	}`
	jsonContent := `{"age": 30}`

	err := ValidateJSONString(schemaContent, jsonContent)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Greater(t, len(validationErr.Errors), 0)
}

func TestValidateJSONString_MalformedDocument(t *testing.T) {
	schemaContent := `{"type": "object"}`

	err := ValidateJSONString(schemaContent, "{ not json }")
	require.Error(t, err)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Errors: []FieldError{
			{Field: "name", Message: "is required"},
			{Field: "age", Message: "must be a number"},
		},
	}

	errorMsg := err.Error()
	assert.Contains(t, errorMsg, "validation failed")
	assert.Contains(t, errorMsg, "name")
	assert.Contains(t, errorMsg, "age")
}

func TestValidatePosts_Valid(t *testing.T) {
	payload := `[
		{
			"title": "I built a habit tracker",
			"selftext": "Check it out at https://habitly.dev",
			"permalink": "/r/SideProject/comments/abc123/i_built_a_habit_tracker/",
			"score": 42,
			"created_utc": 1724500000.0,
			"extracted_urls": ["https://habitly.dev"]
		}
	]`
	assert.NoError(t, ValidatePosts([]byte(payload)))
}

func TestValidatePosts_MinimalPost(t *testing.T) {
	payload := `[{"title": "My app", "permalink": "/r/SideProject/comments/x/my_app/"}]`
	assert.NoError(t, ValidatePosts([]byte(payload)))
}

func TestValidatePosts_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "empty batch", payload: `[]`},
		{name: "missing title", payload: `[{"permalink": "/r/x/comments/1/a/"}]`},
		{name: "missing permalink", payload: `[{"title": "App"}]`},
		{name: "empty title", payload: `[{"title": "", "permalink": "/r/x/comments/1/a/"}]`},
		{name: "score not an integer", payload: `[{"title": "App", "permalink": "/p", "score": "high"}]`},
		{name: "unknown field", payload: `[{"title": "App", "permalink": "/p", "upvotes": 3}]`},
		{name: "not an array", payload: `{"title": "App", "permalink": "/p"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePosts([]byte(tt.payload))
			require.Error(t, err)
			_, ok := err.(*ValidationError)
			assert.True(t, ok, "expected ValidationError, got %T", err)
		})
	}
}
