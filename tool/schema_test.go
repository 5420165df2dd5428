package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaFor_StructFields(t *testing.T) {
	type args struct {
		Query   string   `json:"query" description:"Search query"`
		Limit   int      `json:"limit,omitempty"`
		Exact   bool     `json:"exact"`
		Tags    []string `json:"tags,omitempty"`
		Skipped string   `json:"-"`
		hidden  string
	}
	_ = args{hidden: ""}

	schema := SchemaFor(args{})

	assert.Equal(t, "object", schema["type"])
	properties := schema["properties"].(map[string]any)
	assert.Equal(t, "string", properties["query"].(map[string]any)["type"])
	assert.Equal(t, "Search query", properties["query"].(map[string]any)["description"])
	assert.Equal(t, "integer", properties["limit"].(map[string]any)["type"])
	assert.Equal(t, "boolean", properties["exact"].(map[string]any)["type"])
	assert.Equal(t, "array", properties["tags"].(map[string]any)["type"])
	assert.NotContains(t, properties, "Skipped")
	assert.NotContains(t, properties, "hidden")

	assert.ElementsMatch(t, []string{"query", "exact"}, schema["required"])
}

func TestSchemaFor_NonStruct(t *testing.T) {
	schema := SchemaFor("not a struct")
	assert.Equal(t, "object", schema["type"])
	assert.Empty(t, schema["properties"])
}

func TestFunctionTool_RejectsMissingRequiredArgument(t *testing.T) {
	catalog := NewCatalog()
	echo, ok := catalog.Get("echo")
	require.True(t, ok)

	_, err := echo.Call(context.Background(), map[string]any{})

	require.Error(t, err)
	toolErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, "INVALID_ARGUMENTS", toolErr.Code)
}

func TestFunctionTool_RejectsWrongArgumentType(t *testing.T) {
	catalog := NewCatalog()
	echo, ok := catalog.Get("echo")
	require.True(t, ok)

	_, err := echo.Call(context.Background(), map[string]any{"input": 42})

	require.Error(t, err)
	toolErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, "INVALID_ARGUMENTS", toolErr.Code)
}

func TestFunctionTool_AllowsExtraArguments(t *testing.T) {
	catalog := NewCatalog()
	echo, ok := catalog.Get("echo")
	require.True(t, ok)

	result, err := echo.Call(context.Background(), map[string]any{"input": "hi", "extra": true})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"echo": "hi"}, result)
}
