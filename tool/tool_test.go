package tool

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool() *FunctionTool {
	return NewFunctionTool(
		"echo",
		"Echo the given text back",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []string{"text"},
		},
		func(ctx context.Context, params map[string]any) (string, error) {
			text, _ := params["text"].(string)
			return text, nil
		},
	)
}

func TestFunctionToolExecute(t *testing.T) {
	tool := echoTool()

	assert.Equal(t, "echo", tool.Name())
	assert.Equal(t, "Echo the given text back", tool.Description())

	result, err := tool.Execute(context.Background(), map[string]any{"text": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", result)
}

func TestFunctionToolMissingRequired(t *testing.T) {
	tool := echoTool()

	_, err := tool.Execute(context.Background(), map[string]any{})
	require.Error(t, err)

	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
	assert.Equal(t, "echo", toolErr.Tool)
}

func TestFunctionToolTypeMismatch(t *testing.T) {
	tool := echoTool()

	_, err := tool.Execute(context.Background(), map[string]any{"text": 42})
	require.Error(t, err)

	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
}

func TestFunctionToolWrapsPlainError(t *testing.T) {
	tool := NewFunctionTool("broken", "Always fails", map[string]any{"type": "object"},
		func(ctx context.Context, params map[string]any) (string, error) {
			return "", fmt.Errorf("boom")
		})

	_, err := tool.Execute(context.Background(), map[string]any{})
	require.Error(t, err)

	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, "EXECUTION_ERROR", toolErr.Code)
	assert.Equal(t, "boom", toolErr.Message)
}

func TestFunctionToolForwardsToolError(t *testing.T) {
	custom := NewToolError("custom", "quota exhausted", "QUOTA")
	tool := NewFunctionTool("custom", "Returns a typed error", map[string]any{"type": "object"},
		func(ctx context.Context, params map[string]any) (string, error) {
			return "", custom
		})

	_, err := tool.Execute(context.Background(), map[string]any{})

	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, "QUOTA", toolErr.Code)
	assert.Equal(t, "quota exhausted", toolErr.Message)
}

func TestFunctionToolFromStruct(t *testing.T) {
	type searchArgs struct {
		Query string `json:"query" description:"Search query"`
		Limit int    `json:"limit,omitempty"`
	}
	tool := NewFunctionToolFromStruct("search", "Search the web", searchArgs{},
		func(ctx context.Context, params map[string]any) (string, error) {
			return "ok", nil
		})

	schema := tool.Parameters()
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "query")
	assert.Contains(t, props, "limit")

	// query is required, limit is omitempty.
	_, err := tool.Execute(context.Background(), map[string]any{})
	require.Error(t, err)

	result, err := tool.Execute(context.Background(), map[string]any{"query": "go"})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoTool()))

	got, ok := reg.Get("echo")
	require.True(t, ok)
	assert.Equal(t, "echo", got.Name())

	_, ok = reg.Get("missing")
	assert.False(t, ok)

	assert.Error(t, reg.Register(echoTool()), "duplicate names are rejected")

	nameless := NewFunctionTool("", "no name", map[string]any{"type": "object"}, nil)
	assert.Error(t, reg.Register(nameless))
}

func TestRegistryNamesSorted(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(
		NewFunctionTool("zeta", "z", map[string]any{"type": "object"}, nil),
		NewFunctionTool("alpha", "a", map[string]any{"type": "object"}, nil),
		NewFunctionTool("mid", "m", map[string]any{"type": "object"}, nil),
	)

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, reg.Names())
	assert.Equal(t, 3, reg.Len())

	tools := reg.List()
	require.Len(t, tools, 3)
	assert.Equal(t, "alpha", tools[0].Name())
}

func TestRegistryMustRegisterPanicsOnConflict(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(echoTool())

	assert.Panics(t, func() { reg.MustRegister(echoTool()) })
}
