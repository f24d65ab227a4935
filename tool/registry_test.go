package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func echoTool(name string) *FunctionTool {
	return NewFunctionTool(
		name,
		"Echo the input back.",
		objectSchema(map[string]any{
			"text": map[string]any{"type": "string", "description": "Text to echo"},
		}, []string{"text"}),
		func(_ context.Context, args map[string]any) (any, error) {
			return args["text"], nil
		},
	)
}

func TestRegistryInitialize(t *testing.T) {
	r := NewRegistry(func(o *RegistryOptions) {
		o.Name = "testmesh"
		o.Version = "9.9.9"
	})

	result := r.Initialize()
	assert.Equal(t, ProtocolVersion, result.ProtocolVersion)
	assert.Equal(t, "testmesh", result.ServerInfo.Name)
	assert.Equal(t, "9.9.9", result.ServerInfo.Version)
	assert.True(t, result.Capabilities.Tools)
}

func TestRegistryRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Register(echoTool("echo")))
	assert.Error(t, r.Register(echoTool("echo")))
}

func TestRegistryListToolsSorted(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Register(echoTool("zulu")))
	assert.NoError(t, r.Register(echoTool("alpha")))
	assert.NoError(t, r.Register(echoTool("mike")))

	tools := r.ListTools()
	assert.Len(t, tools, 3)
	assert.Equal(t, "alpha", tools[0].Name)
	assert.Equal(t, "mike", tools[1].Name)
	assert.Equal(t, "zulu", tools[2].Name)
	assert.Equal(t, "Echo the input back.", tools[0].Description)
}

func TestRegistryCallToolSuccess(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Register(echoTool("echo")))

	result := r.CallTool(context.Background(), "echo", map[string]any{"text": "hi"})
	assert.True(t, result.Success)
	assert.Equal(t, "hi", result.Result)
	assert.Empty(t, result.Error)
}

func TestRegistryCallToolUnknown(t *testing.T) {
	r := NewRegistry()

	result := r.CallTool(context.Background(), "nope", nil)
	assert.False(t, result.Success)
	assert.Equal(t, "Unknown tool: nope", result.Error)
}

func TestRegistryCallToolValidationError(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Register(echoTool("echo")))

	result := r.CallTool(context.Background(), "echo", map[string]any{})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "required field is missing")
}

func TestRegistryCallToolRecoversPanic(t *testing.T) {
	r := NewRegistry()
	panicky := NewFunctionTool("boom", "Always panics.", objectSchema(nil, nil),
		func(_ context.Context, _ map[string]any) (any, error) {
			panic("kaboom")
		})
	assert.NoError(t, r.Register(panicky))

	result := r.CallTool(context.Background(), "boom", nil)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "tool boom panicked")
}

func TestFunctionToolErrorCodes(t *testing.T) {
	custom := NewToolError("custom", "already a tool error", CodeExecutionError)
	passthrough := NewFunctionTool("custom", "Returns a tool error.", objectSchema(nil, nil),
		func(_ context.Context, _ map[string]any) (any, error) {
			return nil, custom
		})

	_, err := passthrough.Call(context.Background(), nil)
	var toolErr *ToolError
	assert.True(t, errors.As(err, &toolErr))
	assert.Same(t, custom, toolErr)

	plain := NewFunctionTool("plain", "Returns a plain error.", objectSchema(nil, nil),
		func(_ context.Context, _ map[string]any) (any, error) {
			return nil, errors.New("backend down")
		})

	_, err = plain.Call(context.Background(), nil)
	assert.True(t, errors.As(err, &toolErr))
	assert.Equal(t, CodeExecutionError, toolErr.Code)
	assert.Equal(t, "backend down", toolErr.Message)

	invalid := echoTool("echo")
	_, err = invalid.Call(context.Background(), map[string]any{"text": 42})
	assert.True(t, errors.As(err, &toolErr))
	assert.Equal(t, CodeValidationError, toolErr.Code)
}
