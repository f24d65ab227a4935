package tool

import (
	"context"
	"errors"

	"github.com/hupe1980/assetmesh/internal/util"
)

// FunctionTool adapts a plain Go function into a Tool. Arguments are
// validated against the schema before the function runs, and errors are
// normalized to *ToolError with consistent codes: schema mismatches become
// VALIDATION_ERROR, plain errors become EXECUTION_ERROR, and a *ToolError
// returned by the function passes through unchanged.
//
// A FunctionTool has no mutable state after construction and is safe for
// concurrent use.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(ctx context.Context, args map[string]any) (any, error)
}

// NewFunctionTool constructs a FunctionTool from explicit schema and function.
func NewFunctionTool(name, description string, parameters map[string]any, fn func(ctx context.Context, args map[string]any) (any, error)) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// Name returns the tool identifier.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the tool description.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON schema for tool arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call validates the arguments against the schema and invokes the wrapped
// function.
func (t *FunctionTool) Call(ctx context.Context, args map[string]any) (any, error) {
	if err := util.ValidateArguments(args, t.parameters); err != nil {
		return nil, &ToolError{
			Tool:    t.name,
			Message: err.Error(),
			Code:    CodeValidationError,
		}
	}

	result, err := t.fn(ctx, args)
	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			return nil, toolErr
		}
		return nil, &ToolError{
			Tool:    t.name,
			Message: err.Error(),
			Code:    CodeExecutionError,
		}
	}
	return result, nil
}
