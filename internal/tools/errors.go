package tools

import "fmt"

const (
	CodeInvalidParams = -32602
	CodeInternal      = -32603
)

// ToolError is a protocol-level failure of a tools/call request, as opposed
// to a tool that ran and reported an error result.
type ToolError struct {
	Code    int
	Message string
}

func (e *ToolError) Error() string {
	return e.Message
}

func NewToolNotFoundError(name string) *ToolError {
	return &ToolError{
		Code:    CodeInvalidParams,
		Message: fmt.Sprintf("Unknown tool: %s", name),
	}
}

func NewInvalidArgumentsError(name string, err error) *ToolError {
	return &ToolError{
		Code:    CodeInvalidParams,
		Message: fmt.Sprintf("Invalid arguments for tool %s: %v", name, err),
	}
}
