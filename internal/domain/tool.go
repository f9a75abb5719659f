package domain

import "github.com/google/jsonschema-go/jsonschema"

// ToolDescriptor advertises one callable operation: its unique name, a
// human description, and the JSON Schema of its arguments. Descriptors
// are defined at process start and never mutated.
type ToolDescriptor struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}
