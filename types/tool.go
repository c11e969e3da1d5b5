package types

// FunctionDefinition describes an external capability an agent may ask the
// generation backend to invoke.
type FunctionDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Parameters  *JSONSchema `json:"parameters"`
}

// RequiredParameters returns the names of the required parameters.
func (d FunctionDefinition) RequiredParameters() []string {
	if d.Parameters == nil {
		return nil
	}
	return d.Parameters.Required
}

// ParametersMap returns the parameter schema as a generic JSON object,
// the shape most provider SDKs accept.
func (d FunctionDefinition) ParametersMap() map[string]any {
	if d.Parameters == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return d.Parameters.ToMap()
}
