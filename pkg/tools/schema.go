package tools

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/xeipuuv/gojsonschema"
)

// ValidationError reports tool arguments that do not satisfy the tool's input schema.
type ValidationError struct {
	Tool    string
	Details []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, strings.Join(e.Details, "; "))
}

func newValidationError(tool string, details ...string) *ValidationError {
	return &ValidationError{Tool: tool, Details: details}
}

func compileSchema(input mcp.ToolInputSchema) (*gojsonschema.Schema, error) {
	doc := map[string]interface{}{
		"type": "object",
	}
	if len(input.Properties) > 0 {
		doc["properties"] = input.Properties
	}
	if len(input.Required) > 0 {
		doc["required"] = input.Required
	}
	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
}

func validateArguments(tool string, schema *gojsonschema.Schema, args map[string]interface{}) error {
	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return newValidationError(tool, fmt.Sprintf("schema validation error: %v", err))
	}
	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return newValidationError(tool, details...)
}

func objectSchema(properties map[string]interface{}, required ...string) mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

func requiredStringProp(description string) map[string]interface{} {
	prop := stringProp(description)
	prop["minLength"] = 1
	return prop
}

func enumProp(description string, values ...string) map[string]interface{} {
	prop := stringProp(description)
	prop["enum"] = values
	return prop
}

func dateTimeProp(description string) map[string]interface{} {
	prop := stringProp(description)
	prop["format"] = "date-time"
	return prop
}

func boolProp(description string, def bool) map[string]interface{} {
	return map[string]interface{}{
		"type":        "boolean",
		"description": description,
		"default":     def,
	}
}

func optionalBoolProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "boolean",
		"description": description,
	}
}

func intProp(description string, minimum, maximum, def int) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
		"minimum":     minimum,
		"maximum":     maximum,
		"default":     def,
	}
}

func idListProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": description,
		"minItems":    1,
		"items": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
		},
	}
}

var assetTypes = []string{"IMAGE", "VIDEO", "AUDIO", "OTHER"}

var visibilities = []string{"archive", "timeline", "hidden", "locked"}
