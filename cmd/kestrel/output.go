package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/hokaccha/go-prettyjson"
)

// getOutput renders a script result. With no format it prints nothing
// for nil, JSON when the result marshals and plain text otherwise.
func getOutput(result any, format string) (string, error) {
	switch strings.ToLower(format) {
	case "":
		if result == nil {
			return "", nil
		}
		if s, ok := result.(string); ok {
			return s, nil
		}
		output, err := getOutputJSON(result)
		if err != nil {
			return fmt.Sprintf("%v", result), nil
		}
		return output, nil
	case "json":
		return getOutputJSON(result)
	case "text":
		if result == nil {
			return "nil", nil
		}
		return fmt.Sprintf("%v", result), nil
	}
	return "", fmt.Errorf("unknown output format: %s", format)
}

func getOutputJSON(result any) (string, error) {
	if b, ok := result.([]byte); ok {
		result = string(b)
	}
	if color.NoColor {
		out, err := json.MarshalIndent(result, "", "  ")
		return string(out), err
	}
	out, err := prettyjson.Marshal(result)
	return string(out), err
}
