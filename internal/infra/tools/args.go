package tools

import (
	"fmt"
	"math"
)

// Argument extraction from the generic invocation mapping. Each tool pulls
// its own named parameters with the same defaults its descriptor declares.
// Missing required arguments and wrong-typed values surface as plain
// errors that the caller converts to failure envelopes, so they travel the
// same path as any other operation error.

func stringArg(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return "", fmt.Errorf("missing required argument: %s", key)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("argument %s must be a string", key)
	}
	return value, nil
}

func optStringArg(args map[string]any, key, fallback string) (string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("argument %s must be a string", key)
	}
	return value, nil
}

func optBoolArg(args map[string]any, key string, fallback bool) (bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	value, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("argument %s must be a boolean", key)
	}
	return value, nil
}

// optIntArg accepts any JSON number with an integral value; decoded JSON
// delivers numbers as float64.
func optIntArg(args map[string]any, key string, fallback int) (int, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	switch value := raw.(type) {
	case int:
		return value, nil
	case int64:
		return int(value), nil
	case float64:
		if value != math.Trunc(value) {
			return 0, fmt.Errorf("argument %s must be an integer", key)
		}
		return int(value), nil
	default:
		return 0, fmt.Errorf("argument %s must be an integer", key)
	}
}

func optStringSliceArg(args map[string]any, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch value := raw.(type) {
	case []string:
		return value, nil
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("argument %s must be an array of strings", key)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("argument %s must be an array of strings", key)
	}
}
