package domain

import (
	"encoding/json"
	"fmt"
)

// Result is the tagged envelope every tool invocation resolves to. It is
// either a success carrying named payload fields or a failure carrying a
// human-readable message; the discriminant is always present on the wire,
// and no envelope can carry both arms.
type Result struct {
	ok     bool
	errMsg string
	fields map[string]any
}

// Success builds a success envelope from payload fields. The map is taken
// as-is; callers must not mutate it afterwards.
func Success(fields map[string]any) Result {
	if fields == nil {
		fields = map[string]any{}
	}
	return Result{ok: true, fields: fields}
}

// Failure builds a failure envelope with the given message.
func Failure(msg string) Result {
	return Result{errMsg: msg}
}

// Failuref builds a failure envelope with a formatted message.
func Failuref(format string, args ...any) Result {
	return Failure(fmt.Sprintf(format, args...))
}

// FailureFrom converts an operation error into a failure envelope.
func FailureFrom(err error) Result {
	if err == nil {
		return Failure("unknown error")
	}
	return Failure(err.Error())
}

func (r Result) OK() bool { return r.ok }

// ErrorMessage returns the failure message, or "" for a success.
func (r Result) ErrorMessage() string { return r.errMsg }

// Field returns a payload field by name. Always nil for failures.
func (r Result) Field(name string) any {
	if !r.ok {
		return nil
	}
	return r.fields[name]
}

// MarshalJSON renders the envelope as {"success":true,...fields} or
// {"success":false,"error":msg}.
func (r Result) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.fields)+2)
	out["success"] = r.ok
	if !r.ok {
		out["error"] = r.errMsg
		return json.Marshal(out)
	}
	for k, v := range r.fields {
		out[k] = v
	}
	return json.Marshal(out)
}
