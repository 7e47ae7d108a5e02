package ai

import "fmt"

// APIError is the upstream completion API's own structured error, preserved
// verbatim so callers can tell an upstream quota error from a malformed
// request.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param"`
	Code    string `json:"code"`
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("openai: %s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("openai: %s", e.Message)
}
