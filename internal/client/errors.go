package client

import (
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/GriffinCanCode/AgentOS/ptyd/internal/providers/terminal"
)

type errorBody struct {
	Error      string `json:"error"`
	Kind       string `json:"kind"`
	Suggestion string `json:"suggestion,omitempty"`
}

// RemoteError is a failure reported by the daemon. It unwraps to the
// matching terminal sentinel so callers can use errors.Is.
type RemoteError struct {
	Status     int
	Kind       string
	Message    string
	Suggestion string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ptyd returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return e.Message
}

func (e *RemoteError) Unwrap() error {
	return terminal.ErrorForKind(e.Kind)
}

func remoteError(resp *resty.Response) error {
	re := &RemoteError{Status: resp.StatusCode(), Kind: "internal"}
	if body, ok := resp.Error().(*errorBody); ok && body != nil {
		re.Message = body.Error
		re.Suggestion = body.Suggestion
		if body.Kind != "" {
			re.Kind = body.Kind
		}
	}
	return re
}
