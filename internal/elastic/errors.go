package elastic

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Error is a non-2xx response from Elasticsearch.
type Error struct {
	Status int
	Type   string
	Reason string
	Body   string
}

func (e *Error) Error() string {
	switch {
	case e.Type != "" && e.Reason != "":
		return fmt.Sprintf("elasticsearch error (%d): %s: %s", e.Status, e.Type, e.Reason)
	case e.Reason != "":
		return fmt.Sprintf("elasticsearch error (%d): %s", e.Status, e.Reason)
	case e.Body != "":
		return fmt.Sprintf("elasticsearch error (%d): %s", e.Status, e.Body)
	default:
		return fmt.Sprintf("elasticsearch error (%d)", e.Status)
	}
}

// parseError extracts the error type and reason from an Elasticsearch error body.
// Bodies come in two shapes: {"error": {"type", "reason"}} and {"error": "text"}.
func parseError(status int, body []byte) *Error {
	e := &Error{Status: status, Body: strings.TrimSpace(string(body))}

	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 {
		return e
	}

	var detail struct {
		Type      string `json:"type"`
		Reason    string `json:"reason"`
		RootCause []struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"root_cause"`
	}
	if err := json.Unmarshal(envelope.Error, &detail); err == nil {
		e.Type, e.Reason = detail.Type, detail.Reason
		if e.Reason == "" && len(detail.RootCause) > 0 {
			e.Type, e.Reason = detail.RootCause[0].Type, detail.RootCause[0].Reason
		}
		return e
	}

	var text string
	if err := json.Unmarshal(envelope.Error, &text); err == nil {
		e.Reason = text
	}
	return e
}
