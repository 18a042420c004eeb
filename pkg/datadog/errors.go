package datadog

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is returned whenever a response carries an "errors" payload;
// its presence is the failure signal of the Datadog v1 API, independent
// of the HTTP status code.
type APIError struct {
	StatusCode int
	Errors     []string
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("datadog api error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("datadog api error (status %d): %s", e.StatusCode, strings.Join(e.Errors, "; "))
}

func errorFromResponse(statusCode int, raw []byte) error {
	var envelope struct {
		Errors []string `json:"errors"`
	}
	// list responses are arrays, probing those for an envelope simply fails
	_ = json.Unmarshal(raw, &envelope)
	if len(envelope.Errors) > 0 {
		return &APIError{StatusCode: statusCode, Errors: envelope.Errors}
	}
	if statusCode < 200 || statusCode > 299 {
		err := &APIError{StatusCode: statusCode}
		if body := strings.TrimSpace(string(raw)); body != "" {
			err.Errors = []string{body}
		}
		return err
	}
	return nil
}
