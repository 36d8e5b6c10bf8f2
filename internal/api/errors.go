package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoFallback  = errors.New("no fallback available for endpoint")
	ErrUnavailable = errors.New("api unavailable")
)

// Error is a non-2xx response from the backend.
type Error struct {
	Endpoint   string
	StatusCode int
	Body       []byte
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// NewError builds an Error, deriving the message from the response body.
// Both a flat {"detail": "..."} body and a list of field errors
// {"detail": [{"loc": [...], "msg": "..."}]} are understood.
func NewError(endpoint string, status int, body []byte) *Error {
	return &Error{
		Endpoint:   endpoint,
		StatusCode: status,
		Body:       body,
		Message:    errorMessage(status, body),
	}
}

type fieldError struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

func errorMessage(status int, body []byte) string {
	generic := fmt.Sprintf("request failed with status %d", status)

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return generic
	}

	var detail string
	if err := json.Unmarshal(envelope.Detail, &detail); err == nil {
		if strings.TrimSpace(detail) == "" {
			return generic
		}
		return detail
	}

	var fields []fieldError
	if err := json.Unmarshal(envelope.Detail, &fields); err != nil || len(fields) == 0 {
		return generic
	}

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f.Loc) == 0 {
			parts = append(parts, f.Msg)
			continue
		}
		parts = append(parts, fmt.Sprintf("%v: %s", f.Loc[len(f.Loc)-1], f.Msg))
	}

	return strings.Join(parts, "; ")
}

// StatusCode reports the backend status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
