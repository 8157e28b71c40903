// Package upload sends a chat attachment to the upload relay and returns
// the durable URL it was stored under.
package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// File is one binary handed to the relay
type File struct {
	Name string
	Size int64
	Body io.Reader
}

// Result is a stored file
type Result struct {
	URL  string
	Name string
	Size int64
}

// Relay stores files and returns their URL
type Relay interface {
	Upload(ctx context.Context, file File) (*Result, error)
}

// Error is the structured failure returned for any unsuccessful upload
type Error struct {
	StatusCode int    // HTTP status of the relay, 0 when it was never reached
	Message    string // relay message or transport error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upload failed (%d): %s", e.StatusCode, e.Message)
	}
	return "upload failed: " + e.Message
}

// ResolveURL prefixes origin to relative URLs returned by the relay
func ResolveURL(origin, u string) string {
	if u == "" || strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") || origin == "" {
		return u
	}
	return strings.TrimRight(origin, "/") + "/" + strings.TrimLeft(u, "/")
}

func failure(code int, format string, args ...interface{}) *Error {
	if code == 0 {
		code = http.StatusBadGateway
	}
	return &Error{StatusCode: code, Message: fmt.Sprintf(format, args...)}
}

// Disabled rejects every upload; used when no storage is configured
type Disabled struct{}

func (Disabled) Upload(context.Context, File) (*Result, error) {
	return nil, &Error{StatusCode: http.StatusServiceUnavailable, Message: "file upload is disabled"}
}
