// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for JSON responses. Every body is
// an envelope: {"ok":true,"data":...} on success, {"ok":false,"error":"..."}
// on failure. A 204 has no body.

package http

import (
	"encoding/json"
	"net/http"
)

// Envelope is the JSON shape of every non-empty response.
type Envelope struct {
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building enveloped responses.
type JSONResponseBuilder struct {
	statusCode int
	envelope   Envelope
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		envelope:   Envelope{OK: true},
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Data sets the success payload.
func (b *JSONResponseBuilder) Data(data any) *JSONResponseBuilder {
	b.envelope = Envelope{OK: true, Data: data}
	return b
}

// Error turns the response into a failure carrying message.
func (b *JSONResponseBuilder) Error(message string) *JSONResponseBuilder {
	b.envelope = Envelope{OK: false, Error: message}
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}

	body, err := json.Marshal(b.envelope)
	if err != nil {
		b.statusCode = http.StatusInternalServerError
		body = []byte(`{"ok":false,"error":"failed to encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(body)
}

// OK writes a 200 response carrying data.
func OK(data any) *JSONResponseBuilder {
	return NewJSONResponse().Data(data)
}

// Created writes a 201 response carrying data.
func Created(data any) *JSONResponseBuilder {
	return NewJSONResponse().Status(http.StatusCreated).Data(data)
}

// NoContent writes an empty 204.
func NoContent() *JSONResponseBuilder {
	return NewJSONResponse().Status(http.StatusNoContent)
}

// ErrorResponse creates a failure envelope with the given status.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Error(message)
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// BadGatewayError creates a 502 response for upstream failures.
func BadGatewayError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadGateway, message)
}
