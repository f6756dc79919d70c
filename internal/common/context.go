package common

import (
	"context"
	"time"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeyPatientID contextKey = "patient_id"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithPatientID adds a patient ID to the context
func WithPatientID(ctx context.Context, patientID string) context.Context {
	return context.WithValue(ctx, ContextKeyPatientID, patientID)
}

// PatientIDFromContext extracts the patient ID from context
func PatientIDFromContext(ctx context.Context) string {
	if patientID, ok := ctx.Value(ContextKeyPatientID).(string); ok {
		return patientID
	}
	return ""
}

// WithTimeout creates a context with the specified timeout
func WithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}
