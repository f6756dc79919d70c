package common

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))

	ctx = WithRequestID(ctx, "req-1")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
}

func TestPatientIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, PatientIDFromContext(ctx))

	ctx = WithPatientID(ctx, "42")
	assert.Equal(t, "42", PatientIDFromContext(ctx))

	// Both keys coexist.
	ctx = WithRequestID(ctx, "req-1")
	assert.Equal(t, "42", PatientIDFromContext(ctx))
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
}
