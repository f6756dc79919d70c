package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError(t *testing.T) {
	e := NewAppError("DB_ERROR", "load failed", ErrDatabase)
	assert.Equal(t, "DB_ERROR: load failed: database error", e.Error())
	assert.ErrorIs(t, e, ErrDatabase)

	// Without a cause the code and message stand alone.
	bare := NewAppError("INTERNAL", "boom", nil)
	assert.Equal(t, "INTERNAL: boom", bare.Error())
	assert.Nil(t, errors.Unwrap(bare))
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError(nil, "save database"))

	cause := errors.New("disk full")
	err := WrapError(cause, "save database")
	require.Error(t, err)
	assert.Equal(t, "save database: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestErrorConstructors(t *testing.T) {
	err := NotFoundError("database not found: %s", "a.csv")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "database not found: a.csv")

	err = InvalidInputError("bad pid %q", "4 2")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), fmt.Sprintf("bad pid %q", "4 2"))
}
