package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequired(t *testing.T) {
	assert.Nil(t, Required("f", "value"))
	assert.Nil(t, Required("f", 42))

	assert.NotNil(t, Required("f", nil))
	assert.NotNil(t, Required("f", ""))
	assert.NotNil(t, Required("f", "   "))

	var nilStr *string
	assert.NotNil(t, Required("f", nilStr))
	s := "ok"
	assert.Nil(t, Required("f", &s))
}

func TestMaxLength(t *testing.T) {
	assert.Nil(t, MaxLength("f", "abc", 3))
	assert.NotNil(t, MaxLength("f", "abcd", 3))
	// Rune count, not bytes.
	assert.Nil(t, MaxLength("f", "ééé", 3))
	// Non-strings pass through.
	assert.Nil(t, MaxLength("f", 42, 1))
}

func TestPatientID(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		valid bool
	}{
		{"numeric", "42", true},
		{"alphanumeric", "P0012", true},
		{"separators allowed", "a_b.c-d", true},
		{"empty", "", false},
		{"inner whitespace", "4 2", false},
		{"comma", "4,2", false},
		{"not a string", 42, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := PatientID("pid", tt.value)
			if tt.valid {
				assert.Nil(t, err)
			} else {
				assert.NotNil(t, err)
			}
		})
	}
}

func TestDateDDMMYYYY(t *testing.T) {
	assert.Nil(t, DateDDMMYYYY("d", "12/03/2021"))
	assert.Nil(t, DateDDMMYYYY("d", " 01/01/1999 "))

	assert.NotNil(t, DateDDMMYYYY("d", "2021-03-12"))
	assert.NotNil(t, DateDDMMYYYY("d", "32/01/2021"))
	assert.NotNil(t, DateDDMMYYYY("d", ""))
	assert.NotNil(t, DateDDMMYYYY("d", 20210312))
}

func TestOrderInRange(t *testing.T) {
	rule := OrderInRange(3)

	assert.Nil(t, rule("order", "1"))
	assert.Nil(t, rule("order", "4")) // append position

	err := rule("order", "5")
	require.NotNil(t, err)
	assert.Contains(t, err.Message, "between 1 and 4")

	assert.NotNil(t, rule("order", "0"))
	assert.NotNil(t, rule("order", "abc"))
	assert.NotNil(t, rule("order", 2))
}

func TestValidatorCollectsErrors(t *testing.T) {
	v := NewValidator().
		Field("pid", "4 2", PatientID).
		Field("date", "bad", DateDDMMYYYY).
		Field("ok", "fine", Required)

	assert.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 2)

	err := v.Error()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pid")
	assert.Contains(t, err.Error(), "date")
}

func TestValidatorNoErrors(t *testing.T) {
	v := NewValidator().Field("pid", "42", Required, PatientID)
	assert.False(t, v.HasErrors())
	assert.NoError(t, v.Error())
	assert.Empty(t, v.ErrorMessage())
}

func TestValidateAndReturnError(t *testing.T) {
	assert.NoError(t, ValidateAndReturnError(NewValidator()))

	v := NewValidator().Field("pid", "", Required)
	err := ValidateAndReturnError(v)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
