package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registrationInput struct {
	Email      string `validate:"required,email"`
	Role       string `validate:"required,oneof=student professor"`
	ExternalID string `validate:"required,len=10,numeric"`
}

func TestValidateStruct(t *testing.T) {
	valid := registrationInput{
		Email:      "student@university.edu",
		Role:       "student",
		ExternalID: "1234567890",
	}
	require.NoError(t, ValidateStruct(valid))

	err := ValidateStruct(registrationInput{
		Email:      "not-an-email",
		Role:       "admin",
		ExternalID: "12345",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email must be a valid email")
	assert.Contains(t, err.Error(), "role must be one of: student professor")
	assert.Contains(t, err.Error(), "externalid must be exactly 10 characters")
}

func TestParseUint(t *testing.T) {
	assert.Equal(t, uint(1000), ParseUint("1000"))
	assert.Equal(t, uint(0), ParseUint("not-a-number"))
	assert.Equal(t, uint(0), ParseUint(""))
}

func TestGenerateRateLimitKey(t *testing.T) {
	a := GenerateRateLimitKey(7, "/api/v1/projects/1000/claims")
	b := GenerateRateLimitKey(8, "/api/v1/projects/1000/claims")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, GenerateRateLimitKey(7, "/api/v1/projects/1000/claims"))
}
