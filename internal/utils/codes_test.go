package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOrderNumber(t *testing.T) {
	pattern := regexp.MustCompile(`^ORD\d{6}-\d{4}-\d{4}$`)

	for i := 0; i < 20; i++ {
		assert.Regexp(t, pattern, GenerateOrderNumber())
	}
}

func TestGenerateVerificationCode(t *testing.T) {
	t.Run("Six digits", func(t *testing.T) {
		code, err := GenerateVerificationCode(6)
		require.NoError(t, err)
		assert.Regexp(t, `^\d{6}$`, code)
	})

	t.Run("Invalid length", func(t *testing.T) {
		_, err := GenerateVerificationCode(0)
		assert.Error(t, err)
	})
}
