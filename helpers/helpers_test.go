package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	assert.Equal(t, "fallback", GetEnv("ODM_HELPERS_UNSET_KEY", "fallback"))

	t.Setenv("ODM_HELPERS_TEST_KEY", "value")
	assert.Equal(t, "value", GetEnv("ODM_HELPERS_TEST_KEY", "fallback"))

	t.Setenv("ODM_HELPERS_EMPTY_KEY", "")
	assert.Equal(t, "", GetEnv("ODM_HELPERS_EMPTY_KEY", "fallback"), "an empty value counts as set")
}
