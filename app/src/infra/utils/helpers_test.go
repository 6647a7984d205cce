package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmptyFallback(t *testing.T) {
	assert.Equal(t, "value", EmptyFallback("value", "fallback"))
	assert.Equal(t, "fallback", EmptyFallback("", "fallback"))
}

func TestPtr(t *testing.T) {
	v := Ptr(42.5)
	assert.NotNil(t, v)
	assert.Equal(t, 42.5, *v)
}
