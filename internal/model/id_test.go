package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIDShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewID()
		assert.True(t, IsID(id), id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestIsID(t *testing.T) {
	assert.True(t, IsID("64a1b2c3d4e5f60718293a4b"))
	assert.True(t, IsID("ABCDEF0123456789abcdef01"))

	assert.False(t, IsID(""))
	assert.False(t, IsID("64a1b2c3d4e5f60718293a4"))
	assert.False(t, IsID("64a1b2c3d4e5f60718293a4b7"))
	assert.False(t, IsID("64a1b2c3d4e5f60718293a4g"))
	assert.False(t, IsID("64a1b2c3d4e5f60718293a4b "))
}
