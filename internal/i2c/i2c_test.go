package i2c

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidAddr(t *testing.T) {
	assert.NoError(t, ValidAddr(DefaultAddr))
	assert.NoError(t, ValidAddr(0x7F))
	assert.Error(t, ValidAddr(0))
	assert.Error(t, ValidAddr(0x80))
}

func TestBusPath(t *testing.T) {
	assert.Equal(t, "/dev/i2c-1", BusPath(1))
}
