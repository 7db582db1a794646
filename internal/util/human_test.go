package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHuman(t *testing.T) {
	assert.Equal(t, "0 B", Human(0))
	assert.Equal(t, "1023 B", Human(1023))
	assert.Equal(t, "1.50 KB", Human(1536))
	assert.Equal(t, "2.00 MB", Human(2<<20))
	assert.Equal(t, "1.00 GB", Human(1<<30))
}
