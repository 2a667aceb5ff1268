package memio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadWriteU32(t *testing.T) {
	b := make([]byte, 16)
	WriteU32At(b, 4, 0xDEADBEEF)
	assert.Equal(t, uint32(0xDEADBEEF), ReadU32At(b, 4))
	assert.Equal(t, uint32(0), ReadU32At(b, 0))
	assert.Equal(t, uint32(0), ReadU32At(b, 8))
}

func TestReadWriteU64(t *testing.T) {
	b := make([]byte, 8)
	WriteU64(b, 0xBADC0DEBADC0D000)
	assert.Equal(t, uint64(0xBADC0DEBADC0D000), ReadU64(b))
}
