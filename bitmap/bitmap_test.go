package bitmap_test

import (
	"testing"

	"github.com/PeterWang133/Project2/bitmap"
	"github.com/stretchr/testify/assert"
)

func TestGetPutRoundTrip(t *testing.T) {
	buf := make([]byte, 4)
	bm := bitmap.Wrap(buf)

	assert.Equal(t, 0, bm.Get(3))
	bm.Put(3, 1)
	assert.Equal(t, 1, bm.Get(3))
	assert.Equal(t, byte(1<<3), buf[0])

	bm.Put(3, 0)
	assert.Equal(t, 0, bm.Get(3))
	assert.Equal(t, byte(0), buf[0])
}

func TestBitZeroIsLSB(t *testing.T) {
	buf := make([]byte, 1)
	bm := bitmap.Wrap(buf)
	bm.Put(0, 1)
	assert.Equal(t, byte(1), buf[0])
}

func TestNegativeIndexIsNoOp(t *testing.T) {
	buf := make([]byte, 4)
	bm := bitmap.Wrap(buf)

	assert.Equal(t, 0, bm.Get(-1))
	bm.Put(-1, 1)
	for _, b := range buf {
		assert.Equal(t, byte(0), b)
	}
}

func TestBitsAcrossByteBoundary(t *testing.T) {
	buf := make([]byte, 2)
	bm := bitmap.Wrap(buf)
	bm.Put(8, 1)
	assert.Equal(t, byte(0), buf[0])
	assert.Equal(t, byte(1), buf[1])
	assert.Equal(t, 1, bm.Get(8))
	assert.Equal(t, 0, bm.Get(7))
}
