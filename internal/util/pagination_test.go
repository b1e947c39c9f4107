package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		page, size           int
		wantOffset, wantSize int
	}{
		{page: 1, size: 10, wantOffset: 0, wantSize: 10},
		{page: 3, size: 10, wantOffset: 20, wantSize: 10},
		{page: 0, size: 0, wantOffset: 0, wantSize: DefaultPageSize},
		{page: 2, size: 5000, wantOffset: 200, wantSize: 200},
	}
	for _, tt := range tests {
		off, lim := Calculate(tt.page, tt.size)
		assert.Equal(t, tt.wantOffset, off)
		assert.Equal(t, tt.wantSize, lim)
	}
}

func TestMeta(t *testing.T) {
	t.Parallel()

	m := Meta(2, 10, 25)
	assert.Equal(t, int64(3), m.TotalPages)
	assert.True(t, m.HasPrev)
	assert.True(t, m.HasNext)

	m = Meta(3, 10, 25)
	assert.False(t, m.HasNext)

	m = Meta(1, 10, 0)
	assert.Equal(t, int64(0), m.TotalPages)
	assert.False(t, m.HasPrev)
	assert.False(t, m.HasNext)
}

func TestParseIntDefault(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 7, ParseIntDefault("", 7))
	assert.Equal(t, 7, ParseIntDefault("x", 7))
	assert.Equal(t, 3, ParseIntDefault("3", 7))
}
