package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProduct_ImageURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", Product{}.ImageURL())
	assert.Equal(t, "https://cdn/x.jpg?v=3", Product{Image: "https://cdn/x.jpg", ImageVersion: 3}.ImageURL())
	assert.Equal(t, "https://cdn/x.jpg?w=400&v=1", Product{Image: "https://cdn/x.jpg?w=400", ImageVersion: 1}.ImageURL())
}
