package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassOf(t *testing.T) {
	cases := []struct {
		size uint32
		want int
	}{
		{0, 0}, {15, 0}, {16, 1}, {31, 1}, {32, 2}, {63, 2},
		{64, 3}, {127, 3}, {128, 4}, {255, 4}, {256, 5}, {479, 5},
		{480, 6}, {959, 6}, {960, 7}, {1919, 7}, {1920, 8}, {3839, 8},
		{3840, 9}, {7679, 9}, {7680, 10}, {15359, 10}, {15360, 11},
		{30719, 11}, {30720, 12}, {61439, 12}, {61440, 13}, {1 << 20, 13},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, classOf(c.size), "size %d", c.size)
	}
}
