package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairKeyNormalizesOrder(t *testing.T) {
	low, high, err := PairKey(7, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), low)
	assert.Equal(t, uint64(7), high)

	// 交换参数顺序结果不变
	low2, high2, err := PairKey(3, 7)
	require.NoError(t, err)
	assert.Equal(t, low, low2)
	assert.Equal(t, high, high2)
}

func TestPairKeyRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name string
		a, b uint64
	}{
		{"same user", 5, 5},
		{"zero left", 0, 5},
		{"zero right", 5, 0},
		{"both zero", 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := PairKey(tc.a, tc.b)
			assert.ErrorIs(t, err, ErrInvalidPair)
		})
	}
}

func TestPairString(t *testing.T) {
	key, err := PairString(42, 8)
	require.NoError(t, err)
	assert.Equal(t, "8_42", key)

	_, err = PairString(8, 8)
	assert.ErrorIs(t, err, ErrInvalidPair)
}

func TestParsePeer(t *testing.T) {
	peer, err := ParsePeer("8_42", 8)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), peer)

	peer, err = ParsePeer("8_42", 42)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), peer)

	_, err = ParsePeer("garbage", 8)
	assert.Error(t, err)
}
