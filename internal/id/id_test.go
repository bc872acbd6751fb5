package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		v := New()
		require.False(t, seen[v], "duplicate id %s", v)
		seen[v] = true
	}
}

func TestParse(t *testing.T) {
	got, err := Parse(" 6BA7B810-9DAD-11D1-80B4-00C04FD430C8 ")
	require.NoError(t, err)
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", got)

	for _, bad := range []string{"", "not-an-id", "6ba7b810"} {
		_, err := Parse(bad)
		assert.Error(t, err, "expected error for input: %s", bad)
	}
}

func TestShort(t *testing.T) {
	assert.Equal(t, "6ba7b810", Short("6ba7b810-9dad-11d1-80b4-00c04fd430c8"))
	assert.Equal(t, "plain", Short("plain"))
	assert.Equal(t, "", Short(""))
}

func TestFormatLegID(t *testing.T) {
	tests := []struct {
		txID string
		leg  int
		want string
	}{
		{"tx1", 0, "tx1.a"},
		{"tx1", 1, "tx1.b"},
		{"6ba7b810-9dad-11d1-80b4-00c04fd430c8", 1, "6ba7b810-9dad-11d1-80b4-00c04fd430c8.b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatLegID(tt.txID, tt.leg))
	}
}

func TestParseLegID(t *testing.T) {
	txID, leg, err := ParseLegID("6ba7b810-9dad-11d1-80b4-00c04fd430c8.b")
	require.NoError(t, err)
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", txID)
	assert.Equal(t, 1, leg)

	for _, bad := range []string{"", "tx1", ".a", "tx1.ab", "tx1.A"} {
		_, _, err := ParseLegID(bad)
		assert.Error(t, err, "expected error for input: %s", bad)
	}
}
