package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"12", 1200},
		{"12.5", 1250},
		{"12.05", 1205},
		{" 7.99 ", 799},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMoney(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "-1", "1.234", "abc", "1,50", ".5", "99999999999999999999"} {
		_, err := ParseMoney(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseStock(t *testing.T) {
	n, err := ParseStock(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	for _, bad := range []string{"", "-1", "1.5", "x"} {
		_, err := ParseStock(bad)
		assert.Error(t, err, bad)
	}
}
