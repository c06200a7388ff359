package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMemSize(t *testing.T) {
	t.Run("bare hex", func(t *testing.T) {
		v, err := parseMemSize("100")
		require.NoError(t, err)
		require.Equal(t, uint32(0x100), v)
	})
	t.Run("0x prefix", func(t *testing.T) {
		v, err := parseMemSize("0x200")
		require.NoError(t, err)
		require.Equal(t, uint32(0x200), v)
	})
	t.Run("0X prefix", func(t *testing.T) {
		v, err := parseMemSize("0X8000")
		require.NoError(t, err)
		require.Equal(t, uint32(0x8000), v)
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := parseMemSize("zz")
		require.Error(t, err)
	})
	t.Run("empty", func(t *testing.T) {
		_, err := parseMemSize("")
		require.Error(t, err)
	})
}

func TestHexU32(t *testing.T) {
	require.Equal(t, "00000100", HexU32(0x100).String())
	txt, err := HexU32(0xdeadbeef).MarshalText()
	require.NoError(t, err)
	require.Equal(t, "deadbeef", string(txt))
}
