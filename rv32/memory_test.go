package rv32

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemorySizing(t *testing.T) {
	t.Run("rounds up to multiple of 16", func(t *testing.T) {
		for _, tc := range []struct {
			req, want uint32
		}{
			{0, 0},
			{1, 16},
			{16, 16},
			{17, 32},
			{0x100, 0x100},
			{0x101, 0x110},
		} {
			m := NewMemoryWithWarnings(tc.req, &bytes.Buffer{})
			require.Equal(t, tc.want, m.Size(), "size %#x", tc.req)
			require.Zero(t, m.Size()%16)
		}
	})
	t.Run("initialized to fill byte", func(t *testing.T) {
		m := NewMemoryWithWarnings(0x20, &bytes.Buffer{})
		for a := uint32(0); a < m.Size(); a++ {
			require.Equal(t, uint8(FillByte), m.Get8(a))
		}
	})
}

func TestMemoryLittleEndian(t *testing.T) {
	t.Run("set8 get8 round trip", func(t *testing.T) {
		m := NewMemoryWithWarnings(0x100, &bytes.Buffer{})
		m.Set8(3, 0x7b)
		require.Equal(t, uint8(0x7b), m.Get8(3))
	})
	t.Run("set16 byte order", func(t *testing.T) {
		m := NewMemoryWithWarnings(0x100, &bytes.Buffer{})
		m.Set16(0x10, 0xbeef)
		require.Equal(t, uint8(0xef), m.Get8(0x10))
		require.Equal(t, uint8(0xbe), m.Get8(0x11))
		require.Equal(t, uint16(0xbeef), m.Get16(0x10))
	})
	t.Run("set32 byte order", func(t *testing.T) {
		m := NewMemoryWithWarnings(0x100, &bytes.Buffer{})
		m.Set32(0x40, 0xdeadbeef)
		require.Equal(t, uint8(0xef), m.Get8(0x40))
		require.Equal(t, uint8(0xbe), m.Get8(0x41))
		require.Equal(t, uint8(0xad), m.Get8(0x42))
		require.Equal(t, uint8(0xde), m.Get8(0x43))
		require.Equal(t, uint32(0xdeadbeef), m.Get32(0x40))
	})
}

func TestMemorySignExtension(t *testing.T) {
	m := NewMemoryWithWarnings(0x100, &bytes.Buffer{})
	t.Run("get8_sx boundaries", func(t *testing.T) {
		m.Set8(0, 0x7f)
		require.Equal(t, int32(127), m.Get8SX(0))
		m.Set8(0, 0x80)
		require.Equal(t, int32(-128), m.Get8SX(0))
		m.Set8(0, 0xff)
		require.Equal(t, int32(-1), m.Get8SX(0))
	})
	t.Run("get16_sx boundaries", func(t *testing.T) {
		m.Set16(0, 0x7fff)
		require.Equal(t, int32(32767), m.Get16SX(0))
		m.Set16(0, 0x8000)
		require.Equal(t, int32(-32768), m.Get16SX(0))
	})
	t.Run("get32_sx reinterprets", func(t *testing.T) {
		m.Set32(0, 0xffffffff)
		require.Equal(t, int32(-1), m.Get32SX(0))
		m.Set32(0, 0x7fffffff)
		require.Equal(t, int32(0x7fffffff), m.Get32SX(0))
	})
}

func TestMemoryOutOfRange(t *testing.T) {
	t.Run("read yields zero with warning", func(t *testing.T) {
		var warn bytes.Buffer
		m := NewMemoryWithWarnings(0x100, &warn)
		require.Equal(t, uint8(0), m.Get8(0x100))
		require.Equal(t, "WARNING: Address out of range: 0x00000100\n", warn.String())
	})
	t.Run("one warning per out-of-range byte", func(t *testing.T) {
		var warn bytes.Buffer
		m := NewMemoryWithWarnings(0x100, &warn)
		// straddles the end: byte at 0xfe and 0xff are fine, 0x100 and 0x101 are not
		v := m.Get32(0xfe)
		require.Equal(t, uint32(0x0000a5a5), v)
		require.Equal(t,
			"WARNING: Address out of range: 0x00000100\n"+
				"WARNING: Address out of range: 0x00000101\n",
			warn.String())
	})
	t.Run("write dropped with warning", func(t *testing.T) {
		var warn bytes.Buffer
		m := NewMemoryWithWarnings(0x100, &warn)
		m.Set8(0x1000, 0x42)
		require.Equal(t, "WARNING: Address out of range: 0x00001000\n", warn.String())
		// straddling write keeps the in-range bytes
		warn.Reset()
		m.Set32(0xfe, 0x11223344)
		require.Equal(t, uint8(0x44), m.Get8(0xfe))
		require.Equal(t, uint8(0x33), m.Get8(0xff))
		require.Equal(t,
			"WARNING: Address out of range: 0x00000100\n"+
				"WARNING: Address out of range: 0x00000101\n",
			warn.String())
	})
}

func TestMemoryLoadFile(t *testing.T) {
	t.Run("loads image at address zero", func(t *testing.T) {
		name := filepath.Join(t.TempDir(), "image.bin")
		require.NoError(t, os.WriteFile(name, []byte{0xb7, 0x10, 0x00, 0x00, 0x73}, 0644))
		var warn bytes.Buffer
		m := NewMemoryWithWarnings(0x100, &warn)
		require.NoError(t, m.LoadFile(name))
		require.Equal(t, uint8(0xb7), m.Get8(0))
		require.Equal(t, uint8(0x73), m.Get8(4))
		// beyond the image the fill byte is untouched
		require.Equal(t, uint8(FillByte), m.Get8(5))
		require.Empty(t, warn.String())
	})
	t.Run("missing file", func(t *testing.T) {
		var warn bytes.Buffer
		m := NewMemoryWithWarnings(0x100, &warn)
		err := m.LoadFile("no-such-image.bin")
		require.Error(t, err)
		require.Equal(t, "Can't open file 'no-such-image.bin' for reading.\n", warn.String())
	})
	t.Run("program too big", func(t *testing.T) {
		name := filepath.Join(t.TempDir(), "big.bin")
		require.NoError(t, os.WriteFile(name, make([]byte, 0x20), 0644))
		var warn bytes.Buffer
		m := NewMemoryWithWarnings(0x10, &warn)
		err := m.LoadFile(name)
		require.Error(t, err)
		require.True(t, strings.HasSuffix(warn.String(), "Program too big.\n"))
		// the prefix that fit was loaded
		require.Equal(t, uint8(0), m.Get8(0x0f))
	})
}

func TestMemoryDump(t *testing.T) {
	t.Run("fill pattern row", func(t *testing.T) {
		var warn, out bytes.Buffer
		m := NewMemoryWithWarnings(0x10, &warn)
		m.Dump(&out)
		require.Equal(t,
			"00000000: a5 a5 a5 a5 a5 a5 a5 a5  a5 a5 a5 a5 a5 a5 a5 a5 *................*\n",
			out.String())
	})
	t.Run("printable ascii", func(t *testing.T) {
		var warn, out bytes.Buffer
		m := NewMemoryWithWarnings(0x10, &warn)
		for i, b := range []byte("hello") {
			m.Set8(uint32(i), b)
		}
		m.Set8(5, 0x00)
		m.Dump(&out)
		require.Equal(t,
			"00000000: 68 65 6c 6c 6f 00 a5 a5  a5 a5 a5 a5 a5 a5 a5 a5 *hello...........*\n",
			out.String())
	})
	t.Run("row count", func(t *testing.T) {
		var warn, out bytes.Buffer
		m := NewMemoryWithWarnings(0x100, &warn)
		m.Dump(&out)
		require.Equal(t, 16, strings.Count(out.String(), "\n"))
		require.True(t, strings.Contains(out.String(), "\n000000f0: "))
	})
}
