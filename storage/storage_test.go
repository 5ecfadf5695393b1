package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	valid := []string{"report.pdf", "a", "žluťoučký kůň.txt", ".hidden", "name with spaces"}
	for _, name := range valid {
		require.Nil(t, ValidateName(name), name)
	}
	invalid := []string{"", ".", "..", "../etc/passwd", "dir/file", `dir\file`, "/abs", "nul\x00byte", "tab\tname", string([]byte{0xff, 0xfe})}
	for _, name := range invalid {
		require.True(t, errors.Is(ValidateName(name), ErrInvalidName), name)
	}
	long := make([]byte, maxNameLength+1)
	for i := range long {
		long[i] = 'a'
	}
	require.True(t, errors.Is(ValidateName(string(long)), ErrInvalidName))
}

func TestDir(t *testing.T) {
	root := filepath.Join(t.TempDir(), "server")
	d, err := NewDir(root)
	require.Nil(t, err)

	t.Run("save", func(t *testing.T) {
		require := require.New(t)
		path, err := d.Save("hello.txt", [][]byte{[]byte("HELL"), []byte("O WO"), []byte("RLD")})
		require.Nil(err)
		require.Equal(filepath.Join(d.Root(), "hello.txt"), path)
		b, err := os.ReadFile(path)
		require.Nil(err)
		require.Equal("HELLO WORLD", string(b))
	})

	t.Run("overwrite", func(t *testing.T) {
		require := require.New(t)
		path, err := d.Save("hello.txt", [][]byte{[]byte("bye")})
		require.Nil(err)
		b, err := os.ReadFile(path)
		require.Nil(err)
		require.Equal("bye", string(b))
	})

	t.Run("empty", func(t *testing.T) {
		require := require.New(t)
		path, err := d.Save("empty.bin", nil)
		require.Nil(err)
		info, err := os.Stat(path)
		require.Nil(err)
		require.EqualValues(0, info.Size())
	})

	t.Run("traversal", func(t *testing.T) {
		require := require.New(t)
		_, err := d.Save("../escape.txt", [][]byte{[]byte("x")})
		require.True(errors.Is(err, ErrInvalidName))
		_, err = os.Stat(filepath.Join(filepath.Dir(d.Root()), "escape.txt"))
		require.True(os.IsNotExist(err))
	})

	t.Run("no leftovers", func(t *testing.T) {
		require := require.New(t)
		entries, err := os.ReadDir(d.Root())
		require.Nil(err)
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		require.ElementsMatch([]string{"hello.txt", "empty.bin"}, names)
	})
}
