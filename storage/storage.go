package storage

import (
	uio "datagram-arq/util/io"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const maxNameLength = 255

var ErrInvalidName = errors.New("invalid file name")

// ValidateName rejects names that could escape the storage directory or
// are not usable as a single path element.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case len(name) > maxNameLength:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidName, maxNameLength)
	case !utf8.ValidString(name):
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidName)
	case strings.ContainsAny(name, `/\`+"\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case filepath.IsAbs(name) || filepath.VolumeName(name) != "":
		return fmt.Errorf("%w: %q is absolute", ErrInvalidName, name)
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: %q contains a control character", ErrInvalidName, name)
		}
	}
	return nil
}

// Dir stores received files under a single root directory.
type Dir struct {
	root string
}

func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, err
	}
	return &Dir{root: abs}, nil
}

func (d *Dir) Root() string {
	return d.root
}

// Path returns where name would be stored.
func (d *Dir) Path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(d.root, name), nil
}

// Save writes chunks in order to name, replacing any existing file. The
// content is written to a temporary file first so readers never observe a
// partial file.
func (d *Dir) Save(name string, chunks [][]byte) (string, error) {
	path, err := d.Path(name)
	if err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(d.root, ".recv-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := uio.WriteChunks(tmp, chunks); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}
