package dataset

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// NameLength is the number of hex characters in a generated file name, extension excluded.
const NameLength = 16

// Namer picks the output file name for a source image.
type Namer interface {
	Name(src string) (string, error)
}

// RandomNamer draws names from a random source, crypto/rand when Reader is nil.
type RandomNamer struct {
	Reader io.Reader
}

// Name returns NameLength random hex characters followed by the extension of src.
func (n RandomNamer) Name(src string) (string, error) {
	r := n.Reader
	if r == nil {
		r = rand.Reader
	}

	buf := make([]byte, NameLength/2)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", errors.Wrap(err, "read random bytes")
	}
	return hex.EncodeToString(buf) + filepath.Ext(src), nil
}

// ContentNamer names files after the SHA-256 of their bytes, so reruns are stable.
type ContentNamer struct{}

// Name returns the first NameLength hex characters of the digest of src plus its extension.
func (ContentNamer) Name(src string) (string, error) {
	f, err := os.Open(src)
	if err != nil {
		return "", errors.Wrapf(err, "open %s", src)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "hash %s", src)
	}
	return hex.EncodeToString(h.Sum(nil))[:NameLength] + filepath.Ext(src), nil
}

// NamerFor returns the namer registered under kind ("random" or "content").
func NamerFor(kind string) (Namer, error) {
	switch kind {
	case "", "random":
		return RandomNamer{}, nil
	case "content":
		return ContentNamer{}, nil
	default:
		return nil, errors.Errorf("unknown namer %q", kind)
	}
}
