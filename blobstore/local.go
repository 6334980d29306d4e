package blobstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// zstd frame magic, little-endian on disk. Used to detect compressed
// artifacts on read regardless of the store's current write settings.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// LocalOptions configures a LocalStore.
type LocalOptions struct {
	// Compression enables zstd compression of stored artifacts.
	Compression bool
	// CompressionLevel sets the zstd level when Compression is on.
	CompressionLevel zstd.EncoderLevel
}

// DefaultLocalOptions are the defaults for NewLocalStore.
var DefaultLocalOptions = LocalOptions{
	Compression:      false,
	CompressionLevel: zstd.SpeedDefault,
}

// LocalStore persists artifacts as one file per token under a root
// directory. Writes are atomic (temp file + rename). Reads decompress
// transparently, so the compression setting can change between runs
// without migrating existing files.
type LocalStore struct {
	root    string
	opts    LocalOptions
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewLocalStore creates a LocalStore rooted at dir, creating it if
// needed.
func NewLocalStore(dir string, optFns ...func(o *LocalOptions)) (*LocalStore, error) {
	opts := DefaultLocalOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}

	s := &LocalStore{root: dir, opts: opts}

	var err error
	s.decoder, err = zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	if opts.Compression {
		s.encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(opts.CompressionLevel))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
	}
	return s, nil
}

func (s *LocalStore) path(token uint64) string {
	return filepath.Join(s.root, fmt.Sprintf("%016x.bin", token))
}

// Get returns the artifact bytes for token.
func (s *LocalStore) Get(ctx context.Context, token uint64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(token))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if len(data) >= len(zstdMagic) && string(data[:len(zstdMagic)]) == string(zstdMagic) {
		return s.decoder.DecodeAll(data, nil)
	}
	return data, nil
}

// Put writes the artifact bytes for token atomically.
func (s *LocalStore) Put(ctx context.Context, token uint64, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.encoder != nil {
		data = s.encoder.EncodeAll(data, make([]byte, 0, len(data)/2))
	}

	path := s.path(token)
	tmp, err := os.CreateTemp(s.root, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Delete removes the artifact for token.
func (s *LocalStore) Delete(ctx context.Context, token uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(s.path(token)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// List returns the tokens of all stored artifacts, ignoring files that
// do not look like artifact files.
func (s *LocalStore) List(ctx context.Context) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}

	var tokens []uint64
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".bin") || len(name) != 16+len(".bin") {
			continue
		}
		token, err := strconv.ParseUint(strings.TrimSuffix(name, ".bin"), 16, 64)
		if err != nil {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}

// Close releases the compression resources.
func (s *LocalStore) Close() error {
	s.decoder.Close()
	if s.encoder != nil {
		return s.encoder.Close()
	}
	return nil
}
