package document

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// FileExt is the extension of persisted pages.
const FileExt = ".msgpack.zst"

// ErrVersion indicates a persisted page written in another format version.
var ErrVersion = errors.New("document: unsupported page version")

// Save writes page to w as zstd-compressed msgpack.
func Save(w io.Writer, page *Page) error {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}

	if err := msgpack.NewEncoder(zw).Encode(page); err != nil {
		zw.Close()
		return fmt.Errorf("failed to encode page: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to close zstd writer: %w", err)
	}
	return nil
}

// Load reads a page written by Save.
func Load(r io.Reader) (*Page, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()

	var page Page
	if err := msgpack.NewDecoder(zr).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode page: %w", err)
	}
	if page.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, page.Version)
	}
	return &page, nil
}
