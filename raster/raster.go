// Package raster provides the minimal raster-file handling the display
// pipeline needs: reading PNG dimensions straight from the file header and
// normalizing oversized images before they reach the compositor. It is not
// an image codec; the compositor consumes the files themselves.
package raster

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrFormat reports a file that is too short to carry a PNG header or does
// not start with one.
var ErrFormat = errors.New("raster: not a PNG header")

// pngSignature is the fixed 8-byte PNG file signature.
var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

const (
	// headerLen covers the signature, the IHDR chunk length and tag, and
	// the width and height fields. Anything shorter cannot be inspected.
	headerLen = 24

	widthOffset  = 16
	heightOffset = 20
)

// Bitmap refers to a rendered image file by path. Dimensions are read from
// the header on every call rather than cached, so a re-rendered file never
// serves stale geometry.
type Bitmap struct {
	Path string
}

// Width returns the pixel width from the file's header.
func (b Bitmap) Width() (int, error) { return Width(b.Path) }

// Height returns the pixel height from the file's header.
func (b Bitmap) Height() (int, error) { return Height(b.Path) }

// Width reads the big-endian 32-bit width field at byte offset 16 of a PNG
// file. This is the only byte-level format contract the pipeline depends on.
func Width(path string) (int, error) {
	header, err := readHeader(path)
	if err != nil {
		return 0, err
	}
	return int(binary.BigEndian.Uint32(header[widthOffset:])), nil
}

// Height reads the big-endian 32-bit height field at byte offset 20.
func Height(path string) (int, error) {
	header, err := readHeader(path)
	if err != nil {
		return 0, err
	}
	return int(binary.BigEndian.Uint32(header[heightOffset:])), nil
}

func readHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("raster: open %s: %w", path, err)
	}
	defer f.Close()

	header := make([]byte, headerLen)
	if n, err := io.ReadFull(f, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %s is %d bytes, need %d", ErrFormat, path, n, headerLen)
		}
		return nil, fmt.Errorf("raster: read %s: %w", path, err)
	}
	for i, b := range pngSignature {
		if header[i] != b {
			return nil, fmt.Errorf("%w: %s has wrong signature", ErrFormat, path)
		}
	}
	if string(header[12:16]) != "IHDR" {
		return nil, fmt.Errorf("%w: %s missing IHDR chunk", ErrFormat, path)
	}
	return header, nil
}
