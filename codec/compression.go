package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// ErrUnknownCompression is returned by CompressionByName for an unknown name.
var ErrUnknownCompression = errors.New("unknown compression")

// Compression encodes whole payloads in a self-describing frame format, so
// the output is readable by the matching command line tool (zstd, lz4).
type Compression interface {
	Name() string
	// Extension is appended to the object name, including the dot.
	Extension() string
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// CompressionByName returns "none", "zstd" or "lz4". The empty name selects
// "none".
func CompressionByName(name string) (Compression, error) {
	switch name {
	case "", "none":
		return None{}, nil
	case "zstd":
		return Zstd{}, nil
	case "lz4":
		return LZ4{}, nil
	default:
		return nil, fmt.Errorf("%w: %q (want none, zstd or lz4)", ErrUnknownCompression, name)
	}
}

// None passes payloads through unchanged.
type None struct{}

func (None) Name() string                           { return "none" }
func (None) Extension() string                      { return "" }
func (None) Compress(data []byte) ([]byte, error)   { return data, nil }
func (None) Decompress(data []byte) ([]byte, error) { return data, nil }

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Zstd compresses with Zstandard.
type Zstd struct{}

func (Zstd) Name() string      { return "zstd" }
func (Zstd) Extension() string { return ".zst" }

func (Zstd) Compress(data []byte) ([]byte, error) {
	enc := getZstdEncoder()
	defer zstdEncoderPool.Put(enc)
	return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

func (Zstd) Decompress(data []byte) ([]byte, error) {
	dec := getZstdDecoder()
	defer zstdDecoderPool.Put(dec)
	return dec.DecodeAll(data, nil)
}

// LZ4 compresses with the LZ4 frame format.
type LZ4 struct{}

func (LZ4) Name() string      { return "lz4" }
func (LZ4) Extension() string { return ".lz4" }

func (LZ4) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (LZ4) Decompress(data []byte) ([]byte, error) {
	return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
}
