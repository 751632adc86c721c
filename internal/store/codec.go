package store

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Stored blobs start with a one-byte codec tag so rows written with and
// without compression can be read back by the same store.
const (
	codecRaw  byte = 0
	codecZstd byte = 1
)

// Shared across stores; zstd.Encoder and zstd.Decoder are safe for
// concurrent use of EncodeAll and DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("store: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("store: zstd decoder initialization failed: " + err.Error())
	}
}

// encodeBlob tags data and compresses it when compress is set.
func encodeBlob(data []byte, compress bool) []byte {
	if !compress {
		out := make([]byte, 0, len(data)+1)
		out = append(out, codecRaw)
		return append(out, data...)
	}
	out := make([]byte, 1, len(data)/2+1)
	out[0] = codecZstd
	return zstdEncoder.EncodeAll(data, out)
}

// decodeBlob reverses encodeBlob.
func decodeBlob(blob []byte) ([]byte, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("decode blob: empty")
	}
	switch blob[0] {
	case codecRaw:
		return bytes.Clone(blob[1:]), nil
	case codecZstd:
		data, err := zstdDecoder.DecodeAll(blob[1:], nil)
		if err != nil {
			return nil, fmt.Errorf("decode blob: zstd: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("decode blob: unknown codec %d", blob[0])
	}
}
