package objectstore

import (
	"bytes"
	"compress/gzip"
	"io"

	"sravz-backend/pkg/apperrors"
)

// Compress gzips data at the default compression level.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, apperrors.Wrap(apperrors.StoreUnavailable, "gzip write failed", err)
	}
	if err := zw.Close(); err != nil {
		return nil, apperrors.Wrap(apperrors.StoreUnavailable, "gzip close failed", err)
	}
	return buf.Bytes(), nil
}

// Decompress gunzips data. Bodies that do not start with the gzip magic
// bytes are returned unchanged: stored objects are a mix of compressed and
// raw JSON and the caller cannot always know which it is fetching.
func Decompress(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.StoreUnavailable, "gzip reader failed", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.StoreUnavailable, "gzip decode failed", err)
	}
	return out, nil
}
