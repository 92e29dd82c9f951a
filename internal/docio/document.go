package docio

import (
	"errors"
	"io/fs"
	"os"

	"ltxtrans/internal/logger"
	"ltxtrans/internal/types"
)

// Document is a decoded source file.
type Document struct {
	Path     string
	Text     string
	Encoding Encoding
	Size     int64
}

// ReadDocument reads and decodes path.
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, types.NewAppErrorWithDetails(types.ErrFileNotFound, "input file not found", path, err)
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrInvalidInput, "failed to read input file", err)
	}

	text, enc, err := Decode(data)
	if err != nil {
		return nil, types.NewAppErrorWithDetails(types.ErrInvalidInput, "failed to decode input file", path, err)
	}

	logger.Info("document read",
		logger.String("path", path),
		logger.String("encoding", string(enc)),
		logger.Int("bytes", len(data)))
	return &Document{Path: path, Text: text, Encoding: enc, Size: int64(len(data))}, nil
}

// WriteDocument encodes text and writes it to path. An existing file at
// path is saved to backups first unless backups is nil. A failed write
// leaves the old file in place.
func WriteDocument(path, text string, enc Encoding, backups *Backups) error {
	data, err := Encode(text, enc)
	if err != nil {
		return types.NewAppError(types.ErrInvalidInput, "failed to encode output", err)
	}

	if backups != nil {
		if _, err := os.Stat(path); err == nil {
			if _, err := backups.Save(path); err != nil {
				return types.NewAppError(types.ErrInternal, "failed to back up existing output", err)
			}
		}
	}

	if err := writeFileAtomic(path, data); err != nil {
		return types.NewAppError(types.ErrInternal, "failed to write output", err)
	}

	logger.Info("document written",
		logger.String("path", path),
		logger.String("encoding", string(enc)),
		logger.Int("bytes", len(data)))
	return nil
}
