package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/report-explainer/internal/logging"
	"github.com/example/report-explainer/internal/report"
)

// TransientStore keeps each uploaded report on disk for the duration of one
// request.
type TransientStore struct {
	dir    string
	logger *zap.Logger
}

// NewTransientStore creates the scratch directory if needed.
func NewTransientStore(dir string, logger *zap.Logger) (*TransientStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, report.NewStorageError(fmt.Errorf("create upload directory: %w", err))
	}
	return &TransientStore{dir: dir, logger: logger.Named("transient_store")}, nil
}

// Dir returns the scratch directory.
func (s *TransientStore) Dir() string {
	return s.dir
}

// Acquire streams src to a unique file in the scratch directory. A partially
// written file is removed before the error is returned.
func (s *TransientStore) Acquire(requestID, originalName string, src io.Reader) (report.Descriptor, error) {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	path := filepath.Join(s.dir, uuid.NewString()+safeExt(originalName))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return report.Descriptor{}, report.NewStorageError(fmt.Errorf("create upload file: %w", err))
	}

	size, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			logging.WithOperation(s.logger, "storage.acquire", requestID).Warn("failed to remove partial upload", zap.Error(rmErr), zap.String("path", path))
		}
		return report.Descriptor{}, report.NewStorageError(fmt.Errorf("write upload file: %w", err))
	}

	logging.WithOperation(s.logger, "storage.acquire", requestID).Debug("upload stored",
		zap.String("path", path), zap.String("original_name", originalName), zap.Int64("size_bytes", size))

	return report.Descriptor{
		RequestID:    requestID,
		StoragePath:  path,
		OriginalName: originalName,
		SizeBytes:    size,
	}, nil
}

// Release deletes the descriptor's file. A file that is already gone means
// cleanup happened elsewhere; it is logged and not reported.
func (s *TransientStore) Release(desc report.Descriptor) error {
	opLogger := logging.WithOperation(s.logger, "storage.release", desc.RequestID)
	err := os.Remove(desc.StoragePath)
	switch {
	case err == nil:
		opLogger.Debug("upload removed", zap.String("path", desc.StoragePath))
		return nil
	case errors.Is(err, fs.ErrNotExist):
		opLogger.Warn("upload already removed", zap.String("path", desc.StoragePath))
		return nil
	default:
		opLogger.Error("failed to remove upload", zap.Error(err), zap.String("path", desc.StoragePath))
		return report.NewStorageError(fmt.Errorf("remove upload file: %w", err))
	}
}

// safeExt keeps a short alphanumeric extension from the client's file name so
// the engine can still sniff the format; anything else is dropped.
func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
