package upload

import (
	"context"
	"io"
	"net/http"

	"github.com/quocanhngo/firechat/pkg/storage"
)

// ObjectStore is the subset of the object storage the relay needs
type ObjectStore interface {
	Put(ctx context.Context, fileName string, body io.Reader, size int64) (*storage.Object, error)
}

// StorageRelay writes files straight to object storage
type StorageRelay struct {
	store   ObjectStore
	maxSize int64
}

func NewStorageRelay(store ObjectStore, maxSize int64) *StorageRelay {
	return &StorageRelay{store: store, maxSize: maxSize}
}

func (r *StorageRelay) Upload(ctx context.Context, file File) (*Result, error) {
	if file.Name == "" {
		return nil, failure(http.StatusBadRequest, "file name is required")
	}
	if r.maxSize > 0 && file.Size > r.maxSize {
		return nil, failure(http.StatusRequestEntityTooLarge, "file too large (max %d MB)", r.maxSize>>20)
	}

	obj, err := r.store.Put(ctx, file.Name, file.Body, file.Size)
	if err != nil {
		return nil, failure(http.StatusBadGateway, "%v", err)
	}
	return &Result{URL: obj.URL, Name: obj.FileName, Size: obj.FileSize}, nil
}
