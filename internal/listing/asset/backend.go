// Package asset keeps a listing's ordered image references consistent with the
// bytes held by the storage backends.
package asset

import "context"

// Kind identifies a storage backend.
type Kind string

const (
	KindUnknown Kind = ""
	KindLocal   Kind = "local"
	KindRemote  Kind = "s3"
)

// Upload is a single image as received from the client.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Backend stores image bytes. Put returns the public locator of the new object;
// Delete takes the backend-relative key produced by the Classifier.
type Backend interface {
	Kind() Kind
	Put(ctx context.Context, u Upload) (string, error)
	Delete(ctx context.Context, key string) error
}
