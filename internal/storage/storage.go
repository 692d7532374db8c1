package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
)

// Bucket stores donor verification documents.
type Bucket interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
}

// DocumentKey places a donor's upload under its own prefix.
func DocumentKey(donorID, documentID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("donors/%s/%s%s", donorID, documentID, ext)
}
