package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentKey(t *testing.T) {
	assert.Equal(t, "donors/d1/doc1.pdf", DocumentKey("d1", "doc1", "Card.PDF"))
	assert.Equal(t, "donors/d1/doc1", DocumentKey("d1", "doc1", "noext"))
}

func TestSupabaseUploadAndDelete(t *testing.T) {
	var gotMethod, gotPath, gotAuth, gotType string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSupabaseStorage("proj", "secret", "donor-documents")
	s.baseURL = srv.URL

	err := s.Upload(context.Background(), "donors/d1/doc.pdf", bytes.NewReader([]byte("pdf")), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/storage/v1/object/donor-documents/donors/d1/doc.pdf", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "application/pdf", gotType)
	assert.Equal(t, []byte("pdf"), gotBody)

	require.NoError(t, s.Delete(context.Background(), "donors/d1/doc.pdf"))
	assert.Equal(t, http.MethodDelete, gotMethod)
}

func TestSupabaseUploadRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bucket not found", http.StatusNotFound)
	}))
	defer srv.Close()

	s := NewSupabaseStorage("proj", "secret", "missing")
	s.baseURL = srv.URL

	err := s.Upload(context.Background(), "k", bytes.NewReader(nil), "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

type fakeS3 struct {
	put    *s3.PutObjectInput
	delete *s3.DeleteObjectInput
	err    error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.put = in
	return &s3.PutObjectOutput{}, f.err
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.delete = in
	return &s3.DeleteObjectOutput{}, f.err
}

func TestS3Storage(t *testing.T) {
	client := &fakeS3{}
	s := NewS3Storage(client, "bloodlink-docs")

	require.NoError(t, s.Upload(context.Background(), "donors/d1/a.png", bytes.NewReader([]byte("x")), "image/png"))
	assert.Equal(t, "bloodlink-docs", aws.ToString(client.put.Bucket))
	assert.Equal(t, "donors/d1/a.png", aws.ToString(client.put.Key))
	assert.Equal(t, "image/png", aws.ToString(client.put.ContentType))

	require.NoError(t, s.Delete(context.Background(), "donors/d1/a.png"))
	assert.Equal(t, "donors/d1/a.png", aws.ToString(client.delete.Key))

	client.err = errors.New("access denied")
	assert.Error(t, s.Upload(context.Background(), "k", bytes.NewReader(nil), "image/png"))
}
