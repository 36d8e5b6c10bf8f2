package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	put     *s3.PutObjectInput
	body    string
	deleted string
	err     error
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.put = in
	data, _ := io.ReadAll(in.Body)
	f.body = string(data)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = aws.ToString(in.Key)
	return &s3.DeleteObjectOutput{}, f.err
}

func TestUploadReturnsPublicURL(t *testing.T) {
	objects := &fakeObjects{}
	store := NewS3ImageStore(objects, "needs-bucket", "ap-northeast-1", "https://cdn.example.tw/")

	got, err := store.Upload(context.Background(), "needs/abc.png", "image/png", strings.NewReader("png"))
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.tw/needs/abc.png", got)
	assert.Equal(t, "needs-bucket", aws.ToString(objects.put.Bucket))
	assert.Equal(t, "needs/abc.png", aws.ToString(objects.put.Key))
	assert.Equal(t, "image/png", aws.ToString(objects.put.ContentType))
	assert.Equal(t, "png", objects.body)
}

func TestUploadDefaultsToBucketEndpoint(t *testing.T) {
	store := NewS3ImageStore(&fakeObjects{}, "needs-bucket", "ap-northeast-1", "")

	got, err := store.Upload(context.Background(), "needs/a b.jpg", "image/jpeg", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "https://needs-bucket.s3.ap-northeast-1.amazonaws.com/needs/a%20b.jpg", got)
}

func TestUploadErrors(t *testing.T) {
	_, err := NewS3ImageStore(&fakeObjects{}, "", "", "").Upload(context.Background(), "k", "image/png", strings.NewReader(""))
	require.ErrorIs(t, err, ErrNoBucket)

	boom := errors.New("boom")
	_, err = NewS3ImageStore(&fakeObjects{err: boom}, "b", "r", "").Upload(context.Background(), "k", "image/png", strings.NewReader(""))
	require.ErrorIs(t, err, boom)
}

func TestDelete(t *testing.T) {
	objects := &fakeObjects{}
	require.NoError(t, NewS3ImageStore(objects, "b", "r", "").Delete(context.Background(), "needs/x.png"))
	assert.Equal(t, "needs/x.png", objects.deleted)
}

func TestRemoveOnlyOwnedURLs(t *testing.T) {
	objects := &fakeObjects{}
	store := NewS3ImageStore(objects, "b", "r", "https://cdn.example.tw")

	require.NoError(t, store.Remove(context.Background(), "https://images.unsplash.com/photo-1"))
	assert.Empty(t, objects.deleted)

	require.NoError(t, store.Remove(context.Background(), "https://cdn.example.tw/needs/a%20b.jpg"))
	assert.Equal(t, "needs/a b.jpg", objects.deleted)
}
