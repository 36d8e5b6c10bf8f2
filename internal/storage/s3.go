package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var ErrNoBucket = errors.New("s3 bucket not configured")

// ObjectAPI is the part of *s3.Client used for need images.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3ImageStore uploads need images and returns the URL they are served from.
type S3ImageStore struct {
	client        ObjectAPI
	bucket        string
	publicBaseURL string
}

// NewS3ImageStore serves objects from publicBaseURL when set, otherwise
// from the bucket's virtual hosted endpoint in region.
func NewS3ImageStore(client ObjectAPI, bucket, region, publicBaseURL string) *S3ImageStore {
	base := strings.TrimSuffix(strings.TrimSpace(publicBaseURL), "/")
	if base == "" && bucket != "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}

	return &S3ImageStore{client: client, bucket: bucket, publicBaseURL: base}
}

func (s *S3ImageStore) Upload(ctx context.Context, name, contentType string, body io.Reader) (string, error) {
	if s.bucket == "" {
		return "", ErrNoBucket
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(name),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}

	return s.URL(name), nil
}

func (s *S3ImageStore) Delete(ctx context.Context, name string) error {
	if s.bucket == "" {
		return ErrNoBucket
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}

	return nil
}

// Remove deletes the object behind imageURL. URLs outside the store's base
// are left alone.
func (s *S3ImageStore) Remove(ctx context.Context, imageURL string) error {
	escaped, ok := strings.CutPrefix(imageURL, s.publicBaseURL+"/")
	if s.publicBaseURL == "" || !ok || escaped == "" {
		return nil
	}

	name, err := url.PathUnescape(escaped)
	if err != nil {
		return fmt.Errorf("failed to parse image url %s: %w", imageURL, err)
	}

	return s.Delete(ctx, name)
}

func (s *S3ImageStore) URL(name string) string {
	segments := strings.Split(name, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.publicBaseURL + "/" + strings.Join(segments, "/")
}
