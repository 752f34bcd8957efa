package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client the store uses. *s3.Client
// satisfies it; tests substitute a fake.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store spools files in an S3 bucket under a key prefix. Filename
// and content type travel as object metadata.
type S3Store struct {
	client  S3API
	bucket  string
	prefix  string
	maxSize int64
}

const (
	metaFilename    = "slidegate-filename"
	metaContentType = "slidegate-content-type"
)

// NewS3Store creates an S3Store. maxSize caps entry size in bytes;
// zero means no limit.
func NewS3Store(client S3API, bucket, prefix string, maxSize int64) *S3Store {
	return &S3Store{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		maxSize: maxSize,
	}
}

// Save spools a file to S3 and returns its spool ID.
func (s *S3Store) Save(ctx context.Context, filename, contentType string, size int64, r io.Reader) (string, error) {
	if s.maxSize > 0 && size > s.maxSize {
		return "", ErrTooLarge
	}

	// PutObject needs a bounded body; enforce the cap while reading.
	reader := r
	if s.maxSize > 0 {
		reader = io.LimitReader(r, s.maxSize+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	if s.maxSize > 0 && int64(len(body)) > s.maxSize {
		return "", ErrTooLarge
	}

	id := newSpoolID()
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(id)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			metaFilename:    filename,
			metaContentType: contentType,
		},
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Claim streams a spooled object and deletes it. The object is removed
// as soon as the claim succeeds; the returned reader keeps streaming
// the already-opened body.
func (s *S3Store) Claim(ctx context.Context, id string) (*File, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	}); err != nil {
		out.Body.Close()
		return nil, err
	}

	filename := out.Metadata[metaFilename]
	contentType := out.Metadata[metaContentType]
	if contentType == "" {
		contentType = aws.ToString(out.ContentType)
	}

	return &File{
		ID:          id,
		Filename:    filename,
		ContentType: contentType,
		Size:        aws.ToInt64(out.ContentLength),
		Reader:      out.Body,
	}, nil
}

// Cleanup deletes spool objects older than maxAge.
func (s *S3Store) Cleanup(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)

	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(s.prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return err
		}

		for _, obj := range out.Contents {
			if obj.LastModified == nil || !obj.LastModified.Before(cutoff) {
				continue
			}
			if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    obj.Key,
			}); err != nil {
				return err
			}
		}

		if out.NextContinuationToken == nil {
			return nil
		}
		token = out.NextContinuationToken
	}
}

func (s *S3Store) key(id string) string {
	return s.prefix + id
}
