package store

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ContentType is the media type of class files.
const ContentType = "application/java-vm"

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads class files to a bucket under an optional key prefix.
type S3Store struct {
	client S3API
	bucket string
	prefix string
	opts   *options
}

// NewS3Store returns a store writing to bucket through client.
func NewS3Store(client S3API, bucket, prefix string, opts ...Option) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix, opts: collectOptions(opts...)}
}

// Key returns the object key a class name is uploaded to.
func (s *S3Store) Key(name string) string {
	return path.Join(s.prefix, name+ClassExtension)
}

// Put uploads data. The receipt id and digest are attached as object metadata.
func (s *S3Store) Put(ctx context.Context, name string, data []byte) (Receipt, error) {
	if err := ValidateName(name); err != nil {
		return Receipt{}, err
	}
	if s.bucket == "" {
		return Receipt{}, fmt.Errorf("store: s3 bucket is not set")
	}
	r, err := s.opts.receipt(name, data)
	if err != nil {
		return Receipt{}, err
	}
	key := s.Key(name)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: int64(len(data)),
		ContentType:   aws.String(ContentType),
		Metadata: map[string]string{
			"jasm-id":     r.ID.String(),
			"jasm-sha256": r.Digest,
		},
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("store: s3 put %s: %w", key, err)
	}
	r.Location = fmt.Sprintf("s3://%s/%s", s.bucket, key)
	s.opts.logStored(r)
	return r, nil
}
