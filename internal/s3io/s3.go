// Package s3io stores receipt photos in S3 and issues presigned links to them
// on demand.
package s3io

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kylejryan/field-report-bot/internal/report"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

const scheme = "s3://"

// Putter is the subset of *s3.Client used for uploads.
type Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner defines the interface for presigning S3 requests.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Store is a report.ObjectStore backed by one bucket.
type Store struct {
	Client Putter
	Bucket string
	Log    *zap.Logger
	Now    func() time.Time
}

// New builds a Store over a real client.
func New(c *s3.Client, bucket string, log *zap.Logger) *Store {
	return &Store{Client: c, Bucket: bucket, Log: log, Now: time.Now}
}

// Upload puts the object with server-side encryption and returns its
// s3://bucket/key locator. Records keep the locator; links are presigned
// when the record is read.
func (s *Store) Upload(ctx context.Context, filename string, data []byte, contentType string) (report.UploadResult, error) {
	key := BuildKey(s.now(), filename)
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.Bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(data),
		ContentLength:        aws.Int64(int64(len(data))),
		ContentType:          aws.String(contentType),
		ServerSideEncryption: types.ServerSideEncryptionAwsKms,
	})
	if err != nil {
		return report.UploadResult{}, fmt.Errorf("s3: put %s: %w", key, err)
	}
	if s.Log != nil {
		s.Log.Debug("receipt stored", zap.String("bucket", s.Bucket), zap.String("key", key))
	}
	return report.UploadResult{Locator: Locator(s.Bucket, key)}, nil
}

// Locator formats the stable reference of an object.
func Locator(bucket, key string) string {
	return scheme + bucket + "/" + key
}

// ParseLocator splits an s3://bucket/key locator. ok is false for anything
// else, including the attachment sentinels and Drive links.
func ParseLocator(loc string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(loc, scheme)
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// Linker turns stored locators into short-lived download links.
type Linker struct {
	Presigner Presigner
	TTL       time.Duration
}

// NewLinker presigns with c's credentials.
func NewLinker(c *s3.Client, ttl time.Duration) *Linker {
	return &Linker{Presigner: s3.NewPresignClient(c), TTL: ttl}
}

// Link returns a presigned GET URL for an s3:// locator. Other references
// are returned unchanged.
func (l *Linker) Link(ctx context.Context, ref string) (string, error) {
	bucket, key, ok := ParseLocator(ref)
	if !ok {
		return ref, nil
	}
	return PresignGet(ctx, l.Presigner, bucket, key, l.TTL)
}

// PresignGet generates a presigned URL for downloading an object.
func PresignGet(ctx context.Context, p Presigner, bucket, key string, ttl time.Duration) (string, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	req, err := p.PresignGetObject(ctx, input, func(o *s3.PresignOptions) { o.Expires = ttl })
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
