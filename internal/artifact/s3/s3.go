// Package s3 implements artifact.Store on Amazon S3 or any S3-compatible
// service (MinIO, localstack). It backs the shared-store mode where several
// pipeline runs on different hosts feed one bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/vk/pipegridgo/internal/artifact"
)

// encodingMetaKey is the object metadata key carrying the dataset encoding.
// The SDK lower-cases user metadata keys on reads.
const encodingMetaKey = "encoding"

// Config holds the connection settings for an S3-backed store.
type Config struct {
	Bucket         string
	Region         string
	Endpoint       string // non-empty for S3-compatible services
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
}

// Store implements artifact.Store over a single S3 bucket. Object keys are
// the fully-qualified dataset names; immutability comes from conditional
// writes (If-None-Match: *), so two producers racing on one key resolve at
// the service, not in this process.
type Store struct {
	client *awss3.Client
	bucket string
}

// New creates an S3 store from the given config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("artifact: load aws config: %w", err)
	}

	var s3Opts []func(*awss3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.UsePathStyle = true
		})
	}

	client := awss3.NewFromConfig(awsCfg, s3Opts...)
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

func objectKey(ref artifact.Ref) string {
	return path.Join(ref.Prefix, ref.Name)
}

// Put uploads the payload with a conditional write so an existing key is
// never overwritten.
func (s *Store) Put(ctx context.Context, ref artifact.Ref, payload []byte, enc artifact.Encoding) (artifact.Ref, error) {
	ref, err := ref.Normalize()
	if err != nil {
		return artifact.Ref{}, err
	}

	_, err = s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey(ref)),
		Body:        bytes.NewReader(payload),
		IfNoneMatch: aws.String("*"),
		Metadata:    map[string]string{encodingMetaKey: string(enc)},
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
			return artifact.Ref{}, fmt.Errorf("put %q: %w", ref, artifact.ErrDuplicateKey)
		}
		return artifact.Ref{}, fmt.Errorf("put %q: %w", ref, err)
	}
	return ref, nil
}

// Get downloads the payload and reads the encoding tag from object metadata.
func (s *Store) Get(ctx context.Context, ref artifact.Ref) ([]byte, artifact.Encoding, error) {
	ref, err := ref.Normalize()
	if err != nil {
		return nil, "", err
	}

	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(ref)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, "", fmt.Errorf("get %q: %w", ref, artifact.ErrNotFound)
		}
		return nil, "", fmt.Errorf("get %q: %w", ref, err)
	}
	defer out.Body.Close()

	payload, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("get %q: read body: %w", ref, err)
	}

	enc := artifact.EncodingOpaque
	if tag, ok := out.Metadata[encodingMetaKey]; ok && tag != "" {
		enc = artifact.Encoding(tag)
	}
	return payload, enc, nil
}

// List returns the direct children of prefix using a delimited listing, so
// nested prefixes are excluded the same way every other backend excludes
// them.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	prefix = artifact.CleanPrefix(prefix)
	keyPrefix := ""
	if prefix != "" {
		keyPrefix = prefix + "/"
	}

	input := &awss3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(keyPrefix),
		Delimiter: aws.String("/"),
	}

	var names []string
	for {
		out, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("list %q: %w", prefix, err)
		}
		for _, obj := range out.Contents {
			names = append(names, strings.TrimPrefix(aws.ToString(obj.Key), keyPrefix))
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		input.ContinuationToken = out.NextContinuationToken
	}

	sort.Strings(names)
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// Exists checks the object with a HEAD request.
func (s *Store) Exists(ctx context.Context, ref artifact.Ref) (bool, error) {
	ref, err := ref.Normalize()
	if err != nil {
		return false, err
	}

	_, err = s.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(ref)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("exists %q: %w", ref, err)
	}
	return true, nil
}

// Size reads the object length from a HEAD request.
func (s *Store) Size(ctx context.Context, ref artifact.Ref) (int64, error) {
	ref, err := ref.Normalize()
	if err != nil {
		return 0, err
	}

	out, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(ref)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return 0, fmt.Errorf("size %q: %w", ref, artifact.ErrNotFound)
		}
		return 0, fmt.Errorf("size %q: %w", ref, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

// Close is a no-op; the SDK client holds no connections that need closing.
func (s *Store) Close() error { return nil }

// compile-time check
var _ artifact.Store = (*Store)(nil)
