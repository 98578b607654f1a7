package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"datatime/internal/config"
)

// S3Scheme prefixes input names that live in an S3 bucket.
const S3Scheme = "s3://"

// S3API is the subset of the S3 client used by S3Opener.
type S3API interface {
	manager.DownloadAPIClient
	s3.ListObjectsV2APIClient
}

// S3Opener reads body files from S3 objects. Objects are downloaded in
// parallel ranged requests into memory before parsing.
type S3Opener struct {
	client     S3API
	downloader *manager.Downloader
}

var _ Opener = (*S3Opener)(nil)

// NewS3Opener wraps an existing client.
func NewS3Opener(client S3API) *S3Opener {
	return &S3Opener{
		client:     client,
		downloader: manager.NewDownloader(client),
	}
}

// NewS3OpenerFromConfig builds an S3 client from the default AWS credential
// chain, overridden by any values set in cfg.
func NewS3OpenerFromConfig(ctx context.Context, cfg config.S3Config) (*S3Opener, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewS3Opener(client), nil
}

// ParseS3URL splits "s3://bucket/key" into bucket and key. The key may be
// empty or end in '/', naming a prefix.
func ParseS3URL(name string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(name, S3Scheme)
	if !ok {
		return "", "", fmt.Errorf("not an s3 url: %q", name)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("s3 url has no bucket: %q", name)
	}
	return bucket, key, nil
}

// IsS3 reports whether name is an s3:// url.
func IsS3(name string) bool {
	return strings.HasPrefix(name, S3Scheme)
}

// Open downloads the object named by an s3:// url.
func (o *S3Opener) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	bucket, key, err := ParseS3URL(name)
	if err != nil {
		return nil, err
	}
	if key == "" || strings.HasSuffix(key, "/") {
		return nil, fmt.Errorf("s3 url names a prefix, not an object: %s", name)
	}

	buf := manager.NewWriteAtBuffer(nil)
	if _, err := o.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return nil, fmt.Errorf("downloading %s: %w", name, err)
	}
	return io.NopCloser(bytes.NewReader(buf.Bytes())), nil
}

// Expand returns name itself when it names an object, and the sorted object
// urls under it when it ends in '/' or names only a bucket.
func (o *S3Opener) Expand(ctx context.Context, name string, exclude *ExcludeMatcher) ([]string, error) {
	bucket, prefix, err := ParseS3URL(name)
	if err != nil {
		return nil, err
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		return []string{name}, nil
	}

	var names []string
	p := s3.NewListObjectsV2Paginator(o.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", name, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == "" || strings.HasSuffix(key, "/") {
				continue
			}
			if exclude.Excluded(strings.TrimPrefix(key, prefix)) {
				continue
			}
			names = append(names, S3Scheme+bucket+"/"+key)
		}
	}
	// ListObjectsV2 returns keys in ascending order already.
	return names, nil
}
