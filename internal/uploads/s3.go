package uploads

import (
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

// S3Config configures an S3Store
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Prefix    string `yaml:"prefix"`
	PublicURL string `yaml:"public_url"`
	PathStyle bool   `yaml:"path_style"`
}

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (
		*s3.DeleteObjectOutput, error,
	)
}

// S3Store keeps uploads in an S3 compatible bucket
type S3Store struct {
	client    s3API
	bucket    string
	prefix    string
	publicURL string
}

// NewS3Store creates an S3Store from conf. Static credentials are used when
// set, otherwise the default AWS credential chain.
func NewS3Store(ctx context.Context, conf S3Config) (*S3Store, error) {
	if conf.Bucket == "" {
		return nil, errors.New("s3 upload storage requires a bucket")
	}
	if conf.PublicURL == "" {
		return nil, errors.New("s3 upload storage requires a public_url")
	}
	var opts []func(*config.LoadOptions) error
	if conf.Region != "" {
		opts = append(opts, config.WithRegion(conf.Region))
	}
	if conf.AccessKey != "" {
		opts = append(
			opts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(conf.AccessKey, conf.SecretKey, ""),
			),
		)
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "could not load aws config")
	}
	client := s3.NewFromConfig(
		cfg, func(o *s3.Options) {
			if conf.Endpoint != "" {
				o.BaseEndpoint = aws.String(conf.Endpoint)
			}
			o.UsePathStyle = conf.PathStyle
		},
	)
	return newS3Store(client, conf), nil
}

func newS3Store(client s3API, conf S3Config) *S3Store {
	prefix := strings.Trim(conf.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3Store{
		client:    client,
		bucket:    conf.Bucket,
		prefix:    prefix,
		publicURL: strings.TrimSuffix(conf.PublicURL, "/"),
	}
}

// Save implements Store
func (s *S3Store) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (
	string, error,
) {
	key := s.prefix + name
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if size > 0 {
		in.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", errors.Wrap(err, "could not upload object")
	}
	return s.publicURL + "/" + key, nil
}

// Delete implements Store
func (s *S3Store) Delete(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.publicURL+"/")
	if !ok || !strings.HasPrefix(key, s.prefix) {
		return nil
	}
	_, err := s.client.DeleteObject(
		ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		},
	)
	return errors.Wrap(err, "could not delete object")
}
