package config

import (
	"context"

	"github.com/pkg/errors"

	"github.com/saraphi-hospital/infocms/internal/uploads"
)

// uploadsConf configures where uploaded files are kept.
//
// YAML example:
//
//	uploads:
//	  dir: ./uploads
//	  s3:
//	    bucket: hospital-cms
//	    region: eu-central-1
//	    public_url: https://cdn.example.org
type uploadsConf struct {
	Dir string            `yaml:"dir"`
	S3  *uploads.S3Config `yaml:"s3"`
}

var defaultUploadsConf = uploadsConf{
	Dir: "uploads",
}

func (c *uploadsConf) validate() error {
	if c.S3 != nil {
		if c.S3.Bucket == "" {
			return errors.New("error in uploads conf: s3.bucket must be set")
		}
		return nil
	}
	if c.Dir == "" {
		return errors.New("error in uploads conf: dir must be set when s3 is not configured")
	}
	return nil
}

// LocalDir returns the upload directory when files are kept on disk and an
// empty string when they go to S3
func (c uploadsConf) LocalDir() string {
	if c.S3 != nil {
		return ""
	}
	return c.Dir
}

// Store creates the configured uploads.Store
func (c uploadsConf) Store(ctx context.Context) (uploads.Store, error) {
	if c.S3 != nil {
		s, err := uploads.NewS3Store(ctx, *c.S3)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := uploads.NewFileSystemStore(c.Dir, "")
	if err != nil {
		return nil, err
	}
	return s, nil
}
