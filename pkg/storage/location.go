// Package storage resolves input and output locations that may live on the
// local filesystem, in Amazon S3 or in Google Cloud Storage.
//
// Remote objects are staged through local temporary files: the converter
// needs a seekable input for its two passes and writes its output in one
// sequential stream, so remote I/O reduces to a whole-object download before
// a run and a whole-object upload after it.
package storage

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/ajitpratap0/mrmr/pkg/errors"
)

// Scheme identifies where a location lives
type Scheme string

const (
	// SchemeFile is a local filesystem path
	SchemeFile Scheme = "file"
	// SchemeS3 is an Amazon S3 object, s3://bucket/key
	SchemeS3 Scheme = "s3"
	// SchemeGCS is a Google Cloud Storage object, gs://bucket/object
	SchemeGCS Scheme = "gs"
)

// Location is a parsed input or output address
type Location struct {
	Scheme Scheme
	// Bucket is empty for SchemeFile
	Bucket string
	// Key is the object key, or the cleaned filesystem path for SchemeFile
	Key string
	raw string
}

// ParseLocation parses a local path or an s3:// / gs:// URL
func ParseLocation(raw string) (Location, error) {
	if raw == "" {
		return Location{}, errors.New(errors.ErrorTypeConfig, "empty location")
	}

	scheme, rest, found := strings.Cut(raw, "://")
	if !found {
		return Location{Scheme: SchemeFile, Key: filepath.Clean(raw), raw: raw}, nil
	}

	switch Scheme(strings.ToLower(scheme)) {
	case SchemeFile:
		u, err := url.Parse(raw)
		if err != nil {
			return Location{}, errors.Wrap(err, errors.ErrorTypeConfig, "invalid file URL")
		}
		return Location{Scheme: SchemeFile, Key: filepath.Clean(u.Path), raw: raw}, nil
	case SchemeS3, SchemeGCS:
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" || key == "" {
			return Location{}, errors.New(errors.ErrorTypeConfig, "object URL needs a bucket and a key").
				WithDetail("location", raw)
		}
		return Location{Scheme: Scheme(strings.ToLower(scheme)), Bucket: bucket, Key: key, raw: raw}, nil
	default:
		return Location{}, errors.New(errors.ErrorTypeConfig, "unsupported location scheme").
			WithDetail("scheme", scheme)
	}
}

// IsRemote reports whether the location is an object store
func (l Location) IsRemote() bool {
	return l.Scheme != SchemeFile
}

// String returns the location as given by the user
func (l Location) String() string {
	if l.raw != "" {
		return l.raw
	}
	if l.Scheme == SchemeFile {
		return l.Key
	}
	return string(l.Scheme) + "://" + l.Bucket + "/" + l.Key
}

// Base returns the last path element, used to name staging files
func (l Location) Base() string {
	return filepath.Base(filepath.FromSlash(l.Key))
}
