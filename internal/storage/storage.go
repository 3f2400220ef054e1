// Package storage opens download destinations as gocloud buckets.
//
// A destination is either a bucket URL (s3://, gs://, mem://, file://) or a
// plain local directory, which is opened through fileblob and created if it
// does not exist.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"
)

// IsURL reports whether location names a bucket URL rather than a path.
func IsURL(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	// Windows drive letters parse as one-letter schemes.
	return len(u.Scheme) > 1 && strings.Contains(location, "://")
}

// LocalDir returns the local directory backing location, or "" when the
// location is a remote bucket.
func LocalDir(location string) string {
	if !IsURL(location) {
		return location
	}
	u, err := url.Parse(location)
	if err != nil || u.Scheme != "file" {
		return ""
	}
	return u.Path
}

// Open opens location as a bucket. Local directories are created first.
func Open(ctx context.Context, location string) (*blob.Bucket, error) {
	if location == "" {
		return nil, errors.New("storage: empty location")
	}

	bucketURL := location
	if !IsURL(location) {
		abs, err := filepath.Abs(location)
		if err != nil {
			return nil, fmt.Errorf("storage: resolve %s: %w", location, err)
		}
		if err := os.MkdirAll(abs, 0755); err != nil {
			return nil, fmt.Errorf("storage: create %s: %w", abs, err)
		}
		// Plain directories hold only the payload files, no .attrs sidecars.
		bucketURL = (&url.URL{
			Scheme:   "file",
			Path:     filepath.ToSlash(abs),
			RawQuery: "metadata=skip",
		}).String()
	} else if dir := LocalDir(location); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("storage: create %s: %w", dir, err)
		}
	}

	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", location, err)
	}
	return bucket, nil
}

// IsNotExist reports whether err means the object does not exist.
func IsNotExist(err error) bool {
	return gcerrors.Code(err) == gcerrors.NotFound
}
