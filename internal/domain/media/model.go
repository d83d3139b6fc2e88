package media

import (
	"fmt"
	"strings"
)

// Location is a bucket plus an optional key prefix, configured as s3://bucket/prefix.
type Location struct {
	Bucket string
	Prefix string
}

// ParseLocation parses "s3://bucket/some/prefix", "bucket/some/prefix" or "bucket".
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "s3://")
	raw = strings.Trim(raw, "/")
	if raw == "" {
		return Location{}, fmt.Errorf("empty storage location")
	}
	bucket, prefix, _ := strings.Cut(raw, "/")
	return Location{Bucket: bucket, Prefix: strings.Trim(prefix, "/")}, nil
}

// Key joins the prefix and name into an object key.
func (l Location) Key(name string) string {
	name = strings.TrimPrefix(name, "/")
	if l.Prefix == "" {
		return name
	}
	return l.Prefix + "/" + name
}

func (l Location) String() string {
	if l.Prefix == "" {
		return "s3://" + l.Bucket
	}
	return "s3://" + l.Bucket + "/" + l.Prefix
}

// Object is an image persisted in blob storage.
type Object struct {
	Bucket   string `json:"bucket"`
	Key      string `json:"key"`
	MimeType string `json:"mime"`
	Bytes    int64  `json:"bytes"`
}
