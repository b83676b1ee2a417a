package bqtools

import (
	"fmt"
	"strings"

	"golang.org/x/xerrors"
)

// Object is an object in Cloud Storage.
type Object struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// FullPath returns full path of storage object beginning with gs://.
func (o Object) FullPath() string {
	return fmt.Sprintf("gs://%s/%s", o.Bucket, o.Name)
}

// ParseObject parses a path like gs://bucket/path/to/object.
func ParseObject(path string) (Object, error) {
	rest, ok := strings.CutPrefix(path, "gs://")
	if !ok {
		return Object{}, xerrors.Errorf("not a gs:// path: %s", path)
	}

	bucket, name, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || name == "" {
		return Object{}, xerrors.Errorf("invalid object path: %s", path)
	}

	return Object{Bucket: bucket, Name: name}, nil
}
