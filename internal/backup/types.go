// Package backup takes periodic snapshots of the catalog database and can
// ship each one to an S3-compatible bucket.
package backup

import (
	"context"
	"time"
)

// Config controls periodic catalog snapshots.
type Config struct {
	Enabled  bool
	Interval time.Duration
	LocalDir string
	KeepLast int

	// Bucket is optional; snapshots stay local when Bucket.URL is empty.
	Bucket S3Config
}

// Snapshotter copies the live catalog to a standalone database file.
type Snapshotter interface {
	DBPath() string
	ExportTo(dstPath string) error
}

// Uploader ships one snapshot off the host.
type Uploader interface {
	UploadFile(ctx context.Context, localPath string) error
}
