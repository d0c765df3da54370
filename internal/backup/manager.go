package backup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const (
	defaultInterval = 6 * time.Hour
	defaultKeepLast = 24

	filePrefix  = "portal-catalog-"
	fileSuffix  = ".duckdb"
	stampLayout = "20060102-150405.000"
)

// Manager snapshots the catalog on a fixed interval and keeps the newest
// KeepLast files in LocalDir.
type Manager struct {
	store    Snapshotter
	cfg      Config
	uploader Uploader
	now      func() time.Time
}

// NewManager validates cfg. It returns nil, nil when snapshots are disabled.
func NewManager(store Snapshotter, cfg Config) (*Manager, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if store == nil {
		return nil, errors.New("backup: nil snapshotter")
	}
	if strings.TrimSpace(store.DBPath()) == "" {
		return nil, errors.New("backup: db-path is empty (in-memory catalog)")
	}
	if strings.TrimSpace(cfg.LocalDir) == "" {
		return nil, errors.New("backup: snapshot-dir is required when snapshots are enabled")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.KeepLast <= 0 {
		cfg.KeepLast = defaultKeepLast
	}
	if err := os.MkdirAll(cfg.LocalDir, 0755); err != nil {
		return nil, fmt.Errorf("backup: create snapshot-dir: %w", err)
	}

	m := &Manager{store: store, cfg: cfg, now: time.Now}
	if strings.TrimSpace(cfg.Bucket.URL) != "" {
		u, err := NewS3Uploader(cfg.Bucket)
		if err != nil {
			return nil, fmt.Errorf("backup: %w", err)
		}
		m.uploader = u
	}
	return m, nil
}

// Dir returns the local snapshot directory.
func (m *Manager) Dir() string { return m.cfg.LocalDir }

// Uploads reports whether snapshots are also sent to a bucket.
func (m *Manager) Uploads() bool { return m.uploader != nil }

// Run snapshots once right away and then every Interval until ctx is done.
// A failed snapshot is logged and retried on the next tick.
func (m *Manager) Run(ctx context.Context) error {
	m.runLogged(ctx, "startup")

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.runLogged(ctx, "periodic")
		}
	}
}

func (m *Manager) runLogged(ctx context.Context, kind string) {
	if _, err := m.RunOnce(ctx); err != nil && ctx.Err() == nil {
		log.Printf("backup: %s snapshot failed: %v", kind, err)
	}
}

// RunOnce writes one snapshot, uploads it when a bucket is set and prunes
// old local copies. It returns the snapshot path.
func (m *Manager) RunOnce(ctx context.Context) (string, error) {
	name := filePrefix + m.now().UTC().Format(stampLayout) + fileSuffix
	localPath := filepath.Join(m.cfg.LocalDir, name)

	if err := m.store.ExportTo(localPath); err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	log.Printf("backup: wrote %s", localPath)

	if m.uploader != nil {
		if err := m.uploader.UploadFile(ctx, localPath); err != nil {
			return localPath, fmt.Errorf("upload: %w", err)
		}
		log.Printf("backup: uploaded %s", name)
	}

	if err := prune(m.cfg.LocalDir, m.cfg.KeepLast); err != nil {
		return localPath, fmt.Errorf("prune: %w", err)
	}
	return localPath, nil
}

// prune deletes all but the newest keep snapshots. Names embed a UTC stamp,
// so lexical order is chronological.
func prune(dir string, keep int) error {
	if keep <= 0 {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return err
	}
	if len(matches) <= keep {
		return nil
	}
	slices.Sort(matches)
	for _, old := range matches[:len(matches)-keep] {
		if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
