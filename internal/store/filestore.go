package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"consignment-reconciliation-service/pkg/errors"
	"consignment-reconciliation-service/pkg/logger"

	"github.com/robfig/cron/v3"
)

const sessionFileExt = ".json"

// FileStore persists sessions as one JSON document per session under a
// directory. A background cron sweep removes expired documents so the
// directory does not grow without bound.
type FileStore struct {
	dir    string
	ttl    time.Duration
	logger logger.Logger

	mu    sync.Mutex
	cron  *cron.Cron
	clock func() time.Time
}

// FileStoreOptions configures a FileStore.
type FileStoreOptions struct {
	// TTL overrides DefaultTTL when positive.
	TTL time.Duration
	// SweepSchedule is a cron expression for the expiry sweep. Empty
	// disables the sweeper; expired sessions are then only removed
	// lazily on Load.
	SweepSchedule string
	Logger        logger.Logger
}

// NewFileStore opens (creating if needed) a directory-backed session store
// and starts its expiry sweeper.
func NewFileStore(dir string, opts FileStoreOptions) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.CategoryStore, errors.CodeStoreUnavailable,
			"cannot create session directory "+dir)
	}

	log := opts.Logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	fs := &FileStore{
		dir:    dir,
		ttl:    ttl,
		logger: log.WithComponent("filestore"),
		clock:  time.Now,
	}

	if opts.SweepSchedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(opts.SweepSchedule, fs.Sweep); err != nil {
			return nil, errors.Wrap(err, errors.CategoryStore, errors.CodeStoreUnavailable,
				"invalid sweep schedule "+opts.SweepSchedule)
		}
		c.Start()
		fs.cron = c
	}

	return fs, nil
}

func (fs *FileStore) path(id string) string {
	return filepath.Join(fs.dir, id+sessionFileExt)
}

// Save writes the session document, extending its TTL.
func (fs *FileStore) Save(ctx context.Context, session *Session) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	session.Touch(fs.clock().UTC(), fs.ttl)

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return errors.StoreError(errors.CodeStoreUnavailable, session.ID, err)
	}

	// Write-then-rename keeps readers from observing a partial document.
	tmp := fs.path(session.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.StoreError(errors.CodeStoreUnavailable, session.ID, err)
	}
	if err := os.Rename(tmp, fs.path(session.ID)); err != nil {
		os.Remove(tmp)
		return errors.StoreError(errors.CodeStoreUnavailable, session.ID, err)
	}

	fs.logger.WithFields(logger.Fields{
		"session_id": session.ID,
		"lines":      len(session.Table),
		"expires_at": session.ExpiresAt,
	}).Debug("Session saved")
	return nil
}

// Load reads a session, removing and rejecting it when past its TTL.
func (fs *FileStore) Load(ctx context.Context, id string) (*Session, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.StoreError(errors.CodeSessionNotFound, id, nil)
		}
		return nil, errors.StoreError(errors.CodeStoreUnavailable, id, err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, errors.StoreError(errors.CodeStoreUnavailable, id, err)
	}

	if session.Expired(fs.clock().UTC()) {
		os.Remove(fs.path(id))
		return nil, errors.StoreError(errors.CodeSessionExpired, id, nil)
	}
	return &session, nil
}

// Update rewrites an existing session. Missing sessions fail rather than
// being silently recreated.
func (fs *FileStore) Update(ctx context.Context, session *Session) error {
	fs.mu.Lock()
	exists := fileExists(fs.path(session.ID))
	fs.mu.Unlock()

	if !exists {
		return errors.StoreError(errors.CodeSessionNotFound, session.ID, nil)
	}
	return fs.Save(ctx, session)
}

// Delete removes a session document. Deleting a missing session is a no-op.
func (fs *FileStore) Delete(ctx context.Context, id string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.Remove(fs.path(id)); err != nil && !os.IsNotExist(err) {
		return errors.StoreError(errors.CodeStoreUnavailable, id, err)
	}
	return nil
}

// Sweep removes every expired session document. Runs on the cron schedule
// and may be called directly.
func (fs *FileStore) Sweep() {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		fs.logger.WithError(err).Warn("Session sweep cannot read directory")
		return
	}

	now := fs.clock().UTC()
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), sessionFileExt) {
			continue
		}
		path := filepath.Join(fs.dir, entry.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var session Session
		if err := json.Unmarshal(data, &session); err != nil || session.Expired(now) {
			// Undecodable documents are treated as expired.
			if os.Remove(path) == nil {
				removed++
			}
		}
	}

	if removed > 0 {
		fs.logger.WithField("removed", removed).Info("Expired sessions swept")
	}
}

// Close stops the expiry sweeper.
func (fs *FileStore) Close() error {
	if fs.cron != nil {
		fs.cron.Stop()
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
