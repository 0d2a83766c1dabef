// Package flatfile implements the JSON-array user store kept under data/.
//
// The whole array is the unit of persistence: a UserFile is read completely,
// modified in memory and rewritten completely. An advisory lock on the file
// itself is held from Open until Close so cooperating writers cannot
// interleave their read-modify-write cycles. Nothing is created on disk
// unless Save succeeds.
package flatfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

var (
	// ErrInvalidJSON is returned when the file is not a JSON array of objects.
	ErrInvalidJSON = errors.New("flatfile: invalid JSON")
	// ErrReadOnly is returned by Save on a file opened with OpenReadOnly.
	ErrReadOnly = errors.New("flatfile: opened read-only")
	// ErrClosed is returned by Save after Close.
	ErrClosed = errors.New("flatfile: file closed")
)

const lockRetryDelay = 50 * time.Millisecond

// UserFile is a locked, parsed user file.
type UserFile struct {
	path     string
	lock     *flock.Flock
	readOnly bool
	closed   bool

	// Records holds the parsed array. Null elements are kept as nil.
	Records []*Record
}

// Open takes an exclusive lock on path and parses it. It waits for the lock
// until ctx is done. The lock is released before Open returns an error.
func Open(ctx context.Context, path string) (*UserFile, error) {
	return open(ctx, path, false)
}

// OpenReadOnly is like Open but takes a shared lock; Save is refused.
func OpenReadOnly(ctx context.Context, path string) (*UserFile, error) {
	return open(ctx, path, true)
}

func open(ctx context.Context, path string, readOnly bool) (*UserFile, error) {
	for {
		before, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		lock, err := acquire(ctx, path, readOnly)
		if err != nil {
			return nil, err
		}

		// Save replaces the file by rename, so a lock taken while another
		// writer held it may sit on the old inode.
		after, err := os.Stat(path)
		if err != nil {
			_ = lock.Unlock()
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if !os.SameFile(before, after) {
			_ = lock.Unlock()
			continue
		}

		f, err := parse(path, lock, readOnly)
		if err != nil {
			_ = lock.Unlock()
			return nil, err
		}
		return f, nil
	}
}

func acquire(ctx context.Context, path string, readOnly bool) (*flock.Flock, error) {
	// Opening read-only never creates or modifies anything on disk.
	lock := flock.New(path, flock.SetFlag(os.O_RDONLY))

	var (
		locked bool
		err    error
	)
	if readOnly {
		locked, err = lock.TryRLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = lock.TryLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("lock %s: not acquired", path)
	}
	return lock, nil
}

func parse(path string, lock *flock.Flock, readOnly bool) (*UserFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var records []*Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidJSON, path, err)
	}

	return &UserFile{
		path:     path,
		lock:     lock,
		readOnly: readOnly,
		Records:  records,
	}, nil
}

// Path returns the file path.
func (f *UserFile) Path() string {
	return f.path
}

// FindByEmail returns the first record whose "email" string equals email,
// and its index. It returns nil, -1 when none matches.
func (f *UserFile) FindByEmail(email string) (*Record, int) {
	for i, rec := range f.Records {
		if rec == nil {
			continue
		}
		if v, ok := rec.String("email"); ok && v == email {
			return rec, i
		}
	}
	return nil, -1
}

// Save rewrites the whole file with two-space indentation. The new content
// is written to a temporary file in the same directory and renamed over the
// original, so a failed write never leaves a truncated file behind.
func (f *UserFile) Save() error {
	if f.closed {
		return ErrClosed
	}
	if f.readOnly {
		return ErrReadOnly
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f.Records); err != nil {
		return fmt.Errorf("encode %s: %w", f.path, err)
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(f.path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}

// Close releases the lock. It is safe to call more than once.
func (f *UserFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return f.lock.Unlock()
}
