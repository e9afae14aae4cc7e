// Package lock serializes workflow commands on a project.
// The lock lives at .vibe/lock.yaml; a crashed process leaves a lock
// behind, so staleness is decided by heartbeat age, not file presence.
package lock

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vibe-cli/vibe/internal/errors"
	"github.com/vibe-cli/vibe/internal/state"
)

// FileName is the name of the lock file inside the project state directory.
const FileName = "lock.yaml"

// DefaultTTL is how long a lock stays valid without a heartbeat.
const DefaultTTL = 60 * time.Second

// DefaultHeartbeatInterval is the interval between heartbeat updates.
const DefaultHeartbeatInterval = 10 * time.Second

// Lock is the on-disk lock record.
type Lock struct {
	Owner     string    `yaml:"owner"` // user@machine identifier
	Acquired  time.Time `yaml:"acquired"`
	Heartbeat time.Time `yaml:"heartbeat"`
	TTL       string    `yaml:"ttl"` // duration string
	PID       int       `yaml:"pid"`
}

// TTLDuration parses the TTL string, falling back to DefaultTTL.
func (l *Lock) TTLDuration() time.Duration {
	d, err := time.ParseDuration(l.TTL)
	if err != nil {
		return DefaultTTL
	}
	return d
}

// IsStale reports whether the heartbeat is older than the TTL.
func (l *Lock) IsStale() bool {
	return time.Since(l.Heartbeat) > l.TTLDuration()
}

// Info describes the current lock holder.
type Info struct {
	Owner     string
	Acquired  time.Time
	Heartbeat time.Time
	PID       int
}

// ProjectLocker guards a single project's state directory.
type ProjectLocker struct {
	root  string // project root
	owner string // user@machine
	mu    sync.Mutex
}

// DefaultOwner builds the user@hostname owner identifier.
func DefaultOwner() string {
	username := "unknown"
	if u, err := user.Current(); err == nil && u.Username != "" {
		username = u.Username
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("%s@%s", username, host)
}

// New creates a locker for the project rooted at root.
func New(root, owner string) *ProjectLocker {
	if owner == "" {
		owner = DefaultOwner()
	}
	return &ProjectLocker{root: root, owner: owner}
}

func (l *ProjectLocker) path() string {
	return filepath.Join(l.root, state.Dir, FileName)
}

func (l *ProjectLocker) read() (*Lock, error) {
	data, err := os.ReadFile(l.path())
	if err != nil {
		return nil, err
	}
	var lk Lock
	if err := yaml.Unmarshal(data, &lk); err != nil {
		return nil, fmt.Errorf("parse lock file: %w", err)
	}
	return &lk, nil
}

func (l *ProjectLocker) write(lk *Lock) error {
	data, err := yaml.Marshal(lk)
	if err != nil {
		return fmt.Errorf("marshal lock: %w", err)
	}

	path := l.path()
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write lock file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename lock file: %w", err)
	}
	return nil
}

// Acquire takes the project lock. A live lock held by another owner
// fails with CONCURRENT_ACCESS; a stale or own lock is claimed.
func (l *ProjectLocker) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	existing, err := l.read()
	if err == nil {
		if !existing.IsStale() && existing.Owner != l.owner {
			return errors.ErrConcurrentAccess(existing.Owner, existing.PID)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read lock: %w", err)
	}

	now := time.Now().UTC()
	return l.write(&Lock{
		Owner:     l.owner,
		Acquired:  now,
		Heartbeat: now,
		TTL:       DefaultTTL.String(),
		PID:       os.Getpid(),
	})
}

// Release removes the lock file. Releasing an absent lock is a no-op;
// releasing another owner's live lock is refused.
func (l *ProjectLocker) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	existing, err := l.read()
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read lock: %w", err)
	}
	if existing.Owner != l.owner && !existing.IsStale() {
		return errors.ErrConcurrentAccess(existing.Owner, existing.PID)
	}

	if err := os.Remove(l.path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}

// Heartbeat refreshes the heartbeat timestamp on a lock we own.
func (l *ProjectLocker) Heartbeat() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	existing, err := l.read()
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("lock not held")
		}
		return fmt.Errorf("read lock: %w", err)
	}
	if existing.Owner != l.owner {
		return errors.ErrConcurrentAccess(existing.Owner, existing.PID)
	}

	existing.Heartbeat = time.Now().UTC()
	return l.write(existing)
}

// Holder reports the current live lock holder, if any.
func (l *ProjectLocker) Holder() (bool, *Info, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lk, err := l.read()
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil, nil
		}
		return false, nil, fmt.Errorf("read lock: %w", err)
	}
	if lk.IsStale() {
		return false, nil, nil
	}
	return true, &Info{
		Owner:     lk.Owner,
		Acquired:  lk.Acquired,
		Heartbeat: lk.Heartbeat,
		PID:       lk.PID,
	}, nil
}

// HeartbeatRunner refreshes a held lock on a fixed interval.
type HeartbeatRunner struct {
	locker   *ProjectLocker
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewHeartbeatRunner creates a runner for locker.
func NewHeartbeatRunner(locker *ProjectLocker, interval time.Duration) *HeartbeatRunner {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &HeartbeatRunner{
		locker:   locker,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the heartbeat loop in a goroutine.
func (h *HeartbeatRunner) Start(ctx context.Context) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-h.stopCh:
				return
			case <-ticker.C:
				// Persistent heartbeat failures just let the lock go stale.
				_ = h.locker.Heartbeat()
			}
		}
	}()
}

// Stop stops the heartbeat loop and waits for it to finish.
func (h *HeartbeatRunner) Stop() {
	close(h.stopCh)
	h.wg.Wait()
}
