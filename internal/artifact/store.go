// Package artifact stores generated PDFs on local disk and expires them.
//
// The directory listing is the only index: an artifact exists exactly as long
// as its file does. Expiry happens two ways, a one-shot timer per artifact and
// a periodic sweep by modification time. Both may try to remove the same file;
// whichever loses sees "not found", which counts as success.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/alnah/go-html2pdf/internal/fileutil"
)

// Sentinel errors for store operations.
var (
	ErrInvalidName   = errors.New("invalid artifact name")
	ErrNotFound      = errors.New("artifact not found")
	ErrNameExhausted = errors.New("no free artifact name")
	ErrStoreDir      = errors.New("cannot prepare artifact directory")
)

// Deletion triggers reported to the Recorder.
const (
	TriggerDeferred = "deferred"
	TriggerSweep    = "sweep"
)

// maxNameAttempts bounds how many consecutive milliseconds Create tries when
// names collide.
const maxNameAttempts = 1000

// Recorder observes artifact lifecycle events.
type Recorder interface {
	ArtifactStored()
	ArtifactDeleted(trigger string)
}

type nopRecorder struct{}

func (nopRecorder) ArtifactStored()        {}
func (nopRecorder) ArtifactDeleted(string) {}

// Artifact is a stored PDF.
type Artifact struct {
	Name      string
	Path      string
	CreatedAt time.Time
}

// SweepResult summarizes one sweep pass.
type SweepResult struct {
	Scanned int
	Deleted int
	Failed  int
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for names and ages.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger for cleanup failures and sweep summaries.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the lifecycle observer.
func WithRecorder(r Recorder) Option {
	return func(s *Store) {
		if r != nil {
			s.recorder = r
		}
	}
}

// Store owns one directory of artifacts.
type Store struct {
	dir      string
	now      func() time.Time
	logger   *slog.Logger
	recorder Recorder

	mu     sync.Mutex
	timers map[*time.Timer]struct{}
	closed bool
}

// New creates the directory if needed and returns a Store rooted there.
func New(dir string, opts ...Option) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreDir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil { // #nosec G301 -- artifacts are served publicly
		return nil, fmt.Errorf("%w: %v", ErrStoreDir, err)
	}

	s := &Store{
		dir:      abs,
		now:      time.Now,
		logger:   slog.Default(),
		recorder: nopRecorder{},
		timers:   make(map[*time.Timer]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the absolute directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Name returns the artifact name for a creation instant.
func Name(t time.Time) string {
	return fmt.Sprintf("output-%d.pdf", t.UnixMilli())
}

// Create writes data under a fresh time-derived name. Existing files are
// never overwritten: on collision the next millisecond is tried.
func (s *Store) Create(data []byte) (Artifact, error) {
	created := s.now()
	for i := 0; i < maxNameAttempts; i++ {
		name := Name(created.Add(time.Duration(i) * time.Millisecond))
		path, err := fileutil.WriteExclusive(s.dir, name, data)
		if errors.Is(err, fileutil.ErrFileExists) {
			continue
		}
		if err != nil {
			return Artifact{}, fmt.Errorf("storing artifact: %w", err)
		}
		s.recorder.ArtifactStored()
		return Artifact{Name: name, Path: path, CreatedAt: created}, nil
	}
	return Artifact{}, fmt.Errorf("%w: %d attempts from %s", ErrNameExhausted, maxNameAttempts, Name(created))
}

// Write stores data under an explicit name and returns the absolute path.
// Unlike Create it overwrites an existing file of the same name. The HTTP
// server only uses Create; Write is for embedders that pick their own names.
func (s *Store) Write(name string, data []byte) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil { // #nosec G306 -- artifacts are served publicly
		return "", fmt.Errorf("writing artifact %s: %w", name, err)
	}
	s.recorder.ArtifactStored()
	return path, nil
}

// ScheduleDeletion removes path once delay has elapsed. Failures are logged
// and otherwise ignored. Scheduling after Close is a no-op.
func (s *Store) ScheduleDeletion(path string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, timer)
		s.mu.Unlock()

		s.remove(path, TriggerDeferred)
	})
	s.timers[timer] = struct{}{}
}

// Pending returns the number of scheduled deletions that have not fired.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Remove deletes path. A file that is already gone is not an error.
func (s *Store) Remove(path string) error {
	_, err := removeFile(path)
	return err
}

func removeFile(path string) (removed bool, err error) {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) remove(path, trigger string) bool {
	removed, err := removeFile(path)
	if err != nil {
		s.logger.Warn("artifact cleanup failed", "path", path, "trigger", trigger, "error", err)
		return false
	}
	if removed {
		s.recorder.ArtifactDeleted(trigger)
	}
	return true
}

// Sweep deletes every regular file whose age exceeds maxAge. An artifact
// exactly maxAge old is kept. Per-file failures are logged and counted.
// The error is non-nil only when the directory cannot be listed.
func (s *Store) Sweep(maxAge time.Duration) (SweepResult, error) {
	var res SweepResult

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return res, fmt.Errorf("listing %s: %w", s.dir, err)
	}

	now := s.now()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between listing and stat, most likely by a deferred deletion.
			if !errors.Is(err, fs.ErrNotExist) {
				s.logger.Warn("artifact stat failed", "name", entry.Name(), "error", err)
				res.Failed++
			}
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		res.Scanned++

		if now.Sub(info.ModTime()) <= maxAge {
			continue
		}
		if s.remove(filepath.Join(s.dir, entry.Name()), TriggerSweep) {
			res.Deleted++
		} else {
			res.Failed++
		}
	}

	return res, nil
}

// RunSweeper sweeps once immediately, then every interval until ctx is done.
func (s *Store) RunSweeper(ctx context.Context, interval, maxAge time.Duration) {
	s.sweepAndLog(maxAge)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepAndLog(maxAge)
		}
	}
}

func (s *Store) sweepAndLog(maxAge time.Duration) {
	res, err := s.Sweep(maxAge)
	if err != nil {
		s.logger.Error("artifact sweep failed", "dir", s.dir, "error", err)
		return
	}
	s.logger.Debug("artifact sweep finished",
		"scanned", res.Scanned,
		"deleted", res.Deleted,
		"failed", res.Failed,
	)
}

// Open resolves a public artifact name to its path.
func (s *Store) Open(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, name)
	if !fileutil.FileExists(path) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return path, nil
}

// Close stops all pending deletion timers. Files already stored stay on disk
// for the next process's sweep.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for timer := range s.timers {
		timer.Stop()
		delete(s.timers, timer)
	}
}

// URL returns the public retrieval URL for name under base.
func URL(base, name string) string {
	return strings.TrimRight(base, "/") + "/pdfs/" + url.PathEscape(name)
}

// validateName rejects names that could escape the directory, and hidden
// names, which are reserved for in-progress writes.
func validateName(name string) error {
	if err := fileutil.ValidateName(name); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: hidden name %q", ErrInvalidName, name)
	}
	return nil
}
