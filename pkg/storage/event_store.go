package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/autostack/autostack/pkg/domain/events"
	"github.com/felixgeelhaar/fortify/retry"
	"github.com/google/uuid"
)

// lockStale is the age after which a lock file is taken to belong to a
// writer that died.
const lockStale = 10 * time.Second

var errLogLocked = errors.New("event log is locked")

// FileEventStore keeps a project's events as hash-chained JSON lines in
// the state directory. Several processes may append to the same log
// (run and watch); appends are serialised through a lock file.
type FileEventStore struct {
	mu       sync.RWMutex
	dir      string
	lockWait retry.Config
}

var _ events.EventStore = (*FileEventStore)(nil)

// NewFileEventStore opens the log in dir. The directory is created on
// first write so opening a store never initialises a project.
func NewFileEventStore(dir string) (*FileEventStore, error) {
	s := &FileEventStore{
		dir: dir,
		lockWait: retry.Config{
			MaxAttempts:   100,
			InitialDelay:  5 * time.Millisecond,
			MaxDelay:      100 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
			IsRetryable:   func(err error) bool { return errors.Is(err, errLogLocked) },
		},
	}
	if _, err := s.read(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileEventStore) path() string {
	return filepath.Join(s.dir, EventsFile)
}

func (s *FileEventStore) lockPath() string {
	return s.path() + ".lock"
}

// lock creates the lock file, waiting for other writers. The returned
// func releases it.
func (s *FileEventStore) lock() (func(), error) {
	path := s.lockPath()
	_, err := retry.New[struct{}](s.lockWait).Do(context.Background(), func(context.Context) (struct{}, error) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if errors.Is(err, os.ErrExist) {
			if info, serr := os.Stat(path); serr == nil && time.Since(info.ModTime()) > lockStale {
				_ = os.Remove(path)
			}
			return struct{}{}, errLogLocked
		}
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, f.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("lock events file: %w", err)
	}
	return func() { _ = os.Remove(path) }, nil
}

// Append fills in a missing id or timestamp, links event to the last one
// in the file and writes it.
func (s *FileEventStore) Append(event *events.BaseEvent) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	prev, err := s.tailHash()
	if err != nil {
		return err
	}
	event.PrevHash = prev
	event.Hash = event.CalculateHash()

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	f, err := os.OpenFile(s.path(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open events file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close events file: %w", cerr)
		}
	}()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// tailHash reads the hash of the last event in the file, scanning back
// from the end.
func (s *FileEventStore) tailHash() (string, error) {
	f, err := os.Open(s.path())
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("open events file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat events file: %w", err)
	}
	const chunk = 64 * 1024
	var buf []byte
	for end := info.Size(); end > 0; {
		start := max(end-chunk, 0)
		part := make([]byte, end-start)
		if _, err := f.ReadAt(part, start); err != nil {
			return "", fmt.Errorf("read events file: %w", err)
		}
		buf = append(part, buf...)
		end = start

		trimmed := bytes.TrimRight(buf, "\n")
		i := bytes.LastIndexByte(trimmed, '\n')
		if i < 0 && end > 0 {
			continue
		}
		line := trimmed[i+1:]
		if len(line) == 0 {
			return "", nil
		}
		var last struct {
			Hash string `json:"hash"`
		}
		if err := json.Unmarshal(line, &last); err != nil {
			return "", fmt.Errorf("%s last line: %w", EventsFile, err)
		}
		return last.Hash, nil
	}
	return "", nil
}

// EventFilter selects events in Query. Zero fields match everything;
// Limit keeps the latest matches.
type EventFilter struct {
	Types  []string
	TaskID string
	Since  time.Time
	Limit  int
}

func (f EventFilter) match(e *events.BaseEvent) bool {
	if len(f.Types) > 0 && !slices.Contains(f.Types, e.Type) {
		return false
	}
	if f.TaskID != "" {
		if id, _ := e.Metadata["task_id"].(string); id != f.TaskID {
			return false
		}
	}
	return f.Since.IsZero() || !e.Timestamp.Before(f.Since)
}

// Query returns the matching events, oldest first.
func (s *FileEventStore) Query(filter EventFilter) ([]*events.BaseEvent, error) {
	all, err := s.LoadAll()
	if err != nil {
		return nil, err
	}
	out := make([]*events.BaseEvent, 0, len(all))
	for _, e := range all {
		if filter.match(e) {
			out = append(out, e)
		}
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[len(out)-filter.Limit:]
	}
	return out, nil
}

// LoadAll returns every event, oldest first.
func (s *FileEventStore) LoadAll() ([]*events.BaseEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read()
}

func (s *FileEventStore) LoadByType(eventType string) ([]*events.BaseEvent, error) {
	return s.Query(EventFilter{Types: []string{eventType}})
}

// GetLastEvent returns the newest event, or nil for an empty log.
func (s *FileEventStore) GetLastEvent() (*events.BaseEvent, error) {
	latest, err := s.Query(EventFilter{Limit: 1})
	if err != nil || len(latest) == 0 {
		return nil, err
	}
	return latest[0], nil
}

func (s *FileEventStore) Count() (int, error) {
	all, err := s.LoadAll()
	return len(all), err
}

// VerifyIntegrity returns the index of the first event whose hash does
// not match its content or predecessor, or -1.
func (s *FileEventStore) VerifyIntegrity() (int, error) {
	all, err := s.LoadAll()
	if err != nil {
		return -1, err
	}
	return events.VerifyChain(all), nil
}

func (s *FileEventStore) read() ([]*events.BaseEvent, error) {
	f, err := os.Open(s.path())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open events file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	var out []*events.BaseEvent
	sc := bufio.NewScanner(f)
	// Action events can carry whole generated files.
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for lineNo := 1; sc.Scan(); lineNo++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e events.BaseEvent
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", EventsFile, lineNo, err)
		}
		out = append(out, &e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}
	return out, nil
}
