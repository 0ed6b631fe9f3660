// Package store persists torrent submissions that could not be delivered to
// any qBittorrent instance. Submissions are kept as a single JSON array on
// disk and rewritten whole on every change; the file is deleted once the
// queue drains empty.
//
// The store assumes a single process instance owns the file. There is no
// cross-process locking.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrCorruptStore is returned when the backing file exists but cannot be
// parsed. The store treats the queue as empty in that case so the process
// keeps running, but callers should surface the error to an operator.
var ErrCorruptStore = errors.New("queue store file is corrupt")

// QueuedSubmission is a batch of items that failed delivery and is waiting
// for a later flush. Items keep their original submission order.
type QueuedSubmission struct {
	ID         string    `json:"id"`
	Items      []string  `json:"items"`
	SavedAt    time.Time `json:"saved_at"`
	Reason     string    `json:"reason"`
	TargetPath string    `json:"target_path,omitempty"`
}

// NewSubmission builds a QueuedSubmission with a fresh id and timestamp.
func NewSubmission(items []string, reason, targetPath string) QueuedSubmission {
	return QueuedSubmission{
		ID:         uuid.NewString(),
		Items:      items,
		SavedAt:    time.Now(),
		Reason:     reason,
		TargetPath: targetPath,
	}
}

// Store reads and writes the queue file.
type Store struct {
	path   string
	logger zerolog.Logger
}

// New creates a Store backed by the file at path. The file does not need to
// exist yet.
func New(path string, logger zerolog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// LoadAll returns every queued submission. A missing file is an empty queue.
// A malformed file is treated as empty and reported via ErrCorruptStore so
// the caller can decide how loudly to complain.
func (s *Store) LoadAll() ([]QueuedSubmission, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read queue store: %w", err)
	}

	var submissions []QueuedSubmission
	if err := json.Unmarshal(data, &submissions); err != nil {
		s.logger.Error().Err(err).Str("path", s.path).Msg("Queue store file is corrupt, treating as empty")
		return nil, fmt.Errorf("%w: %s", ErrCorruptStore, err)
	}

	return submissions, nil
}

// Append adds one submission to the queue, creating the file if needed.
// Submissions already present are preserved; a corrupt existing file is
// replaced rather than crashing the caller, since losing the new submission
// would be worse than losing an unreadable file.
func (s *Store) Append(submission QueuedSubmission) error {
	existing, err := s.LoadAll()
	if err != nil && !errors.Is(err, ErrCorruptStore) {
		return err
	}

	existing = append(existing, submission)
	if err := s.write(existing); err != nil {
		return err
	}

	s.logger.Info().
		Str("id", submission.ID).
		Int("items", len(submission.Items)).
		Str("reason", submission.Reason).
		Msg("Queued submission for later delivery")

	return nil
}

// ReplaceAll overwrites the queue with the given submissions. An empty or
// nil slice deletes the backing file.
func (s *Store) ReplaceAll(submissions []QueuedSubmission) error {
	if len(submissions) == 0 {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove queue store: %w", err)
		}
		s.logger.Debug().Str("path", s.path).Msg("Queue store emptied, file removed")
		return nil
	}
	return s.write(submissions)
}

// write rewrites the whole file in one shot.
func (s *Store) write(submissions []QueuedSubmission) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create queue store directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(submissions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode queue store: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write queue store: %w", err)
	}

	return nil
}
