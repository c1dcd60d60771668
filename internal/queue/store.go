// Package queue implements the durable on-device store for pending
// transactions. Entries survive process restarts; the store is the only
// shared mutable resource between the submission dispatcher (writer) and the
// queue flusher (reader+writer), and every read goes back to SQLite so no
// caller ever acts on a stale in-memory view.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/neyyar-dairy/fieldsync/internal/domain"
)

// ErrStorageUnavailable reports that the local durable store could not accept
// or serve the operation. Callers must surface it: a transaction that is
// neither sent nor queued must never be dropped silently.
var ErrStorageUnavailable = errors.New("offline store unavailable")

// Store provides durable queue operations over an injected GORM handle. It is
// constructed explicitly (no package-level singleton) so tests can supply
// their own database.
type Store struct {
	db *gorm.DB
}

// NewStore wraps db. ResetClaims should be called once at startup before any
// flusher runs, to release claims left behind by a crashed process.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Enqueue durably inserts a pending transaction and returns its assigned id.
// The write is committed before Enqueue returns. Re-enqueueing the same
// (kind, client txn id) pair is a no-op that returns the existing entry's id,
// so double-tapping a submit button cannot produce two queue rows.
func (s *Store) Enqueue(ctx context.Context, p domain.Payload) (uint, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("encode payload: %w", err)
	}
	entry := &domain.QueueEntry{
		Kind:        p.Kind(),
		ClientTxnID: p.TxnID(),
		Payload:     raw,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		if isUniqueViolation(err) {
			var existing domain.QueueEntry
			ferr := s.db.WithContext(ctx).
				Where("kind = ? AND client_txn_id = ?", p.Kind(), p.TxnID()).
				First(&existing).Error
			if ferr == nil {
				return existing.ID, nil
			}
			return 0, storageErr(ferr)
		}
		return 0, storageErr(err)
	}
	return entry.ID, nil
}

// ListPending returns all queued entries oldest-first (CreatedAt ASC, ID ASC
// as tiebreaker), preserving the causal order of sales against the same shop.
// The slice is rebuilt from the store on every call.
func (s *Store) ListPending(ctx context.Context) ([]domain.QueueEntry, error) {
	var out []domain.QueueEntry
	err := s.db.WithContext(ctx).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}

// Remove deletes an entry by id. Removing an absent id is a no-op, not an
// error; deletion is the commit point of a successful delivery.
func (s *Store) Remove(ctx context.Context, id uint) error {
	if err := s.db.WithContext(ctx).Delete(&domain.QueueEntry{}, id).Error; err != nil {
		return storageErr(err)
	}
	return nil
}

// Count returns the number of pending entries, for the "N transactions
// waiting to sync" badge.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&domain.QueueEntry{}).Count(&n).Error
	if err != nil {
		return 0, storageErr(err)
	}
	return n, nil
}

// Claim atomically marks an entry in-flight. It returns false when another
// flush already holds the entry (or it was removed), which is how concurrent
// flushes avoid double-submitting: the single-row UPDATE is the arbiter.
func (s *Store) Claim(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&domain.QueueEntry{}).
		Where("id = ? AND in_flight = ?", id, false).
		Update("in_flight", true)
	if res.Error != nil {
		return false, storageErr(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Release returns a claimed entry to the pending pool after a failed
// delivery attempt.
func (s *Store) Release(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).
		Model(&domain.QueueEntry{}).
		Where("id = ?", id).
		Update("in_flight", false).Error
	if err != nil {
		return storageErr(err)
	}
	return nil
}

// ResetClaims clears every in-flight marker. Run at startup: a crash mid-flush
// must not strand entries in a permanently claimed state.
func (s *Store) ResetClaims(ctx context.Context) error {
	err := s.db.WithContext(ctx).
		Model(&domain.QueueEntry{}).
		Where("in_flight = ?", true).
		Update("in_flight", false).Error
	if err != nil {
		return storageErr(err)
	}
	return nil
}

// DeadLetter moves a deterministically rejected entry out of the retry path,
// recording the rejection reason. The insert and the queue delete happen in
// one transaction so the entry cannot vanish or exist twice.
func (s *Store) DeadLetter(ctx context.Context, entry domain.QueueEntry, reason string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dl := &domain.DeadLetter{
			Kind:        entry.Kind,
			ClientTxnID: entry.ClientTxnID,
			Payload:     entry.Payload,
			Reason:      reason,
			QueuedAt:    entry.CreatedAt,
			FailedAt:    time.Now().UTC(),
		}
		if err := tx.Create(dl).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.QueueEntry{}, entry.ID).Error
	})
	if err != nil {
		return storageErr(err)
	}
	return nil
}

// ListDeadLetters returns rejected transactions, most recent first.
func (s *Store) ListDeadLetters(ctx context.Context, limit int) ([]domain.DeadLetter, error) {
	var out []domain.DeadLetter
	q := s.db.WithContext(ctx).Order("failed_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}

// storageErr tags any driver failure with the storage sentinel so callers can
// branch with errors.Is.
func storageErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

// isUniqueViolation detects the duplicate (kind, client_txn_id) insert.
// glebarez/sqlite often reports unique violations as plain-text errors.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}
