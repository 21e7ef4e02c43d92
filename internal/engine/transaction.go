package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/livedb/internal/ir"
	"github.com/roach88/livedb/internal/observe"
)

// transaction is the journal of the active write transaction: rows created
// since BeginWrite and the pre-image of every pre-existing row modified.
type transaction struct {
	id        string
	created   []*row
	isCreated map[*row]bool
	preimages map[*row]map[string]ir.Value
	modified  []*row // pre-existing rows, in order of first modification
}

func newTransaction(id string) *transaction {
	return &transaction{
		id:        id,
		isCreated: make(map[*row]bool),
		preimages: make(map[*row]map[string]ir.Value),
	}
}

func (t *transaction) create(r *row) {
	t.created = append(t.created, r)
	t.isCreated[r] = true
}

// touch records the pre-image of r before its first modification.
// Rows created in this transaction need none: cancel removes them.
func (t *transaction) touch(r *row) {
	if t.isCreated[r] {
		return
	}
	if _, seen := t.preimages[r]; seen {
		return
	}
	t.preimages[r] = r.snapshot()
	t.modified = append(t.modified, r)
}

// objects returns the full image of every created or modified row, ordered
// by type and key.
func (t *transaction) objects() []ir.StoredObject {
	rows := make([]*row, 0, len(t.created)+len(t.modified))
	rows = append(rows, t.created...)
	rows = append(rows, t.modified...)
	slices.SortFunc(rows, func(a, b *row) int {
		if a.schema.Name != b.schema.Name {
			if a.schema.Name < b.schema.Name {
				return -1
			}
			return 1
		}
		return compareKeyStrings(a.keyStr, b.keyStr)
	})
	out := make([]ir.StoredObject, len(rows))
	for i, r := range rows {
		out[i] = r.stored()
	}
	return out
}

// BeginWrite starts the write transaction.
// Fails with TRANSACTION_ALREADY_ACTIVE if one is in progress.
func (s *Store) BeginWrite() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx != nil {
		return newTransactionAlreadyActiveError()
	}
	s.tx = newTransaction(s.ids.Generate())
	s.logger.Debug("write transaction begun", "tx_id", s.tx.id)
	return nil
}

// InWriteTransaction reports whether a write transaction is active.
func (s *Store) InWriteTransaction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx != nil
}

// CommitWrite ends the write transaction, keeping its changes, and hands
// the created and modified rows to the persister.
//
// If the persister fails the error is returned and the transaction stays
// active; the caller decides whether to retry CommitWrite or CancelWrite.
// Transactions that changed nothing are not sent to the persister and do
// not advance the clock.
func (s *Store) CommitWrite(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx == nil {
		return newNoActiveTransactionError("commit")
	}
	tx := s.tx

	objects := tx.objects()
	seq := s.clock.Current()
	if len(objects) > 0 {
		seq++
		if s.persister != nil {
			rec := ir.CommitRecord{ID: tx.id, Seq: seq, Objects: objects}
			if err := s.persister.Commit(ctx, rec); err != nil {
				s.logger.Error("commit failed",
					"tx_id", tx.id,
					"seq", seq,
					"objects", len(objects),
					"error", err,
				)
				return fmt.Errorf("persist seq %d: %w", seq, err)
			}
		}
		s.clock.advanceTo(seq)
	}

	s.tx = nil
	s.logger.Debug("write transaction committed",
		"tx_id", tx.id,
		"seq", seq,
		"created", len(tx.created),
		"modified", len(tx.modified),
	)
	return nil
}

// CancelWrite ends the write transaction, discarding its changes: rows
// created in it are removed (their accessors become detached, their
// observers are cancelled) and modified rows get their pre-image back.
// Rollback does not notify.
func (s *Store) CancelWrite() error {
	s.mu.Lock()
	if s.tx == nil {
		s.mu.Unlock()
		return newNoActiveTransactionError("cancel")
	}
	tx := s.tx

	dropped := make([]observe.Target, 0, len(tx.created))
	for _, r := range tx.created {
		s.rows.remove(r.schema.Name, r.keyStr)
		dropped = append(dropped, r.target())
	}
	for r, pre := range tx.preimages {
		r.values = pre
	}
	s.tx = nil
	s.mu.Unlock()

	for _, target := range dropped {
		s.center.Drop(target)
	}
	s.logger.Debug("write transaction cancelled",
		"tx_id", tx.id,
		"created", len(tx.created),
		"modified", len(tx.modified),
	)
	return nil
}

// Write runs fn inside a write transaction and commits it. If fn or the
// commit fails, the transaction is cancelled and the error returned.
func (s *Store) Write(ctx context.Context, fn func() error) error {
	if err := s.BeginWrite(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		if cerr := s.CancelWrite(); cerr != nil {
			return fmt.Errorf("%w (cancel: %v)", err, cerr)
		}
		return err
	}
	if err := s.CommitWrite(ctx); err != nil {
		if cerr := s.CancelWrite(); cerr != nil {
			return fmt.Errorf("%w (cancel: %v)", err, cerr)
		}
		return err
	}
	return nil
}
