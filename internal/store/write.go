package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/livedb/internal/ir"
)

// ErrEmptyCommit is returned by Commit for a record without objects.
var ErrEmptyCommit = errors.New("commit has no objects")

// Commit durably records a committed write transaction.
//
// One SQL transaction inserts the commit row and upserts every object with
// its canonical JSON payload and digest. Either all of it is stored or
// none of it is. A seq or commit ID that was already stored is an error.
//
// Commit implements engine.Persister.
func (s *Store) Commit(ctx context.Context, rec ir.CommitRecord) error {
	if len(rec.Objects) == 0 {
		return fmt.Errorf("commit %s: %w", rec.ID, ErrEmptyCommit)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit %s: begin tx: %w", rec.ID, err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO commits (seq, id, committed_objects)
		VALUES (?, ?, ?)
	`, rec.Seq, rec.ID, len(rec.Objects))
	if err != nil {
		return fmt.Errorf("commit %s: insert commit: %w", rec.ID, err)
	}

	for _, obj := range rec.Objects {
		key, err := encodeKey(obj.Key)
		if err != nil {
			return fmt.Errorf("commit %s: %s: %w", rec.ID, obj.Type, err)
		}
		payload, err := marshalPayload(obj.Values)
		if err != nil {
			return fmt.Errorf("commit %s: %s(%s): %w", rec.ID, obj.Type, key, err)
		}
		digest := ir.ObjectDigest(obj.Type, key, []byte(payload))

		_, err = tx.ExecContext(ctx, `
			INSERT INTO objects (type, key, payload, digest, commit_seq)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(type, key) DO UPDATE SET
				payload = excluded.payload,
				digest = excluded.digest,
				commit_seq = excluded.commit_seq
		`, obj.Type, key, payload, digest, rec.Seq)
		if err != nil {
			return fmt.Errorf("commit %s: upsert %s(%s): %w", rec.ID, obj.Type, key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", rec.ID, err)
	}
	return nil
}
