package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/livedb/internal/ir"
)

// ErrDigestMismatch is returned when a stored payload does not match its
// digest.
var ErrDigestMismatch = errors.New("object digest mismatch")

// CommitInfo describes one stored commit.
type CommitInfo struct {
	Seq     int64  `json:"seq"`
	ID      string `json:"id"`
	Objects int    `json:"objects"`
}

// ObjectRecord is one stored object row as it is on disk.
type ObjectRecord struct {
	Type      string `json:"type"`
	Key       string `json:"key"`
	Payload   string `json:"payload"`
	Digest    string `json:"digest"`
	CommitSeq int64  `json:"commit_seq"`
}

// Verify recomputes the digest of the record's payload.
func (r ObjectRecord) Verify() error {
	got := ir.ObjectDigest(r.Type, r.Key, []byte(r.Payload))
	if got != r.Digest {
		return fmt.Errorf("%s(%s): %w", r.Type, r.Key, ErrDigestMismatch)
	}
	return nil
}

// Load returns every stored object of the given models and the seq of the
// last commit. Objects come back ordered by schema order, then key.
// Rows of types not in schemas are skipped. A row whose digest does not
// verify fails the load.
//
// Load implements engine.Loader.
func (s *Store) Load(ctx context.Context, schemas []*ir.ObjectSchema) ([]ir.StoredObject, int64, error) {
	var objects []ir.StoredObject
	for _, sch := range schemas {
		records, err := s.Objects(ctx, sch.Name)
		if err != nil {
			return nil, 0, fmt.Errorf("load: %w", err)
		}
		for _, rec := range records {
			obj, err := decodeRecord(sch, rec)
			if err != nil {
				return nil, 0, fmt.Errorf("load: %w", err)
			}
			objects = append(objects, obj)
		}
	}

	seq, err := s.LastSeq(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("load: %w", err)
	}

	if objects == nil {
		objects = []ir.StoredObject{}
	}
	return objects, seq, nil
}

func decodeRecord(sch *ir.ObjectSchema, rec ObjectRecord) (ir.StoredObject, error) {
	if err := rec.Verify(); err != nil {
		return ir.StoredObject{}, err
	}
	key, err := decodeKey(sch, rec.Key)
	if err != nil {
		return ir.StoredObject{}, fmt.Errorf("%s(%s): %w", rec.Type, rec.Key, err)
	}
	values, err := unmarshalPayload(sch, rec.Payload)
	if err != nil {
		return ir.StoredObject{}, fmt.Errorf("%s(%s): %w", rec.Type, rec.Key, err)
	}
	return ir.StoredObject{Type: rec.Type, Key: key, Values: values}, nil
}

// LastSeq returns the seq of the last stored commit, or 0 if there is none.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM commits`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq.Int64, nil
}

// Commits returns every stored commit ordered by seq.
// Returns an empty slice (not nil) if there are none.
func (s *Store) Commits(ctx context.Context) ([]CommitInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, committed_objects
		FROM commits
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query commits: %w", err)
	}
	defer rows.Close()

	commits := []CommitInfo{}
	for rows.Next() {
		var c CommitInfo
		if err := rows.Scan(&c.Seq, &c.ID, &c.Objects); err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		commits = append(commits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commits: %w", err)
	}
	return commits, nil
}

// Objects returns the stored rows of one type ordered by key.
// Returns an empty slice (not nil) if there are none.
func (s *Store) Objects(ctx context.Context, typ string) ([]ObjectRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT type, key, payload, digest, commit_seq
		FROM objects
		WHERE type = ?
		ORDER BY key COLLATE BINARY ASC
	`, typ)
	if err != nil {
		return nil, fmt.Errorf("query objects: %w", err)
	}
	defer rows.Close()

	records := []ObjectRecord{}
	for rows.Next() {
		var r ObjectRecord
		if err := rows.Scan(&r.Type, &r.Key, &r.Payload, &r.Digest, &r.CommitSeq); err != nil {
			return nil, fmt.Errorf("scan object: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate objects: %w", err)
	}
	return records, nil
}

// Types returns the distinct object types in the store, sorted.
func (s *Store) Types(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT type FROM objects ORDER BY type COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query types: %w", err)
	}
	defer rows.Close()

	types := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan type: %w", err)
		}
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate types: %w", err)
	}
	return types, nil
}
