package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livedb/internal/ir"
	"github.com/roach88/livedb/internal/schema"
)

type fakePersister struct {
	records []ir.CommitRecord
	err     error
}

func (p *fakePersister) Commit(_ context.Context, rec ir.CommitRecord) error {
	if p.err != nil {
		return p.err
	}
	p.records = append(p.records, rec)
	return nil
}

type fakeLoader struct {
	objects []ir.StoredObject
	seq     int64
	err     error
}

func (l *fakeLoader) Load(context.Context, []*ir.ObjectSchema) ([]ir.StoredObject, int64, error) {
	return l.objects, l.seq, l.err
}

func TestBeginWrite_Twice(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.BeginWrite())
	err := s.BeginWrite()
	assert.True(t, IsTransactionAlreadyActive(err))
	assert.True(t, s.InWriteTransaction())
}

func TestBeginWrite_ConcurrentCallersOnlyOneWins(t *testing.T) {
	s := newTestStore(t)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.BeginWrite() == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestCommitAndCancel_WithoutTransaction(t *testing.T) {
	s := newTestStore(t)
	assert.True(t, IsNoActiveTransaction(s.CommitWrite(t.Context())))
	assert.True(t, IsNoActiveTransaction(s.CancelWrite()))
}

func TestCommitWrite_HandsRecordToPersister(t *testing.T) {
	p := &fakePersister{}
	s := newTestStore(t, WithPersister(p))

	b := addKVO(t, s, 2, map[string]ir.Value{"stringCol": ir.String("b")})
	a := addKVO(t, s, 1, nil)
	require.NoError(t, a.SetObject("objectCol", b))
	require.NoError(t, s.CommitWrite(t.Context()))

	assert.False(t, s.InWriteTransaction())
	assert.Equal(t, int64(1), s.Seq())
	require.Len(t, p.records, 1)
	rec := p.records[0]
	assert.Equal(t, "id-1", rec.ID)
	assert.Equal(t, int64(1), rec.Seq)
	require.Len(t, rec.Objects, 2)
	assert.Equal(t, ir.Int64(1), rec.Objects[0].Key, "objects are ordered by key")
	assert.Equal(t, ir.Int64(2), rec.Objects[1].Key)
	assert.Equal(t, ir.NewRef("KVOObject", ir.Int64(2)), rec.Objects[0].Values["objectCol"])
	assert.Equal(t, ir.String("b"), rec.Objects[1].Values["stringCol"])
	assert.NotContains(t, rec.Objects[0].Values, "ignored")

	// Only modified rows go into the next commit.
	require.NoError(t, s.BeginWrite())
	require.NoError(t, b.Set("int32Col", ir.Int32(10)))
	require.NoError(t, s.CommitWrite(t.Context()))

	require.Len(t, p.records, 2)
	assert.Equal(t, int64(2), p.records[1].Seq)
	require.Len(t, p.records[1].Objects, 1)
	assert.Equal(t, ir.Int32(10), p.records[1].Objects[0].Values["int32Col"])
}

func TestCommitWrite_EmptyTransaction(t *testing.T) {
	p := &fakePersister{}
	s := newTestStore(t, WithPersister(p))

	require.NoError(t, s.BeginWrite())
	require.NoError(t, s.CommitWrite(t.Context()))
	assert.Empty(t, p.records)
	assert.Equal(t, int64(0), s.Seq())
}

func TestCommitWrite_PersisterFailureKeepsTransaction(t *testing.T) {
	boom := errors.New("disk full")
	p := &fakePersister{err: boom}
	s := newTestStore(t, WithPersister(p))

	a := addKVO(t, s, 1, nil)
	err := s.CommitWrite(t.Context())
	require.ErrorIs(t, err, boom)
	assert.True(t, s.InWriteTransaction())
	assert.Equal(t, int64(0), s.Seq())

	// Retry succeeds once the persister recovers.
	p.err = nil
	require.NoError(t, s.CommitWrite(t.Context()))
	assert.Equal(t, int64(1), s.Seq())
	assert.False(t, a.IsDetached())
}

func TestCommitWrite_PersisterErrorNamesSeq(t *testing.T) {
	p := &fakePersister{err: errors.New("commit id-1: disk full")}
	s := newTestStore(t, WithPersister(p))

	addKVO(t, s, 1, nil)
	err := s.CommitWrite(t.Context())
	require.Error(t, err)
	assert.Equal(t, "persist seq 1: commit id-1: disk full", err.Error())
}

func TestCancelWrite_RestoresWithoutNotifying(t *testing.T) {
	s := newTestStore(t)
	a := addKVO(t, s, 1, nil)
	require.NoError(t, s.CommitWrite(t.Context()))

	var rec recorder
	mustObserve(t, a, "int32Col", &rec)

	require.NoError(t, s.BeginWrite())
	require.NoError(t, a.Set("int32Col", ir.Int32(10)))
	require.NoError(t, a.Set("int32Col", ir.Int32(11)))
	require.Len(t, rec.changes, 2)

	require.NoError(t, s.CancelWrite())
	assert.Len(t, rec.changes, 2, "rollback does not notify")

	got, err := a.Get("int32Col")
	require.NoError(t, err)
	assert.Equal(t, ir.Int32(3), got)
	assert.False(t, a.IsDetached())
}

func TestCancelWrite_DetachesCreatedRows(t *testing.T) {
	s := newTestStore(t)
	a := addKVO(t, s, 1, nil)

	var rec recorder
	sub := mustObserve(t, a, "int32Col", &rec)
	require.NoError(t, s.CancelWrite())

	assert.True(t, a.IsDetached())
	assert.False(t, sub.Active(), "observers of removed rows are cancelled")
	assert.Equal(t, 0, s.Len())

	_, err := a.Get("int32Col")
	assert.True(t, IsDetachedAccessor(err))
	_, err = a.Observe("int32Col", rec.fn)
	assert.True(t, IsDetachedAccessor(err))

	require.NoError(t, s.BeginWrite())
	err = a.Set("int32Col", ir.Int32(10))
	assert.True(t, IsDetachedAccessor(err))

	// A new row with the same key does not revive the old accessor.
	b := addKVO(t, s, 1, nil)
	assert.True(t, a.IsDetached())
	assert.False(t, a.SameObject(b))
	require.NoError(t, b.Set("int32Col", ir.Int32(10)))
	assert.Empty(t, rec.changes)
}

func TestCancelWrite_AdmittedStandaloneCanBeAddedAgain(t *testing.T) {
	s := newTestStore(t)
	standalone := newKVO(t, s, 1, nil)
	first := addKVOFrom(t, s, standalone)
	require.NoError(t, s.CancelWrite())

	second := addKVOFrom(t, s, standalone)
	assert.False(t, second.SameObject(first))
	assert.False(t, second.IsDetached())
}

func TestWrite(t *testing.T) {
	p := &fakePersister{}
	s := newTestStore(t, WithPersister(p))

	err := s.Write(t.Context(), func() error {
		_, err := s.Add(newKVO(t, s, 1, nil))
		return err
	})
	require.NoError(t, err)
	assert.Len(t, p.records, 1)
	assert.False(t, s.InWriteTransaction())

	failure := errors.New("abort")
	err = s.Write(t.Context(), func() error {
		if _, err := s.Add(newKVO(t, s, 2, nil)); err != nil {
			return err
		}
		return failure
	})
	require.ErrorIs(t, err, failure)
	assert.False(t, s.InWriteTransaction())
	assert.Equal(t, 1, s.Len())

	p.err = errors.New("disk full")
	err = s.Write(t.Context(), func() error {
		_, err := s.Add(newKVO(t, s, 3, nil))
		return err
	})
	require.ErrorIs(t, err, p.err)
	assert.False(t, s.InWriteTransaction(), "a failed commit is cancelled")
	assert.Equal(t, 1, s.Len())
}

func TestOpen_LoadsObjects(t *testing.T) {
	loader := &fakeLoader{
		seq: 7,
		objects: []ir.StoredObject{
			{
				Type: "KVOObject",
				Key:  ir.Int64(1),
				Values: map[string]ir.Value{
					"pk":        ir.Int64(1),
					"int32Col":  ir.Int32(10),
					"objectCol": ir.NewRef("KVOObject", ir.Int64(1)),
				},
			},
			{Type: "Note", Key: ir.String("n-1"), Values: map[string]ir.Value{"text": ir.String("hi")}},
		},
	}
	reg := schema.NewRegistry().MustRegister(kvoSchema(), noteSchema())
	p := &fakePersister{}
	s, err := Open(t.Context(), reg, loader, WithLogger(discardLogger()), WithPersister(p))
	require.NoError(t, err)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, int64(7), s.Seq())
	assert.False(t, s.InWriteTransaction())

	a, err := s.ObjectForPrimaryKey("KVOObject", ir.Int64(1))
	require.NoError(t, err)
	require.NotNil(t, a)
	got, err := a.Get("int32Col")
	require.NoError(t, err)
	assert.Equal(t, ir.Int32(10), got)
	got, err = a.Get("int8Col")
	require.NoError(t, err)
	assert.Equal(t, ir.Int8(1), got, "missing values start at their default")
	self, err := a.Object("objectCol")
	require.NoError(t, err)
	assert.True(t, self.SameObject(a))

	require.NoError(t, s.BeginWrite())
	require.NoError(t, a.Set("int32Col", ir.Int32(11)))
	require.NoError(t, s.CommitWrite(t.Context()))
	require.Len(t, p.records, 1)
	assert.Equal(t, int64(8), p.records[0].Seq, "the clock resumes after the loaded seq")
}

func TestOpen_Errors(t *testing.T) {
	reg := schema.NewRegistry().MustRegister(kvoSchema(), noteSchema())

	_, err := Open(t.Context(), reg, &fakeLoader{err: errors.New("corrupt")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt")

	_, err = Open(t.Context(), reg, &fakeLoader{objects: []ir.StoredObject{{Type: "Gone", Key: ir.Int64(1)}}})
	assert.True(t, IsUnknownType(err))

	dup := ir.StoredObject{Type: "KVOObject", Key: ir.Int64(1)}
	_, err = Open(t.Context(), reg, &fakeLoader{objects: []ir.StoredObject{dup, dup}})
	assert.True(t, IsDuplicateKey(err))
}

func TestNew_RejectsIncompleteRegistry(t *testing.T) {
	reg := schema.NewRegistry()
	require.NoError(t, reg.Register(noteSchema()))
	_, err := New(reg)
	require.Error(t, err, "Note links to an unregistered model")
}
