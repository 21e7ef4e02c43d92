package observe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livedb/internal/ir"
)

var objA = Target{Type: "T", Key: "i:1"}

func record(log *[]string, name string) Observer {
	return func(ch Change) {
		*log = append(*log, name+":"+ch.KeyPath+"="+ir.Format(ch.New))
	}
}

func TestNotifyDeliversInRegistrationOrder(t *testing.T) {
	c := NewCenter()
	var log []string
	c.Register(objA, "x", record(&log, "first"))
	c.Register(objA, "x", record(&log, "second"))
	c.Register(objA, "y", record(&log, "other-path"))
	c.Register(Target{Type: "T", Key: "i:2"}, "x", record(&log, "other-target"))

	n := c.Notify(Change{Target: objA, KeyPath: "x", Old: ir.Int32(3), New: ir.Int32(10)})

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"first:x=10", "second:x=10"}, log)
}

func TestNotifyPassesOldAndNew(t *testing.T) {
	c := NewCenter()
	var got Change
	c.Register(objA, "flag", func(ch Change) { got = ch })

	c.Notify(Change{Target: objA, KeyPath: "flag", Old: ir.Bool(false), New: ir.Bool(true)})

	assert.Equal(t, objA, got.Target)
	assert.Equal(t, "flag", got.KeyPath)
	assert.Equal(t, ir.Bool(false), got.Old)
	assert.Equal(t, ir.Bool(true), got.New)
}

func TestCancelIsIdempotent(t *testing.T) {
	c := NewCenter()
	calls := 0
	sub := c.Register(objA, "x", func(Change) { calls++ })

	sub.Cancel()
	sub.Cancel()
	c.Unregister(sub)
	c.Unregister(nil)

	assert.False(t, sub.Active())
	assert.Equal(t, 0, c.Notify(Change{Target: objA, KeyPath: "x"}))
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, c.Count(objA, "x"))
}

func TestRegisterDuringDeliveryMissesThatDelivery(t *testing.T) {
	c := NewCenter()
	var log []string
	c.Register(objA, "x", func(ch Change) {
		log = append(log, "outer")
		if len(log) == 1 {
			c.Register(objA, "x", record(&log, "late"))
		}
	})

	c.Notify(Change{Target: objA, KeyPath: "x", New: ir.Int64(1)})
	assert.Equal(t, []string{"outer"}, log)

	c.Notify(Change{Target: objA, KeyPath: "x", New: ir.Int64(2)})
	assert.Equal(t, []string{"outer", "outer", "late:x=2"}, log)
}

func TestCancelDuringDeliverySkipsPendingObserver(t *testing.T) {
	c := NewCenter()
	var log []string
	var second *Subscription
	c.Register(objA, "x", func(Change) {
		log = append(log, "first")
		second.Cancel()
	})
	second = c.Register(objA, "x", record(&log, "second"))

	n := c.Notify(Change{Target: objA, KeyPath: "x", New: ir.Int64(1)})
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"first"}, log)
}

func TestReentrantNotify(t *testing.T) {
	c := NewCenter()
	var log []string
	c.Register(objA, "x", func(ch Change) {
		log = append(log, "x")
		c.Notify(Change{Target: objA, KeyPath: "y", New: ch.New})
	})
	c.Register(objA, "y", record(&log, "y"))

	c.Notify(Change{Target: objA, KeyPath: "x", New: ir.String("v")})
	assert.Equal(t, []string{"x", `y:y="v"`}, log)
}

func TestTransferKeepsOrderAndRetargets(t *testing.T) {
	private := NewCenter()
	shared := NewCenter()
	standalone := Target{Type: "T", Key: "s:local"}
	row := Target{Type: "T", Key: "i:7"}

	var log []string
	existing := shared.Register(row, "x", record(&log, "existing"))
	a := private.Register(standalone, "x", record(&log, "a"))
	private.Register(standalone, "y", record(&log, "b"))
	private.Register(standalone, "x", record(&log, "c"))
	cancelled := private.Register(standalone, "x", record(&log, "gone"))
	cancelled.Cancel()

	moved := private.Transfer(standalone, shared, row)
	require.Equal(t, 3, moved)
	assert.False(t, private.Observed(standalone))
	assert.True(t, shared.Observed(row))
	assert.Equal(t, row, a.Target())

	shared.Notify(Change{Target: row, KeyPath: "x", New: ir.Int64(1)})
	assert.Equal(t, []string{"existing:x=1", "a:x=1", "c:x=1"}, log)

	// Cancel after transfer removes from the new center.
	a.Cancel()
	existing.Cancel()
	assert.Equal(t, 1, shared.Count(row, "x"))
}

func TestDropCancelsAllPathsOfTarget(t *testing.T) {
	c := NewCenter()
	s1 := c.Register(objA, "x", func(Change) {})
	s2 := c.Register(objA, "y", func(Change) {})
	other := c.Register(Target{Type: "T", Key: "i:2"}, "x", func(Change) {})

	assert.Equal(t, 2, c.Drop(objA))
	assert.False(t, s1.Active())
	assert.False(t, s2.Active())
	assert.True(t, other.Active())
	assert.False(t, c.Observed(objA))
}

func TestChangeString(t *testing.T) {
	ch := Change{Target: objA, KeyPath: "x", Old: ir.Null{}, New: ir.NewRef("T", ir.Int64(1))}
	assert.Equal(t, "T(i:1).x: null -> T(1)", ch.String())
}
