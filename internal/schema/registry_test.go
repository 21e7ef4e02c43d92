package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livedb/internal/ir"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(Object("B", Field("x", ir.KindBool))))
	require.NoError(t, reg.Register(Object("A", Link("b", "B"))))

	s, ok := reg.Lookup("A")
	require.True(t, ok)
	assert.Equal(t, "A", s.Name)

	_, ok = reg.Lookup("Missing")
	assert.False(t, ok)

	var names []string
	for _, s := range reg.Schemas() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"B", "A"}, names, "registration order is kept")
	assert.NoError(t, reg.Check())
}

func TestRegistryRejectsInvalidAndDuplicate(t *testing.T) {
	reg := NewRegistry()

	err := reg.Register(Object("M", Field("a", ir.KindFloat32, PrimaryKey())))
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrPrimaryKeyKind)

	require.NoError(t, reg.Register(Object("M", Field("a", ir.KindBool))))
	err = reg.Register(Object("M", Field("b", ir.KindBool)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrDuplicateModel)
}

func TestRegistryCheckReportsDanglingTarget(t *testing.T) {
	reg := NewRegistry().MustRegister(Object("A", Link("b", "B")))
	err := reg.Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrUnknownTarget)
}

func TestMustRegisterPanicsOnInvalidModel(t *testing.T) {
	assert.Panics(t, func() {
		NewRegistry().MustRegister(Object("M"))
	})
}
