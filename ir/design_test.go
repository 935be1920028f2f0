package ir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/encarsia-artifacts/encarsia-yosys/ir"
)

func TestAddModuleRejectsDuplicateName(t *testing.T) {
	d := ir.NewDesign()
	require.NoError(t, d.AddModule(ir.NewModule("top")))
	err := d.AddModule(ir.NewModule("top"))
	require.Error(t, err)
}

func TestModulesPreservesAdditionOrder(t *testing.T) {
	d := ir.NewDesign()
	require.NoError(t, d.AddModule(ir.NewModule("a")))
	require.NoError(t, d.AddModule(ir.NewModule("b")))
	require.NoError(t, d.AddModule(ir.NewModule("c")))

	names := make([]string, 0, 3)
	for _, m := range d.Modules() {
		names = append(names, m.Name)
	}
	require.Equal(t, []string{"a", "b", "c"}, names)
}

func TestNewModuleIsSelectedByDefault(t *testing.T) {
	d := ir.NewDesign()
	require.NoError(t, d.AddModule(ir.NewModule("top")))
	require.True(t, d.IsSelected("top"))
}

func TestSelectNarrowsToThePredicate(t *testing.T) {
	d := ir.NewDesign()
	require.NoError(t, d.AddModule(ir.NewModule("keep")))
	require.NoError(t, d.AddModule(ir.NewModule("drop")))

	d.Select(func(m *ir.Module) bool { return m.Name == "keep" })
	require.True(t, d.IsSelected("keep"))
	require.False(t, d.IsSelected("drop"))

	selected := d.Selected()
	require.Len(t, selected, 1)
	require.Equal(t, "keep", selected[0].Name)
}

func TestSelectWithNilPredicateSelectsEverything(t *testing.T) {
	d := ir.NewDesign()
	require.NoError(t, d.AddModule(ir.NewModule("a")))
	require.NoError(t, d.AddModule(ir.NewModule("b")))
	d.Select(func(m *ir.Module) bool { return false })
	require.Empty(t, d.Selected())

	d.Select(nil)
	require.Len(t, d.Selected(), 2)
}

func TestMustModulePanicsOnMissingName(t *testing.T) {
	d := ir.NewDesign()
	require.Panics(t, func() { d.MustModule("nope") })
}
