package amt_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/encarsia-artifacts/encarsia-yosys/amt"
	"github.com/encarsia-artifacts/encarsia-yosys/ir"
)

func concreteThreeRowTable() *amt.Table {
	return &amt.Table{
		S: ir.Vector{ir.WireBit(1, 0), ir.WireBit(1, 1)},
		Y: ir.Vector{ir.WireBit(2, 0)},
		Selections: []amt.Selection{
			{Pattern: ir.Vector{ir.Zero(), ir.Zero()}, Output: ir.Vector{ir.Zero()}},
			{Pattern: ir.Vector{ir.One(), ir.Zero()}, Output: ir.Vector{ir.One()}},
			{Pattern: ir.Vector{ir.Zero(), ir.One()}, Output: ir.Vector{ir.One()}, Buggy: true},
		},
	}
}

func TestReencodeFSMRejectsADontCareSelectorBit(t *testing.T) {
	_, err := amt.ReencodeFSM(fourRowTable(), amt.EncodingOneHot)
	require.Error(t, err)
}

func TestReencodeFSMRejectsDuplicateSelectorPatterns(t *testing.T) {
	tbl := concreteThreeRowTable()
	tbl.Selections[1].Pattern = ir.Vector{ir.Zero(), ir.Zero()} // now duplicates row 0
	_, err := amt.ReencodeFSM(tbl, amt.EncodingOneHot)
	require.Error(t, err)
}

func TestReencodeFSMRejectsAnUnknownEncoding(t *testing.T) {
	_, err := amt.ReencodeFSM(concreteThreeRowTable(), amt.Encoding(99))
	require.Error(t, err)
}

func TestReencodeFSMOneHotWidensSelectorToRowCount(t *testing.T) {
	tbl := concreteThreeRowTable()
	out, err := amt.ReencodeFSM(tbl, amt.EncodingOneHot)
	require.NoError(t, err)
	require.Equal(t, 3, out.K())
	require.Equal(t, ir.Vector{ir.One(), ir.Zero(), ir.Zero()}, out.Selections[0].Pattern)
	require.Equal(t, ir.Vector{ir.Zero(), ir.One(), ir.Zero()}, out.Selections[1].Pattern)
	require.Equal(t, ir.Vector{ir.Zero(), ir.Zero(), ir.One()}, out.Selections[2].Pattern)
}

func TestReencodeFSMPreservesOutputAndBuggyFlag(t *testing.T) {
	tbl := concreteThreeRowTable()
	out, err := amt.ReencodeFSM(tbl, amt.EncodingOneHot)
	require.NoError(t, err)
	for i, r := range out.Selections {
		require.Equal(t, tbl.Selections[i].Output, r.Output)
		require.Equal(t, tbl.Selections[i].Buggy, r.Buggy)
	}
}

func TestReencodeFSMGrayKeepsOriginalSelectorWidth(t *testing.T) {
	tbl := concreteThreeRowTable()
	out, err := amt.ReencodeFSM(tbl, amt.EncodingGray)
	require.NoError(t, err)
	require.Equal(t, tbl.K(), out.K())
	require.Equal(t, ir.Vector{ir.Zero(), ir.Zero()}, out.Selections[0].Pattern)
	require.Equal(t, ir.Vector{ir.One(), ir.Zero()}, out.Selections[1].Pattern)
	require.Equal(t, ir.Vector{ir.One(), ir.One()}, out.Selections[2].Pattern)
}

func TestReencodeFSMPlaceholderSelectorIsAwaitingRewiring(t *testing.T) {
	out, err := amt.ReencodeFSM(concreteThreeRowTable(), amt.EncodingOneHot)
	require.NoError(t, err)
	for i, b := range out.S {
		require.Equal(t, ir.BitWire, b.Kind)
		require.Equal(t, ir.WireID(-1), b.Wire)
		require.Equal(t, i, b.Offset)
	}
}
