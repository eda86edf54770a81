/*
features_test.go, part of GCNdesign



LICENSE

Copyright (c) 2024 Raul Mera <rmeraa{at}academicosDOTutaDOTcl>


This program, including its documentation,
is free software; you can redistribute it and/or modify
it under the terms of the GNU General Public License version 2.0 as
published by the Free Software Foundation.

This program and its documentation is distributed in the hope that
it will be useful, but WITHOUT ANY WARRANTY; without even the
implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR
PURPOSE.  See the GNU General Public License for more details.

You should have received a copy of the GNU General
Public License along with this program.  If not, see
<http://www.gnu.org/licenses/>.

*/

package features

import (
	"testing"

	"github.com/rmera/gcndesign/internal/config"
	"github.com/rmera/gcndesign/internal/gcnerr"
	"github.com/rmera/gcndesign/internal/structure"
	"github.com/rmera/gcndesign/internal/structure/structuretest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func extractor() *Extractor {
	return NewExtractor(config.Default(), config.MissingSkip)
}

func TestOneNodePerResidue(t *testing.T) {
	for _, n := range []int{2, 9, 50} {
		g, err := extractor().Extract(structuretest.Backbone(n, structuretest.Helix))
		require.NoError(t, err)
		assert.Equal(t, n, g.Len())
		r, c := g.Nodes.Dims()
		assert.Equal(t, n, r)
		assert.Equal(t, NodeDim, c)
		r, c = g.Edges.Dims()
		assert.Equal(t, g.NumEdges(), r)
		assert.Equal(t, EdgeDim, c)
	}
}

func TestEdgesWithinNeighborhood(t *testing.T) {
	x := extractor()
	x.NNeighbor = 6
	x.Cutoff = 8
	b := structuretest.Backbone(40, structuretest.Strand)
	g, err := x.Extract(b)
	require.NoError(t, err)

	incoming := make(map[int]int)
	for k := range g.From {
		i, j := g.To[k], g.From[k]
		require.NotEqual(t, i, j, "self edge at %d", i)
		d := b.Residues[i].CB().Dist(b.Residues[j].CB())
		inWindow := j-i <= x.SeqWindow && i-j <= x.SeqWindow
		assert.True(t, d <= x.Cutoff || inWindow, "edge %d<-%d at %.2f A", i, j, d)
		if k > 0 {
			prev := [2]int{g.To[k-1], g.From[k-1]}
			assert.True(t, prev[0] < i || (prev[0] == i && prev[1] < j), "edges not sorted at %d", k)
		}
		incoming[i]++
	}
	for i := 0; i < g.Len(); i++ {
		assert.LessOrEqual(t, incoming[i], x.NNeighbor+2*x.SeqWindow)
		assert.Greater(t, incoming[i], 0)
	}
}

func TestDeterministic(t *testing.T) {
	b := structuretest.Backbone(30, structuretest.Helix)
	g1, err := extractor().Extract(b)
	require.NoError(t, err)
	g2, err := extractor().Extract(b)
	require.NoError(t, err)
	assert.Equal(t, g1.From, g2.From)
	assert.Equal(t, g1.To, g2.To)
	assert.True(t, mat.Equal(g1.Nodes, g2.Nodes))
	assert.True(t, mat.Equal(g1.Edges, g2.Edges))
}

func TestSecondaryStructureAndTermini(t *testing.T) {
	g, err := extractor().Extract(structuretest.Backbone(12, structuretest.Helix))
	require.NoError(t, err)
	for i := 1; i < 11; i++ {
		assert.Equal(t, SSHelix, g.SS[i], "residue %d", i)
		assert.Equal(t, 1.0, g.Nodes.At(i, 6))
	}
	assert.Equal(t, SSCoil, g.SS[0])
	assert.Equal(t, 1.0, g.Nodes.At(0, 11))
	assert.Equal(t, 0.0, g.Nodes.At(0, 12))
	assert.Equal(t, 1.0, g.Nodes.At(11, 12))
	//phi is undefined for the first residue
	assert.Equal(t, 0.0, g.Nodes.At(0, 0))
	assert.Equal(t, 0.0, g.Nodes.At(0, 1))
	assert.InDelta(t, 1.0, g.Nodes.At(5, 10)*11/5, 1e-12)

	s, err := extractor().Extract(structuretest.Backbone(12, structuretest.Strand))
	require.NoError(t, err)
	for i := 1; i < 11; i++ {
		assert.Equal(t, SSStrand, s.SS[i], "residue %d", i)
	}
}

func TestLabels(t *testing.T) {
	b := structuretest.Backbone(25, structuretest.Helix)
	b.Residues[3].Name = "UNK"
	g, err := extractor().Extract(b)
	require.NoError(t, err)
	for i, r := range b.Residues {
		if i == 3 {
			assert.Equal(t, -1, g.Labels[i])
			assert.Equal(t, byte('X'), g.Info[i].AA)
			continue
		}
		assert.Equal(t, structure.Index(r.AA()), g.Labels[i])
		assert.Equal(t, r.Num, g.Info[i].Num)
	}
}

func TestChainsAreSeparate(t *testing.T) {
	a := structuretest.Chain(10, "A", 1, structuretest.Helix)
	b := structuretest.Chain(10, "B", 1, structuretest.Helix)
	structuretest.Translate(b, structure.Vec3{200, 0, 0})
	bb := &structure.Backbone{Name: "two", Residues: append(a, b...)}
	g, err := extractor().Extract(bb)
	require.NoError(t, err)
	for k := range g.From {
		assert.Equal(t, g.Info[g.To[k]].Chain, g.Info[g.From[k]].Chain)
		assert.Equal(t, 1.0, g.Edges.At(k, numRBF+7))
	}
	//last residue of A and first of B are chain ends
	assert.Equal(t, 1.0, g.Nodes.At(9, 12))
	assert.Equal(t, 1.0, g.Nodes.At(10, 11))
}

func TestTooSmall(t *testing.T) {
	_, err := extractor().Extract(structuretest.Backbone(1, structuretest.Helix))
	assert.ErrorIs(t, err, gcnerr.ErrMalformedStructure)
}

func TestFromFile(t *testing.T) {
	p := structuretest.WritePDB(t, structuretest.Backbone(50, structuretest.Helix), "helix.pdb")
	g, warns, err := extractor().FromFile(p)
	require.NoError(t, err)
	assert.Empty(t, warns)
	assert.Equal(t, 50, g.Len())
	assert.Equal(t, 50, g.Info[49].Num)

	_, _, err = extractor().FromFile(p + ".missing")
	assert.ErrorIs(t, err, gcnerr.ErrInputNotFound)
}
