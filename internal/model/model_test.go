/*
model_test.go, part of GCNdesign



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

package model

import (
	"bytes"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rmera/gcndesign/internal/checkpoint"
	"github.com/rmera/gcndesign/internal/config"
	"github.com/rmera/gcndesign/internal/features"
	"github.com/rmera/gcndesign/internal/gcnerr"
	"github.com/rmera/gcndesign/internal/nn"
	"github.com/rmera/gcndesign/internal/structure"
	"github.com/rmera/gcndesign/internal/structure/structuretest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// tiny returns a configuration small enough for finite differences.
func tiny() config.HyperParam {
	h := config.Default()
	h.NNeighbor = 4
	h.DimHiddenNode0 = 4
	h.LayerEmbedNode0 = 2
	h.DimHiddenEdge0 = 3
	h.LayerEmbedEdge0 = 1
	h.NIterGCN = 2
	h.KNode = 2
	h.KEdge = 2
	h.DimHiddenNode = 4
	h.DimHiddenEdge = 4
	h.LayerEmbedNode = 2
	h.LayerEmbedEdge = 2
	h.DimHiddenPred1 = 5
	h.DimHiddenPred2 = 4
	h.LayerPred = 3
	h.FragmentSize = 3
	return h
}

func graph(t *testing.T, h config.HyperParam, n int) *features.Graph {
	t.Helper()
	g, err := features.NewExtractor(h, config.MissingSkip).Extract(structuretest.Backbone(n, structuretest.Helix))
	require.NoError(t, err)
	return g
}

func TestShapesGrowPerRound(t *testing.T) {
	h := config.Default()
	m, err := New(h, nil)
	require.NoError(t, err)
	m.Init(h.Seed)
	g := graph(t, h, 50)
	logits, tr, err := m.Forward(g)
	require.NoError(t, err)

	r, c := logits.Dims()
	assert.Equal(t, 50, r)
	assert.Equal(t, 20, c)
	_, ec := tr.Edges.Dims()
	assert.Equal(t, h.DimHiddenEdge0+h.NIterGCN*h.KEdge, ec)
	assert.Equal(t, h.DimHiddenNode0+h.NIterGCN*h.KNode, m.Head.Width)
	assert.Equal(t, h.FragmentSize*m.Head.Width, m.Head.MLP.In())
	assert.Equal(t, h.FragmentSize*20, m.Head.MLP.Out())
	for rd := 0; rd < h.NIterGCN; rd++ {
		assert.Equal(t, 2*m.Shapes.Node[rd]+m.Shapes.Edge[rd], m.Conv.NodeNets[rd].In())
		assert.Equal(t, h.KNode, m.Conv.NodeNets[rd].Out())
		assert.Equal(t, 2*m.Shapes.Node[rd+1]+m.Shapes.Edge[rd], m.Conv.EdgeNets[rd].In())
	}
}

func TestNoConvolutionRounds(t *testing.T) {
	h := tiny()
	h.NIterGCN = 0
	m, err := New(h, nil)
	require.NoError(t, err)
	m.Init(3)
	g := graph(t, h, 10)
	grads := nn.NewGrads()
	res, err := m.Loss(g, grads)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Count)
	assert.False(t, grads.Has(m.Embed.Edge.Layers[0].W))
}

func TestHeadCoversEveryResidueOnce(t *testing.T) {
	const n, w = 12, 3
	x := mat.NewDense(n, w, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < w; j++ {
			x.Set(i, j, math.Cos(float64(i*w+j)))
		}
	}
	for _, ov := range []config.Overlap{config.OverlapCenter, config.OverlapAverage} {
		for f := 1; f <= n; f++ {
			h := tiny()
			h.FragmentSize = f
			h.Overlap = ov
			head := NewFragmentHead(h, w)
			nn.XavierInit(head.MLP.Layers, 1)
			logits, _, err := head.Forward(nn.CPU{}, x)
			require.NoError(t, err, "F=%d %s", f, ov)
			r, _ := logits.Dims()
			assert.Equal(t, n, r)
			if ov == config.OverlapCenter {
				for i := 0; i < n; i++ {
					s := head.window(i, n)
					assert.True(t, s >= 0 && s <= n-f && i-s >= 0 && i-s < f, "F=%d i=%d s=%d", f, i, s)
				}
			}
		}
		h := tiny()
		h.FragmentSize = n + 1
		h.Overlap = ov
		_, _, err := NewFragmentHead(h, w).Forward(nn.CPU{}, x)
		assert.ErrorIs(t, err, ErrFragmentTooLarge)
		assert.ErrorIs(t, err, gcnerr.ErrShapeMismatch)
	}
}

func TestCenterWindowAtEnds(t *testing.T) {
	h := tiny()
	h.FragmentSize = 9
	head := NewFragmentHead(h, 2)
	assert.Equal(t, 0, head.window(0, 50))
	assert.Equal(t, 0, head.window(4, 50))
	assert.Equal(t, 1, head.window(5, 50))
	assert.Equal(t, 41, head.window(49, 50))
	assert.Equal(t, 41, head.window(45, 50))
}

func TestFragmentTooLargeForGraph(t *testing.T) {
	h := tiny()
	h.FragmentSize = 9
	m, err := New(h, nil)
	require.NoError(t, err)
	_, _, err = m.Forward(graph(t, h, 6))
	assert.ErrorIs(t, err, ErrFragmentTooLarge)
}

func gradientCheck(t *testing.T, ov config.Overlap) {
	h := tiny()
	h.Overlap = ov
	m, err := New(h, nil)
	require.NoError(t, err)
	m.Init(7)
	//keep pre-activations away from the ReLU kink when a whole row is dead
	for _, p := range m.Params() {
		if strings.HasSuffix(p.Name, ".b") {
			raw := p.W.RawRowView(0)
			for j := range raw {
				raw[j] = 0.1
			}
		}
	}
	g := graph(t, h, 8)
	g.Labels[2] = nn.Ignore

	grads := nn.NewGrads()
	_, err = m.Loss(g, grads)
	require.NoError(t, err)
	loss := func() float64 {
		res, err := m.Loss(g, nil)
		require.NoError(t, err)
		return res.Loss
	}
	last := m.Conv.EdgeNets[h.NIterGCN-1]
	for _, p := range last.Params() {
		assert.False(t, grads.Has(p), "%s should get no gradient", p.Name)
	}
	const eps = 1e-6
	for _, p := range m.Params() {
		r, c := p.W.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				orig := p.W.At(i, j)
				p.W.Set(i, j, orig+eps)
				up := loss()
				p.W.Set(i, j, orig-eps)
				down := loss()
				p.W.Set(i, j, orig)
				num := (up - down) / (2 * eps)
				got := 0.0
				if grads.Has(p) {
					got = grads.Of(p).At(i, j)
				}
				assert.InDelta(t, num, got, 1e-4, "%s[%d,%d] %s", p.Name, i, j, ov)
			}
		}
	}
}

func TestGradientCenter(t *testing.T)  { gradientCheck(t, config.OverlapCenter) }
func TestGradientAverage(t *testing.T) { gradientCheck(t, config.OverlapAverage) }

func TestPredictProbabilities(t *testing.T) {
	h := tiny()
	m, err := New(h, nil)
	require.NoError(t, err)
	m.Init(2)
	p := NewPredictor(m, config.MissingSkip, nil)
	g := graph(t, h, 15)
	for _, temp := range []float64{0.1, 1, 2.5} {
		preds, err := p.Predict(g, temp)
		require.NoError(t, err)
		require.Len(t, preds, 15)
		for i, pr := range preds {
			assert.InDelta(t, 1, floats.Sum(pr.Prob[:]), 1e-5)
			assert.Equal(t, i+1, pr.ResNum)
			assert.Equal(t, "A", pr.Chain)
		}
	}
	_, err = p.Predict(g, 0)
	assert.Error(t, err)
}

func TestPredictorConcurrent(t *testing.T) {
	h := tiny()
	m, err := New(h, nil)
	require.NoError(t, err)
	m.Init(9)
	p := NewPredictor(m, config.MissingSkip, nil)
	g := graph(t, h, 20)
	want, err := p.Predict(g, 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	got := make([][]Prediction, 8)
	for k := range got {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			got[k], _ = p.Predict(g, 1)
		}(k)
	}
	wg.Wait()
	for _, gk := range got {
		assert.Equal(t, want, gk)
	}
}

func TestPredictFileWithDefaults(t *testing.T) {
	h := config.Default()
	m, err := New(h, nil)
	require.NoError(t, err)
	m.Init(h.Seed)
	dir := t.TempDir()
	params := filepath.Join(dir, "param.params")
	require.NoError(t, checkpoint.SaveParams(params, h, m.Params()))

	p, err := LoadPredictor(params, nil, config.MissingSkip, nil)
	require.NoError(t, err)
	pdb := structuretest.WritePDB(t, structuretest.Backbone(50, structuretest.Helix), "helix.pdb")
	preds, err := p.PredictFile(pdb, 1)
	require.NoError(t, err)
	require.Len(t, preds, 50)
	assert.Equal(t, byte('A'), preds[0].Original)
	assert.Equal(t, byte('C'), preds[1].Original)

	var buf bytes.Buffer
	require.NoError(t, Format(&buf, preds))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 50)
	assert.True(t, strings.HasPrefix(lines[0], "    1 A "), lines[0])
	assert.Contains(t, lines[0], ":pred ")
	assert.Equal(t, 20, strings.Count(lines[0], ":")-1)

	_, err = LoadPredictor(filepath.Join(dir, "none.params"), nil, config.MissingSkip, nil)
	assert.ErrorIs(t, err, gcnerr.ErrInputNotFound)
}

// shortWriter accepts n writes and fails afterwards.
type shortWriter struct{ n int }

var errFull = errors.New("device full")

func (w *shortWriter) Write(p []byte) (int, error) {
	if w.n == 0 {
		return 0, errFull
	}
	w.n--
	return len(p), nil
}

func TestFormatReportsWriteErrors(t *testing.T) {
	preds := []Prediction{{Chain: "A", ResNum: 1, Original: 'A'}}
	preds[0].Prob[3] = 1
	for n := 0; n < 2+structure.NumAA; n++ {
		assert.ErrorIs(t, Format(&shortWriter{n: n}, preds), errFull, "after %d writes", n)
	}
	assert.NoError(t, Format(&shortWriter{n: 2 + structure.NumAA}, preds))
}
