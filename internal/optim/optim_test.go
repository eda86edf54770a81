/*
optim_test.go, part of GCNdesign



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

package optim

import (
	"testing"

	"github.com/rmera/gcndesign/internal/config"
	"github.com/rmera/gcndesign/internal/gcnerr"
	"github.com/rmera/gcndesign/internal/nn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func param(name string, vals ...float64) *nn.Param {
	return &nn.Param{Name: name, W: mat.NewDense(1, len(vals), vals)}
}

func constGrad(ps []*nn.Param, vals ...float64) *nn.Grads {
	g := nn.NewGrads()
	for _, p := range ps {
		copy(g.Of(p).RawRowView(0), vals)
	}
	return g
}

func TestRAdamMomentumPhase(t *testing.T) {
	p := param("w", 1, 2)
	o := NewRAdam(config.Default())
	o.Step([]*nn.Param{p}, constGrad([]*nn.Param{p}, 0.5, -1), 0.1)
	//the first steps are unrectified, so the update is lr times the
	//bias-corrected first moment, which equals the gradient at t=1
	assert.InDelta(t, 0.95, p.W.At(0, 0), 1e-12)
	assert.InDelta(t, 2.1, p.W.At(0, 1), 1e-12)
}

func TestRAdamRectifiedPhase(t *testing.T) {
	p := param("w", 0, 0)
	o := NewRAdam(config.Default())
	prev := 0.0
	for i := 0; i < 200; i++ {
		o.Step([]*nn.Param{p}, constGrad([]*nn.Param{p}, 1, -1), 0.01)
		assert.Less(t, p.W.At(0, 0), prev)
		prev = p.W.At(0, 0)
		assert.InDelta(t, -p.W.At(0, 0), p.W.At(0, 1), 1e-9)
	}
	//with a constant gradient the adaptive step is lr*r_t, never larger than lr
	before := p.W.At(0, 0)
	o.Step([]*nn.Param{p}, constGrad([]*nn.Param{p}, 1, -1), 0.01)
	step := before - p.W.At(0, 0)
	assert.Greater(t, step, 0.0)
	assert.LessOrEqual(t, step, 0.01+1e-9)
}

func TestRAdamSkipsParamsWithoutGradient(t *testing.T) {
	a, b := param("a", 1), param("b", 1)
	o := NewRAdam(config.Default())
	o.Step([]*nn.Param{a, b}, constGrad([]*nn.Param{a}, 1), 0.1)
	assert.Equal(t, 1.0, b.W.At(0, 0))
	assert.NotEqual(t, 1.0, a.W.At(0, 0))
	assert.Equal(t, map[string]int{"a": 1}, o.State().Steps)
}

func TestRAdamStateRoundTrip(t *testing.T) {
	run := func(p *nn.Param, o *RAdam, n int) {
		for i := 0; i < n; i++ {
			o.Step([]*nn.Param{p}, constGrad([]*nn.Param{p}, 0.3, -0.2, 0.1), 0.05)
		}
	}
	p1 := param("w", 1, 1, 1)
	o1 := NewRAdam(config.Default())
	run(p1, o1, 12)

	p2 := param("w", 1, 1, 1)
	o2 := NewRAdam(config.Default())
	run(p2, o2, 7)
	o3 := NewRAdam(config.Default())
	require.NoError(t, o3.SetState(o2.State(), []*nn.Param{p2}))
	run(p2, o3, 5)
	assert.True(t, mat.Equal(p1.W, p2.W))

	bad := o2.State()
	bad.Steps["ghost"] = 1
	assert.ErrorIs(t, o3.SetState(bad, []*nn.Param{p2}), gcnerr.ErrShapeMismatch)
	short := o2.State()
	short.M["w"] = short.M["w"][:1]
	assert.ErrorIs(t, o3.SetState(short, []*nn.Param{p2}), gcnerr.ErrShapeMismatch)
}

func TestRAdamWeightDecay(t *testing.T) {
	h := config.Default()
	h.WeightDecay = 0.5
	p := param("w", 2)
	o := NewRAdam(h)
	o.Step([]*nn.Param{p}, constGrad([]*nn.Param{p}, 0), 0.1)
	assert.InDelta(t, 2*(1-0.05), p.W.At(0, 0), 1e-12)
}

func TestStepLR(t *testing.T) {
	s := NewStepLR(0.002, 0.1, 40)
	assert.InDelta(t, 0.002, s.LR(), 1e-15)
	for i := 0; i < 39; i++ {
		s.Step()
	}
	assert.InDelta(t, 0.002, s.LR(), 1e-15)
	s.Step()
	assert.InDelta(t, 0.0002, s.LR(), 1e-15)
	s.Epoch = 80
	assert.InDelta(t, 0.00002, s.LR(), 1e-15)
}
