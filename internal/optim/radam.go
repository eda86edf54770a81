/*
radam.go, part of GCNdesign



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

// Package optim holds the RAdam optimizer and the step learning-rate
// schedule used by the trainer. Both expose their state so a checkpoint can
// restore a run exactly.
package optim

import (
	"fmt"
	"math"

	"github.com/rmera/gcndesign/internal/config"
	"github.com/rmera/gcndesign/internal/gcnerr"
	"github.com/rmera/gcndesign/internal/nn"
	"github.com/viterin/vek"
)

// rhoThreshold is the smallest length of the approximated SMA for which the
// variance is rectified. Below it the update is plain momentum.
const rhoThreshold = 5.0

type moment struct {
	step int
	m, v []float64
}

// RAdam is the rectified Adam optimizer. State is kept per parameter name.
type RAdam struct {
	Beta1       float64
	Beta2       float64
	Eps         float64
	WeightDecay float64
	state       map[string]*moment
	tmp         []float64
}

func NewRAdam(h config.HyperParam) *RAdam {
	return &RAdam{Beta1: h.Beta1, Beta2: h.Beta2, Eps: h.Eps, WeightDecay: h.WeightDecay, state: make(map[string]*moment)}
}

// data returns the backing slice of p, which is always contiguous.
func data(p *nn.Param) []float64 {
	raw := p.W.RawMatrix()
	if raw.Stride != raw.Cols {
		panic(fmt.Sprintf("optim: parameter %s is not contiguous", p.Name))
	}
	return raw.Data[:raw.Rows*raw.Cols]
}

func (o *RAdam) scratch(n int) []float64 {
	if cap(o.tmp) < n {
		o.tmp = make([]float64, n)
	}
	return o.tmp[:n]
}

// Step updates every parameter that has a gradient in g with learning rate lr.
func (o *RAdam) Step(params []*nn.Param, g *nn.Grads, lr float64) {
	rhoInf := 2/(1-o.Beta2) - 1
	for _, p := range params {
		if !g.Has(p) {
			continue
		}
		w := data(p)
		grad := g.Of(p).RawMatrix().Data
		st, ok := o.state[p.Name]
		if !ok {
			st = &moment{m: make([]float64, len(w)), v: make([]float64, len(w))}
			o.state[p.Name] = st
		}
		st.step++
		t := float64(st.step)
		if o.WeightDecay > 0 {
			vek.MulNumber_Inplace(w, 1-lr*o.WeightDecay)
		}

		tmp := o.scratch(len(w))
		copy(tmp, grad)
		vek.MulNumber_Inplace(tmp, 1-o.Beta1)
		vek.MulNumber_Inplace(st.m, o.Beta1)
		vek.Add_Inplace(st.m, tmp)

		copy(tmp, grad)
		vek.Mul_Inplace(tmp, grad)
		vek.MulNumber_Inplace(tmp, 1-o.Beta2)
		vek.MulNumber_Inplace(st.v, o.Beta2)
		vek.Add_Inplace(st.v, tmp)

		bc1 := 1 - math.Pow(o.Beta1, t)
		b2t := math.Pow(o.Beta2, t)
		bc2 := 1 - b2t
		rho := rhoInf - 2*t*b2t/bc2
		if rho >= rhoThreshold {
			r := math.Sqrt((rho - 4) * (rho - 2) * rhoInf / ((rhoInf - 4) * (rhoInf - 2) * rho))
			f := lr * r / bc1
			for i := range w {
				w[i] -= f * st.m[i] / (math.Sqrt(st.v[i]/bc2) + o.Eps)
			}
			continue
		}
		copy(tmp, st.m)
		vek.MulNumber_Inplace(tmp, -lr/bc1)
		vek.Add_Inplace(w, tmp)
	}
}

// State is the exportable optimizer state, keyed by parameter name.
type State struct {
	Steps map[string]int
	M     map[string][]float64
	V     map[string][]float64
}

// State returns a copy of the optimizer state.
func (o *RAdam) State() State {
	s := State{Steps: make(map[string]int), M: make(map[string][]float64), V: make(map[string][]float64)}
	for name, st := range o.state {
		s.Steps[name] = st.step
		s.M[name] = append([]float64(nil), st.m...)
		s.V[name] = append([]float64(nil), st.v...)
	}
	return s
}

// SetState replaces the optimizer state. Every entry must name one of params
// and have its size.
func (o *RAdam) SetState(s State, params []*nn.Param) error {
	byName := nn.ByName(params)
	state := make(map[string]*moment, len(s.Steps))
	for name, step := range s.Steps {
		p, ok := byName[name]
		if !ok {
			return gcnerr.ShapeMismatch("optimizer state", "unknown parameter %q", name)
		}
		m, v := s.M[name], s.V[name]
		if len(m) != p.Size() || len(v) != p.Size() {
			return gcnerr.ShapeMismatch("optimizer state", "%q has %d/%d moments, parameter has %d", name, len(m), len(v), p.Size())
		}
		state[name] = &moment{step: step, m: append([]float64(nil), m...), v: append([]float64(nil), v...)}
	}
	o.state = state
	return nil
}
