/*
mlp.go, part of GCNdesign



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

package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// MLP is a stack of Linear layers with ReLU between them, and after the last
// one too when ActLast is set.
type MLP struct {
	Layers  []*Linear
	ActLast bool
}

// NewMLP builds len(dims)-1 layers, dims[i] -> dims[i+1], named name.0,
// name.1 and so on.
func NewMLP(name string, dims []int, actLast bool) *MLP {
	if len(dims) < 2 {
		panic("nn: an MLP needs at least an input and an output width")
	}
	m := &MLP{ActLast: actLast}
	for i := 0; i+1 < len(dims); i++ {
		m.Layers = append(m.Layers, NewLinear(fmt.Sprintf("%s.%d", name, i), dims[i], dims[i+1]))
	}
	return m
}

// HiddenDims returns the widths of an MLP with n layers from in to out where
// every hidden layer has width hidden.
func HiddenDims(in, hidden, out, n int) []int {
	dims := make([]int, n+1)
	dims[0] = in
	for i := 1; i < n; i++ {
		dims[i] = hidden
	}
	dims[n] = out
	return dims
}

func (m *MLP) In() int  { return m.Layers[0].In }
func (m *MLP) Out() int { return m.Layers[len(m.Layers)-1].Out }

// Params returns the parameters, layer by layer.
func (m *MLP) Params() []*Param {
	ret := make([]*Param, 0, 2*len(m.Layers))
	for _, l := range m.Layers {
		ret = append(ret, l.Params()...)
	}
	return ret
}

// MLPTrace keeps what a forward pass needs for its backward pass.
type MLPTrace struct {
	in  []*mat.Dense //input of each layer
	out []*mat.Dense //output of each layer, after the activation if any
}

func (m *MLP) activated(i int) bool {
	return i < len(m.Layers)-1 || m.ActLast
}

// Forward runs x through the stack.
func (m *MLP) Forward(dev Device, x *mat.Dense) (*mat.Dense, *MLPTrace) {
	tr := &MLPTrace{in: make([]*mat.Dense, len(m.Layers)), out: make([]*mat.Dense, len(m.Layers))}
	h := x
	for i, l := range m.Layers {
		tr.in[i] = h
		h = l.Forward(dev, h)
		if m.activated(i) {
			ReLU(h)
		}
		tr.out[i] = h
	}
	return h, tr
}

// Backward propagates dy through the stack and returns the gradient of the input.
func (m *MLP) Backward(dev Device, tr *MLPTrace, dy *mat.Dense, g *Grads) *mat.Dense {
	d := dy
	for i := len(m.Layers) - 1; i >= 0; i-- {
		if m.activated(i) {
			d = ReLUBackward(tr.out[i], d)
		}
		d = m.Layers[i].Backward(dev, tr.in[i], d, g)
	}
	return d
}

// ReLU sets the negative elements of h to zero, in place.
func ReLU(h *mat.Dense) {
	r, _ := h.Dims()
	for i := 0; i < r; i++ {
		row := h.RawRowView(i)
		for j, v := range row {
			if v < 0 {
				row[j] = 0
			}
		}
	}
}

// ReLUBackward returns dy masked where the activated output y is zero.
func ReLUBackward(y, dy *mat.Dense) *mat.Dense {
	r, c := dy.Dims()
	ret := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		yr, dr, out := y.RawRowView(i), dy.RawRowView(i), ret.RawRowView(i)
		for j := range out {
			if yr[j] > 0 {
				out[j] = dr[j]
			}
		}
	}
	return ret
}
