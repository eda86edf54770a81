/*
linear.go, part of GCNdesign



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

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Linear is a fully connected layer, y = x*W + b, with W in x out.
type Linear struct {
	W, B    *Param
	In, Out int
}

// NewLinear allocates a zero layer. Names are name+".W" and name+".b".
func NewLinear(name string, in, out int) *Linear {
	return &Linear{
		W:   &Param{Name: name + ".W", W: mat.NewDense(in, out, nil)},
		B:   &Param{Name: name + ".b", W: mat.NewDense(1, out, nil)},
		In:  in,
		Out: out,
	}
}

// Params returns the weight and the bias.
func (l *Linear) Params() []*Param { return []*Param{l.W, l.B} }

// Forward computes x*W + b.
func (l *Linear) Forward(dev Device, x *mat.Dense) *mat.Dense {
	r, c := x.Dims()
	if c != l.In {
		panic(fmt.Sprintf("nn: %s expects %d inputs, got %d", l.W.Name, l.In, c))
	}
	y := dev.Zeros(r, l.Out)
	dev.Mul(y, x, l.W.W)
	b := l.B.W.RawRowView(0)
	for i := 0; i < r; i++ {
		floats.Add(y.RawRowView(i), b)
	}
	return y
}

// Backward takes the layer input x and the gradient dy of the output. It adds
// the parameter gradients to g, when g is not nil, and returns dx.
func (l *Linear) Backward(dev Device, x, dy *mat.Dense, g *Grads) *mat.Dense {
	r, _ := dy.Dims()
	if g != nil {
		dw := dev.Zeros(l.In, l.Out)
		dev.Mul(dw, x.T(), dy)
		gw := g.Of(l.W)
		gw.Add(gw, dw)
		gb := g.Of(l.B).RawRowView(0)
		for i := 0; i < r; i++ {
			floats.Add(gb, dy.RawRowView(i))
		}
	}
	dx := dev.Zeros(r, l.In)
	dev.Mul(dx, dy, l.W.W.T())
	return dx
}
