/*
param.go, part of GCNdesign



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
	"math"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Param is a named learnable tensor. The name is its identity in parameter
// files and in the optimizer state.
type Param struct {
	Name string
	W    *mat.Dense
}

// Size is the number of scalars in the parameter.
func (p *Param) Size() int {
	r, c := p.W.Dims()
	return r * c
}

// Grads accumulates gradients for a set of parameters.
type Grads struct {
	g map[*Param]*mat.Dense
}

func NewGrads() *Grads {
	return &Grads{g: make(map[*Param]*mat.Dense)}
}

// Of returns the gradient of p, allocating a zero one on first use.
func (g *Grads) Of(p *Param) *mat.Dense {
	d, ok := g.g[p]
	if !ok {
		r, c := p.W.Dims()
		d = mat.NewDense(r, c, nil)
		g.g[p] = d
	}
	return d
}

// Has reports whether p got any gradient since the last Zero.
func (g *Grads) Has(p *Param) bool {
	_, ok := g.g[p]
	return ok
}

// Zero drops every gradient.
func (g *Grads) Zero() {
	clear(g.g)
}

// CountParams returns the number of scalars in ps.
func CountParams(ps []*Param) int {
	n := 0
	for _, p := range ps {
		n += p.Size()
	}
	return n
}

// ByName indexes ps by name.
func ByName(ps []*Param) map[string]*Param {
	ret := make(map[string]*Param, len(ps))
	for _, p := range ps {
		ret[p.Name] = p
	}
	return ret
}

// Names returns the sorted parameter names.
func Names(ps []*Param) []string {
	ret := make([]string, len(ps))
	for i, p := range ps {
		ret[i] = p.Name
	}
	sort.Strings(ret)
	return ret
}

// XavierInit fills the weights of every layer with Xavier-normal values and
// zeroes the biases, drawing from a source seeded with seed. Layers are
// visited in order, so the result only depends on the seed and the layout.
func XavierInit(layers []*Linear, seed uint64) {
	src := rand.NewSource(seed)
	for _, l := range layers {
		n := distuv.Normal{Mu: 0, Sigma: math.Sqrt(2 / float64(l.In+l.Out)), Src: src}
		raw := l.W.W.RawMatrix()
		for i := 0; i < raw.Rows; i++ {
			row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
			for j := range row {
				row[j] = n.Rand()
			}
		}
		l.B.W.Zero()
	}
}
