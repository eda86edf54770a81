/*
head.go, part of GCNdesign



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
	"fmt"

	"github.com/rmera/gcndesign/internal/config"
	"github.com/rmera/gcndesign/internal/gcnerr"
	"github.com/rmera/gcndesign/internal/nn"
	"github.com/rmera/gcndesign/internal/structure"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrFragmentTooLarge is returned when a structure has fewer residues than
// the fragment size.
var ErrFragmentTooLarge = fmt.Errorf("fragment larger than the structure: %w", gcnerr.ErrShapeMismatch)

// FragmentHead predicts amino-acid logits from windows of F consecutive
// node embeddings, and resolves residues covered by several windows
// according to Overlap.
type FragmentHead struct {
	F       int
	Width   int
	Overlap config.Overlap
	MLP     *nn.MLP
}

// predDims returns the widths of the head MLP. The first hidden layer has
// width dim_hidden_pred1 and every later hidden layer dim_hidden_pred2.
func predDims(h config.HyperParam, in int) []int {
	dims := make([]int, h.LayerPred+1)
	dims[0] = in
	for i := 1; i < h.LayerPred; i++ {
		dims[i] = h.DimHiddenPred2
	}
	dims[1] = h.DimHiddenPred1
	dims[h.LayerPred] = h.FragmentSize * structure.NumAA
	return dims
}

func NewFragmentHead(h config.HyperParam, width int) *FragmentHead {
	return &FragmentHead{
		F:       h.FragmentSize,
		Width:   width,
		Overlap: h.Overlap,
		MLP:     nn.NewMLP("pred", predDims(h, h.FragmentSize*width), false),
	}
}

func (f *FragmentHead) Params() []*nn.Param { return f.MLP.Params() }

// HeadTrace keeps the intermediates of a forward pass.
type HeadTrace struct {
	n     int
	mlp   *nn.MLPTrace
	count []float64 //windows covering each residue, for the average policy
}

// window returns the window that residue i reads under the center policy.
func (f *FragmentHead) window(i, n int) int {
	s := i - f.F/2
	if s < 0 {
		s = 0
	}
	if s > n-f.F {
		s = n - f.F
	}
	return s
}

// Forward takes the N x Width node embeddings and returns N x 20 logits, one
// row per residue.
func (f *FragmentHead) Forward(dev nn.Device, h *mat.Dense) (*mat.Dense, *HeadTrace, error) {
	n, w := h.Dims()
	if w != f.Width {
		return nil, nil, gcnerr.ShapeMismatch("node embeddings", "width %d, head expects %d", w, f.Width)
	}
	if f.F > n {
		return nil, nil, fmt.Errorf("%d residues, fragment size %d: %w", n, f.F, ErrFragmentTooLarge)
	}
	nwin := n - f.F + 1
	x := dev.Zeros(nwin, f.F*w)
	for s := 0; s < nwin; s++ {
		row := x.RawRowView(s)
		for o := 0; o < f.F; o++ {
			copy(row[o*w:(o+1)*w], h.RawRowView(s+o))
		}
	}
	out, mtr := f.MLP.Forward(dev, x)
	tr := &HeadTrace{n: n, mlp: mtr}
	logits := dev.Zeros(n, structure.NumAA)
	const a = structure.NumAA
	switch f.Overlap {
	case config.OverlapAverage:
		tr.count = make([]float64, n)
		for s := 0; s < nwin; s++ {
			row := out.RawRowView(s)
			for o := 0; o < f.F; o++ {
				floats.Add(logits.RawRowView(s+o), row[o*a:(o+1)*a])
				tr.count[s+o]++
			}
		}
		scaleRows(logits, tr.count)
	default:
		for i := 0; i < n; i++ {
			s := f.window(i, n)
			o := i - s
			copy(logits.RawRowView(i), out.RawRowView(s)[o*a:(o+1)*a])
		}
	}
	return logits, tr, nil
}

// Backward returns the gradient of the node embeddings.
func (f *FragmentHead) Backward(dev nn.Device, tr *HeadTrace, dlogits *mat.Dense, g *nn.Grads) *mat.Dense {
	n := tr.n
	nwin := n - f.F + 1
	const a = structure.NumAA
	dout := dev.Zeros(nwin, f.F*a)
	switch f.Overlap {
	case config.OverlapAverage:
		for s := 0; s < nwin; s++ {
			row := dout.RawRowView(s)
			for o := 0; o < f.F; o++ {
				floats.AddScaled(row[o*a:(o+1)*a], 1/tr.count[s+o], dlogits.RawRowView(s+o))
			}
		}
	default:
		for i := 0; i < n; i++ {
			s := f.window(i, n)
			o := i - s
			floats.Add(dout.RawRowView(s)[o*a:(o+1)*a], dlogits.RawRowView(i))
		}
	}
	dx := f.MLP.Backward(dev, tr.mlp, dout, g)
	dh := dev.Zeros(n, f.Width)
	w := f.Width
	for s := 0; s < nwin; s++ {
		row := dx.RawRowView(s)
		for o := 0; o < f.F; o++ {
			floats.Add(dh.RawRowView(s+o), row[o*w:(o+1)*w])
		}
	}
	return dh
}
