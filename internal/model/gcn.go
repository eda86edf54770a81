/*
gcn.go, part of GCNdesign



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

// Package model assembles the GCNdesign network: the embedding stack, the
// graph convolution engine and the fragment prediction head, with their
// forward and backward passes, and the Predictor built on top of them.
//
// A GCN never writes to its parameters while running forward. Everything a
// backward pass needs is returned in a Trace, so a single GCN can serve
// concurrent Forward calls as long as nobody trains it at the same time.
package model

import (
	"fmt"

	"github.com/rmera/gcndesign/internal/config"
	"github.com/rmera/gcndesign/internal/features"
	"github.com/rmera/gcndesign/internal/gcnerr"
	"github.com/rmera/gcndesign/internal/nn"
	"gonum.org/v1/gonum/mat"
)

type GCN struct {
	Hyper  config.HyperParam
	Shapes config.Shapes
	Embed  *EmbeddingStack
	Conv   *ConvEngine
	Head   *FragmentHead
	dev    nn.Device
}

// New builds a zero-weight network with the shapes given by h. Call Init or
// restore a parameter set before use.
func New(h config.HyperParam, dev nn.Device) (*GCN, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	if dev == nil {
		dev = nn.CPU{}
	}
	s := h.Shapes()
	m := &GCN{
		Hyper:  h,
		Shapes: s,
		Embed:  NewEmbeddingStack(h),
		Conv:   NewConvEngine(h, s),
		Head:   NewFragmentHead(h, s.Node[h.NIterGCN]),
		dev:    dev,
	}
	for _, p := range m.Params() {
		p.W = dev.Place(p.W)
	}
	return m, nil
}

func (m *GCN) Device() nn.Device { return m.dev }

// Params returns every learnable tensor, embedding first, then the
// convolution rounds in order, then the head.
func (m *GCN) Params() []*nn.Param {
	ret := m.Embed.Params()
	ret = append(ret, m.Conv.Params()...)
	return append(ret, m.Head.Params()...)
}

// Size is the number of learnable scalars.
func (m *GCN) Size() int { return nn.CountParams(m.Params()) }

// Init draws every weight from the seeded Xavier initializer.
func (m *GCN) Init(seed uint64) {
	layers := m.Embed.layers()
	layers = append(layers, m.Conv.layers()...)
	layers = append(layers, m.Head.MLP.Layers...)
	nn.XavierInit(layers, seed)
}

// ReinitHead draws new weights for the prediction head only.
func (m *GCN) ReinitHead(seed uint64) {
	nn.XavierInit(m.Head.MLP.Layers, seed)
}

// Trace is what Backward needs from a Forward call.
type Trace struct {
	embed *embedTrace
	conv  *ConvTrace
	head  *HeadTrace
	Edges *mat.Dense //final edge embeddings
}

// Forward returns the N x 20 logits of the graph.
func (m *GCN) Forward(g *features.Graph) (*mat.Dense, *Trace, error) {
	if _, c := g.Nodes.Dims(); c != features.NodeDim {
		return nil, nil, gcnerr.ShapeMismatch("node features", "width %d, expected %d", c, features.NodeDim)
	}
	if _, c := g.Edges.Dims(); c != features.EdgeDim {
		return nil, nil, gcnerr.ShapeMismatch("edge features", "width %d, expected %d", c, features.EdgeDim)
	}
	if g.Len() < m.Hyper.FragmentSize {
		return nil, nil, fmt.Errorf("%s: %d residues, fragment size %d: %w", g.Name, g.Len(), m.Hyper.FragmentSize, ErrFragmentTooLarge)
	}
	h, e, et := m.Embed.Forward(m.dev, m.dev.Place(g.Nodes), m.dev.Place(g.Edges))
	h, e, ct := m.Conv.Forward(m.dev, g, h, e)
	logits, ht, err := m.Head.Forward(m.dev, h)
	if err != nil {
		return nil, nil, err
	}
	return logits, &Trace{embed: et, conv: ct, head: ht, Edges: e}, nil
}

// Backward adds to grads the gradient of every parameter given the
// gradient of the logits.
func (m *GCN) Backward(tr *Trace, dlogits *mat.Dense, grads *nn.Grads) {
	dh := m.Head.Backward(m.dev, tr.head, dlogits, grads)
	dh, de := m.Conv.Backward(m.dev, tr.conv, dh, grads)
	m.Embed.Backward(m.dev, tr.embed, dh, de, grads)
}

// Loss runs the network on g and returns the masked cross entropy against
// the native labels. When grads is not nil the gradients are accumulated
// into it.
func (m *GCN) Loss(g *features.Graph, grads *nn.Grads) (nn.LossResult, error) {
	logits, tr, err := m.Forward(g)
	if err != nil {
		return nn.LossResult{}, err
	}
	res := nn.CrossEntropy(logits, g.Labels)
	if grads != nil && res.Count > 0 {
		m.Backward(tr, res.Grad, grads)
	}
	return res, nil
}
