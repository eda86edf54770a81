/*
embed.go, part of GCNdesign



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
	"github.com/rmera/gcndesign/internal/config"
	"github.com/rmera/gcndesign/internal/features"
	"github.com/rmera/gcndesign/internal/nn"
	"gonum.org/v1/gonum/mat"
)

// EmbeddingStack lifts the raw node and edge features to the widths the
// first convolution round expects.
type EmbeddingStack struct {
	Node *nn.MLP
	Edge *nn.MLP
}

func NewEmbeddingStack(h config.HyperParam) *EmbeddingStack {
	return &EmbeddingStack{
		Node: nn.NewMLP("embed.node", nn.HiddenDims(features.NodeDim, h.DimHiddenNode0, h.DimHiddenNode0, h.LayerEmbedNode0), true),
		Edge: nn.NewMLP("embed.edge", nn.HiddenDims(features.EdgeDim, h.DimHiddenEdge0, h.DimHiddenEdge0, h.LayerEmbedEdge0), true),
	}
}

func (e *EmbeddingStack) Params() []*nn.Param {
	return append(e.Node.Params(), e.Edge.Params()...)
}

func (e *EmbeddingStack) layers() []*nn.Linear {
	return append(append([]*nn.Linear{}, e.Node.Layers...), e.Edge.Layers...)
}

type embedTrace struct {
	node, edge *nn.MLPTrace
}

// Forward embeds the node and edge feature matrices.
func (e *EmbeddingStack) Forward(dev nn.Device, nodes, edges *mat.Dense) (*mat.Dense, *mat.Dense, *embedTrace) {
	h, nt := e.Node.Forward(dev, nodes)
	x, et := e.Edge.Forward(dev, edges)
	return h, x, &embedTrace{node: nt, edge: et}
}

// Backward accumulates the weight gradients. A nil gradient skips its branch.
func (e *EmbeddingStack) Backward(dev nn.Device, tr *embedTrace, dh, de *mat.Dense, g *nn.Grads) {
	if dh != nil {
		e.Node.Backward(dev, tr.node, dh, g)
	}
	if de != nil {
		e.Edge.Backward(dev, tr.edge, de, g)
	}
}
