/*
conv.go, part of GCNdesign



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
	"github.com/rmera/gcndesign/internal/features"
	"github.com/rmera/gcndesign/internal/nn"
	"gonum.org/v1/gonum/mat"
)

// ConvEngine runs the graph convolution rounds. Each round appends k_node
// columns to the node embeddings and k_edge columns to the edge embeddings,
// so the widths at round r are Shapes.Node[r] and Shapes.Edge[r].
type ConvEngine struct {
	Shapes   config.Shapes
	NodeNets []*nn.MLP
	EdgeNets []*nn.MLP
}

func NewConvEngine(h config.HyperParam, s config.Shapes) *ConvEngine {
	c := &ConvEngine{Shapes: s}
	for r := 0; r < h.NIterGCN; r++ {
		nin := 2*s.Node[r] + s.Edge[r]
		ein := 2*s.Node[r+1] + s.Edge[r]
		c.NodeNets = append(c.NodeNets, nn.NewMLP(fmt.Sprintf("conv%d.node", r), nn.HiddenDims(nin, h.DimHiddenNode, h.KNode, h.LayerEmbedNode), true))
		c.EdgeNets = append(c.EdgeNets, nn.NewMLP(fmt.Sprintf("conv%d.edge", r), nn.HiddenDims(ein, h.DimHiddenEdge, h.KEdge, h.LayerEmbedEdge), true))
	}
	return c
}

// Rounds is the number of convolution rounds.
func (c *ConvEngine) Rounds() int { return len(c.NodeNets) }

func (c *ConvEngine) Params() []*nn.Param {
	var ret []*nn.Param
	for r := range c.NodeNets {
		ret = append(ret, c.NodeNets[r].Params()...)
		ret = append(ret, c.EdgeNets[r].Params()...)
	}
	return ret
}

func (c *ConvEngine) layers() []*nn.Linear {
	var ret []*nn.Linear
	for r := range c.NodeNets {
		ret = append(ret, c.NodeNets[r].Layers...)
		ret = append(ret, c.EdgeNets[r].Layers...)
	}
	return ret
}

type roundTrace struct {
	nodeTr *nn.MLPTrace
	edgeTr *nn.MLPTrace
}

// ConvTrace keeps the intermediates of a forward pass.
type ConvTrace struct {
	g      *features.Graph
	indeg  []float64
	rounds []roundTrace
}

// Forward runs every round on the embedded graph and returns the final node
// and edge embeddings.
func (c *ConvEngine) Forward(dev nn.Device, g *features.Graph, h, e *mat.Dense) (*mat.Dense, *mat.Dense, *ConvTrace) {
	tr := &ConvTrace{g: g, indeg: inDegree(g), rounds: make([]roundTrace, c.Rounds())}
	for r := range c.NodeNets {
		x := nn.HConcat(dev, nn.Gather(dev, h, g.To), nn.Gather(dev, h, g.From), e)
		msg, nt := c.NodeNets[r].Forward(dev, x)
		agg := dev.Zeros(g.Len(), c.Shapes.Node[r+1]-c.Shapes.Node[r])
		nn.ScatterAdd(agg, msg, g.To)
		scaleRows(agg, tr.indeg)
		h = nn.HConcat(dev, h, agg)

		y := nn.HConcat(dev, nn.Gather(dev, h, g.To), nn.Gather(dev, h, g.From), e)
		upd, et := c.EdgeNets[r].Forward(dev, y)
		e = nn.HConcat(dev, e, upd)
		tr.rounds[r] = roundTrace{nodeTr: nt, edgeTr: et}
	}
	return h, e, tr
}

// Backward takes the gradient of the final node embeddings and returns the
// gradients of the round-0 node and edge embeddings. The edge update of the
// last round feeds nothing, so its backward pass is skipped. With no rounds
// the edge gradient is nil.
func (c *ConvEngine) Backward(dev nn.Device, tr *ConvTrace, dh *mat.Dense, grads *nn.Grads) (*mat.Dense, *mat.Dense) {
	g := tr.g
	var de *mat.Dense
	for r := c.Rounds() - 1; r >= 0; r-- {
		s := c.Shapes
		if de != nil {
			parts := nn.HSplit(dev, de, s.Edge[r], s.Edge[r+1]-s.Edge[r])
			de = parts[0]
			dy := c.EdgeNets[r].Backward(dev, tr.rounds[r].edgeTr, parts[1], grads)
			yp := nn.HSplit(dev, dy, s.Node[r+1], s.Node[r+1], s.Edge[r])
			nn.ScatterAdd(dh, yp[0], g.To)
			nn.ScatterAdd(dh, yp[1], g.From)
			de.Add(de, yp[2])
		}
		hp := nn.HSplit(dev, dh, s.Node[r], s.Node[r+1]-s.Node[r])
		dagg := hp[1]
		scaleRows(dagg, tr.indeg)
		dmsg := nn.Gather(dev, dagg, g.To)
		dx := c.NodeNets[r].Backward(dev, tr.rounds[r].nodeTr, dmsg, grads)
		xp := nn.HSplit(dev, dx, s.Node[r], s.Node[r], s.Edge[r])
		dh = hp[0]
		nn.ScatterAdd(dh, xp[0], g.To)
		nn.ScatterAdd(dh, xp[1], g.From)
		if de == nil {
			de = xp[2]
		} else {
			de.Add(de, xp[2])
		}
	}
	return dh, de
}

func inDegree(g *features.Graph) []float64 {
	ret := make([]float64, g.Len())
	for _, t := range g.To {
		ret[t]++
	}
	return ret
}

// scaleRows divides row i of m by n[i], leaving rows with n[i]==0 alone.
func scaleRows(m *mat.Dense, n []float64) {
	for i, v := range n {
		if v == 0 {
			continue
		}
		row := m.RawRowView(i)
		for j := range row {
			row[j] /= v
		}
	}
}
