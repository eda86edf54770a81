/*
features.go, part of GCNdesign



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

// Package features converts a protein backbone into the graph the network
// reads: one feature row per residue and one feature row per directed
// residue pair in the neighborhood of each residue.
package features

import (
	"fmt"
	"math"
	"sort"

	"github.com/rmera/gcndesign/internal/config"
	"github.com/rmera/gcndesign/internal/gcnerr"
	"github.com/rmera/gcndesign/internal/structure"
	chem "github.com/rmera/gochem"
	"gonum.org/v1/gonum/mat"
)

// Widths of the raw feature rows.
const (
	NodeDim = 13
	EdgeDim = 18
)

const (
	numRBF         = 8
	rbfMin         = 2.0
	exposureRadius = 10.0
	exposureScale  = 30.0
	peptideBond    = 2.0 //largest C(i)-N(i+1) distance still read as a peptide bond
	maxSep         = 32
)

// Secondary structure classes, as read from the Ramachandran region.
const (
	SSHelix = iota
	SSStrand
	SSCoil
)

// ResidueInfo identifies the residue behind a node.
type ResidueInfo struct {
	Chain string
	Num   int
	AA    byte
}

// Graph is the featurized structure. Edge k carries information from node
// From[k] to node To[k]. Edges are sorted by (To, From).
type Graph struct {
	Name   string
	Nodes  *mat.Dense
	Edges  *mat.Dense
	From   []int
	To     []int
	Labels []int //class index of the native residue, -1 to ignore
	Info   []ResidueInfo
	SS     []int
}

// Len returns the number of residues.
func (g *Graph) Len() int { return len(g.Info) }

// NumEdges returns the number of directed edges.
func (g *Graph) NumEdges() int { return len(g.From) }

// Extractor holds the neighborhood parameters. It has no other state, so
// the same structure always yields the same graph.
type Extractor struct {
	NNeighbor int
	Cutoff    float64
	SeqWindow int
	Missing   config.MissingAtoms
}

// NewExtractor builds the extractor for the given hyperparameters.
func NewExtractor(h config.HyperParam, missing config.MissingAtoms) *Extractor {
	return &Extractor{NNeighbor: h.NNeighbor, Cutoff: h.Cutoff, SeqWindow: h.SeqWindow, Missing: missing}
}

// FromFile reads a PDB file and featurizes it. The warnings are those of
// the missing-atom policy.
func (x *Extractor) FromFile(path string) (*Graph, []string, error) {
	b, err := structure.Read(path, x.Missing)
	if err != nil {
		return nil, nil, err
	}
	g, err := x.Extract(b)
	return g, b.Warnings, err
}

type geom struct {
	cb     []structure.Vec3
	frames [][3]structure.Vec3
	bonded []bool //bonded[i]: residue i is peptide-bonded to residue i+1
	chainI []int  //index of the residue within its chain
	chainN map[string]int
}

func newGeom(res []structure.Residue) *geom {
	n := len(res)
	g := &geom{
		cb:     make([]structure.Vec3, n),
		frames: make([][3]structure.Vec3, n),
		bonded: make([]bool, n),
		chainI: make([]int, n),
		chainN: make(map[string]int),
	}
	for i := range res {
		r := &res[i]
		g.cb[i] = r.CB()
		e1 := r.C.Sub(r.CA).Unit()
		e3 := e1.Cross(r.N.Sub(r.CA)).Unit()
		e2 := e3.Cross(e1)
		g.frames[i] = [3]structure.Vec3{e1, e2, e3}
		if i+1 < n && res[i+1].Chain == r.Chain && r.C.Dist(res[i+1].N) < peptideBond {
			g.bonded[i] = true
		}
		g.chainI[i] = g.chainN[r.Chain]
		g.chainN[r.Chain]++
	}
	return g
}

// Extract featurizes a backbone.
func (x *Extractor) Extract(b *structure.Backbone) (*Graph, error) {
	n := b.Len()
	if n < 2 {
		return nil, gcnerr.Malformed(b.Name, "%d residues, at least 2 needed", n)
	}
	res := b.Residues
	gm := newGeom(res)
	g := &Graph{
		Name:   b.Name,
		Nodes:  mat.NewDense(n, NodeDim, nil),
		Labels: make([]int, n),
		Info:   make([]ResidueInfo, n),
		SS:     make([]int, n),
	}
	for i := range res {
		aa := res[i].AA()
		g.Info[i] = ResidueInfo{Chain: res[i].Chain, Num: res[i].Num, AA: aa}
		g.Labels[i] = structure.Index(aa)
		g.SS[i] = x.nodeRow(g.Nodes.RawRowView(i), res, gm, i)
	}
	if err := x.edges(g, res, gm); err != nil {
		return nil, err
	}
	return g, nil
}

func dihedral(a, b, c, d structure.Vec3) float64 {
	return chem.DihedralRama(a.Matrix(), b.Matrix(), c.Matrix(), d.Matrix())
}

// nodeRow fills one node feature row and returns the secondary structure class.
func (x *Extractor) nodeRow(row []float64, res []structure.Residue, gm *geom, i int) int {
	r := &res[i]
	hasPrev := i > 0 && gm.bonded[i-1]
	hasNext := gm.bonded[i]
	var phi, psi float64
	if hasPrev {
		phi = dihedral(res[i-1].C, r.N, r.CA, r.C)
		row[0], row[1] = math.Sin(phi), math.Cos(phi)
	}
	if hasNext {
		psi = dihedral(r.N, r.CA, r.C, res[i+1].N)
		omega := dihedral(r.CA, r.C, res[i+1].N, res[i+1].CA)
		row[2], row[3] = math.Sin(psi), math.Cos(psi)
		row[4], row[5] = math.Sin(omega), math.Cos(omega)
	}
	ss := SSCoil
	if hasPrev && hasNext {
		ss = ramaClass(phi*180/math.Pi, psi*180/math.Pi)
	}
	row[6+ss] = 1

	count := 0
	for j := range gm.cb {
		if j != i && gm.cb[i].Dist(gm.cb[j]) < exposureRadius {
			count++
		}
	}
	row[9] = float64(count) / exposureScale
	if cn := gm.chainN[r.Chain]; cn > 1 {
		row[10] = float64(gm.chainI[i]) / float64(cn-1)
	}
	if !hasPrev {
		row[11] = 1
	}
	if !hasNext {
		row[12] = 1
	}
	return ss
}

// ramaClass assigns helix, strand or coil from the Ramachandran region of
// phi and psi, in degrees.
func ramaClass(phi, psi float64) int {
	switch {
	case phi >= -160 && phi <= -20 && psi >= -120 && psi <= 50:
		return SSHelix
	case phi >= -180 && phi <= -40 && (psi >= 90 || psi <= -150):
		return SSStrand
	}
	return SSCoil
}

type neighbor struct {
	j int
	d float64
}

// neighbors returns the sorted neighbor indexes of residue i: the NNeighbor
// nearest residues by virtual C-beta distance within Cutoff, plus every
// residue of the same chain within SeqWindow positions. Ties go to the
// lower index.
func (x *Extractor) neighbors(res []structure.Residue, gm *geom, i int) []int {
	cand := make([]neighbor, 0, len(res)-1)
	for j := range res {
		if j == i {
			continue
		}
		if d := gm.cb[i].Dist(gm.cb[j]); d <= x.Cutoff {
			cand = append(cand, neighbor{j, d})
		}
	}
	sort.Slice(cand, func(a, b int) bool {
		if cand[a].d != cand[b].d {
			return cand[a].d < cand[b].d
		}
		return cand[a].j < cand[b].j
	})
	if len(cand) > x.NNeighbor {
		cand = cand[:x.NNeighbor]
	}
	set := make(map[int]bool, len(cand)+2*x.SeqWindow)
	for _, c := range cand {
		set[c.j] = true
	}
	for j := i - x.SeqWindow; j <= i+x.SeqWindow; j++ {
		if j >= 0 && j < len(res) && j != i && res[j].Chain == res[i].Chain {
			set[j] = true
		}
	}
	ret := make([]int, 0, len(set))
	for j := range set {
		ret = append(ret, j)
	}
	sort.Ints(ret)
	return ret
}

func (x *Extractor) edges(g *Graph, res []structure.Residue, gm *geom) error {
	var rows []float64
	for i := range res {
		for _, j := range x.neighbors(res, gm, i) {
			g.To = append(g.To, i)
			g.From = append(g.From, j)
			rows = append(rows, x.edgeRow(res, gm, i, j)...)
		}
	}
	if len(g.From) == 0 {
		return gcnerr.Malformed(g.Name, "no residue pair within %.1f A or %d positions", x.Cutoff, x.SeqWindow)
	}
	g.Edges = mat.NewDense(len(g.From), EdgeDim, rows)
	return nil
}

// edgeRow computes the features of the edge from j to i.
func (x *Extractor) edgeRow(res []structure.Residue, gm *geom, i, j int) []float64 {
	row := make([]float64, EdgeDim)
	d := gm.cb[i].Dist(gm.cb[j])
	step := (x.Cutoff - rbfMin) / float64(numRBF-1)
	if step <= 0 {
		step = 1
	}
	for k := 0; k < numRBF; k++ {
		mu := rbfMin + float64(k)*step
		z := (d - mu) / step
		row[k] = math.Exp(-z * z)
	}
	ca := res[j].CA.Sub(res[i].CA)
	row[numRBF] = ca.Norm() / 10
	u := ca.Unit()
	fi, fj := gm.frames[i], gm.frames[j]
	for a := 0; a < 3; a++ {
		row[numRBF+1+a] = u.Dot(fi[a])
		row[numRBF+4+a] = fi[a].Dot(fj[a])
	}
	if res[i].Chain == res[j].Chain {
		sep := j - i
		row[numRBF+7] = 1
		row[numRBF+8] = float64(clamp(sep, -maxSep, maxSep)) / maxSep
		if sep == 1 || sep == -1 {
			row[numRBF+9] = 1
		}
	}
	return row
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// String gives a short description of the graph, for logs.
func (g *Graph) String() string {
	return fmt.Sprintf("%s: %d residues, %d edges", g.Name, g.Len(), g.NumEdges())
}
