/*
ideal.go, part of GCNdesign



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

// Package structuretest builds ideal protein backbones for tests, from
// backbone dihedrals, with the natural extension reference frame method.
package structuretest

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rmera/gcndesign/internal/structure"
)

const (
	bondNCA = 1.458
	bondCAC = 1.525
	bondCN  = 1.329
	bondCO  = 1.231

	angNCAC = 111.2
	angCACN = 116.2
	angCNCA = 121.7
	angCACO = 120.5
)

// Dihedrals for the ideal secondary structures, in degrees.
var (
	Helix  = [2]float64{-57, -47}
	Strand = [2]float64{-120, 130}
)

func rad(deg float64) float64 { return deg * math.Pi / 180 }

// place returns the point d with |cd| = bond, angle bcd = angle and
// dihedral abcd = torsion (degrees).
func place(a, b, c structure.Vec3, bond, angle, torsion float64) structure.Vec3 {
	bc := c.Sub(b).Unit()
	n := b.Sub(a).Cross(bc).Unit()
	m := n.Cross(bc)
	th, ph := rad(angle), rad(torsion)
	d := structure.Vec3{-bond * math.Cos(th), bond * math.Sin(th) * math.Cos(ph), bond * math.Sin(th) * math.Sin(ph)}
	return c.Add(bc.Scale(d[0])).Add(m.Scale(d[1])).Add(n.Scale(d[2]))
}

// Chain builds a backbone of n residues on the given chain, numbered from
// first, with every residue at the (phi, psi) of ss. Residue types cycle
// through the predicted alphabet.
func Chain(n int, chain string, first int, ss [2]float64) []structure.Residue {
	res := make([]structure.Residue, n)
	N := structure.Vec3{0, 0, 0}
	CA := structure.Vec3{bondNCA, 0, 0}
	ang := rad(180 - angNCAC)
	C := CA.Add(structure.Vec3{bondCAC * math.Cos(ang), bondCAC * math.Sin(ang), 0})
	for i := 0; i < n; i++ {
		if i > 0 {
			p := res[i-1]
			N = place(p.N, p.CA, p.C, bondCN, angCACN, ss[1])
			CA = place(p.CA, p.C, N, bondNCA, angCNCA, 180)
			C = place(p.C, N, CA, bondCAC, angNCAC, ss[0])
		}
		aa := structure.Alphabet[i%structure.NumAA]
		res[i] = structure.Residue{Chain: chain, Num: first + i, Name: structure.ThreeLetter(aa), N: N, CA: CA, C: C}
	}
	for i := 0; i < n; i++ {
		r := &res[i]
		if i+1 < n {
			r.O = place(res[i+1].N, r.CA, r.C, bondCO, angCACO, 180)
		} else {
			r.O = place(r.N, r.CA, r.C, bondCO, angCACO, ss[1]+180)
		}
		r.HasO = true
	}
	return res
}

// Backbone returns a single-chain backbone (chain A, numbered from 1).
func Backbone(n int, ss [2]float64) *structure.Backbone {
	return &structure.Backbone{Name: "ideal", Residues: Chain(n, "A", 1, ss)}
}

// Translate moves every atom of the residues by d.
func Translate(res []structure.Residue, d structure.Vec3) {
	for i := range res {
		r := &res[i]
		r.N, r.CA, r.C, r.O = r.N.Add(d), r.CA.Add(d), r.C.Add(d), r.O.Add(d)
	}
}

// WritePDB writes b in a temporary directory and returns the path.
func WritePDB(t testing.TB, b *structure.Backbone, name string) string {
	t.Helper()
	var buf bytes.Buffer
	if err := b.WritePDB(&buf); err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}
