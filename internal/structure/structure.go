/*
structure.go, part of GCNdesign



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

// Package structure turns a gochem molecule into the protein backbone the
// feature extractor works on: one entry per residue, in file order, with the
// N, CA and C atoms every residue must have.
package structure

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/rmera/gcndesign/internal/config"
	"github.com/rmera/gcndesign/internal/gcnerr"
	chem "github.com/rmera/gochem"
)

// Residue is one protein residue and its backbone atoms.
type Residue struct {
	Chain string
	Num   int
	Name  string //three-letter code as read
	N     Vec3
	CA    Vec3
	C     Vec3
	O     Vec3
	HasO  bool
}

// AA is the one-letter code of the residue, 'X' when not a standard type.
func (r *Residue) AA() byte {
	return OneLetter(r.Name)
}

// CB builds the virtual C-beta from the backbone, with the ideal
// tetrahedral geometry, so glycines get one too.
func (r *Residue) CB() Vec3 {
	b := r.CA.Sub(r.N)
	c := r.C.Sub(r.CA)
	a := b.Cross(c)
	return a.Scale(-0.58273431).Add(b.Scale(0.56802827)).Add(c.Scale(-0.54067466)).Add(r.CA)
}

// Backbone is an ordered set of residues with complete backbones.
type Backbone struct {
	Name     string
	Residues []Residue
	//Warnings lists the residues dropped under the skip policy.
	Warnings []string
}

func (b *Backbone) Len() int { return len(b.Residues) }

// MaxResNum returns the largest residue number in the backbone.
func (b *Backbone) MaxResNum() int {
	m := 0
	for _, r := range b.Residues {
		if r.Num > m {
			m = r.Num
		}
	}
	return m
}

// Sequence returns the one-letter sequence.
func (b *Backbone) Sequence() string {
	s := make([]byte, len(b.Residues))
	for i := range b.Residues {
		s[i] = b.Residues[i].AA()
	}
	return string(s)
}

// Read parses a PDB file and extracts its backbone.
func Read(path string, policy config.MissingAtoms) (*Backbone, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, gcnerr.InputNotFound("PDB", path)
	}
	mol, err := chem.PDBFileRead(path)
	if err != nil {
		return nil, &gcnerr.StructureError{File: path, Msg: "unable to parse: " + err.Error()}
	}
	b, err := FromMolecule(mol, path, policy)
	if err != nil {
		var se *gcnerr.StructureError
		if errors.As(err, &se) {
			se.Decorate("Read")
		}
		return nil, err
	}
	return b, nil
}

type reskey struct {
	chain string
	molid int
}

type partial struct {
	res   Residue
	hasN  bool
	hasCA bool
	hasC  bool
}

// FromMolecule groups the atoms of the first frame of mol into residues.
// Non-protein residues (waters, ligands) are ignored. Residues missing N, CA
// or C are dropped with a warning under MissingSkip, and make the whole
// structure fail under MissingAbort. Alternate locations after the first are
// ignored.
func FromMolecule(mol *chem.Molecule, name string, policy config.MissingAtoms) (*Backbone, error) {
	if mol == nil || len(mol.Coords) == 0 {
		return nil, gcnerr.Malformed(name, "no coordinates")
	}
	coords := mol.Coords[0]
	order := make([]reskey, 0, mol.Len()/8+1)
	res := make(map[reskey]*partial)
	for i := 0; i < mol.Len(); i++ {
		at := mol.Atom(i)
		if !IsAminoAcid(at.MolName) {
			continue
		}
		k := reskey{chain: at.Chain, molid: at.MolID}
		p, ok := res[k]
		if !ok {
			p = &partial{res: Residue{Chain: at.Chain, Num: at.MolID, Name: at.MolName}}
			res[k] = p
			order = append(order, k)
		}
		pos := Vec3{coords.At(i, 0), coords.At(i, 1), coords.At(i, 2)}
		switch at.Name {
		case "N":
			if !p.hasN {
				p.res.N, p.hasN = pos, true
			}
		case "CA":
			if !p.hasCA {
				p.res.CA, p.hasCA = pos, true
			}
		case "C":
			if !p.hasC {
				p.res.C, p.hasC = pos, true
			}
		case "O":
			if !p.res.HasO {
				p.res.O, p.res.HasO = pos, true
			}
		}
	}
	b := &Backbone{Name: name, Residues: make([]Residue, 0, len(order))}
	for _, k := range order {
		p := res[k]
		if p.hasN && p.hasCA && p.hasC {
			b.Residues = append(b.Residues, p.res)
			continue
		}
		missing := ""
		if !p.hasN {
			missing += " N"
		}
		if !p.hasCA {
			missing += " CA"
		}
		if !p.hasC {
			missing += " C"
		}
		if policy == config.MissingAbort {
			e := &gcnerr.StructureError{File: name, Chain: k.chain, ResNum: k.molid, ResName: p.res.Name, Msg: "missing backbone atoms:" + missing}
			e.Decorate("FromMolecule")
			return nil, e
		}
		b.Warnings = append(b.Warnings, fmt.Sprintf("residue %s%d%s skipped, missing backbone atoms:%s", p.res.Name, k.molid, k.chain, missing))
	}
	if len(b.Residues) < 2 {
		return nil, gcnerr.Malformed(name, "%d complete residues, at least 2 needed", len(b.Residues))
	}
	return b, nil
}

// WritePDB writes the backbone atoms in PDB format.
func (b *Backbone) WritePDB(w io.Writer) error {
	const format = "ATOM  %5d %-4s %3s %1s%4d    %8.3f%8.3f%8.3f%6.2f%6.2f          %2s\n"
	serial := 1
	for _, r := range b.Residues {
		atoms := []struct {
			name, elem string
			pos        Vec3
			ok         bool
		}{
			{" N", "N", r.N, true},
			{" CA", "C", r.CA, true},
			{" C", "C", r.C, true},
			{" O", "O", r.O, r.HasO},
		}
		for _, a := range atoms {
			if !a.ok {
				continue
			}
			_, err := fmt.Fprintf(w, format, serial, a.name, r.Name, r.Chain, r.Num, a.pos[0], a.pos[1], a.pos[2], 1.0, 0.0, a.elem)
			if err != nil {
				return err
			}
			serial++
		}
	}
	_, err := fmt.Fprint(w, "END\n")
	return err
}
