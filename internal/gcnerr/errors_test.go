/*
errors_test.go, part of GCNdesign



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

package gcnerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelWrapping(t *testing.T) {
	err := DataNotFound("train.list", "missing.pdb")
	assert.ErrorIs(t, err, ErrDataNotFound)
	assert.ErrorIs(t, err, ErrInputNotFound)
	assert.Contains(t, err.Error(), "missing.pdb")

	assert.ErrorIs(t, InputNotFound("PDB", "x.pdb"), ErrInputNotFound)
	assert.ErrorIs(t, ShapeMismatch("conv.0.node.0.W", "want %dx%d", 3, 4), ErrShapeMismatch)
}

func TestStructureError(t *testing.T) {
	e := &StructureError{File: "a.pdb", Chain: "A", ResNum: 12, ResName: "GLY", Msg: "missing CA"}
	e.Decorate("Extract")
	e.Decorate("Load")
	var err error = e
	assert.True(t, errors.Is(err, ErrMalformedStructure))
	assert.Equal(t, "Load: Extract: a.pdb: residue GLY12A: missing CA", err.Error())

	var se *StructureError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, 12, se.ResNum)
}
