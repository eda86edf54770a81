/*
ops.go, part of GCNdesign



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
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Gather returns the rows idx[0], idx[1]... of x.
func Gather(dev Device, x *mat.Dense, idx []int) *mat.Dense {
	_, c := x.Dims()
	ret := dev.Zeros(len(idx), c)
	for k, i := range idx {
		copy(ret.RawRowView(k), x.RawRowView(i))
	}
	return ret
}

// ScatterAdd adds row k of src to row idx[k] of dst. It is the backward
// pass of Gather.
func ScatterAdd(dst, src *mat.Dense, idx []int) {
	for k, i := range idx {
		floats.Add(dst.RawRowView(i), src.RawRowView(k))
	}
}

// HConcat places the matrices side by side. They must have the same number
// of rows.
func HConcat(dev Device, ms ...*mat.Dense) *mat.Dense {
	r, _ := ms[0].Dims()
	c := 0
	for _, m := range ms {
		mr, mc := m.Dims()
		if mr != r {
			panic(mat.ErrShape)
		}
		c += mc
	}
	ret := dev.Zeros(r, c)
	for i := 0; i < r; i++ {
		row := ret.RawRowView(i)
		off := 0
		for _, m := range ms {
			src := m.RawRowView(i)
			copy(row[off:], src)
			off += len(src)
		}
	}
	return ret
}

// HSplit cuts m into column blocks of the given widths, copying them.
func HSplit(dev Device, m *mat.Dense, widths ...int) []*mat.Dense {
	r, _ := m.Dims()
	ret := make([]*mat.Dense, len(widths))
	for k, w := range widths {
		ret[k] = dev.Zeros(r, w)
	}
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		off := 0
		for k, w := range widths {
			copy(ret[k].RawRowView(i), row[off:off+w])
			off += w
		}
	}
	return ret
}
