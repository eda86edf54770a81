/*
resfile_test.go, part of GCNdesign



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

package resfile

import (
	"strings"
	"testing"

	"github.com/rmera/gcndesign/internal/model"
	"github.com/rmera/gcndesign/internal/structure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pred(num int, native byte, probs map[byte]float64) model.Prediction {
	p := model.Prediction{Chain: "A", ResNum: num, Original: native}
	for aa, v := range probs {
		p.Prob[structure.Index(aa)] = v
	}
	return p
}

func TestAllowed(t *testing.T) {
	p := pred(1, 'G', map[byte]float64{'L': 0.5, 'A': 0.2, 'E': 0.2, 'K': 0.1})
	assert.Equal(t, "L", Allowed(&p, Options{ProbCut: 0.5}))
	//ties resolve in alphabet order
	assert.Equal(t, "LAE", Allowed(&p, Options{ProbCut: 0.8}))
	assert.Equal(t, "LAEK", Allowed(&p, Options{ProbCut: 0.95}))
	assert.Equal(t, "L", Allowed(&p, Options{ProbCut: 0}))
	assert.Equal(t, "AE", Allowed(&p, Options{ProbCut: 0.4, Unused: "l"}))
	assert.Equal(t, "LG", Allowed(&p, Options{ProbCut: 0.5, IncludeNative: true}))
	assert.Equal(t, "", Allowed(&p, Options{ProbCut: 0.5, Unused: structure.Alphabet}))
}

func TestGenerate(t *testing.T) {
	preds := []model.Prediction{
		pred(1, 'G', map[byte]float64{'L': 0.9, 'A': 0.1}),
		pred(2, 'G', map[byte]float64{'W': 0.1, 'F': 0.85, 'Y': 0.05}),
	}
	out := Generate(preds, Options{ProbCut: 0.8, Unused: "W"})
	assert.Equal(t, "NATAA\nstart\n   1 A PIKAA L\n   2 A PIKAA F\n", out)
}

func TestExpandKeep(t *testing.T) {
	res, err := ExpandKeep([]string{"1A", "3A-5A", "4A"}, 50)
	require.NoError(t, err)
	assert.Equal(t, []Residue{{1, "A"}, {3, "A"}, {4, "A"}, {5, "A"}}, res)

	res, err = ExpandKeep([]string{"@C"}, 3)
	require.NoError(t, err)
	assert.Equal(t, []Residue{{1, "C"}, {2, "C"}, {3, "C"}}, res)

	for _, bad := range []string{"A1", "3A-5B", "5A-3A", "x"} {
		_, err := ExpandKeep([]string{bad}, 10)
		assert.Error(t, err, bad)
	}
}

func TestFixNative(t *testing.T) {
	var preds []model.Prediction
	for i := 1; i <= 50; i++ {
		preds = append(preds, pred(i, 'A', map[byte]float64{'V': 1}))
	}
	keep, err := ExpandKeep(strings.Fields("1A 3A-5A"), 50)
	require.NoError(t, err)
	out := FixNative(Generate(preds, Options{ProbCut: 0.8}), keep)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 52)
	assert.Equal(t, "NATAA", lines[0])
	assert.Equal(t, "start", lines[1])
	natives := 0
	for _, l := range lines[2:] {
		if strings.HasSuffix(l, "NATAA") {
			natives++
		}
	}
	assert.Equal(t, 4, natives)
	assert.Equal(t, "   1 A NATAA", lines[2])
	assert.Equal(t, "   2 A PIKAA V", lines[3])
	assert.Equal(t, "   3 A NATAA", lines[4])
	assert.Equal(t, "   5 A NATAA", lines[6])
	assert.Equal(t, "   6 A PIKAA V", lines[7])
}
