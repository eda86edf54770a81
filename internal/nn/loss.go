/*
loss.go, part of GCNdesign



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
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Ignore is the label of rows left out of the loss.
const Ignore = -1

// Softmax returns exp(x/T)/sum(exp(x/T)). T must be positive.
func Softmax(x []float64, temperature float64) []float64 {
	if temperature <= 0 {
		panic(fmt.Sprintf("nn: temperature must be positive, got %g", temperature))
	}
	ret := make([]float64, len(x))
	floats.ScaleTo(ret, 1/temperature, x)
	lse := floats.LogSumExp(ret)
	for i, v := range ret {
		ret[i] = math.Exp(v - lse)
	}
	return ret
}

// LossResult is the outcome of a cross-entropy evaluation.
type LossResult struct {
	Loss    float64 //mean over the counted rows
	Correct int     //rows where the argmax is the label
	Count   int     //rows not ignored
	Grad    *mat.Dense
}

// CrossEntropy computes the mean softmax cross entropy of the logits
// against the labels, skipping rows labelled Ignore, and its gradient with
// respect to the logits.
func CrossEntropy(logits *mat.Dense, labels []int) LossResult {
	r, c := logits.Dims()
	if len(labels) != r {
		panic(fmt.Sprintf("nn: %d labels for %d rows", len(labels), r))
	}
	res := LossResult{Grad: mat.NewDense(r, c, nil)}
	for i, lab := range labels {
		if lab == Ignore {
			continue
		}
		row := logits.RawRowView(i)
		lse := floats.LogSumExp(row)
		res.Loss += lse - row[lab]
		p := make([]float64, c)
		for j, v := range row {
			p[j] = math.Exp(v - lse)
		}
		if floats.MaxIdx(row) == lab {
			res.Correct++
		}
		p[lab] -= 1
		copy(res.Grad.RawRowView(i), p)
		res.Count++
	}
	if res.Count > 0 {
		res.Loss /= float64(res.Count)
		res.Grad.Scale(1/float64(res.Count), res.Grad)
	}
	return res
}
