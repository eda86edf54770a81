/*
predictor.go, part of GCNdesign



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
	"io"
	"log/slog"

	"github.com/rmera/gcndesign/internal/checkpoint"
	"github.com/rmera/gcndesign/internal/config"
	"github.com/rmera/gcndesign/internal/features"
	"github.com/rmera/gcndesign/internal/nn"
	"github.com/rmera/gcndesign/internal/structure"
	"gonum.org/v1/gonum/floats"
)

// Prediction is the amino-acid distribution predicted for one residue.
type Prediction struct {
	Chain    string
	ResNum   int
	Original byte
	Prob     [structure.NumAA]float64 //in alphabet order
}

// Best returns the most probable amino acid.
func (p *Prediction) Best() byte {
	return structure.Alphabet[floats.MaxIdx(p.Prob[:])]
}

// Predictor runs a trained network on structures. It is safe for
// concurrent use.
type Predictor struct {
	model *GCN
	ext   *features.Extractor
	log   *slog.Logger
}

func NewPredictor(m *GCN, missing config.MissingAtoms, log *slog.Logger) *Predictor {
	if log == nil {
		log = slog.Default()
	}
	return &Predictor{model: m, ext: features.NewExtractor(m.Hyper, missing), log: log}
}

// LoadPredictor rebuilds the network stored in a parameter file or a
// checkpoint.
func LoadPredictor(path string, dev nn.Device, missing config.MissingAtoms, log *slog.Logger) (*Predictor, error) {
	c, err := checkpoint.Load(path)
	if err != nil {
		return nil, err
	}
	m, err := New(c.Hyper, dev)
	if err != nil {
		return nil, err
	}
	if err := c.Restore(m.Params()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewPredictor(m, missing, log), nil
}

func (p *Predictor) Model() *GCN { return p.model }

// Predict returns one record per residue of g with probabilities
// softmax(logits/temperature). The temperature must be positive.
func (p *Predictor) Predict(g *features.Graph, temperature float64) ([]Prediction, error) {
	if temperature <= 0 {
		return nil, fmt.Errorf("temperature must be positive, got %g", temperature)
	}
	logits, _, err := p.model.Forward(g)
	if err != nil {
		return nil, err
	}
	ret := make([]Prediction, g.Len())
	for i, info := range g.Info {
		ret[i] = Prediction{Chain: info.Chain, ResNum: info.Num, Original: info.AA}
		copy(ret[i].Prob[:], nn.Softmax(logits.RawRowView(i), temperature))
	}
	return ret, nil
}

// PredictFile featurizes the PDB file and predicts it.
func (p *Predictor) PredictFile(path string, temperature float64) ([]Prediction, error) {
	g, warnings, err := p.ext.FromFile(path)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		p.log.Warn(w, "file", path)
	}
	return p.Predict(g, temperature)
}

// Format writes one line per residue: number, native type, predicted type,
// then the probability of every type.
func Format(w io.Writer, preds []Prediction) error {
	for _, pr := range preds {
		if _, err := fmt.Fprintf(w, " %4d %c %c:pred ", pr.ResNum, pr.Original, pr.Best()); err != nil {
			return err
		}
		for j, v := range pr.Prob {
			if _, err := fmt.Fprintf(w, " %5.3f:%c", v, structure.Alphabet[j]); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
