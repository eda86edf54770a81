/*
checkpoint.go, part of GCNdesign



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

// Package checkpoint reads and writes parameter files and training
// checkpoints.
//
// Both share one binary layout: the magic string, a little-endian uint32
// format version, a uint32 length followed by a YAML header, then the
// tensors listed in the header as little-endian float64 in row-major order.
// A parameter file carries the hyperparameters and the weights. A
// checkpoint adds the epoch, the schedule and the optimizer moments.
package checkpoint

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/rmera/gcndesign/internal/config"
	"github.com/rmera/gcndesign/internal/gcnerr"
	"github.com/rmera/gcndesign/internal/nn"
	"github.com/rmera/gcndesign/internal/optim"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

const (
	magic         = "GCNDCKPT"
	formatVersion = 1
	maxHeader     = 64 << 20
)

// Tensor sections.
const (
	sectionParam = "param"
	sectionM     = "m"
	sectionV     = "v"
)

type tensorInfo struct {
	Name    string `yaml:"name"`
	Section string `yaml:"section"`
	Rows    int    `yaml:"rows"`
	Cols    int    `yaml:"cols"`
}

type header struct {
	RunID     string         `yaml:"run_id"`
	Epoch     int            `yaml:"epoch"`
	TrainLoss float64        `yaml:"train_loss"`
	BestValid float64        `yaml:"best_valid"`
	Hyper     string         `yaml:"hyperparams"`
	Schedule  *optim.StepLR  `yaml:"schedule,omitempty"`
	Steps     map[string]int `yaml:"steps,omitempty"`
	Tensors   []tensorInfo   `yaml:"tensors"`
}

// Checkpoint is the content of a parameter file or a training checkpoint.
// Schedule and Optim are nil for parameter files.
type Checkpoint struct {
	Hyper     config.HyperParam
	RunID     string
	Epoch     int
	TrainLoss float64
	BestValid float64
	Schedule  *optim.StepLR
	Optim     *optim.State
	params    map[string]*mat.Dense
}

// IsCheckpoint reports whether c can resume training.
func (c *Checkpoint) IsCheckpoint() bool { return c.Schedule != nil && c.Optim != nil }

// SaveParams writes a parameter file.
func SaveParams(path string, h config.HyperParam, params []*nn.Param) error {
	return Save(path, &Checkpoint{Hyper: h}, params)
}

// Save writes c with the given parameters. The optimizer moments are
// written when c.Optim is set.
func Save(path string, c *Checkpoint, params []*nn.Param) error {
	hy, err := c.Hyper.Marshal()
	if err != nil {
		return err
	}
	hd := header{
		RunID:     c.RunID,
		Epoch:     c.Epoch,
		TrainLoss: c.TrainLoss,
		BestValid: c.BestValid,
		Hyper:     string(hy),
		Schedule:  c.Schedule,
	}
	var data [][]float64
	add := func(name, section string, r, cols int, d []float64) {
		hd.Tensors = append(hd.Tensors, tensorInfo{Name: name, Section: section, Rows: r, Cols: cols})
		data = append(data, d)
	}
	for _, p := range params {
		r, cols := p.W.Dims()
		add(p.Name, sectionParam, r, cols, rowMajor(p.W))
	}
	if c.Optim != nil {
		if c.Schedule == nil {
			return fmt.Errorf("checkpoint %q: optimizer state without a schedule", path)
		}
		hd.Steps = c.Optim.Steps
		for _, p := range params {
			if _, ok := c.Optim.Steps[p.Name]; !ok {
				continue
			}
			r, cols := p.W.Dims()
			add(p.Name, sectionM, r, cols, c.Optim.M[p.Name])
			add(p.Name, sectionV, r, cols, c.Optim.V[p.Name])
		}
	}
	hb, err := yaml.Marshal(hd)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	write := func(v any) {
		if err == nil {
			err = binary.Write(w, binary.LittleEndian, v)
		}
	}
	write([]byte(magic))
	write(uint32(formatVersion))
	write(uint32(len(hb)))
	write(hb)
	for _, d := range data {
		write(d)
	}
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %q: %w", path, err)
	}
	return nil
}

func rowMajor(m *mat.Dense) []float64 {
	r, c := m.Dims()
	ret := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		ret = append(ret, m.RawRowView(i)...)
	}
	return ret
}

// Load reads a parameter file or a checkpoint. The stored hyperparameters
// are decoded strictly.
func Load(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, gcnerr.InputNotFound("parameter", path)
		}
		return nil, err
	}
	defer f.Close()
	c, err := read(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	return c, nil
}

func corrupt(format string, a ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, a...), gcnerr.ErrInvalidConfig)
}

func read(r io.Reader) (*Checkpoint, error) {
	mg := make([]byte, len(magic))
	if _, err := io.ReadFull(r, mg); err != nil || string(mg) != magic {
		return nil, corrupt("not a GCNdesign parameter file")
	}
	var version, hlen uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != formatVersion {
		return nil, corrupt("format version %d, expected %d", version, formatVersion)
	}
	if err := binary.Read(r, binary.LittleEndian, &hlen); err != nil {
		return nil, err
	}
	if hlen > maxHeader {
		return nil, corrupt("header of %d bytes", hlen)
	}
	hb := make([]byte, hlen)
	if _, err := io.ReadFull(r, hb); err != nil {
		return nil, err
	}
	var hd header
	if err := yaml.Unmarshal(hb, &hd); err != nil {
		return nil, corrupt("header: %v", err)
	}
	h, err := config.DecodeStrict([]byte(hd.Hyper))
	if err != nil {
		return nil, err
	}
	c := &Checkpoint{
		Hyper:     h,
		RunID:     hd.RunID,
		Epoch:     hd.Epoch,
		TrainLoss: hd.TrainLoss,
		BestValid: hd.BestValid,
		Schedule:  hd.Schedule,
		params:    make(map[string]*mat.Dense),
	}
	if hd.Steps != nil {
		c.Optim = &optim.State{Steps: hd.Steps, M: make(map[string][]float64), V: make(map[string][]float64)}
	}
	for _, t := range hd.Tensors {
		if t.Rows <= 0 || t.Cols <= 0 {
			return nil, corrupt("tensor %s has shape %dx%d", t.Name, t.Rows, t.Cols)
		}
		d := make([]float64, t.Rows*t.Cols)
		if err := binary.Read(r, binary.LittleEndian, d); err != nil {
			return nil, fmt.Errorf("tensor %s: %w", t.Name, err)
		}
		switch {
		case t.Section == sectionParam:
			c.params[t.Name] = mat.NewDense(t.Rows, t.Cols, d)
		case t.Section == sectionM && c.Optim != nil:
			c.Optim.M[t.Name] = d
		case t.Section == sectionV && c.Optim != nil:
			c.Optim.V[t.Name] = d
		default:
			return nil, corrupt("tensor %s in unknown section %q", t.Name, t.Section)
		}
	}
	return c, nil
}

// Restore copies the stored weights into params. Every parameter must be
// stored with its exact shape and no stored tensor may be left over.
func (c *Checkpoint) Restore(params []*nn.Param) error {
	if len(params) != len(c.params) {
		return gcnerr.ShapeMismatch("parameters", "%d stored, model has %d", len(c.params), len(params))
	}
	for _, p := range params {
		src, ok := c.params[p.Name]
		if !ok {
			return gcnerr.ShapeMismatch(p.Name, "not stored")
		}
		r, cols := p.W.Dims()
		sr, sc := src.Dims()
		if r != sr || cols != sc {
			return gcnerr.ShapeMismatch(p.Name, "stored %dx%d, model has %dx%d", sr, sc, r, cols)
		}
	}
	for _, p := range params {
		p.W.Copy(c.params[p.Name])
	}
	return nil
}
