/*
config.go, part of GCNdesign



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

// Package config holds the hyperparameter record that drives the network
// architecture and the run options that only matter for one invocation.
//
// A HyperParam is persisted next to the trained weights. It carries a schema
// version and is decoded strictly when read back: unknown and missing
// fields are rejected, never defaulted, so a model rebuilt from a parameter
// file always has the shapes it was trained with.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/rmera/gcndesign/internal/gcnerr"
	"gopkg.in/yaml.v3"
)

// SchemaVersion is the version of the HyperParam layout written by this code.
const SchemaVersion = 1

// Overlap selects how the prediction head resolves residues covered by
// several fragments.
type Overlap string

const (
	// OverlapCenter takes, for each residue, the fragment in which it sits at
	// the center, clamped at the sequence ends.
	OverlapCenter Overlap = "center"
	// OverlapAverage averages the logits of every fragment covering the residue.
	OverlapAverage Overlap = "average"
)

// HyperParam is the immutable-per-run record of every structural and
// optimization choice.
type HyperParam struct {
	Version int `yaml:"version"`

	//featurization
	NNeighbor int     `yaml:"nneighbor"`
	Cutoff    float64 `yaml:"cutoff"`
	SeqWindow int     `yaml:"seq_window"`

	//embedding stack
	DimHiddenNode0  int `yaml:"dim_hidden_node0"`
	LayerEmbedNode0 int `yaml:"layer_embed_node0"`
	DimHiddenEdge0  int `yaml:"dim_hidden_edge0"`
	LayerEmbedEdge0 int `yaml:"layer_embed_edge0"`

	//graph convolution
	NIterGCN       int `yaml:"niter_gcn"`
	KNode          int `yaml:"k_node"`
	KEdge          int `yaml:"k_edge"`
	DimHiddenNode  int `yaml:"dim_hidden_node"`
	DimHiddenEdge  int `yaml:"dim_hidden_edge"`
	LayerEmbedNode int `yaml:"layer_embed_node"`
	LayerEmbedEdge int `yaml:"layer_embed_edge"`

	//prediction head
	DimHiddenPred1 int     `yaml:"dim_hidden_pred1"`
	DimHiddenPred2 int     `yaml:"dim_hidden_pred2"`
	LayerPred      int     `yaml:"layer_pred"`
	FragmentSize   int     `yaml:"fragment_size"`
	Overlap        Overlap `yaml:"overlap"`

	//training
	Epochs       int     `yaml:"epochs"`
	LearningRate float64 `yaml:"learning_rate"`
	LRStep       int     `yaml:"lr_step"`
	LRGamma      float64 `yaml:"lr_gamma"`
	Beta1        float64 `yaml:"beta1"`
	Beta2        float64 `yaml:"beta2"`
	Eps          float64 `yaml:"eps"`
	WeightDecay  float64 `yaml:"weight_decay"`
	Seed         uint64  `yaml:"seed"`
}

// Default returns the default hyperparameters.
func Default() HyperParam {
	return HyperParam{
		Version:         SchemaVersion,
		NNeighbor:       20,
		Cutoff:          12.0,
		SeqWindow:       2,
		DimHiddenNode0:  64,
		LayerEmbedNode0: 2,
		DimHiddenEdge0:  32,
		LayerEmbedEdge0: 2,
		NIterGCN:        2,
		KNode:           20,
		KEdge:           20,
		DimHiddenNode:   128,
		DimHiddenEdge:   128,
		LayerEmbedNode:  2,
		LayerEmbedEdge:  2,
		DimHiddenPred1:  128,
		DimHiddenPred2:  64,
		LayerPred:       3,
		FragmentSize:    9,
		Overlap:         OverlapCenter,
		Epochs:          50,
		LearningRate:    0.002,
		LRStep:          40,
		LRGamma:         0.1,
		Beta1:           0.9,
		Beta2:           0.999,
		Eps:             1e-8,
		WeightDecay:     0,
		Seed:            1,
	}
}

// Validate checks every field. It never fills anything in.
func (h HyperParam) Validate() error {
	bad := func(format string, a ...any) error {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, a...), gcnerr.ErrInvalidConfig)
	}
	if h.Version != SchemaVersion {
		return bad("schema version %d, expected %d", h.Version, SchemaVersion)
	}
	positive := map[string]int{
		"nneighbor":         h.NNeighbor,
		"dim_hidden_node0":  h.DimHiddenNode0,
		"layer_embed_node0": h.LayerEmbedNode0,
		"dim_hidden_edge0":  h.DimHiddenEdge0,
		"layer_embed_edge0": h.LayerEmbedEdge0,
		"k_node":            h.KNode,
		"k_edge":            h.KEdge,
		"dim_hidden_node":   h.DimHiddenNode,
		"dim_hidden_edge":   h.DimHiddenEdge,
		"layer_embed_node":  h.LayerEmbedNode,
		"layer_embed_edge":  h.LayerEmbedEdge,
		"dim_hidden_pred1":  h.DimHiddenPred1,
		"dim_hidden_pred2":  h.DimHiddenPred2,
		"fragment_size":     h.FragmentSize,
		"epochs":            h.Epochs,
		"lr_step":           h.LRStep,
	}
	for _, k := range sortedKeys(positive) {
		if positive[k] <= 0 {
			return bad("%s must be positive, got %d", k, positive[k])
		}
	}
	switch {
	case h.Cutoff <= 0:
		return bad("cutoff must be positive, got %g", h.Cutoff)
	case h.SeqWindow < 0:
		return bad("seq_window must not be negative, got %d", h.SeqWindow)
	case h.NIterGCN < 0:
		return bad("niter_gcn must not be negative, got %d", h.NIterGCN)
	case h.LayerPred < 2:
		return bad("layer_pred must be at least 2, got %d", h.LayerPred)
	case h.Overlap != OverlapCenter && h.Overlap != OverlapAverage:
		return bad("overlap must be %q or %q, got %q", OverlapCenter, OverlapAverage, h.Overlap)
	case h.LearningRate <= 0:
		return bad("learning_rate must be positive, got %g", h.LearningRate)
	case h.LRGamma <= 0 || h.LRGamma > 1:
		return bad("lr_gamma must be in (0,1], got %g", h.LRGamma)
	case h.Beta1 < 0 || h.Beta1 >= 1 || h.Beta2 < 0 || h.Beta2 >= 1:
		return bad("betas must be in [0,1), got %g, %g", h.Beta1, h.Beta2)
	case h.Eps <= 0:
		return bad("eps must be positive, got %g", h.Eps)
	case h.WeightDecay < 0:
		return bad("weight_decay must not be negative, got %g", h.WeightDecay)
	}
	return nil
}

// Shapes holds the embedding widths at each convolution round. Node[r] and
// Edge[r] are the widths entering round r; the last element is the output width.
type Shapes struct {
	Node []int
	Edge []int
}

// Shapes computes the per-round widths once, from the configuration alone.
func (h HyperParam) Shapes() Shapes {
	s := Shapes{Node: make([]int, h.NIterGCN+1), Edge: make([]int, h.NIterGCN+1)}
	for r := 0; r <= h.NIterGCN; r++ {
		s.Node[r] = h.DimHiddenNode0 + r*h.KNode
		s.Edge[r] = h.DimHiddenEdge0 + r*h.KEdge
	}
	return s
}

// archFields are the fields that determine tensor shapes or the featurization.
var archFields = []string{"nneighbor", "cutoff", "seq_window", "dim_hidden_node0", "layer_embed_node0",
	"dim_hidden_edge0", "layer_embed_edge0", "niter_gcn", "k_node", "k_edge", "dim_hidden_node",
	"dim_hidden_edge", "layer_embed_node", "layer_embed_edge", "dim_hidden_pred1", "dim_hidden_pred2",
	"layer_pred", "fragment_size"}

func (h HyperParam) architecture() []field {
	all := h.fields()
	ret := make([]field, 0, len(archFields))
	for _, n := range archFields {
		ret = append(ret, all[n])
	}
	return ret
}

// WithArchitecture returns h with every shape-determining field taken from o.
// The optimization fields of h are kept.
func (h HyperParam) WithArchitecture(o HyperParam) HyperParam {
	arch := make(map[string]bool, len(archFields))
	for _, n := range archFields {
		arch[n] = true
	}
	src := reflect.ValueOf(o)
	dst := reflect.ValueOf(&h).Elem()
	t := dst.Type()
	for i := 0; i < t.NumField(); i++ {
		if arch[yamlName(t.Field(i))] {
			dst.Field(i).Set(src.Field(i))
		}
	}
	return h
}

// SameArchitecture returns a shape-mismatch error naming the first field in
// which o would build a different network than h.
func (h HyperParam) SameArchitecture(o HyperParam) error {
	return h.CheckArchitecture(o, archFields)
}

// CheckArchitecture is SameArchitecture restricted to the named fields.
// Names of fields that do not shape the network are ignored.
func (h HyperParam) CheckArchitecture(o HyperParam, names []string) error {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	a, b := h.architecture(), o.architecture()
	for i := range a {
		if want[a[i].name] && a[i].value != b[i].value {
			return gcnerr.ShapeMismatch("hyperparameters", "%s is %v, expected %v", a[i].name, b[i].value, a[i].value)
		}
	}
	return nil
}

// FieldName returns the yaml name of the field of h that ptr points to, or
// "" when ptr is not a field of h.
func FieldName(h *HyperParam, ptr any) string {
	p := reflect.ValueOf(ptr)
	if p.Kind() != reflect.Pointer {
		return ""
	}
	v := reflect.ValueOf(h).Elem()
	for i := 0; i < v.NumField(); i++ {
		if v.Field(i).Addr().Pointer() == p.Pointer() {
			return yamlName(v.Type().Field(i))
		}
	}
	return ""
}

type field struct {
	name  string
	value any
}

func (h HyperParam) fields() map[string]field {
	v := reflect.ValueOf(h)
	t := v.Type()
	ret := make(map[string]field, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name := yamlName(t.Field(i))
		ret[name] = field{name: name, value: v.Field(i).Interface()}
	}
	return ret
}

func yamlName(f reflect.StructField) string {
	return strings.Split(f.Tag.Get("yaml"), ",")[0]
}

// Marshal renders the record as YAML.
func (h HyperParam) Marshal() ([]byte, error) {
	return yaml.Marshal(h)
}

// Load reads a user configuration file and merges it over the defaults.
// Unknown keys are an error.
func Load(path string) (HyperParam, error) {
	h, _, err := LoadKeys(path)
	return h, err
}

// LoadKeys is Load, also returning the sorted keys the file sets.
func LoadKeys(path string) (HyperParam, []string, error) {
	h := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return h, nil, gcnerr.InputNotFound("configuration", path)
		}
		return h, nil, err
	}
	var present map[string]any
	if err := yaml.Unmarshal(data, &present); err != nil {
		return h, nil, fmt.Errorf("configuration %q: %v: %w", path, err, gcnerr.ErrInvalidConfig)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&h); err != nil && err != io.EOF {
		return h, nil, fmt.Errorf("configuration %q: %v: %w", path, err, gcnerr.ErrInvalidConfig)
	}
	if h.Version == 0 {
		h.Version = SchemaVersion
	}
	keys := make([]string, 0, len(present))
	for k := range present {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return h, keys, h.Validate()
}

// DecodeStrict decodes a persisted record. Every field must be present and
// no unknown field is accepted.
func DecodeStrict(data []byte) (HyperParam, error) {
	var h HyperParam
	var present map[string]any
	if err := yaml.Unmarshal(data, &present); err != nil {
		return h, fmt.Errorf("stored hyperparameters: %v: %w", err, gcnerr.ErrInvalidConfig)
	}
	t := reflect.TypeOf(h)
	for i := 0; i < t.NumField(); i++ {
		name := yamlName(t.Field(i))
		if _, ok := present[name]; !ok {
			return h, fmt.Errorf("stored hyperparameters: missing field %q: %w", name, gcnerr.ErrInvalidConfig)
		}
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&h); err != nil {
		return h, fmt.Errorf("stored hyperparameters: %v: %w", err, gcnerr.ErrInvalidConfig)
	}
	return h, h.Validate()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
