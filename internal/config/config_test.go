/*
config_test.go, part of GCNdesign



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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rmera/gcndesign/internal/gcnerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
	require.NoError(t, DefaultRunOptions().Validate())
}

func TestShapes(t *testing.T) {
	for _, r := range []int{0, 1, 2, 5} {
		h := Default()
		h.NIterGCN = r
		h.KNode = 7
		h.KEdge = 3
		s := h.Shapes()
		require.Len(t, s.Node, r+1)
		require.Len(t, s.Edge, r+1)
		for i := 0; i <= r; i++ {
			assert.Equal(t, h.DimHiddenNode0+i*7, s.Node[i])
			assert.Equal(t, h.DimHiddenEdge0+i*3, s.Edge[i])
		}
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*HyperParam){
		"version":   func(h *HyperParam) { h.Version = 99 },
		"fragment":  func(h *HyperParam) { h.FragmentSize = 0 },
		"overlap":   func(h *HyperParam) { h.Overlap = "first" },
		"layerpred": func(h *HyperParam) { h.LayerPred = 1 },
		"gamma":     func(h *HyperParam) { h.LRGamma = 1.5 },
		"cutoff":    func(h *HyperParam) { h.Cutoff = 0 },
	}
	for name, mod := range cases {
		t.Run(name, func(t *testing.T) {
			h := Default()
			mod(&h)
			assert.ErrorIs(t, h.Validate(), gcnerr.ErrInvalidConfig)
		})
	}
}

func TestDecodeStrictRoundTrip(t *testing.T) {
	h := Default()
	h.KNode = 11
	h.Overlap = OverlapAverage
	h.Seed = 42
	data, err := h.Marshal()
	require.NoError(t, err)
	back, err := DecodeStrict(data)
	require.NoError(t, err)
	assert.Equal(t, h, back)
}

func TestDecodeStrictMissingAndUnknown(t *testing.T) {
	data, err := Default().Marshal()
	require.NoError(t, err)

	lines := strings.Split(string(data), "\n")
	var trimmed []string
	for _, l := range lines {
		if !strings.HasPrefix(l, "k_edge:") {
			trimmed = append(trimmed, l)
		}
	}
	_, err = DecodeStrict([]byte(strings.Join(trimmed, "\n")))
	assert.ErrorIs(t, err, gcnerr.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "k_edge")

	_, err = DecodeStrict(append(data, []byte("dropout: 0.1\n")...))
	assert.ErrorIs(t, err, gcnerr.ErrInvalidConfig)
}

func TestLoadMergesDefaults(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "hp.yaml")
	require.NoError(t, os.WriteFile(p, []byte("fragment_size: 5\nniter_gcn: 3\n"), 0o644))
	h, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 5, h.FragmentSize)
	assert.Equal(t, 3, h.NIterGCN)
	assert.Equal(t, Default().KNode, h.KNode)

	require.NoError(t, os.WriteFile(p, []byte("fragmentsize: 5\n"), 0o644))
	_, err = Load(p)
	assert.ErrorIs(t, err, gcnerr.ErrInvalidConfig)

	_, err = Load(filepath.Join(dir, "nope.yaml"))
	assert.ErrorIs(t, err, gcnerr.ErrInputNotFound)
}

func TestSameArchitecture(t *testing.T) {
	a := Default()
	b := Default()
	b.Epochs = 3
	b.LearningRate = 0.1
	assert.NoError(t, a.SameArchitecture(b))
	b.KEdge = 4
	err := a.SameArchitecture(b)
	assert.ErrorIs(t, err, gcnerr.ErrShapeMismatch)
	assert.Contains(t, err.Error(), "k_edge")
}

func TestCheckArchitecture(t *testing.T) {
	stored := Default()
	req := Default()
	req.FragmentSize = 7
	req.Epochs = 2
	assert.NoError(t, stored.CheckArchitecture(req, []string{"epochs"}))
	err := stored.CheckArchitecture(req, []string{"epochs", "fragment_size"})
	assert.ErrorIs(t, err, gcnerr.ErrShapeMismatch)
	assert.Contains(t, err.Error(), "fragment_size is 7")
}

func TestFieldName(t *testing.T) {
	var h HyperParam
	assert.Equal(t, "fragment_size", FieldName(&h, &h.FragmentSize))
	assert.Equal(t, "overlap", FieldName(&h, (*string)(&h.Overlap)))
	other := 3
	assert.Equal(t, "", FieldName(&h, &other))
}

func TestLoadKeys(t *testing.T) {
	p := filepath.Join(t.TempDir(), "hp.yaml")
	require.NoError(t, os.WriteFile(p, []byte("niter_gcn: 3\nepochs: 4\n"), 0o644))
	h, keys, err := LoadKeys(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"epochs", "niter_gcn"}, keys)
	assert.Equal(t, 4, h.Epochs)
}

func TestWithArchitecture(t *testing.T) {
	stored := Default()
	stored.KNode = 7
	stored.FragmentSize = 5
	user := Default()
	user.Epochs = 3
	user.NIterGCN = 4
	got := user.WithArchitecture(stored)
	assert.Equal(t, 7, got.KNode)
	assert.Equal(t, 5, got.FragmentSize)
	assert.Equal(t, 2, got.NIterGCN)
	assert.Equal(t, 3, got.Epochs)
	assert.NoError(t, stored.SameArchitecture(got))
}
