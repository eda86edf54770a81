/*
device.go, part of GCNdesign



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

// Package nn holds the small set of differentiable building blocks the
// GCNdesign network is made of: dense layers, multilayer perceptrons, ReLU,
// softmax and cross entropy, each with an explicit backward pass. Tensors are
// gonum dense matrices with one sample per row.
//
// Forward passes never write to the parameters and return their
// intermediates to the caller, so a parameter set can be shared by
// concurrent inference calls. Gradients live in a Grads value owned by the
// trainer.
package nn

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/rmera/gcndesign/internal/gcnerr"
	"gonum.org/v1/gonum/mat"
)

// Device is where tensors live and where products are computed. The rest of
// the code only branches on the device when it is opened.
type Device interface {
	Name() string
	//Zeros allocates an r x c zero matrix on the device.
	Zeros(r, c int) *mat.Dense
	//Place transfers m to the device and returns the device copy.
	Place(m *mat.Dense) *mat.Dense
	//Mul sets dst = a*b. dst must be r(a) x c(b).
	Mul(dst *mat.Dense, a, b mat.Matrix)
}

// CPU computes with gonum on the host.
type CPU struct{}

func (CPU) Name() string { return "cpu" }

func (CPU) Zeros(r, c int) *mat.Dense { return mat.NewDense(r, c, nil) }

// Place is a no-op for host memory.
func (CPU) Place(m *mat.Dense) *mat.Dense { return m }

func (CPU) Mul(dst *mat.Dense, a, b mat.Matrix) { dst.Mul(a, b) }

// accelerators lists device names that are recognized but have no backend
// in this build.
var accelerators = map[string]bool{"cuda": true, "gpu": true}

// OpenDevice returns the named device. An accelerator that is not available
// is an error wrapping ErrDeviceUnavailable, unless fallback is set, in
// which case the CPU is returned and a warning is logged.
func OpenDevice(name string, fallback bool, log *slog.Logger) (Device, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" || n == "cpu" {
		return CPU{}, nil
	}
	if !accelerators[n] {
		return nil, fmt.Errorf("unknown device %q: %w", name, gcnerr.ErrDeviceUnavailable)
	}
	err := fmt.Errorf("device %q: no accelerator backend in this build: %w", name, gcnerr.ErrDeviceUnavailable)
	if !fallback {
		return nil, err
	}
	if log != nil {
		log.Warn("requested device not available, using cpu", "device", name)
	}
	return CPU{}, nil
}
