/*
options.go, part of GCNdesign



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
	"fmt"

	"github.com/rmera/gcndesign/internal/gcnerr"
)

// SavePolicy decides when the trainer writes checkpoints.
type SavePolicy string

const (
	SaveEvery SavePolicy = "every" //after every epoch
	SaveBest  SavePolicy = "best"  //only when the validation loss improves
)

// Loader names the data-source variants of the trainer.
const (
	LoaderLazy   = "slow-HDD"
	LoaderEager  = "fast-RAM"
	LoaderCached = "cached"
)

// MissingAtoms is the policy for residues lacking N, CA or C.
type MissingAtoms string

const (
	MissingSkip  MissingAtoms = "skip"
	MissingAbort MissingAtoms = "abort"
)

// RunOptions are the settings of a single invocation. They are not persisted
// with the parameters.
type RunOptions struct {
	TrainList      string
	ValidList      string
	ParamPrefix    string
	ParamIn        string
	CheckpointIn   string
	OnlyPredModule bool
	Output         string
	Device         string
	DeviceFallback bool
	DataLoader     string
	CacheSize      int
	Save           SavePolicy
	Missing        MissingAtoms
	Verbose        int
	//Explicit lists, by yaml name, the hyperparameters the user set. A
	//stored architecture that differs in one of them is an error.
	Explicit []string
}

// DefaultRunOptions returns the options used when no flag says otherwise.
func DefaultRunOptions() RunOptions {
	return RunOptions{
		ParamPrefix: "./params/param",
		Output:      "training_curve.dat",
		Device:      "cpu",
		DataLoader:  LoaderLazy,
		CacheSize:   256,
		Save:        SaveEvery,
		Missing:     MissingSkip,
		Verbose:     1,
	}
}

// Validate checks the enumerated options.
func (o RunOptions) Validate() error {
	switch o.DataLoader {
	case LoaderLazy, LoaderEager, LoaderCached:
	default:
		return fmt.Errorf("unknown dataloader %q: %w", o.DataLoader, gcnerr.ErrInvalidConfig)
	}
	if o.DataLoader == LoaderCached && o.CacheSize <= 0 {
		return fmt.Errorf("cache size must be positive, got %d: %w", o.CacheSize, gcnerr.ErrInvalidConfig)
	}
	if o.Save != SaveEvery && o.Save != SaveBest {
		return fmt.Errorf("unknown save policy %q: %w", o.Save, gcnerr.ErrInvalidConfig)
	}
	if o.Missing != MissingSkip && o.Missing != MissingAbort {
		return fmt.Errorf("unknown missing-atom policy %q: %w", o.Missing, gcnerr.ErrInvalidConfig)
	}
	return nil
}
