/*
schedule.go, part of GCNdesign



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

package optim

import "math"

// StepLR multiplies the base learning rate by Gamma every StepSize epochs.
type StepLR struct {
	Base     float64 `yaml:"base"`
	Gamma    float64 `yaml:"gamma"`
	StepSize int     `yaml:"step_size"`
	Epoch    int     `yaml:"epoch"` //completed epochs
}

func NewStepLR(base, gamma float64, stepSize int) *StepLR {
	return &StepLR{Base: base, Gamma: gamma, StepSize: stepSize}
}

// LR is the learning rate for the next epoch.
func (s *StepLR) LR() float64 {
	return s.Base * math.Pow(s.Gamma, float64(s.Epoch/s.StepSize))
}

// Step marks one more epoch as done.
func (s *StepLR) Step() { s.Epoch++ }
