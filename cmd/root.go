/*
root.go, part of GCNdesign



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

// Package cmd holds the gcndesign command line: predict, resfile and train.
package cmd

import (
	"io"
	"log/slog"

	"github.com/rmera/gcndesign/internal/config"
	"github.com/rmera/gcndesign/internal/nn"
	"github.com/spf13/cobra"
)

var (
	verbose        int
	deviceName     string
	deviceFallback bool
	missingPolicy  string
)

var rootCmd = &cobra.Command{
	Use:   "gcndesign",
	Short: "GCNdesign - amino-acid sequence design on protein backbones",
	Long: `GCNdesign predicts, for every residue of a protein backbone, the probability
of each of the 20 amino acids with a graph convolutional network, trains that
network, and writes resfiles for the Rosetta packer.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.IntVar(&verbose, "verbose", 1, "Log level: 0 warnings only, 1 progress, 2 debug.")
	pf.StringVar(&deviceName, "device", "cpu", "Processing device (cpu, cuda).")
	pf.BoolVar(&deviceFallback, "device-fallback", false, "Use the cpu when the requested device is not available.")
	pf.StringVar(&missingPolicy, "missing-atoms", string(config.MissingSkip), "Residues lacking N, CA or C: skip or abort.")
}

// Execute runs the command line.
func Execute() error {
	return rootCmd.Execute()
}

func newLogger(w io.Writer, level int) *slog.Logger {
	l := slog.LevelInfo
	switch {
	case level <= 0:
		l = slog.LevelWarn
	case level >= 2:
		l = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}

// setup returns the logger and the device shared by every subcommand.
func setup(cmd *cobra.Command) (*slog.Logger, nn.Device, error) {
	log := newLogger(cmd.ErrOrStderr(), verbose)
	dev, err := nn.OpenDevice(deviceName, deviceFallback, log)
	return log, dev, err
}

func missing() (config.MissingAtoms, error) {
	o := config.DefaultRunOptions()
	o.Missing = config.MissingAtoms(missingPolicy)
	return o.Missing, o.Validate()
}
