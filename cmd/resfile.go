/*
resfile.go, part of GCNdesign



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

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/rmera/gcndesign/internal/resfile"
	"github.com/spf13/cobra"
)

var (
	resParamIn     string
	resTemperature float64
	resProbCut     float64
	resKeep        []string
	resUnused      []string
	resIncludeInit bool
	resOutput      string
)

var resfileCmd = &cobra.Command{
	Use:   "resfile PDB",
	Short: "Write a Rosetta resfile from the predicted probabilities",
	Long: `Write a resfile that allows, at every residue, the most probable types until
their cumulative probability reaches the cutoff.

Examples:
  gcndesign resfile in.pdb -p param.params -c 0.7
  gcndesign resfile in.pdb -p param.params -k 1A,3A-5A,@C -u C
  gcndesign resfile in.pdb -p param.params -k "1A 3A-5A"`,
	Args: cobra.ExactArgs(1),
	RunE: runResfile,
}

func init() {
	f := resfileCmd.Flags()
	f.StringVarP(&resParamIn, "param-in", "p", "", "NN parameter file or checkpoint.")
	f.Float64VarP(&resTemperature, "temperature", "t", 1.0, "Softmax temperature.")
	f.Float64VarP(&resProbCut, "prob-cut", "c", 0.8, "Probability cutoff.")
	f.StringSliceVarP(&resKeep, "keep", "k", nil, `Residues keeping their native type (e.g. "1A,3A-5A,@C"; @ is the whole chain).`)
	f.StringSliceVarP(&resUnused, "unused", "u", nil, "Residue types never used (e.g. C,H,W).")
	f.BoolVar(&resIncludeInit, "include-init-restype", false, "Always allow the native type.")
	f.StringVarP(&resOutput, "output", "o", "", "Output file (default stdout).")
	rootCmd.AddCommand(resfileCmd)
}

func runResfile(cmd *cobra.Command, args []string) error {
	if resProbCut < 0 || resProbCut > 1 {
		return fmt.Errorf("prob-cut must be in [0,1], got %g", resProbCut)
	}
	p, err := loadPredictor(cmd, resParamIn)
	if err != nil {
		return err
	}
	preds, err := p.PredictFile(args[0], resTemperature)
	if err != nil {
		return err
	}
	maxRes := 0
	for _, pr := range preds {
		maxRes = max(maxRes, pr.ResNum)
	}
	keep, err := resfile.ExpandKeep(splitFields(resKeep), maxRes)
	if err != nil {
		return err
	}
	out := resfile.Generate(preds, resfile.Options{
		ProbCut:       resProbCut,
		Unused:        strings.Join(resUnused, ""),
		IncludeNative: resIncludeInit,
	})
	out = resfile.FixNative(out, keep)
	if resOutput == "" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	}
	return os.WriteFile(resOutput, []byte(out), 0o644)
}

// splitFields also accepts space-separated tokens inside one flag value.
func splitFields(in []string) []string {
	var ret []string
	for _, s := range in {
		ret = append(ret, strings.Fields(s)...)
	}
	return ret
}
