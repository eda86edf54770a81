/*
predict.go, part of GCNdesign



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
	"github.com/rmera/gcndesign/internal/gcnerr"
	"github.com/rmera/gcndesign/internal/model"
	"github.com/spf13/cobra"
)

var (
	predTemperature float64
	predParamIn     string
)

var predictCmd = &cobra.Command{
	Use:   "predict PDB",
	Short: "Predict amino-acid probabilities for every residue",
	Long: `Predict the amino-acid probabilities of every residue of a backbone.

Each output line holds the residue number, the native type, the most probable
type and then the probability of each of the 20 types.`,
	Args: cobra.ExactArgs(1),
	RunE: runPredict,
}

func init() {
	f := predictCmd.Flags()
	f.Float64VarP(&predTemperature, "temperature", "t", 1.0, "Temperature: P(AA) is proportional to exp(logit(AA)/T).")
	f.StringVarP(&predParamIn, "param-in", "p", "", "NN parameter file or checkpoint.")
	rootCmd.AddCommand(predictCmd)
}

// loadPredictor opens the device and the parameter file.
func loadPredictor(cmd *cobra.Command, paramIn string) (*model.Predictor, error) {
	if paramIn == "" {
		return nil, gcnerr.InputNotFound("parameter", "(none given, use --param-in)")
	}
	log, dev, err := setup(cmd)
	if err != nil {
		return nil, err
	}
	miss, err := missing()
	if err != nil {
		return nil, err
	}
	return model.LoadPredictor(paramIn, dev, miss, log)
}

func runPredict(cmd *cobra.Command, args []string) error {
	p, err := loadPredictor(cmd, predParamIn)
	if err != nil {
		return err
	}
	preds, err := p.PredictFile(args[0], predTemperature)
	if err != nil {
		return err
	}
	return model.Format(cmd.OutOrStdout(), preds)
}
