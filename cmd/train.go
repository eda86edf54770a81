/*
train.go, part of GCNdesign



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
	"context"
	"os"
	"os/signal"

	"github.com/rmera/gcndesign/internal/config"
	"github.com/rmera/gcndesign/internal/train"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	trainOpts  = config.DefaultRunOptions()
	trainSave  string
	configFile string
	flagHyper  = config.Default()
)

// hyperFlag binds a command-line flag to a HyperParam field.
type hyperFlag struct {
	name, short, usage string
	field              func(h *config.HyperParam) any
}

var hyperFlags = []hyperFlag{
	{"epochs", "e", "Number of epochs.", func(h *config.HyperParam) any { return &h.Epochs }},
	{"learning-rate", "", "Initial learning rate.", func(h *config.HyperParam) any { return &h.LearningRate }},
	{"lr-step", "", "Epochs between learning-rate decays.", func(h *config.HyperParam) any { return &h.LRStep }},
	{"lr-gamma", "", "Learning-rate decay factor.", func(h *config.HyperParam) any { return &h.LRGamma }},
	{"weight-decay", "", "Decoupled weight decay.", func(h *config.HyperParam) any { return &h.WeightDecay }},
	{"seed", "", "Seed for initialization and shuffling.", func(h *config.HyperParam) any { return &h.Seed }},
	{"nneighbor", "", "Nearest neighbors per residue.", func(h *config.HyperParam) any { return &h.NNeighbor }},
	{"cutoff", "", "Neighbor distance cutoff (Angstrom).", func(h *config.HyperParam) any { return &h.Cutoff }},
	{"seq-window", "", "Sequence neighbors always connected.", func(h *config.HyperParam) any { return &h.SeqWindow }},
	{"dim-hidden-node0", "", "Width of the node-embedding layers.", func(h *config.HyperParam) any { return &h.DimHiddenNode0 }},
	{"layer-embed-node0", "", "Number of node-embedding layers.", func(h *config.HyperParam) any { return &h.LayerEmbedNode0 }},
	{"dim-hidden-edge0", "", "Width of the edge-embedding layers.", func(h *config.HyperParam) any { return &h.DimHiddenEdge0 }},
	{"layer-embed-edge0", "", "Number of edge-embedding layers.", func(h *config.HyperParam) any { return &h.LayerEmbedEdge0 }},
	{"iter-gcn", "", "Graph-convolution rounds.", func(h *config.HyperParam) any { return &h.NIterGCN }},
	{"knode-gcn", "", "Node width added per round.", func(h *config.HyperParam) any { return &h.KNode }},
	{"kedge-gcn", "", "Edge width added per round.", func(h *config.HyperParam) any { return &h.KEdge }},
	{"dim-hidden-node", "", "Hidden width of the node networks.", func(h *config.HyperParam) any { return &h.DimHiddenNode }},
	{"dim-hidden-edge", "", "Hidden width of the edge networks.", func(h *config.HyperParam) any { return &h.DimHiddenEdge }},
	{"layer-embed-node", "", "Layers of the node networks.", func(h *config.HyperParam) any { return &h.LayerEmbedNode }},
	{"layer-embed-edge", "", "Layers of the edge networks.", func(h *config.HyperParam) any { return &h.LayerEmbedEdge }},
	{"dim-hidden-pred1", "", "Width of the first prediction layer.", func(h *config.HyperParam) any { return &h.DimHiddenPred1 }},
	{"dim-hidden-pred2", "", "Width of the later prediction layers.", func(h *config.HyperParam) any { return &h.DimHiddenPred2 }},
	{"layer-pred", "", "Number of prediction layers.", func(h *config.HyperParam) any { return &h.LayerPred }},
	{"fragsize", "f", "Fragment size of the prediction module.", func(h *config.HyperParam) any { return &h.FragmentSize }},
	{"overlap", "", "Overlapping fragments: center or average.", func(h *config.HyperParam) any { return (*string)(&h.Overlap) }},
}

func (hf hyperFlag) register(fs *pflag.FlagSet, h *config.HyperParam) {
	switch p := hf.field(h).(type) {
	case *int:
		fs.IntVarP(p, hf.name, hf.short, *p, hf.usage)
	case *float64:
		fs.Float64VarP(p, hf.name, hf.short, *p, hf.usage)
	case *uint64:
		fs.Uint64VarP(p, hf.name, hf.short, *p, hf.usage)
	case *string:
		fs.StringVarP(p, hf.name, hf.short, *p, hf.usage)
	}
}

// copyTo sets the field of dst from src.
func (hf hyperFlag) copyTo(dst *config.HyperParam, src *config.HyperParam) {
	switch d := hf.field(dst).(type) {
	case *int:
		*d = *hf.field(src).(*int)
	case *float64:
		*d = *hf.field(src).(*float64)
	case *uint64:
		*d = *hf.field(src).(*uint64)
	case *string:
		*d = *hf.field(src).(*string)
	}
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the network",
	Long: `Train the network on the structures of a training list, validating on the
structures of a validation list after every epoch.

Hyperparameters come from the defaults, then the --config YAML file, then the
flags given explicitly. A run resumed with --checkpoint-in uses the stored
hyperparameters, and --only-predmodule the stored architecture. Architecture
settings given explicitly must match the stored ones.`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func init() {
	f := trainCmd.Flags()
	f.StringVarP(&trainOpts.TrainList, "train_list", "t", "", "List of training PDB files.")
	f.StringVarP(&trainOpts.ValidList, "valid_list", "v", "", "List of validation PDB files.")
	f.StringVarP(&trainOpts.ParamPrefix, "param-prefix", "p", trainOpts.ParamPrefix, "Prefix of the parameter and checkpoint files.")
	f.StringVar(&trainOpts.ParamIn, "param-in", "", "Parameter file for transfer learning.")
	f.StringVar(&trainOpts.CheckpointIn, "checkpoint-in", "", "Checkpoint to resume from.")
	f.BoolVar(&trainOpts.OnlyPredModule, "only-predmodule", false, "Reinitialize and train from --param-in with a new prediction module.")
	f.StringVarP(&trainOpts.Output, "output", "o", trainOpts.Output, "Training curve file.")
	f.StringVar(&trainOpts.DataLoader, "dataloader", trainOpts.DataLoader, "Data loader: slow-HDD, fast-RAM or cached.")
	f.IntVar(&trainOpts.CacheSize, "cache-size", trainOpts.CacheSize, "Graphs kept by the cached data loader.")
	f.StringVar(&trainSave, "save", string(trainOpts.Save), "Save parameters every epoch or only the best.")
	f.StringVar(&configFile, "config", "", "YAML file with hyperparameters.")
	for _, hf := range hyperFlags {
		hf.register(f, &flagHyper)
	}
	trainCmd.MarkFlagRequired("train_list")
	trainCmd.MarkFlagRequired("valid_list")
	rootCmd.AddCommand(trainCmd)
}

// hyperparams merges the configuration file and the explicit flags over the
// defaults. It also returns the yaml names of the fields the user set.
func hyperparams(fs *pflag.FlagSet) (config.HyperParam, []string, error) {
	h := config.Default()
	var explicit []string
	if configFile != "" {
		var err error
		if h, explicit, err = config.LoadKeys(configFile); err != nil {
			return h, nil, err
		}
	}
	for _, hf := range hyperFlags {
		if fs.Changed(hf.name) {
			hf.copyTo(&h, &flagHyper)
			explicit = append(explicit, config.FieldName(&flagHyper, hf.field(&flagHyper)))
		}
	}
	return h, explicit, h.Validate()
}

func runTrain(cmd *cobra.Command, args []string) error {
	h, explicit, err := hyperparams(cmd.Flags())
	if err != nil {
		return err
	}
	log, dev, err := setup(cmd)
	if err != nil {
		return err
	}
	opts := trainOpts
	opts.Device = dev.Name()
	opts.DeviceFallback = deviceFallback
	opts.Save = config.SavePolicy(trainSave)
	opts.Verbose = verbose
	opts.Explicit = explicit
	if opts.Missing, err = missing(); err != nil {
		return err
	}
	tr, err := train.New(h, opts, dev, log)
	if err != nil {
		return err
	}
	trainSrc, err := train.OpenSource(opts.TrainList, tr.Extractor(), opts, log)
	if err != nil {
		return err
	}
	validSrc, err := train.OpenSource(opts.ValidList, tr.Extractor(), opts, log)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	_, err = tr.Run(ctx, trainSrc, validSrc)
	return err
}
