/*
trainer.go, part of GCNdesign



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

// Package train runs the TRAIN/VALID loop: RAdam updates over a shuffled
// training set, a validation pass without updates, the learning-rate
// schedule, the epoch log and the checkpoint policy.
package train

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rmera/gcndesign/internal/checkpoint"
	"github.com/rmera/gcndesign/internal/config"
	"github.com/rmera/gcndesign/internal/features"
	"github.com/rmera/gcndesign/internal/model"
	"github.com/rmera/gcndesign/internal/nn"
	"github.com/rmera/gcndesign/internal/optim"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
)

// Stats are the residue-weighted results of one pass.
type Stats struct {
	Loss     float64
	Accuracy float64
	Residues int
}

// EpochStats is one line of the training log.
type EpochStats struct {
	Epoch int
	Train Stats
	Valid Stats
	LR    float64
}

func (e EpochStats) String() string {
	return fmt.Sprintf(" %3d  LossTR: %.3f AccTR: %.3f  LossTS: %.3f AccTS: %.3f",
		e.Epoch, e.Train.Loss, e.Train.Accuracy, e.Valid.Loss, e.Valid.Accuracy)
}

// Trainer owns the model, the optimizer and the schedule of one run.
type Trainer struct {
	Model     *model.GCN
	Opt       *optim.RAdam
	Sched     *optim.StepLR
	Opts      config.RunOptions
	RunID     string
	Epoch     int //last completed epoch
	BestValid float64
	resumed   bool
	grads     *nn.Grads
	log       *slog.Logger
}

// New sets up a run. With opts.CheckpointIn the model, the optimizer and the
// schedule come from the checkpoint. With opts.OnlyPredModule the weights
// come from opts.ParamIn, taking its architecture, and the prediction head
// is initialized again. In both cases a stored architecture that differs
// from h in a field listed in opts.Explicit is a shape mismatch.
func New(h config.HyperParam, opts config.RunOptions, dev nn.Device, log *slog.Logger) (*Trainer, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.CheckpointIn != "" {
		return resume(h, opts, dev, log)
	}
	var stored *checkpoint.Checkpoint
	if opts.OnlyPredModule {
		if opts.ParamIn == "" {
			return nil, fmt.Errorf("transfer learning needs a parameter file")
		}
		var err error
		if stored, err = checkpoint.Load(opts.ParamIn); err != nil {
			return nil, err
		}
		if err := stored.Hyper.CheckArchitecture(h, opts.Explicit); err != nil {
			return nil, fmt.Errorf("%s: %w", opts.ParamIn, err)
		}
		h = h.WithArchitecture(stored.Hyper)
	}
	m, err := model.New(h, dev)
	if err != nil {
		return nil, err
	}
	m.Init(h.Seed)
	if stored != nil {
		if err := stored.Restore(m.Params()); err != nil {
			return nil, err
		}
		m.ReinitHead(h.Seed)
		log.Info("prediction head reinitialized", "params", opts.ParamIn)
	}
	return &Trainer{
		Model:     m,
		Opt:       optim.NewRAdam(h),
		Sched:     optim.NewStepLR(h.LearningRate, h.LRGamma, h.LRStep),
		Opts:      opts,
		RunID:     uuid.NewString(),
		BestValid: math.Inf(1),
		grads:     nn.NewGrads(),
		log:       log,
	}, nil
}

func resume(h config.HyperParam, opts config.RunOptions, dev nn.Device, log *slog.Logger) (*Trainer, error) {
	c, err := checkpoint.Load(opts.CheckpointIn)
	if err != nil {
		return nil, err
	}
	if !c.IsCheckpoint() {
		return nil, fmt.Errorf("%s is a parameter file, not a checkpoint", opts.CheckpointIn)
	}
	if err := c.Hyper.CheckArchitecture(h, opts.Explicit); err != nil {
		return nil, fmt.Errorf("%s: %w", opts.CheckpointIn, err)
	}
	m, err := model.New(c.Hyper, dev)
	if err != nil {
		return nil, err
	}
	if err := c.Restore(m.Params()); err != nil {
		return nil, err
	}
	opt := optim.NewRAdam(c.Hyper)
	if err := opt.SetState(*c.Optim, m.Params()); err != nil {
		return nil, err
	}
	log.Info("resuming", "checkpoint", opts.CheckpointIn, "epoch", c.Epoch, "run", c.RunID)
	return &Trainer{
		Model:     m,
		Opt:       opt,
		Sched:     c.Schedule,
		Opts:      opts,
		RunID:     c.RunID,
		Epoch:     c.Epoch,
		BestValid: c.BestValid,
		resumed:   true,
		grads:     nn.NewGrads(),
		log:       log,
	}, nil
}

// Extractor returns the featurizer matching the model.
func (t *Trainer) Extractor() *features.Extractor {
	return features.NewExtractor(t.Model.Hyper, t.Opts.Missing)
}

// order returns the training order of an epoch. It depends only on the seed
// and the epoch, so a resumed run shuffles like an uninterrupted one.
func (t *Trainer) order(epoch, n int) []int {
	rng := rand.New(rand.NewSource(t.Model.Hyper.Seed + uint64(epoch)))
	return rng.Perm(n)
}

type accum struct {
	loss, weight  []float64
	correct, seen int
}

func (a *accum) add(r nn.LossResult) {
	if r.Count == 0 {
		return
	}
	a.loss = append(a.loss, r.Loss)
	a.weight = append(a.weight, float64(r.Count))
	a.correct += r.Correct
	a.seen += r.Count
}

func (a *accum) stats() Stats {
	if a.seen == 0 {
		return Stats{Loss: math.NaN(), Accuracy: math.NaN()}
	}
	return Stats{Loss: stat.Mean(a.loss, a.weight), Accuracy: float64(a.correct) / float64(a.seen), Residues: a.seen}
}

// pass runs the model over src in the given order. It updates the weights
// when lr is positive.
func (t *Trainer) pass(ctx context.Context, src Source, order []int, lr float64) (Stats, error) {
	var acc accum
	params := t.Model.Params()
	for _, i := range order {
		if err := ctx.Err(); err != nil {
			return Stats{}, err
		}
		g, err := src.Get(i)
		if err != nil {
			return Stats{}, err
		}
		var grads *nn.Grads
		if lr > 0 {
			grads = t.grads
			grads.Zero()
		}
		res, err := t.Model.Loss(g, grads)
		if errors.Is(err, model.ErrFragmentTooLarge) {
			t.log.Warn("skipping structure shorter than the fragment", "file", src.Name(i), "residues", g.Len())
			continue
		}
		if err != nil {
			return Stats{}, fmt.Errorf("%s: %w", src.Name(i), err)
		}
		if grads != nil && res.Count > 0 {
			t.Opt.Step(params, grads, lr)
		}
		acc.add(res)
	}
	return acc.stats(), nil
}

// Run trains from the epoch after t.Epoch up to the configured number of
// epochs, writing the epoch log to opts.Output and parameters under
// opts.ParamPrefix.
func (t *Trainer) Run(ctx context.Context, trainSrc, validSrc Source) ([]EpochStats, error) {
	h := t.Model.Hyper
	out, err := t.openLog()
	if err != nil {
		return nil, err
	}
	defer out.Close()
	if dir := filepath.Dir(t.Opts.ParamPrefix); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	t.log.Info("training", "run", t.RunID, "params", t.Model.Size(), "device", t.Model.Device().Name(),
		"train", trainSrc.Len(), "valid", validSrc.Len(), "from_epoch", t.Epoch+1, "epochs", h.Epochs)

	var ret []EpochStats
	for epoch := t.Epoch + 1; epoch <= h.Epochs; epoch++ {
		lr := t.Sched.LR()
		tr, err := t.pass(ctx, trainSrc, t.order(epoch, trainSrc.Len()), lr)
		if err != nil {
			return ret, err
		}
		if tr.Residues == 0 {
			return ret, fmt.Errorf("epoch %d: no usable training structure", epoch)
		}
		all := make([]int, validSrc.Len())
		for i := range all {
			all[i] = i
		}
		vs, err := t.pass(ctx, validSrc, all, 0)
		if err != nil {
			return ret, err
		}
		t.Sched.Step()
		t.Epoch = epoch
		es := EpochStats{Epoch: epoch, Train: tr, Valid: vs, LR: lr}
		ret = append(ret, es)
		if _, err := fmt.Fprintln(out, es.String()); err != nil {
			return ret, err
		}
		t.log.Info("epoch", "epoch", epoch, "lr", lr, "loss_train", tr.Loss, "acc_train", tr.Accuracy,
			"loss_valid", vs.Loss, "acc_valid", vs.Accuracy)
		if err := t.save(epoch, tr, vs); err != nil {
			return ret, err
		}
	}
	return ret, nil
}

// openLog truncates the log of a new run and appends to that of a resumed one.
func (t *Trainer) openLog() (io.WriteCloser, error) {
	if t.resumed {
		return os.OpenFile(t.Opts.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	}
	f, err := os.Create(t.Opts.Output)
	if err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintf(f, "# Total Parameters : %.2fM\n", float64(t.Model.Size())/1e6); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func (t *Trainer) save(epoch int, tr, vs Stats) error {
	score := vs.Loss
	if vs.Residues == 0 {
		t.log.Warn("no usable validation structure, ranking epochs by the training loss", "epoch", epoch)
		score = tr.Loss
	}
	improved := score < t.BestValid
	if improved {
		t.BestValid = score
	}
	var tag string
	switch t.Opts.Save {
	case config.SaveBest:
		if !improved {
			return nil
		}
		tag = "best"
	default:
		tag = fmt.Sprintf("%03d", epoch)
	}
	st := t.Opt.State()
	c := &checkpoint.Checkpoint{
		Hyper:     t.Model.Hyper,
		RunID:     t.RunID,
		Epoch:     epoch,
		TrainLoss: tr.Loss,
		BestValid: t.BestValid,
		Schedule:  t.Sched,
		Optim:     &st,
	}
	base := fmt.Sprintf("%s-%s", t.Opts.ParamPrefix, tag)
	params := t.Model.Params()
	if err := checkpoint.Save(base+".ckp", c, params); err != nil {
		return err
	}
	if err := checkpoint.SaveParams(base+".params", t.Model.Hyper, params); err != nil {
		return err
	}
	t.log.Debug("saved", "checkpoint", base+".ckp", "valid_loss", vs.Loss)
	return nil
}
