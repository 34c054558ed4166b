// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

package squeak

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/hashicorp/go-multierror"
	"go.mindeco.de/log"
	"go.mindeco.de/log/level"
	"golang.org/x/sync/errgroup"
)

// Validator runs CheckSqueak with logging and metrics, one squeak at a time or in batches.
type Validator struct {
	logger  log.Logger
	checked metrics.Counter
	workers int
}

type ValidatorOption func(*Validator) error

func WithLogger(l log.Logger) ValidatorOption {
	return func(v *Validator) error {
		v.logger = l
		return nil
	}
}

// WithCheckedCounter counts every check, labeled with "result" set to "ok" or the error code.
func WithCheckedCounter(c metrics.Counter) ValidatorOption {
	return func(v *Validator) error {
		v.checked = c
		return nil
	}
}

// WithWorkers limits how many squeaks CheckAll validates at the same time.
func WithWorkers(n int) ValidatorOption {
	return func(v *Validator) error {
		if n < 1 {
			return fmt.Errorf("squeak: need at least one worker (got %d)", n)
		}
		v.workers = n
		return nil
	}
}

func NewValidator(opts ...ValidatorOption) (*Validator, error) {
	v := &Validator{
		logger:  log.NewNopLogger(),
		checked: discard.NewCounter(),
		workers: runtime.NumCPU(),
	}
	for i, o := range opts {
		if err := o(v); err != nil {
			return nil, fmt.Errorf("squeak: validator option %d failed: %w", i, err)
		}
	}
	if v.logger == nil {
		v.logger = log.NewNopLogger()
	}
	v.logger = log.With(v.logger, "module", "validator")
	return v, nil
}

// Check is CheckSqueak plus a log line and a counter increment.
func (v *Validator) Check(s *Squeak, opts ...CheckOption) error {
	err := CheckSqueak(s, opts...)
	if err == nil {
		v.checked.With("result", "ok").Add(1)
		return nil
	}

	result := "unknown"
	var serr Error
	if errors.As(err, &serr) {
		result = serr.Code.String()
	}
	v.checked.With("result", result).Add(1)

	lvl := level.Warn
	if IsDecryptionKeyError(err) {
		// locked squeaks are common
		lvl = level.Debug
	}
	lvl(v.logger).Log("event", "squeak rejected", "hash", s.Hash(), "err", err)
	return err
}

// BatchError is one failed squeak of CheckAll.
type BatchError struct {
	Index int
	Hash  chainhash.Hash
	Err   error
}

func (be *BatchError) Error() string {
	return fmt.Sprintf("squeak #%d (%s): %s", be.Index, be.Hash, be.Err)
}

func (be *BatchError) Unwrap() error { return be.Err }

// CheckAll validates squeaks concurrently. A squeak failing doesn't stop the
// others, all failures are returned in a *multierror.Error of *BatchError
// ordered by index. Only a canceled context aborts the batch early.
func (v *Validator) CheckAll(ctx context.Context, squeaks []*Squeak, opts ...CheckOption) error {
	results := make([]error, len(squeaks))

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(v.workers)

	for i, s := range squeaks {
		i, s := i, s
		if gctx.Err() != nil {
			break
		}
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = v.Check(s, opts...)
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return fmt.Errorf("squeak: batch check aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("squeak: batch check aborted: %w", err)
	}

	var (
		merr   *multierror.Error
		failed int
	)
	for i, err := range results {
		if err == nil {
			continue
		}
		failed++
		merr = multierror.Append(merr, &BatchError{Index: i, Hash: squeaks[i].Hash(), Err: err})
	}
	level.Debug(v.logger).Log("event", "batch checked", "count", len(squeaks), "failed", failed)
	return merr.ErrorOrNil()
}
