// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

package squeak

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-kit/kit/metrics"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"

	"github.com/squeaknode/go-squeak/internal/testutils"
)

// resultCounter sums up additions per "result" label value
type resultCounter struct {
	mu     *sync.Mutex
	counts map[string]float64
	label  string
}

func newResultCounter() *resultCounter {
	return &resultCounter{mu: new(sync.Mutex), counts: make(map[string]float64)}
}

func (c *resultCounter) With(lvs ...string) metrics.Counter {
	nc := *c
	for i := 0; i+1 < len(lvs); i += 2 {
		if lvs[i] == "result" {
			nc.label = lvs[i+1]
		}
	}
	return &nc
}

func (c *resultCounter) Add(delta float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[c.label] += delta
}

func (c *resultCounter) get(label string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[label]
}

func TestValidatorCheckAll(t *testing.T) {
	r := require.New(t)

	cnt := newResultCounter()
	v, err := NewValidator(
		WithLogger(testutils.NewRelativeTimeLogger(nil)),
		WithCheckedCounter(cnt),
		WithWorkers(3),
	)
	r.NoError(err)

	sk := newSigningKey(t)
	var squeaks []*Squeak
	for i := 0; i < 10; i++ {
		squeaks = append(squeaks, makeTestSqueak(t, sk, "batch"))
	}
	squeaks[3].EncContent[0] ^= 1
	squeaks[7].ClearDecryptionKey()

	err = v.CheckAll(context.Background(), squeaks)
	r.Error(err)

	var merr *multierror.Error
	r.True(errors.As(err, &merr))
	r.Len(merr.Errors, 2)

	var first, second *BatchError
	r.True(errors.As(merr.Errors[0], &first))
	r.True(errors.As(merr.Errors[1], &second))
	r.Equal(3, first.Index)
	r.Equal(squeaks[3].Hash(), first.Hash)
	r.True(IsIntegrityError(first))
	r.Equal(7, second.Index)
	r.True(IsDecryptionKeyError(second))

	r.EqualValues(8, cnt.get("ok"))
	r.EqualValues(1, cnt.get(ErrorCodeIntegrity.String()))
	r.EqualValues(1, cnt.get(ErrorCodeDecryptionKey.String()))

	// the locked squeak passes without the key stage
	err = v.CheckAll(context.Background(), squeaks, SkipDecryptionCheck())
	r.Error(err)
	r.True(errors.As(err, &merr))
	r.Len(merr.Errors, 1)

	r.NoError(v.CheckAll(context.Background(), squeaks[:3]))
	r.NoError(v.CheckAll(context.Background(), nil))
}

func TestValidatorCanceled(t *testing.T) {
	r := require.New(t)

	v, err := NewValidator()
	r.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	squeaks := []*Squeak{makeTestSqueak(t, newSigningKey(t), "late")}
	err = v.CheckAll(ctx, squeaks)
	r.True(errors.Is(err, context.Canceled), "%v", err)
}

func TestValidatorOptions(t *testing.T) {
	_, err := NewValidator(WithWorkers(0))
	require.Error(t, err)
}
