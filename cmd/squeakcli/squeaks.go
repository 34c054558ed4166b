// SPDX-FileCopyrightText: 2023 The Go-Squeak Authors
//
// SPDX-License-Identifier: MIT

package main

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	cli "github.com/urfave/cli/v2"
	"go.mindeco.de/log/level"

	squeak "github.com/squeaknode/go-squeak"
	"github.com/squeaknode/go-squeak/encryption"
	"github.com/squeaknode/go-squeak/gossip"
	"github.com/squeaknode/go-squeak/repo"
	"github.com/squeaknode/go-squeak/signing"
	"github.com/squeaknode/go-squeak/store"
)

var keyNameFlag = &cli.StringFlag{Name: "key", Usage: "name of the signing key below secrets/ (default: the repo key)"}

func signingKey(ctx *cli.Context) (*signing.SigningKey, error) {
	return repo.OpenNamedSigningKey(squeakR, ctx.String("key"), params)
}

func openStore() (*store.Store, error) {
	return repo.OpenStore(squeakR, logger)
}

func parseHash(s string) (chainhash.Hash, error) {
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		return chainhash.Hash{}, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	return *h, nil
}

func decodeSqueak(s string) (*squeak.Squeak, error) {
	data, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("squeak is not hex: %w", err)
	}
	var sqk squeak.Squeak
	if err := sqk.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return &sqk, nil
}

func encodeSqueak(sqk *squeak.Squeak) (string, error) {
	data, err := sqk.MarshalBinary()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(data), nil
}

// inputs returns the arguments, or the non-empty lines of stdin if there are none.
func inputs(ctx *cli.Context) ([]string, error) {
	if ctx.NArg() > 0 {
		return ctx.Args().Slice(), nil
	}
	var lines []string
	sc := bufio.NewScanner(ctx.App.Reader)
	for sc.Scan() {
		if l := strings.TrimSpace(sc.Text()); l != "" {
			lines = append(lines, l)
		}
	}
	return lines, sc.Err()
}

// loadSqueak takes either a hash of a stored squeak or a hex encoded squeak.
func loadSqueak(arg string) (*squeak.Squeak, error) {
	if len(arg) != 2*chainhash.HashSize {
		return decodeSqueak(arg)
	}
	hash, err := parseHash(arg)
	if err != nil {
		return nil, err
	}
	st, err := openStore()
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.Get(hash)
}

func storeSqueak(sqk *squeak.Squeak) error {
	if noStore {
		return nil
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	if _, err := st.Put(sqk); err != nil {
		return err
	}
	storedSqueaks.With("key", fmt.Sprint(sqk.HasDecryptionKey())).Add(1)
	return nil
}

func newValidator() (*squeak.Validator, error) {
	opts := []squeak.ValidatorOption{
		squeak.WithLogger(logger),
		squeak.WithCheckedCounter(checkedSqueaks),
	}
	if workers > 0 {
		opts = append(opts, squeak.WithWorkers(workers))
	}
	return squeak.NewValidator(opts...)
}

// batchErrors unpacks the per squeak failures of Validator.CheckAll.
func batchErrors(err error) ([]*squeak.BatchError, bool) {
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		return nil, false
	}
	out := make([]*squeak.BatchError, 0, len(merr.Errors))
	for _, e := range merr.Errors {
		var be *squeak.BatchError
		if !errors.As(e, &be) {
			return nil, false
		}
		out = append(out, be)
	}
	return out, true
}

var addressCmd = &cli.Command{
	Name:  "address",
	Usage: "print the address of a signing key, creating it if needed",
	Flags: []cli.Flag{keyNameFlag},
	Action: func(ctx *cli.Context) error {
		key, err := signingKey(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, key.Address())
		return nil
	},
}

var makeCmd = &cli.Command{
	Name:      "make",
	Usage:     "make a new squeak and print it hex encoded",
	ArgsUsage: "<text>",
	Description: `Make, sign and store a new squeak. The block hash and height anchor it in time.

Example:

    squeakcli make --height 700000 --block 0000000000000000000590fc0f3eba193a278534220b2b37e9849e1a770ca959 "hello world"`,
	Flags: []cli.Flag{
		keyNameFlag,
		&cli.IntFlag{Name: "height", Usage: "block height the squeak is anchored at"},
		&cli.StringFlag{Name: "block", Usage: "hash of the block at that height", Required: true},
		&cli.StringFlag{Name: "reply", Usage: "hash of the squeak this replies to"},
		&cli.Int64Flag{Name: "time", Usage: "unix timestamp (default: now)"},
	},
	Action: func(ctx *cli.Context) error {
		text := strings.Join(ctx.Args().Slice(), " ")
		if text == "" {
			return fmt.Errorf("make: text can't be empty")
		}

		key, err := signingKey(ctx)
		if err != nil {
			return err
		}

		blockHash, err := parseHash(ctx.String("block"))
		if err != nil {
			return err
		}

		var opts []squeak.MakeOption
		if r := ctx.String("reply"); r != "" {
			replyTo, err := parseHash(r)
			if err != nil {
				return err
			}
			opts = append(opts, squeak.ReplyTo(replyTo))
		}

		ts := time.Now().Unix()
		if ctx.IsSet("time") {
			ts = ctx.Int64("time")
		}

		sqk, err := squeak.MakeSqueakFromStr(key, text, int32(ctx.Int("height")), blockHash, uint32(ts), opts...)
		if err != nil {
			return err
		}
		if err := storeSqueak(sqk); err != nil {
			return err
		}

		out, err := encodeSqueak(sqk)
		if err != nil {
			return err
		}
		level.Info(logger).Log("event", "made squeak", "hash", sqk.Hash(), "author", key.Address())
		fmt.Fprintln(ctx.App.Writer, out)
		return nil
	},
}

var checkCmd = &cli.Command{
	Name:      "check",
	Usage:     "validate hex encoded squeaks from the arguments or stdin",
	ArgsUsage: "[squeak...]",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "skip-decryption", Usage: "accept squeaks without a valid decryption key"},
	},
	Action: func(ctx *cli.Context) error {
		in, err := inputs(ctx)
		if err != nil {
			return err
		}

		var opts []squeak.CheckOption
		if ctx.Bool("skip-decryption") {
			opts = append(opts, squeak.SkipDecryptionCheck())
		}

		v, err := newValidator()
		if err != nil {
			return err
		}

		var failed int
		for _, s := range in {
			sqk, err := decodeSqueak(s)
			if err != nil {
				failed++
				fmt.Fprintln(ctx.App.Writer, "invalid", err)
				continue
			}
			if err := v.Check(sqk, opts...); err != nil {
				failed++
				fmt.Fprintln(ctx.App.Writer, "invalid", sqk.Hash(), err)
				continue
			}
			fmt.Fprintln(ctx.App.Writer, "ok", sqk.Hash())
		}
		if failed > 0 {
			return fmt.Errorf("check: %d of %d squeaks are invalid", failed, len(in))
		}
		return nil
	},
}

var decryptCmd = &cli.Command{
	Name:      "decrypt",
	Usage:     "print the text of a squeak",
	ArgsUsage: "<hash or hex squeak>",
	Action: func(ctx *cli.Context) error {
		sqk, err := loadSqueak(ctx.Args().First())
		if err != nil {
			return err
		}
		text, err := sqk.DecryptedContentStr()
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, text)
		return nil
	},
}

var showCmd = &cli.Command{
	Name:      "show",
	Usage:     "print the header of a squeak",
	ArgsUsage: "<hash or hex squeak>",
	Action: func(ctx *cli.Context) error {
		sqk, err := loadSqueak(ctx.Args().First())
		if err != nil {
			return err
		}

		w := ctx.App.Writer
		fmt.Fprintln(w, "hash:   ", sqk.Hash())
		if addr, err := sqk.Address(params); err == nil {
			fmt.Fprintln(w, "author: ", addr)
		} else {
			fmt.Fprintln(w, "author: ", err)
		}
		fmt.Fprintf(w, "block:   %s (height %s)\n", sqk.HashBlock, humanize.Comma(int64(sqk.BlockHeight)))
		created := time.Unix(int64(sqk.Time), 0)
		fmt.Fprintf(w, "time:    %s (%s)\n", created.UTC().Format(time.RFC3339), humanize.Time(created))
		if sqk.IsReply() {
			fmt.Fprintln(w, "reply:  ", sqk.HashReplySqk)
		}
		data, err := sqk.MarshalBinary()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "size:   ", humanize.Bytes(uint64(len(data))))
		if sqk.HasDecryptionKey() {
			fmt.Fprintln(w, "status:  unlocked")
		} else {
			fmt.Fprintln(w, "status:  locked")
		}
		return nil
	},
}

var listCmd = &cli.Command{
	Name:  "list",
	Usage: "list stored squeaks",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{Name: "author", Usage: "only squeaks by these addresses"},
		&cli.IntFlag{Name: "min-height", Value: int(gossip.Unbounded)},
		&cli.IntFlag{Name: "max-height", Value: int(gossip.Unbounded)},
		&cli.StringFlag{Name: "reply", Usage: "only replies to this squeak"},
	},
	Action: func(ctx *cli.Context) error {
		base := gossip.Interested{
			MinBlockHeight: int32(ctx.Int("min-height")),
			MaxBlockHeight: int32(ctx.Int("max-height")),
		}
		if r := ctx.String("reply"); r != "" {
			replyTo, err := parseHash(r)
			if err != nil {
				return err
			}
			base.ReplyTo = replyTo
		}

		var locator gossip.Locator
		authors := ctx.StringSlice("author")
		if len(authors) == 0 {
			locator.Interested = append(locator.Interested, base)
		}
		for _, a := range authors {
			addr, err := signing.DecodeAddress(a, params)
			if err != nil {
				return err
			}
			in := base
			in.Address = addr.ScriptPubKey()
			locator.Interested = append(locator.Interested, in)
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		hashes, err := st.Lookup(&locator)
		if err != nil {
			return err
		}
		for _, h := range hashes {
			sqk, err := st.Get(h)
			if err != nil {
				return err
			}
			lock := "locked"
			if sqk.HasDecryptionKey() {
				lock = "unlocked"
			}
			fmt.Fprintf(ctx.App.Writer, "%s %8d %s %s\n", h, sqk.BlockHeight, lock, humanize.Time(time.Unix(int64(sqk.Time), 0)))
		}
		level.Debug(logger).Log("event", "listed", "count", len(hashes))
		return nil
	},
}

var importCmd = &cli.Command{
	Name:      "import",
	Usage:     "validate hex encoded squeaks in parallel and store the valid ones",
	ArgsUsage: "[squeak...]",
	Action: func(ctx *cli.Context) error {
		in, err := inputs(ctx)
		if err != nil {
			return err
		}

		squeaks := make([]*squeak.Squeak, 0, len(in))
		for i, s := range in {
			sqk, err := decodeSqueak(s)
			if err != nil {
				return fmt.Errorf("import: squeak #%d: %w", i, err)
			}
			squeaks = append(squeaks, sqk)
		}

		v, err := newValidator()
		if err != nil {
			return err
		}

		checkErr := v.CheckAll(ctx.Context, squeaks, squeak.SkipDecryptionCheck())
		failed := make(map[int]bool)
		if checkErr != nil {
			batchErrs, ok := batchErrors(checkErr)
			if !ok {
				return checkErr
			}
			for _, be := range batchErrs {
				failed[be.Index] = true
				fmt.Fprintln(ctx.App.Writer, "invalid", be.Hash, be.Err)
			}
		}

		var stored int
		for i, sqk := range squeaks {
			if failed[i] {
				continue
			}
			if err := storeSqueak(sqk); err != nil {
				return err
			}
			stored++
			fmt.Fprintln(ctx.App.Writer, "ok", sqk.Hash())
		}
		level.Info(logger).Log("event", "imported", "stored", stored, "invalid", len(failed))
		return nil
	},
}

var unlockCmd = &cli.Command{
	Name:      "unlock",
	Usage:     "attach a decryption key to a stored squeak",
	ArgsUsage: "<hash> <hex key>",
	Action: func(ctx *cli.Context) error {
		hash, err := parseHash(ctx.Args().Get(0))
		if err != nil {
			return err
		}
		raw, err := hex.DecodeString(ctx.Args().Get(1))
		if err != nil || len(raw) != encryption.SecretKeyLength {
			return fmt.Errorf("unlock: key must be %d hex encoded bytes", encryption.SecretKeyLength)
		}
		var key encryption.DataKey
		copy(key[:], raw)

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		return st.SetDecryptionKey(hash, key)
	},
}

var lockCmd = &cli.Command{
	Name:      "lock",
	Usage:     "forget the decryption key of a stored squeak",
	ArgsUsage: "<hash>",
	Action: func(ctx *cli.Context) error {
		hash, err := parseHash(ctx.Args().First())
		if err != nil {
			return err
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		return st.ClearDecryptionKey(hash)
	},
}

var removeCmd = &cli.Command{
	Name:      "rm",
	Usage:     "delete a stored squeak",
	ArgsUsage: "<hash>",
	Action: func(ctx *cli.Context) error {
		hash, err := parseHash(ctx.Args().First())
		if err != nil {
			return err
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		return st.Delete(hash)
	},
}

var inventoryCmd = &cli.Command{
	Name:  "inv",
	Usage: "print the inventory of the store, as a hex encoded inv message with --raw",
	Flags: []cli.Flag{&cli.BoolFlag{Name: "raw"}},
	Action: func(ctx *cli.Context) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		invs, err := st.Inventory()
		if err != nil {
			return err
		}
		if ctx.Bool("raw") {
			data, err := invs.MarshalBinary()
			if err != nil {
				return err
			}
			fmt.Fprintln(ctx.App.Writer, hex.EncodeToString(data))
			return nil
		}
		for _, inv := range invs {
			fmt.Fprintln(ctx.App.Writer, inv)
		}
		return nil
	},
}
