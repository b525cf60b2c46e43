package main

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/chihaya/bencode/bencode"
	"github.com/chihaya/bencode/metainfo"
	"github.com/chihaya/bencode/pkg/log"
)

// ErrNotCanonical is returned by canonicalize --check when the input differs
// from its canonical encoding.
var ErrNotCanonical = errors.New("input is not canonically encoded")

// readInput reads a whole file, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return ioutil.ReadAll(os.Stdin)
	}
	return ioutil.ReadFile(path)
}

func limitsFromFlags(cmd *cobra.Command) (bencode.Limits, error) {
	maxDepth, err := cmd.Flags().GetInt("max-depth")
	if err != nil {
		return bencode.Limits{}, err
	}

	maxSize, err := cmd.Flags().GetInt("max-size")
	if err != nil {
		return bencode.Limits{}, err
	}

	return bencode.Limits{MaxDepth: maxDepth, MaxSize: maxSize}, nil
}

func decodeFile(cmd *cobra.Command, path string) ([]byte, bencode.Value, error) {
	limits, err := limitsFromFlags(cmd)
	if err != nil {
		return nil, bencode.Value{}, err
	}

	buf, err := readInput(path)
	if err != nil {
		return nil, bencode.Value{}, errors.Wrap(err, "failed to read input")
	}

	log.Debug("decoding input", log.Fields{"path": path, "size": len(buf)}, log.Map(limits))
	v, err := bencode.DecodeLimits(buf, limits)
	if err != nil {
		return nil, bencode.Value{}, errors.Wrapf(err, "failed to decode %s", path)
	}

	return buf, v, nil
}

// DecodeCmdFunc implements a Cobra command that prints the decoded form of a
// bencoded file.
func DecodeCmdFunc(cmd *cobra.Command, args []string) error {
	_, v, err := decodeFile(cmd, args[0])
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), v.String())
	return err
}

// CanonicalizeCmdFunc implements a Cobra command that writes the canonical
// encoding of a bencoded file, or with --check only verifies that the file is
// already canonical.
func CanonicalizeCmdFunc(cmd *cobra.Command, args []string) error {
	check, err := cmd.Flags().GetBool("check")
	if err != nil {
		return err
	}

	buf, v, err := decodeFile(cmd, args[0])
	if err != nil {
		return err
	}

	canonical := bencode.Encode(v)
	if check {
		if !bytes.Equal(buf, canonical) {
			return ErrNotCanonical
		}
		log.Info("input is canonical", log.Fields{"path": args[0]})
		return nil
	}

	_, err = cmd.OutOrStdout().Write(canonical)
	return err
}

// InfohashCmdFunc implements a Cobra command that prints the infohashes of a
// torrent file.
func InfohashCmdFunc(cmd *cobra.Command, args []string) error {
	limits, err := limitsFromFlags(cmd)
	if err != nil {
		return err
	}

	buf, err := readInput(args[0])
	if err != nil {
		return errors.Wrap(err, "failed to read input")
	}

	mi, err := metainfo.Parse(buf, limits)
	if err != nil {
		return err
	}
	log.Debug("parsed torrent", log.Map(mi))

	out := cmd.OutOrStdout()
	if mi.MetaVersion == 2 {
		_, err = fmt.Fprintln(out, mi.InfoHashV2().String())
		return err
	}

	_, err = fmt.Fprintln(out, mi.InfoHash().String())
	return err
}
