package main

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	anacrolixbencode "github.com/anacrolix/torrent/bencode"
	anacrolix "github.com/anacrolix/torrent/metainfo"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/chihaya/bencode/bencode"
	"github.com/chihaya/bencode/pkg/log"
)

// EndToEndRunCmdFunc implements a Cobra command that runs the end-to-end test
// suite against a running HTTP frontend.
func EndToEndRunCmdFunc(cmd *cobra.Command, args []string) error {
	delay, err := cmd.Flags().GetDuration("delay")
	if err != nil {
		return err
	}

	httpAddr, err := cmd.Flags().GetString("httpaddr")
	if err != nil {
		return err
	}

	log.Info("testing HTTP...", log.Fields{"addr": httpAddr})
	if err := test(httpAddr, delay); err != nil {
		return err
	}
	log.Info("success")

	return nil
}

// generateTorrent builds a random torrent with an independent bencode
// implementation.
func generateTorrent() (*anacrolix.MetaInfo, error) {
	pieces := make([]byte, 20*4)
	if _, err := rand.Read(pieces); err != nil {
		return nil, err
	}

	infoBytes, err := anacrolixbencode.Marshal(anacrolix.Info{
		Name:        fmt.Sprintf("e2e-%x", pieces[:4]),
		PieceLength: 16384,
		Pieces:      pieces,
		Length:      16384 * 4,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal info")
	}

	return &anacrolix.MetaInfo{
		InfoBytes:    infoBytes,
		Announce:     "http://tracker.example/announce",
		CreationDate: time.Now().Unix(),
		CreatedBy:    "bencode-e2e",
	}, nil
}

func do(method, url string, body []byte) (int, []byte, error) {
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "%s %s failed", method, url)
	}
	defer resp.Body.Close()

	respBody, err := ioutil.ReadAll(resp.Body)
	return resp.StatusCode, respBody, err
}

func test(addr string, delay time.Duration) error {
	mi, err := generateTorrent()
	if err != nil {
		return err
	}
	expectedHash := mi.HashInfoBytes().HexString()

	buf, err := anacrolixbencode.Marshal(mi)
	if err != nil {
		return errors.Wrap(err, "failed to marshal torrent")
	}

	status, body, err := do(http.MethodPut, addr+"/torrents", buf)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("expected status 200 storing torrent, got %d: %q", status, body)
	}

	resp, err := bencode.Decode(body)
	if err != nil {
		return errors.Wrap(err, "failed to decode put response")
	}
	ih, _ := resp.Get("info hash")
	if got, _ := ih.Str(); got != expectedHash {
		return fmt.Errorf("expected infohash %s, got %s", expectedHash, got)
	}

	time.Sleep(delay)

	status, body, err = do(http.MethodGet, addr+"/torrents/"+expectedHash, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("expected status 200 fetching torrent, got %d: %q", status, body)
	}

	canonical, err := bencode.DecodeFrom(buf)
	if err != nil {
		return errors.Wrap(err, "failed to decode generated torrent")
	}
	if !bytes.Equal(bencode.Encode(canonical), body) {
		return errors.New("stored torrent differs from the canonical encoding of the upload")
	}

	status, body, err = do(http.MethodDelete, addr+"/torrents/"+expectedHash, nil)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent {
		return fmt.Errorf("expected status 204 deleting torrent, got %d: %q", status, body)
	}

	return nil
}
