package http

import (
	"errors"
	"net/http"

	"github.com/chihaya/bencode/bencode"
	"github.com/chihaya/bencode/frontend"
	"github.com/chihaya/bencode/metainfo"
	"github.com/chihaya/bencode/pkg/log"
	"github.com/chihaya/bencode/storage"
)

const (
	contentTypeBencode = "text/plain; charset=binary"
	contentTypeTorrent = "application/x-bittorrent"
)

// ErrRequestTooLarge is returned when a request body exceeds MaxBodySize.
var ErrRequestTooLarge = frontend.ClientError("request body too large")

// ErrInvalidInfoHash is returned when a route's infohash cannot be parsed.
var ErrInvalidInfoHash = frontend.ClientError("invalid infohash")

// WriteError communicates an error to a client over HTTP as a bencoded
// dictionary with a "failure reason". Decode failures additionally carry the
// "offset" and "reason" of the ParseError.
func WriteError(w http.ResponseWriter, err error) error {
	status := http.StatusBadRequest
	resp := map[string]interface{}{}

	var perr *bencode.ParseError
	var lerr *bencode.LimitError
	var clientErr frontend.ClientError
	switch {
	case errors.As(err, &perr):
		resp["failure reason"] = perr.Error()
		resp["offset"] = perr.Offset
		resp["reason"] = perr.Reason.String()
	case errors.As(err, &lerr):
		status = http.StatusRequestEntityTooLarge
		resp["failure reason"] = lerr.Error()
		resp["offset"] = lerr.Offset
	case errors.Is(err, storage.ErrResourceDoesNotExist):
		status = http.StatusNotFound
		resp["failure reason"] = storage.ErrResourceDoesNotExist.Error()
	case errors.Is(err, metainfo.ErrInvalidMetaInfo):
		resp["failure reason"] = err.Error()
	case errors.Is(err, ErrRequestTooLarge):
		status = http.StatusRequestEntityTooLarge
		resp["failure reason"] = ErrRequestTooLarge.Error()
	case errors.As(err, &clientErr):
		resp["failure reason"] = clientErr.Error()
	default:
		status = http.StatusInternalServerError
		resp["failure reason"] = "internal server error"
		log.Error("http: internal error", log.Err(err))
	}

	buf, merr := bencode.Marshal(resp)
	if merr != nil {
		return merr
	}

	w.Header().Set("Content-Type", contentTypeBencode)
	w.WriteHeader(status)
	_, err = w.Write(buf)
	return err
}

// WriteCanonical writes the canonical encoding of v.
func WriteCanonical(w http.ResponseWriter, v bencode.Value) error {
	w.Header().Set("Content-Type", contentTypeBencode)
	return bencode.NewEncoder(w).Encode(v)
}

// WritePutResponse communicates the result of storing a torrent.
func WritePutResponse(w http.ResponseWriter, mi *metainfo.MetaInfo) error {
	buf, err := bencode.Marshal(map[string]interface{}{
		"info hash": mi.ID().String(),
		"name":      mi.Name,
		"canonical": mi.Canonical,
	})
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", contentTypeBencode)
	_, err = w.Write(buf)
	return err
}

// WriteTorrent writes a stored torrent.
func WriteTorrent(w http.ResponseWriter, buf []byte) error {
	w.Header().Set("Content-Type", contentTypeTorrent)
	_, err := w.Write(buf)
	return err
}
