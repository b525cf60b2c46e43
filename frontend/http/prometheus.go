package http

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chihaya/bencode/bencode"
	"github.com/chihaya/bencode/frontend"
	"github.com/chihaya/bencode/metainfo"
	"github.com/chihaya/bencode/storage"
)

func init() {
	prometheus.MustRegister(promResponseDurationMilliseconds)
}

var promResponseDurationMilliseconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "bencode_http_response_duration_milliseconds",
		Help:    "The duration of time it takes to receive and write a response to an API request",
		Buckets: prometheus.ExponentialBuckets(9.375, 2, 10),
	},
	[]string{"action", "error"},
)

// recordResponseDuration records the duration of time to respond to a Request
// in milliseconds.
func recordResponseDuration(action string, err error, duration time.Duration) {
	promResponseDurationMilliseconds.
		WithLabelValues(action, errorLabel(err)).
		Observe(float64(duration.Nanoseconds()) / float64(time.Millisecond))
}

// errorLabel keeps the label cardinality bounded: decode failures are
// reported by reason, everything unexpected as "internal error".
func errorLabel(err error) string {
	if err == nil {
		return ""
	}

	var perr *bencode.ParseError
	var lerr *bencode.LimitError
	var clientErr frontend.ClientError
	switch {
	case errors.As(err, &perr):
		return perr.Reason.String()
	case errors.As(err, &lerr):
		return string(lerr.Limit) + " limit exceeded"
	case errors.Is(err, storage.ErrResourceDoesNotExist):
		return storage.ErrResourceDoesNotExist.Error()
	case errors.Is(err, metainfo.ErrInvalidMetaInfo):
		return metainfo.ErrInvalidMetaInfo.Error()
	case errors.As(err, &clientErr):
		return clientErr.Error()
	default:
		return "internal error"
	}
}
