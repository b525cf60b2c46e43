package redis

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	redigolib "github.com/gomodule/redigo/redis"
	"github.com/pkg/errors"
)

type redisConnector struct {
	URL            *redisURL
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	ConnectTimeout time.Duration
}

// NewPool returns a new pool of Redis connections.
func (rc *redisConnector) NewPool() *redigolib.Pool {
	return &redigolib.Pool{
		MaxIdle:     3,
		IdleTimeout: 240 * time.Second,
		Dial:        rc.open,
		// PINGs connections that have been idle more than 10 seconds
		TestOnBorrow: func(c redigolib.Conn, t time.Time) error {
			if time.Since(t) < 10*time.Second {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
}

// open dials a new Redis connection.
func (rc *redisConnector) open() (redigolib.Conn, error) {
	opts := []redigolib.DialOption{
		redigolib.DialDatabase(rc.URL.DB),
		redigolib.DialReadTimeout(rc.ReadTimeout),
		redigolib.DialWriteTimeout(rc.WriteTimeout),
		redigolib.DialConnectTimeout(rc.ConnectTimeout),
	}

	if rc.URL.Password != "" {
		opts = append(opts, redigolib.DialPassword(rc.URL.Password))
	}

	if rc.URL.SocketPath != "" {
		return redigolib.Dial("unix", rc.URL.SocketPath, opts...)
	}

	return redigolib.Dial("tcp", rc.URL.Host, opts...)
}

// A redisURL represents a parsed redis URL.
// The general form represented is:
//
//	redis://[password@]host[/db]
//	redis-socket://[password@]path[?db=db]
type redisURL struct {
	Host       string
	SocketPath string
	Password   string
	DB         int
}

// parseRedisURL parses target into a redisURL.
func parseRedisURL(target string) (*redisURL, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse redis url")
	}

	ru := &redisURL{}
	if u.User != nil {
		if pw, ok := u.User.Password(); ok {
			ru.Password = pw
		} else {
			ru.Password = u.User.Username()
		}
	}

	switch u.Scheme {
	case "redis":
		ru.Host = u.Host
		if db := strings.TrimPrefix(u.Path, "/"); db != "" {
			if ru.DB, err = strconv.Atoi(db); err != nil {
				return nil, errors.Wrapf(err, "invalid redis database %q", db)
			}
		}
	case "redis-socket":
		ru.SocketPath = u.Path
		if db := u.Query().Get("db"); db != "" {
			if ru.DB, err = strconv.Atoi(db); err != nil {
				return nil, errors.Wrapf(err, "invalid redis database %q", db)
			}
		}
	default:
		return nil, errors.Errorf("no redis scheme found in %q", target)
	}

	return ru, nil
}
