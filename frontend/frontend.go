// Package frontend holds what the transports serving the bencode codec have
// in common.
package frontend

// ClientError represents an error that should be exposed to the client over
// the transport protocol.
type ClientError string

// Error implements the error interface for ClientError.
func (c ClientError) Error() string { return string(c) }
