// Package shipper is the HTTP transport between monstersync-agent and
// monstersync-server. Shipper implements push.Transport.
//
// PushChangedMonsters POSTs one batch to
//
//	{server_endpoint}/api/v1/sessions/{session}/monsters
//
// as a types.PushRequest, so record arrays travel in the columnar compacted
// form. With push.compress enabled the body is gzip-encoded and sent with
// Content-Encoding: gzip.
//
// Auth: mTLS client certificates, an API key header, or none.
//
// Any non-2xx status or transport error is returned to the caller. 4xx
// statuses and responses with ok=false wrap ErrRejected so callers can tell a
// refused batch from an unreachable server; the push loop treats both as
// transient.
package shipper
