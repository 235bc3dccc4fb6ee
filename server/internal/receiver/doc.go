// Package receiver implements POST /api/v1/sessions/{session}/monsters, the
// endpoint monstersync agents push changed monsters to.
//
// For each request the receiver:
//   - reads the body (gzip when Content-Encoding says so, 1 MiB limit),
//   - optionally validates it against push.schema.json, which accepts both
//     compact and conventional arrays,
//   - decodes a types.PushRequest, merges it into the session store,
//   - notifies the WebSocket hub and publishes the batch to the sink.
//
// It answers {"ok":true,"accepted":n}; failures answer 4xx with ok=false and
// a message. Authentication is applied by the middleware passed to Register.
package receiver
