// Package auth provides authentication middleware for monstersync-server.
//
// APIKey(mode, header, key) returns an HTTP middleware (usable with
// mux.Router.Use) that validates the API key sent in the named header.
//
// When mode != "apikey" or key == "", all requests pass through (useful for
// local development with auth disabled). When the key is incorrect or absent,
// the middleware answers 401 with a JSON error body.
package auth
