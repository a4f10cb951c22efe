// Package auth issues and validates the HMAC-signed JWT access tokens that
// identify a learner to the HTTP API. The token subject is the learner ID.
package auth
