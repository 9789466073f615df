// Package session owns the console's authenticated identity.
//
// A single Store instance is constructed at startup and injected into
// every guard and screen; it is the only component that mutates the
// session. Login, signup and refresh run against the backend through a
// Backend implementation; logout is a synchronous local transition with
// a best-effort server notify.
//
// Identity-changing operations are ordered latest-wins: each one takes
// a monotonically increasing token under the store lock, and a response
// is applied only while its token is still the newest issued. A slow
// login response arriving after a logout is discarded rather than
// resurrecting the session.
package session
