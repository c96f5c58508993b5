// Package capture produces size-bounded, JPEG compressed, data URI encoded
// snapshots of the document a host is currently editing.
//
// A capture runs entirely inside the host's modal scope:
//
//	active document → (duplicate + resize when the long edge is too big)
//	→ export JPEG into a temporary artifact → read bytes → delete artifact
//	→ close duplicate → data:image/jpeg;base64,...
//
// The duplicate document and the temporary artifact are released on every
// exit path. Failures to release them are logged and never replace the
// capture's own result or error.
package capture
