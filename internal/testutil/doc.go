// Package testutil contains helper builders and fakes used across tests to
// reduce boilerplate when constructing conversations and exercising the
// capture service against a scripted host. The fakes record every host and
// storage call in order so tests can assert on call sequences. They are not
// intended for production usage.
package testutil
