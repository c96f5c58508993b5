// Package datauri turns captured image bytes into the self-describing
// `data:<mime>;base64,<payload>` strings exchanged between the capture
// service, the chat log and the model providers.
package datauri

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MIMEJPEG is the MIME type of every capture produced by the capture service.
const MIMEJPEG = "image/jpeg"

// ErrMalformed is returned by Parse for strings that are not base64 image data URIs.
var ErrMalformed = errors.New("malformed data uri")

var imagePrefix = regexp.MustCompile(`^data:(image/\w+);base64,`)

// Encode returns the standard (RFC 4648, padded, non URL-safe) base64 text for b.
// The output length is always ceil(len(b)/3)*4; empty input yields "".
func Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// Decode reverses Encode.
func Decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// Format builds a data URI for the given MIME type and raw bytes.
func Format(mimeType string, b []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, Encode(b))
}

// Parse splits an image data URI into its MIME type and base64 payload.
// The payload is returned as-is; use Decode to obtain the raw bytes.
func Parse(uri string) (mimeType string, payload string, err error) {
	m := imagePrefix.FindStringSubmatch(uri)
	if m == nil {
		return "", "", fmt.Errorf("%w: missing image base64 prefix", ErrMalformed)
	}
	return m[1], strings.TrimPrefix(uri, m[0]), nil
}
