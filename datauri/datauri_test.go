package datauri

import (
	"encoding/base64"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, n := range []int{0, 1, 2, 3, 4, 5, 7, 100, 1024, 3001} {
		b := make([]byte, n)
		rng.Read(b)

		enc := Encode(b)
		assert.Len(t, enc, (n+2)/3*4, "length for n=%d", n)

		dec, err := base64.StdEncoding.DecodeString(enc)
		require.NoError(t, err)
		assert.Equal(t, b, dec, "round trip for n=%d", n)
	}
}

func TestEncode_KnownVectors(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"f", "Zg=="},
		{"fo", "Zm8="},
		{"foo", "Zm9v"},
		{"foob", "Zm9vYg=="},
		{"fooba", "Zm9vYmE="},
		{"foobar", "Zm9vYmFy"},
		{"\xfb\xff", "+/8="},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Encode([]byte(tt.in)), "encode %q", tt.in)
	}
}

func TestFormatAndParse(t *testing.T) {
	uri := Format(MIMEJPEG, []byte{0xff, 0xd8, 0xff})
	assert.Equal(t, "data:image/jpeg;base64,/9j/", uri)

	mime, payload, err := Parse(uri)
	require.NoError(t, err)
	assert.Equal(t, MIMEJPEG, mime)
	assert.Equal(t, "/9j/", payload)

	raw, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, raw)

	mime, _, err = Parse("data:image/png;base64,AAAA")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
}

func TestParse_Malformed(t *testing.T) {
	for _, in := range []string{"", "AAAA", "data:text/plain;base64,AAAA", "data:image/jpeg,AAAA"} {
		_, _, err := Parse(in)
		assert.ErrorIs(t, err, ErrMalformed, "input %q", in)
	}
}
