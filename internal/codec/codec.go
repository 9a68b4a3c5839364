// Package codec turns markup fragments into attribute-safe tokens and back.
//
// A token is the standard base64 encoding of the fragment's UTF-8 bytes, so
// it survives being stored in an HTML attribute without any escaping.
package codec

import (
	"encoding/base64"
	"errors"
	"unicode/utf8"
)

// ErrDecode is returned for tokens that were not produced by Encode.
var ErrDecode = errors.New("codec: malformed token")

// Encode returns the transport-safe token for text.
func Encode(text string) string {
	return base64.StdEncoding.EncodeToString([]byte(text))
}

// Decode reverses Encode. Invalid base64 and payloads that are not valid
// UTF-8 yield ErrDecode.
func Decode(token string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", ErrDecode
	}
	if !utf8.Valid(raw) {
		return "", ErrDecode
	}
	return string(raw), nil
}
