package codec

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// Codec is a reversible address transform owned by one rewrite backend.
type Codec interface {
	Prefix() string
	Encode(destination string) string
	Decode(token string) string
}

const (
	KindPlain   = "plain"
	KindXOR     = "xor"
	KindBase64  = "base64"
	KindReverse = "reverse"
)

// Kinds lists the built-in transforms accepted by New.
var Kinds = []string{KindPlain, KindXOR, KindBase64, KindReverse}

// New builds a built-in codec of the given kind bound to prefix.
func New(kind, prefix string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindPlain:
		return &plainCodec{prefix: prefix}, nil
	case KindXOR:
		return &xorCodec{prefix: prefix, key: 7}, nil
	case KindBase64:
		return &base64Codec{prefix: prefix}, nil
	case KindReverse:
		return &reverseCodec{prefix: prefix}, nil
	default:
		return nil, fmt.Errorf("unknown codec kind %q", kind)
	}
}

// escape percent-encodes s as a single path segment.
func escape(s string) string {
	return url.PathEscape(s)
}

// unescape reverses escape; malformed sequences are returned as-is.
func unescape(s string) string {
	out, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return out
}

type plainCodec struct {
	prefix string
}

func (c *plainCodec) Prefix() string { return c.prefix }

func (c *plainCodec) Encode(destination string) string {
	if destination == "" {
		return ""
	}
	return escape(destination)
}

func (c *plainCodec) Decode(token string) string {
	if token == "" {
		return ""
	}
	return unescape(token)
}

// xorCodec toggles every odd-indexed byte with key before escaping. A query
// appended to the token by the rewritten page is passed through untouched.
type xorCodec struct {
	prefix string
	key    byte
}

func (c *xorCodec) Prefix() string { return c.prefix }

func (c *xorCodec) Encode(destination string) string {
	if destination == "" {
		return ""
	}
	return escape(c.toggle(destination))
}

func (c *xorCodec) Decode(token string) string {
	if token == "" {
		return ""
	}
	input, search, hasSearch := strings.Cut(token, "?")
	out := c.toggle(unescape(input))
	if hasSearch {
		out += "?" + search
	}
	return out
}

func (c *xorCodec) toggle(s string) string {
	b := []byte(s)
	for i := 1; i < len(b); i += 2 {
		b[i] ^= c.key
	}
	return string(b)
}

type base64Codec struct {
	prefix string
}

func (c *base64Codec) Prefix() string { return c.prefix }

func (c *base64Codec) Encode(destination string) string {
	if destination == "" {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(destination))
}

func (c *base64Codec) Decode(token string) string {
	if token == "" {
		return ""
	}
	raw, _, _ := strings.Cut(token, "?")
	out, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return token
	}
	return string(out)
}

type reverseCodec struct {
	prefix string
}

func (c *reverseCodec) Prefix() string { return c.prefix }

func (c *reverseCodec) Encode(destination string) string {
	if destination == "" {
		return ""
	}
	return escape(reverse(destination))
}

func (c *reverseCodec) Decode(token string) string {
	if token == "" {
		return ""
	}
	return reverse(unescape(token))
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
