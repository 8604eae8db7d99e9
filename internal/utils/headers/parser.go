// Package headers parses request headers given on the command line.
package headers

import (
	"fmt"
	"net/textproto"
	"strings"
)

// reserved headers are set by the sources themselves
var reserved = map[string]bool{
	"Host":           true,
	"Content-Length": true,
	"Cookie":         true,
}

// ParseHeaders converts "Key: Value" strings into a map with canonical keys.
// Later values for the same key win.
func ParseHeaders(h []string) (map[string]string, error) {
	m := make(map[string]string, len(h))
	for _, hdr := range h {
		key, value, ok := strings.Cut(hdr, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" || strings.ContainsAny(key, " \t") {
			return nil, fmt.Errorf("invalid header %q: expected \"Key: Value\"", hdr)
		}
		key = textproto.CanonicalMIMEHeaderKey(key)
		if reserved[key] {
			return nil, fmt.Errorf("header %s cannot be overridden; use --session for cookies", key)
		}
		m[key] = strings.TrimSpace(value)
	}
	return m, nil
}
