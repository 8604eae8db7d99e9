package auth

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DefaultCookieDomain scopes imported cookies that carry no domain
const DefaultCookieDomain = ".1688.com"

// ParseCookiesJSON reads a JSON cookie array, either our stored form or a
// DevTools/extension export (expirationDate instead of expires)
func ParseCookiesJSON(r io.Reader) ([]Cookie, error) {
	var raw []struct {
		Cookie
		ExpirationDate float64 `json:"expirationDate"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	cookies := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		if c.Name == "" {
			continue
		}
		if c.Expires == 0 && c.ExpirationDate > 0 {
			c.Expires = c.ExpirationDate
		}
		if c.Domain == "" {
			c.Domain = DefaultCookieDomain
		}
		if c.Path == "" {
			c.Path = "/"
		}
		cookies = append(cookies, c.Cookie)
	}
	return cookies, nil
}

// ParseCookiesNetscape reads a Netscape/curl cookie jar
func ParseCookiesNetscape(r io.Reader) ([]Cookie, error) {
	var cookies []Cookie
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		httpOnly := false
		if rest, ok := strings.CutPrefix(line, "#HttpOnly_"); ok {
			line = rest
			httpOnly = true
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			fields = strings.Fields(line)
		}
		if len(fields) < 7 {
			continue
		}

		cookie := Cookie{
			Domain:   fields[0],
			Path:     fields[2],
			Secure:   strings.EqualFold(fields[3], "TRUE"),
			Name:     fields[5],
			Value:    fields[6],
			HTTPOnly: httpOnly,
		}
		if exp, err := strconv.ParseInt(fields[4], 10, 64); err == nil && exp > 0 {
			cookie.Expires = float64(exp)
		}
		cookies = append(cookies, cookie)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cookies, nil
}

// ParseCookieHeader reads a "name=value; name2=value2" string as copied from
// a request's Cookie header
func ParseCookieHeader(header, domain string) []Cookie {
	if domain == "" {
		domain = DefaultCookieDomain
	}
	var cookies []Cookie
	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || name == "" {
			continue
		}
		cookies = append(cookies, Cookie{
			Name:   strings.TrimSpace(name),
			Value:  strings.TrimSpace(value),
			Domain: domain,
			Path:   "/",
			Secure: true,
		})
	}
	return cookies
}
