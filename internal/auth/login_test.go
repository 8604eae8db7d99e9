package auth

import (
	"testing"

	"github.com/chromedp/cdproto/network"
)

func TestFromBrowserCookies(t *testing.T) {
	got := FromBrowserCookies([]*network.Cookie{
		{Name: "cookie2", Value: "abc", Domain: ".1688.com", Path: "/", Expires: 1900000000, HTTPOnly: true, SameSite: network.CookieSameSiteLax},
		nil,
		{Name: "_tb_token_", Value: "t", Domain: ".1688.com", Secure: true},
	})
	if len(got) != 2 {
		t.Fatalf("Expected 2 cookies, got %d", len(got))
	}
	if got[0].SameSite != "Lax" || !got[0].HTTPOnly || got[0].Domain != ".1688.com" {
		t.Errorf("unexpected first cookie %+v", got[0])
	}
	if !got[1].Secure || got[1].Expires != 0 {
		t.Errorf("unexpected second cookie %+v", got[1])
	}

	s := &SessionData{Cookies: got}
	s.ExpiryFromCookies()
	if s.ExpiresAt.Unix() != 1900000000 {
		t.Errorf("Expected expiry from latest cookie, got %v", s.ExpiresAt)
	}
}

func TestInteractiveLogin_RequiresName(t *testing.T) {
	if _, err := InteractiveLogin(LoginOptions{}); err == nil {
		t.Error("Expected error without a session name")
	}
}
