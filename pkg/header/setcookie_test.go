package header

import (
	"testing"
	"time"
)

func TestParseSetCookieWithAttributes(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cookie, ok := ParseSetCookie("sid=abc; Domain=.example.com; Path=/; Max-Age=60; Secure; HttpOnly", now)
	if !ok {
		t.Fatal("ok = false, want true")
	}
	if cookie.Name != "sid" {
		t.Errorf("Name = %q, want %q", cookie.Name, "sid")
	}
	if cookie.Value != "abc" {
		t.Errorf("Value = %q, want %q", cookie.Value, "abc")
	}
	if cookie.Domain != "example.com" {
		t.Errorf("Domain = %q, want %q", cookie.Domain, "example.com")
	}
	if !cookie.DomainDot {
		t.Error("DomainDot = false, want true")
	}
	if cookie.Path != "/" {
		t.Errorf("Path = %q, want %q", cookie.Path, "/")
	}
	if !cookie.SecureOnly {
		t.Error("SecureOnly = false, want true")
	}
	if !cookie.HTTPOnly {
		t.Error("HTTPOnly = false, want true")
	}
	wantMaxAge := now.Add(60 * time.Second)
	if !cookie.MaxAge.Equal(wantMaxAge) {
		t.Errorf("MaxAge = %v, want %v", cookie.MaxAge, wantMaxAge)
	}
}

func TestParseSetCookieDomainWithoutLeadingDot(t *testing.T) {
	cookie, ok := ParseSetCookie("a=b; Domain=example.com", time.Now())
	if !ok {
		t.Fatal("ok = false, want true")
	}
	if cookie.Domain != "example.com" {
		t.Errorf("Domain = %q, want %q", cookie.Domain, "example.com")
	}
	if cookie.DomainDot {
		t.Error("DomainDot = true, want false")
	}
}

func TestParseSetCookieNoNameIsIgnored(t *testing.T) {
	_, ok := ParseSetCookie("=novalue", time.Now())
	if ok {
		t.Error("ok = true, want false for a cookie with no name")
	}
}

func TestParseSetCookieNoAssignmentIsIgnored(t *testing.T) {
	_, ok := ParseSetCookie("novalueatall", time.Now())
	if ok {
		t.Error("ok = true, want false for a cookie with no '='")
	}
}

func TestParseSetCookieSessionCookieHasNoExpiry(t *testing.T) {
	cookie, ok := ParseSetCookie("sid=abc", time.Now())
	if !ok {
		t.Fatal("ok = false, want true")
	}
	if !cookie.Expires.IsZero() || !cookie.MaxAge.IsZero() {
		t.Errorf("expected no expiry, got Expires=%v MaxAge=%v", cookie.Expires, cookie.MaxAge)
	}
	if !cookie.EffectiveExpiry().IsZero() {
		t.Error("EffectiveExpiry() should be zero for a session cookie")
	}
}

func TestParseSetCookieExpiresAttribute(t *testing.T) {
	cookie, ok := ParseSetCookie("sid=abc; Expires=Wed, 09 Jun 2021 10:18:14 GMT", time.Now())
	if !ok {
		t.Fatal("ok = false, want true")
	}
	want := time.Date(2021, 6, 9, 10, 18, 14, 0, time.UTC)
	if !cookie.Expires.Equal(want) {
		t.Errorf("Expires = %v, want %v", cookie.Expires, want)
	}
}

func TestParseSetCookieExpiresFollowedByOtherAttributes(t *testing.T) {
	cookie, ok := ParseSetCookie("sid=abc; Expires=Wed, 09 Jun 2021 10:18:14 GMT; Path=/; Secure", time.Now())
	if !ok {
		t.Fatal("ok = false, want true")
	}
	want := time.Date(2021, 6, 9, 10, 18, 14, 0, time.UTC)
	if !cookie.Expires.Equal(want) {
		t.Errorf("Expires = %v, want %v", cookie.Expires, want)
	}
	if cookie.Path != "/" {
		t.Errorf("Path = %q, want %q (attribute after Expires must still parse)", cookie.Path, "/")
	}
	if !cookie.SecureOnly {
		t.Error("SecureOnly = false, want true")
	}
}

func TestCookieEffectiveExpiryMaxAgeWins(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cookie := Cookie{
		Expires: now.Add(24 * time.Hour),
		MaxAge:  now.Add(1 * time.Hour),
	}
	got := cookie.EffectiveExpiry()
	want := now.Add(1 * time.Hour)
	if !got.Equal(want) {
		t.Errorf("EffectiveExpiry() = %v, want %v (Max-Age takes precedence)", got, want)
	}
}

func TestParseSetCookieNonPositiveMaxAgeIgnored(t *testing.T) {
	cookie, ok := ParseSetCookie("sid=abc; Max-Age=0", time.Now())
	if !ok {
		t.Fatal("ok = false, want true")
	}
	if !cookie.MaxAge.IsZero() {
		t.Errorf("MaxAge = %v, want zero for a non-positive Max-Age", cookie.MaxAge)
	}
}
