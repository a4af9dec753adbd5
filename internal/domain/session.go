package domain

import "net/http"

// SessionContext carries everything captured from the rendered browser
// session that a plain HTTP client needs to impersonate it: the direct
// media URL plus the three headers the origin checks.
type SessionContext struct {
	MediaURL     string
	UserAgent    string
	CookieHeader string // name=value pairs joined by "; "
	Referer      string
}

// Headers materializes the outbound header set for replaying the
// session. Exactly User-Agent, Cookie and Referer; empty values are
// omitted rather than sent blank.
func (s SessionContext) Headers() http.Header {
	h := make(http.Header, 3)
	if s.UserAgent != "" {
		h.Set("User-Agent", s.UserAgent)
	}
	if s.CookieHeader != "" {
		h.Set("Cookie", s.CookieHeader)
	}
	if s.Referer != "" {
		h.Set("Referer", s.Referer)
	}
	return h
}

// Complete reports whether the session is usable for a transfer.
// A transfer must never start from a partially populated session.
func (s SessionContext) Complete() bool {
	return s.MediaURL != ""
}
