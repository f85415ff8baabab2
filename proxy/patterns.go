package proxy

import (
	"net/url"
	"regexp"
	"strings"
)

// Character set accepted inside a URL once a scheme or leading slash has been
// seen. Anything outside it terminates the match. Parentheses are excluded so
// a URL inside css url(...) stops at the closing paren.
const urlChars = `a-zA-Z0-9./?\-#=&;%:~_$@+`

// First character after the leading slash of a root-relative reference.
// Excludes '/' so scheme-relative "//host/path" forms are never matched;
// those pass through unrewritten.
const relFirstChars = `a-zA-Z0-9.?\-#=&;%:~_$@+`

var (
	// absolute https URL anywhere in a text blob. The scheme is captured
	// apart from the remainder so rewriting is a scheme substitution, not a
	// re-parse.
	secureURL = regexp.MustCompile(`(?i)(https)(://[` + urlChars + `]+)`)

	// root-relative reference in a text blob. It must follow a delimiter so
	// the path part of an absolute URL is never re-matched.
	relativeURL = regexp.MustCompile(`(\A|[\s"'` + "`" + `=(,])(/[` + relFirstChars + `][` + urlChars + `]*)`)

	// full-value forms, for attribute values and query parameters
	secureURLValue   = regexp.MustCompile(`(?i)\Ahttps://[` + urlChars + `]+\z`)
	insecureURLValue = regexp.MustCompile(`(?i)\Ahttp://[` + urlChars + `]+\z`)
	relativeURLValue = regexp.MustCompile(`\A/(?:[` + relFirstChars + `][` + urlChars + `]*)?\z`)
)

// registerFunc is invoked once per match with the matched URL and, for
// relative matches, the host used to absolutize it.
type registerFunc func(match, host string)

// replaceSecure rewrites every absolute https URL in text to http and reports
// each pre-rewrite match. Matches are replaced left to right and never
// overlap, so identical input always yields identical output.
func replaceSecure(text string, register registerFunc) string {
	return secureURL.ReplaceAllStringFunc(text, func(match string) string {
		parts := secureURL.FindStringSubmatch(match)
		register(match, "")
		return "http" + parts[2]
	})
}

// replaceRelative absolutizes every root-relative reference in text against
// host, on the insecure scheme, and reports each match.
func replaceRelative(text, host string, register registerFunc) string {
	return relativeURL.ReplaceAllStringFunc(text, func(match string) string {
		parts := relativeURL.FindStringSubmatch(match)
		register(parts[2], host)
		return parts[1] + "http://" + host + parts[2]
	})
}

// relURL normalizes a parsed URL into its cache key form: path plus raw
// query, no scheme, host or fragment.
func relURL(u *url.URL) string {
	rel := u.EscapedPath()
	if rel == "" {
		rel = "/"
	}
	if u.RawQuery != "" {
		rel += "?" + u.RawQuery
	}
	return rel
}

// stripFragment normalizes a textual root-relative reference the same way.
func stripFragment(rel string) string {
	if i := strings.IndexByte(rel, '#'); i >= 0 {
		rel = rel[:i]
	}
	if rel == "" {
		rel = "/"
	}
	return rel
}
