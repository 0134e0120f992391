package sheet

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	docIDPattern = regexp.MustCompile(`/d/([a-zA-Z0-9_-]+)`)
	gidPattern   = regexp.MustCompile(`gid=([0-9]+)`)
)

// Link is a validated Google Sheet reference: the document id plus an
// optional tab id (gid), with the original URL retained for the
// "open raw sheet" action.
type Link struct {
	DocID  string
	GID    string
	RawURL string
}

// ParseLink validates a user-supplied sheet URL against the expected
// document-link shape. Failures wrap ErrInvalidLink with a named reason.
func ParseLink(raw string) (Link, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Link{}, fmt.Errorf("%w: empty link", ErrInvalidLink)
	}

	if _, err := url.Parse(raw); err != nil {
		return Link{}, fmt.Errorf("%w: not a URL: %v", ErrInvalidLink, err)
	}

	m := docIDPattern.FindStringSubmatch(raw)
	if m == nil {
		return Link{}, fmt.Errorf("%w: no /d/<documentId> segment", ErrInvalidLink)
	}

	link := Link{DocID: m[1], RawURL: raw}

	// gid may appear in the query string or the fragment; either selects a tab.
	if g := gidPattern.FindStringSubmatch(raw); g != nil {
		link.GID = g[1]
	}

	return link, nil
}

// CSVURL returns the canonical CSV export endpoint. The export always targets
// the document's first tab regardless of gid, matching the original display.
func (l Link) CSVURL() string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv", l.DocID)
}

// GVizURL returns the fallback tabular-query endpoint, which honors the tab
// selection when a gid is present.
func (l Link) GVizURL() string {
	u := fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/gviz/tq?tqx=out:json", l.DocID)
	if l.GID != "" {
		u += "&gid=" + l.GID
	}
	return u
}
