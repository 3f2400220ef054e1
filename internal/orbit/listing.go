package orbit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/ligustah/slcflow/internal/discover"
	slchttp "github.com/ligustah/slcflow/internal/http"
)

// DefaultListingURL is the precise orbit archive index.
const DefaultListingURL = "https://s1qc.asf.alaska.edu/aux_poeorb/"

// ParseListing extracts orbit entries from an HTML index page. Links are
// resolved against base. Anchors that are not orbit files are ignored and
// each file name appears once, sorted by name.
func ParseListing(base *url.URL, r io.Reader) ([]Entry, error) {
	byName := make(map[string]Entry)

	z := html.NewTokenizer(r)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, fmt.Errorf("parse listing: %w", err)
			}
			entries := make([]Entry, 0, len(byName))
			for _, e := range byName {
				entries = append(entries, e)
			}
			sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
			return entries, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			href := hrefAttr(z)
			if href == "" {
				continue
			}
			ref, err := url.Parse(href)
			if err != nil {
				continue
			}
			u := base.ResolveReference(ref)
			e, err := ParseName(path.Base(u.Path))
			if err != nil {
				continue
			}
			if _, dup := byName[e.Name]; dup {
				continue
			}
			e.URL = u.String()
			byName[e.Name] = e
		}
	}
}

func hrefAttr(z *html.Tokenizer) string {
	for {
		key, val, more := z.TagAttr()
		if strings.EqualFold(string(key), "href") {
			return strings.TrimSpace(string(val))
		}
		if !more {
			return ""
		}
	}
}

// FetchListing downloads and parses the orbit index at listingURL.
// An index without any orbit file is reported as discover.ErrNotFound.
func FetchListing(ctx context.Context, client *slchttp.Client, listingURL string) ([]Entry, error) {
	base, err := url.Parse(listingURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listing URL %q: %w", listingURL, err)
	}

	body, err := client.GetBytes(ctx, listingURL)
	if err != nil {
		return nil, fmt.Errorf("fetch orbit listing: %w", err)
	}

	entries, err := ParseListing(base, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no orbit files in listing %s: %w", listingURL, discover.ErrNotFound)
	}
	return entries, nil
}
