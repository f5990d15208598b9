// Package wikilink converts article URLs into wiki-style links and back.
package wikilink

import (
	"net/url"
	"strings"
)

const (
	articlePrefix = "/wiki/"
	joinMarker    = ",https://"
)

// SplitArticleURLs undoes a comma-joined aggregate of article URLs.
// URLs may contain commas themselves, so only ",https://" marks a join point.
func SplitArticleURLs(joined string) []string {
	if strings.TrimSpace(joined) == "" {
		return nil
	}
	parts := strings.Split(joined, joinMarker)
	urls := make([]string, 0, len(parts))
	for i, part := range parts {
		if i > 0 {
			part = "https://" + part
		}
		urls = append(urls, strings.TrimSpace(part))
	}
	return urls
}

// Title extracts the article title from an article URL.
// It returns false when the path is not an article path.
func Title(rawURL string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}
	if !strings.HasPrefix(parsed.Path, articlePrefix) {
		return "", false
	}
	// Path is already percent-decoded by url.Parse.
	title := strings.ReplaceAll(parsed.Path[len(articlePrefix):], "_", " ")
	if title == "" {
		return "", false
	}
	return title, true
}

// Link wraps a title in double brackets.
func Link(title string) string {
	return "[[" + title + "]]"
}

// Render turns a comma-joined list of article URLs into ", "-joined wikilinks.
// URLs that are not article URLs are dropped.
func Render(joined string) string {
	urls := SplitArticleURLs(joined)
	links := make([]string, 0, len(urls))
	for _, u := range urls {
		if title, ok := Title(u); ok {
			links = append(links, Link(title))
		}
	}
	return strings.Join(links, ", ")
}

// Quote percent-encodes a title the way history links expect:
// everything but letters, digits, "_.-~" and "/" is escaped, spaces as %20.
func Quote(title string) string {
	escaped := url.QueryEscape(title)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	return strings.ReplaceAll(escaped, "%2F", "/")
}

// HistoryURL builds the edit-history link for a title on the wiki at base.
func HistoryURL(base, title string) string {
	return strings.TrimSuffix(base, "/") + "/w/index.php?title=" + Quote(title) + "&action=history"
}

// ArticleURL builds the canonical article URL for a title on the wiki at base.
func ArticleURL(base, title string) string {
	path := strings.ReplaceAll(strings.TrimSpace(title), " ", "_")
	escaped := (&url.URL{Path: articlePrefix + path}).EscapedPath()
	return strings.TrimSuffix(base, "/") + escaped
}
