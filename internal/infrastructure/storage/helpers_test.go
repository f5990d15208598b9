package storage

import "CitationWatch/internal/wikilink"

func splitComma(joined string) []string {
	return wikilink.SplitArticleURLs(joined)
}
