// Package alerts formats alert blocks and merges them into the alerts feed.
package alerts

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"CitationWatch/internal/domain"
	"CitationWatch/internal/wikilink"
)

// ErrNoArticleTitle is returned when a flagged citation's article URL is not an article path.
var ErrNoArticleTitle = errors.New("no article title")

// Signature is resolved by the wiki at save time into a timestamp.
const Signature = "~~~~~"

// Block is one rendered alert: four field lines sharing an index.
type Block string

// Fields are the values of the four alert fields.
type Fields struct {
	Type   string
	Msg    string
	Action string
	Time   string
}

// Formatter renders alert blocks for the alerts feed.
type Formatter struct {
	// ReportPage is the title of the metrics report page the frequent-domain action links to.
	ReportPage string
	// WikiBase is the wiki origin, e.g. https://en.wikipedia.org.
	WikiBase string
}

// FormatFrequent renders a frequent-domain alert at position i (1-based) within its batch.
func (f Formatter) FormatFrequent(i int, fd domain.FrequentDomain) Block {
	return render(i, Fields{
		Type:   string(domain.AlertFrequentDomain),
		Msg:    fmt.Sprintf("'''%s''' appears %d times on articles", fd.Domain, fd.Count),
		Action: fmt.Sprintf("[[%s#Frequent domain use|view report]]", f.ReportPage),
		Time:   Signature,
	})
}

// FormatFlagged renders a flagged-domain alert at position i (1-based) within its batch.
// An unmapped status or an article URL without a title is an error.
func (f Formatter) FormatFlagged(i int, fc domain.FlaggedCitation) (Block, error) {
	label, err := fc.Status.Label()
	if err != nil {
		return "", fmt.Errorf("format flagged alert for %s: %w", fc.Domain, err)
	}

	title := strings.TrimSuffix(strings.TrimPrefix(wikilink.Render(fc.ArticleURL), "[["), "]]")
	if title == "" {
		return "", fmt.Errorf("format flagged alert for %s: %w in %q", fc.Domain, ErrNoArticleTitle, fc.ArticleURL)
	}

	return render(i, Fields{
		Type:   string(domain.AlertFlaggedDomain),
		Msg:    fmt.Sprintf("'''%s''' (%s) appears on '''%s'''", fc.Domain, label, wikilink.Link(title)),
		Action: fmt.Sprintf("[%s view history]", wikilink.HistoryURL(f.WikiBase, title)),
		Time:   Signature,
	}), nil
}

func render(i int, fields Fields) Block {
	lines := []string{
		fieldLine(fieldType, i, " "+fields.Type),
		fieldLine(fieldMsg, i, " "+fields.Msg),
		fieldLine(fieldAction, i, " "+fields.Action),
		fieldLine(fieldTime, i, " "+fields.Time),
	}
	return Block(strings.Join(lines, "\n"))
}

var msgPattern = regexp.MustCompile(`^'''(.+?)''' (?:appears (\d+) times on articles|\((\w+)\) appears on '''\[\[(.+)\]\]''')$`)

// ParseBlock reads the field values back out of a rendered block.
func ParseBlock(b Block) (Fields, error) {
	var fields Fields
	seen := 0
	for _, line := range strings.Split(string(b), "\n") {
		m, ok := matchField(line)
		if !ok {
			continue
		}
		value := strings.TrimSpace(m.value)
		switch m.name {
		case fieldType:
			fields.Type = value
		case fieldMsg:
			fields.Msg = value
		case fieldAction:
			fields.Action = value
		case fieldTime:
			fields.Time = value
		}
		seen++
	}
	if seen != 4 {
		return Fields{}, fmt.Errorf("alert block has %d fields, want 4", seen)
	}
	return fields, nil
}

// Subject extracts what an alert message is about.
// For frequent-domain alerts article is empty and detail is the count;
// for flagged-domain alerts detail is the status label.
func (f Fields) Subject() (domainName, detail, article string, ok bool) {
	m := msgPattern.FindStringSubmatch(f.Msg)
	if m == nil {
		return "", "", "", false
	}
	if m[2] != "" {
		return m[1], m[2], "", true
	}
	return m[1], m[3], m[4], true
}
