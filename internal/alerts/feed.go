package alerts

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Anchor opens the alert-list template inside the alerts page.
const Anchor = "{{Alert list"

// ErrAnchorMissing means the alerts page no longer contains the alert-list template.
var ErrAnchorMissing = errors.New("alert list anchor not found")

type fieldName string

const (
	fieldType   fieldName = "type"
	fieldMsg    fieldName = "msg"
	fieldAction fieldName = "action"
	fieldTime   fieldName = "time"
)

// padding aligns the "=" of all four fields in a block.
var padding = map[fieldName]string{
	fieldType:   "   ",
	fieldMsg:    "     ",
	fieldAction: "  ",
	fieldTime:   "    ",
}

var fieldExpr = regexp.MustCompile(`^\|\s*(type|msg|action|time)(\d+)\s*=`)

type fieldMatch struct {
	name  fieldName
	value string // everything after the first "=", verbatim
}

func matchField(line string) (fieldMatch, bool) {
	m := fieldExpr.FindStringSubmatch(line)
	if m == nil {
		return fieldMatch{}, false
	}
	return fieldMatch{name: fieldName(m[1]), value: line[len(m[0]):]}, true
}

func fieldLine(name fieldName, index int, value string) string {
	return "| " + string(name) + strconv.Itoa(index) + padding[name] + "=" + value
}

// Stats describes the outcome of a renumbering pass.
type Stats struct {
	Blocks int
	// Orphans counts msg/action/time lines with no preceding type line; they are left untouched.
	Orphans int
}

// feedLine is either passthrough text or a field belonging to block (0-based).
type feedLine struct {
	text  string
	field *fieldMatch
	block int
}

// parseFeed splits text into lines and groups field lines into blocks:
// each type line opens a block, the following msg/action/time lines join it.
func parseFeed(text string) ([]feedLine, Stats) {
	raw := strings.Split(text, "\n")
	lines := make([]feedLine, 0, len(raw))
	var stats Stats
	current := -1

	for _, l := range raw {
		m, ok := matchField(l)
		switch {
		case !ok:
			lines = append(lines, feedLine{text: l, block: -1})
		case m.name == fieldType:
			current++
			lines = append(lines, feedLine{text: l, field: &m, block: current})
		case current < 0:
			stats.Orphans++
			lines = append(lines, feedLine{text: l, block: -1})
		default:
			lines = append(lines, feedLine{text: l, field: &m, block: current})
		}
	}
	stats.Blocks = current + 1
	return lines, stats
}

// Renumber assigns every block in text the next index starting at 1 and
// aligns its field names. Values after the first "=" are kept verbatim.
func Renumber(text string) (string, Stats) {
	lines, stats := parseFeed(text)
	out := make([]string, len(lines))
	for i, l := range lines {
		if l.field == nil {
			out[i] = l.text
			continue
		}
		out[i] = fieldLine(l.field.name, l.block+1, l.field.value)
	}
	return strings.Join(out, "\n"), stats
}

// Insert places blocks, in order, right after the first anchor occurrence.
func Insert(text string, blocks []Block) (string, error) {
	at := strings.Index(text, Anchor)
	if at < 0 {
		return "", ErrAnchorMissing
	}
	if len(blocks) == 0 {
		return text, nil
	}
	at += len(Anchor)

	var b strings.Builder
	b.Grow(len(text) + len(blocks)*160)
	b.WriteString(text[:at])
	for _, block := range blocks {
		b.WriteString("\n")
		b.WriteString(string(block))
	}
	b.WriteString(text[at:])
	return b.String(), nil
}

// Merge inserts new blocks ahead of the existing feed and renumbers the whole text.
func Merge(text string, blocks []Block) (string, Stats, error) {
	inserted, err := Insert(text, blocks)
	if err != nil {
		return "", Stats{}, err
	}
	merged, stats := Renumber(inserted)
	return merged, stats, nil
}
