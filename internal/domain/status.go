package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownStatus is returned for status codes outside the curated enumeration.
var ErrUnknownStatus = errors.New("unknown domain status")

// Status is the curated reputation tier of a domain. NULL in storage means unclassified.
type Status int

const (
	StatusInProgress Status = iota
	StatusVSN
	StatusReliable
	StatusMixed
	StatusUnreliable
	StatusConspiracy
	StatusBlocked
)

// ReliableStatuses and FlaggedStatuses group statuses into report tiers.
var (
	ReliableStatuses = []Status{StatusVSN, StatusReliable}
	FlaggedStatuses  = []Status{StatusMixed, StatusUnreliable, StatusConspiracy, StatusBlocked}
)

// Label returns the vsrate template argument for the status.
func (s Status) Label() (string, error) {
	switch s {
	case StatusInProgress:
		return "inprogress", nil
	case StatusVSN:
		return "vsn", nil
	case StatusReliable:
		return "reliable", nil
	case StatusMixed:
		return "mixed", nil
	case StatusUnreliable:
		return "unreliable", nil
	case StatusConspiracy:
		return "conspiracy", nil
	case StatusBlocked:
		return "blocked", nil
	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownStatus, int(s))
	}
}

// Reliable reports whether the status counts towards the reliable tier.
func (s Status) Reliable() bool {
	return s == StatusVSN || s == StatusReliable
}

// Flagged reports whether the status counts towards the flagged tier.
func (s Status) Flagged() bool {
	switch s {
	case StatusMixed, StatusUnreliable, StatusConspiracy, StatusBlocked:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	label, err := s.Label()
	if err != nil {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return label
}

// labelOrder lists labels longest-match first so "unreliable" wins over "reliable".
var labelOrder = []struct {
	needle string
	status Status
}{
	{"unreliable", StatusUnreliable},
	{"conspiracy", StatusConspiracy},
	{"inprogress", StatusInProgress},
	{"in progress", StatusInProgress},
	{"pending", StatusInProgress},
	{"reliable", StatusReliable},
	{"blocked", StatusBlocked},
	{"mixed", StatusMixed},
	{"vsn", StatusVSN},
}

// ParseStatusLabel resolves a curated label (or a text containing one) to a Status.
func ParseStatusLabel(text string) (Status, error) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return 0, fmt.Errorf("%w: empty label", ErrUnknownStatus)
	}
	for _, entry := range labelOrder {
		if strings.Contains(normalized, entry.needle) {
			return entry.status, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, text)
}

// StatusValues converts statuses to plain ints for query arguments.
func StatusValues(statuses []Status) []int {
	values := make([]int, len(statuses))
	for i, s := range statuses {
		values[i] = int(s)
	}
	return values
}
