package domain

import (
	"errors"
	"testing"
)

func TestStatusLabel(t *testing.T) {
	t.Parallel()

	cases := map[Status]string{
		StatusInProgress: "inprogress",
		StatusVSN:        "vsn",
		StatusReliable:   "reliable",
		StatusMixed:      "mixed",
		StatusUnreliable: "unreliable",
		StatusConspiracy: "conspiracy",
		StatusBlocked:    "blocked",
	}
	for status, want := range cases {
		got, err := status.Label()
		if err != nil {
			t.Fatalf("label(%d): %v", int(status), err)
		}
		if got != want {
			t.Fatalf("label(%d) = %q, want %q", int(status), got, want)
		}
	}
}

func TestStatusLabelUnknown(t *testing.T) {
	t.Parallel()

	for _, s := range []Status{-1, 7, 42} {
		if _, err := s.Label(); !errors.Is(err, ErrUnknownStatus) {
			t.Fatalf("status %d: expected ErrUnknownStatus, got %v", int(s), err)
		}
	}
}

func TestStatusTiers(t *testing.T) {
	t.Parallel()

	for _, s := range ReliableStatuses {
		if !s.Reliable() || s.Flagged() {
			t.Fatalf("status %s should be reliable only", s)
		}
	}
	for _, s := range FlaggedStatuses {
		if !s.Flagged() || s.Reliable() {
			t.Fatalf("status %s should be flagged only", s)
		}
	}
	if StatusInProgress.Reliable() || StatusInProgress.Flagged() {
		t.Fatalf("in-progress belongs to no tier")
	}
}

func TestParseStatusLabel(t *testing.T) {
	t.Parallel()

	cases := map[string]Status{
		"Reliable":             StatusReliable,
		"Generally unreliable": StatusUnreliable,
		" VSN ":                StatusVSN,
		"pending":              StatusInProgress,
		"Conspiracy theories":  StatusConspiracy,
		"blocked":              StatusBlocked,
		"mixed":                StatusMixed,
	}
	for text, want := range cases {
		got, err := ParseStatusLabel(text)
		if err != nil {
			t.Fatalf("parse %q: %v", text, err)
		}
		if got != want {
			t.Fatalf("parse %q = %s, want %s", text, got, want)
		}
	}

	if _, err := ParseStatusLabel("deprecated"); !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}
