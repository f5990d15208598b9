package domain

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrNoBatch signals an empty fact store: nothing has been harvested yet.
var ErrNoBatch = errors.New("no citation batch recorded")

// Batch identifies one crawl run; all citations harvested in it share the value.
type Batch int64

const batchLayout = "20060102150405"

// NewBatch encodes t as a YYYYMMDDHHMMSS integer in UTC.
func NewBatch(t time.Time) Batch {
	v, _ := strconv.ParseInt(t.UTC().Format(batchLayout), 10, 64)
	return Batch(v)
}

// Time decodes the batch back into a UTC timestamp.
func (b Batch) Time() (time.Time, error) {
	t, err := time.Parse(batchLayout, strconv.FormatInt(int64(b), 10))
	if err != nil {
		return time.Time{}, fmt.Errorf("decode batch %d: %w", int64(b), err)
	}
	return t, nil
}

// Domain is a registrable domain together with its curation state.
type Domain struct {
	ID               int64
	Name             string
	Status           *Status
	PerennialSource  bool
	FrequentNotified bool
}

// Citation is one external link observed on an article during a batch.
type Citation struct {
	URL        string
	ArticleURL string
	Domain     string
	Batch      Batch
}

// Classification is a curated status for a domain, as listed on the perennial sources page.
type Classification struct {
	Domain string
	Name   string
	Type   string
	Status Status
}

// FrequentDomain is an unclassified domain cited at least the alert threshold times.
// ArticleURLs is the comma-joined list produced by the store's aggregate.
type FrequentDomain struct {
	DomainID    int64
	Domain      string
	Count       int
	ArticleURLs string
}

// FlaggedDomain is a domain in the flagged tier with the articles citing it.
type FlaggedDomain struct {
	Domain      string
	Status      Status
	ArticleURLs string
}

// FlaggedCitation is one (domain, article) pair eligible for a flagged-domain alert.
type FlaggedCitation struct {
	DomainID   int64
	Domain     string
	Status     Status
	ArticleURL string
}
