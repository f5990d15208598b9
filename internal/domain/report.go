package domain

import "fmt"

// Percentage is a share expressed in tenths of a percent (505 == 50.5%).
type Percentage int64

// PercentOf rounds part/total*100 half-up to one decimal place.
// A zero total yields 0.0.
func PercentOf(part, total int64) Percentage {
	if total <= 0 || part <= 0 {
		return 0
	}
	return Percentage((part*1000*2 + total) / (total * 2))
}

func (p Percentage) String() string {
	return fmt.Sprintf("%d.%d", int64(p)/10, int64(p)%10)
}

// TierCounts buckets the citations of one batch by domain tier.
type TierCounts struct {
	Total    int64
	Reliable int64
	Flagged  int64
	Unknown  int64
}

// Percent expresses n as a share of the batch total.
func (t TierCounts) Percent(n int64) Percentage {
	return PercentOf(n, t.Total)
}

// Snapshot is everything the metrics report shows for a single batch.
type Snapshot struct {
	Batch           Batch
	Articles        int64
	Domains         int64
	Tiers           TierCounts
	FrequentDomains []FrequentDomain
	FlaggedDomains  []FlaggedDomain
}

func (s Snapshot) PercentReliable() Percentage { return s.Tiers.Percent(s.Tiers.Reliable) }
func (s Snapshot) PercentFlagged() Percentage  { return s.Tiers.Percent(s.Tiers.Flagged) }
func (s Snapshot) PercentUnknown() Percentage  { return s.Tiers.Percent(s.Tiers.Unknown) }
