package domain

// AlertKind names the rule that produced an alert; it is also the feed's type value.
type AlertKind string

const (
	AlertFrequentDomain AlertKind = "frequent-domain"
	AlertFlaggedDomain  AlertKind = "flagged-domain"
)
