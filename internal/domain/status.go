package domain

import "strings"

// Urgency is the stockout severity of a category.
type Urgency string

const (
	UrgencyNone     Urgency = "none"
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Priority is the restocking priority tier.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// TrendDirection labels the demand trend of a category.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// Confidence describes how much history backs a forecast.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// RiskLevel is the overall operational risk level.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// TurnoverStatus classifies how fast a category moves.
type TurnoverStatus string

const (
	TurnoverInsufficientData TurnoverStatus = "insufficient_data"
	TurnoverCritical         TurnoverStatus = "critical"
	TurnoverLow              TurnoverStatus = "low"
	TurnoverNormal           TurnoverStatus = "normal"
	TurnoverHigh             TurnoverStatus = "high"
	TurnoverSlow             TurnoverStatus = "slow"
)

// TargetStatus classifies stock against its target level.
type TargetStatus string

const (
	TargetCritical    TargetStatus = "critical"
	TargetLow         TargetStatus = "low"
	TargetAdequate    TargetStatus = "adequate"
	TargetOverstocked TargetStatus = "overstocked"
)

// WasteLevel is the expiration risk of a single item.
type WasteLevel string

const (
	WasteExpired  WasteLevel = "expired"
	WasteCritical WasteLevel = "critical"
	WasteHigh     WasteLevel = "high"
	WasteMedium   WasteLevel = "medium"
)

var urgencyRanks = map[Urgency]int{
	UrgencyNone:     0,
	UrgencyLow:      1,
	UrgencyMedium:   2,
	UrgencyHigh:     3,
	UrgencyCritical: 4,
}

// Rank orders urgencies from none (0) to critical (4).
func (u Urgency) Rank() int {
	return urgencyRanks[u]
}

// ParseUrgency returns the urgency for a label (case-insensitive).
func ParseUrgency(label string) (Urgency, bool) {
	u := Urgency(strings.ToLower(strings.TrimSpace(label)))
	_, ok := urgencyRanks[u]
	return u, ok
}

var priorityRanks = map[Priority]int{
	PriorityLow:      0,
	PriorityMedium:   1,
	PriorityHigh:     2,
	PriorityCritical: 3,
}

// Rank orders priorities from low (0) to critical (3).
func (p Priority) Rank() int {
	return priorityRanks[p]
}

// ParsePriority returns the priority for a label (case-insensitive).
func ParsePriority(label string) (Priority, bool) {
	p := Priority(strings.ToLower(strings.TrimSpace(label)))
	_, ok := priorityRanks[p]
	return p, ok
}
