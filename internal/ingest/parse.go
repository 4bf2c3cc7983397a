package ingest

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/analytics"
	"github.com/andresuchdata/pantrywise/backend-go/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Kind names which record type a file holds.
type Kind string

const (
	KindEvents    Kind = "events"
	KindSnapshots Kind = "snapshots"
	KindItems     Kind = "items"
)

// ParseKind accepts the kind names plus a few singular aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "events", "event", "distributions", "distribution":
		return KindEvents, nil
	case "snapshots", "snapshot", "inventory":
		return KindSnapshots, nil
	case "items", "item", "detailed_items":
		return KindItems, nil
	default:
		return "", fmt.Errorf("unknown ingest kind %q", s)
	}
}

const (
	reasonBadTimestamp    = "unparseable timestamp"
	reasonBadNumber       = "invalid number"
	reasonNegative        = "negative value"
	reasonUnknownCategory = "unknown category"
	reasonMissingName     = "missing name"
	reasonBadDate         = "unparseable date"
)

var errMissingColumn = errors.New("missing required column")

// Stats reports how many rows an ingest run kept and why the rest were skipped.
type Stats struct {
	Kind     Kind           `json:"kind"`
	Rows     int            `json:"rows"`
	Accepted int            `json:"accepted"`
	Skipped  int            `json:"skipped"`
	Reasons  map[string]int `json:"reasons,omitempty"`
}

func newStats(kind Kind) Stats {
	return Stats{Kind: kind, Reasons: make(map[string]int)}
}

func (s *Stats) skip(line int, reason string) {
	s.Skipped++
	s.Reasons[reason]++
	log.Debug().Str("kind", string(s.Kind)).Int("line", line).Str("reason", reason).Msg("skipping row")
}

// Batch holds the parsed records of one file. Only the slice matching Kind is set.
type Batch struct {
	Kind      Kind
	Events    []domain.DistributionEvent
	Snapshots []domain.InventorySnapshot
	Items     []domain.DetailedItem
}

// Len returns the number of parsed records.
func (b Batch) Len() int {
	return len(b.Events) + len(b.Snapshots) + len(b.Items)
}

// Parse reads one export of the given kind. Malformed rows are skipped and
// counted; only I/O and header problems abort the run.
func Parse(kind Kind, r io.Reader, format Format, loc *time.Location) (Batch, Stats, error) {
	switch kind {
	case KindEvents:
		events, stats, err := ParseEvents(r, format, loc)
		return Batch{Kind: kind, Events: events}, stats, err
	case KindSnapshots:
		snaps, stats, err := ParseSnapshots(r, format, loc)
		return Batch{Kind: kind, Snapshots: snaps}, stats, err
	case KindItems:
		items, stats, err := ParseItems(r, format, loc)
		return Batch{Kind: kind, Items: items}, stats, err
	default:
		return Batch{}, Stats{}, fmt.Errorf("unknown ingest kind %q", kind)
	}
}

// eventIDSpace namespaces the name-based UUIDs of events exported without an id.
var eventIDSpace = uuid.MustParse("6f1c2a9e-3b4d-5e8f-9a0b-7c6d5e4f3a21")

// eventID derives an id from the row contents so importing the same file
// twice upserts instead of duplicating. seq tells apart identical rows
// within one file.
func eventID(e domain.DistributionEvent, seq int) uuid.UUID {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%g|%d|%d|%d|%d",
		e.OccurredAt.UTC().Format(time.RFC3339Nano), e.Recipient, e.TotalWeight,
		e.ClientsServed, e.AgeGroups.Child, e.AgeGroups.Adult, e.AgeGroups.Elder)
	for _, c := range domain.Categories {
		if w, ok := e.CategoryTotals[c]; ok {
			fmt.Fprintf(&b, "|%s=%g", c, w)
		}
	}
	fmt.Fprintf(&b, "#%d", seq)
	return uuid.NewSHA1(eventIDSpace, []byte(b.String()))
}

// ParseEvents reads distribution events. A missing id is derived from the
// row contents; an empty total_weight is the sum of the category columns.
func ParseEvents(r io.Reader, format Format, loc *time.Location) ([]domain.DistributionEvent, Stats, error) {
	stats := newStats(KindEvents)
	var (
		cols   columns
		events []domain.DistributionEvent
		seen   = make(map[uuid.UUID]int)
	)

	err := readRecords(r, format, func(line int, record []string) error {
		if line == 1 {
			cols = newColumns(record)
			if !cols.hasAny("timestamp", "date") {
				return fmt.Errorf("%w: timestamp or date", errMissingColumn)
			}
			return nil
		}
		if isBlank(record) {
			return nil
		}
		stats.Rows++

		when, ok := cols.stamp(record, loc)
		if !ok {
			stats.skip(line, reasonBadTimestamp)
			return nil
		}

		totals, reason := cols.categoryTotals(record)
		if reason != "" {
			stats.skip(line, reason)
			return nil
		}

		total, reason := cols.number(record, "total_weight")
		if reason != "" {
			stats.skip(line, reason)
			return nil
		}
		if total == 0 {
			total = totals.Sum()
		}

		var counts [4]int
		for i, name := range []string{"clients_served", "children", "adults", "elders"} {
			counts[i], reason = cols.integer(record, name)
			if reason != "" {
				break
			}
		}
		if reason != "" {
			stats.skip(line, reason)
			return nil
		}

		e := domain.DistributionEvent{
			ID:             cols.get(record, "id"),
			OccurredAt:     when,
			Recipient:      cols.get(record, "recipient"),
			TotalWeight:    total,
			ClientsServed:  counts[0],
			AgeGroups:      domain.AgeGroups{Child: counts[1], Adult: counts[2], Elder: counts[3]},
			CategoryTotals: totals,
		}
		if e.ID == "" {
			base := eventID(e, 0)
			e.ID = eventID(e, seen[base]).String()
			seen[base]++
		}

		events = append(events, e)
		stats.Accepted++
		return nil
	})

	return events, stats, err
}

// ParseSnapshots reads inventory snapshots, one row per day.
func ParseSnapshots(r io.Reader, format Format, loc *time.Location) ([]domain.InventorySnapshot, Stats, error) {
	stats := newStats(KindSnapshots)
	var (
		cols  columns
		snaps []domain.InventorySnapshot
	)

	err := readRecords(r, format, func(line int, record []string) error {
		if line == 1 {
			cols = newColumns(record)
			if !cols.hasAny("timestamp", "date") {
				return fmt.Errorf("%w: timestamp or date", errMissingColumn)
			}
			return nil
		}
		if isBlank(record) {
			return nil
		}
		stats.Rows++

		when, ok := cols.stamp(record, loc)
		if !ok {
			stats.skip(line, reasonBadTimestamp)
			return nil
		}
		totals, reason := cols.categoryTotals(record)
		if reason != "" {
			stats.skip(line, reason)
			return nil
		}

		snaps = append(snaps, domain.InventorySnapshot{TakenAt: when, CategoryTotals: totals})
		stats.Accepted++
		return nil
	})

	return snaps, stats, err
}

// ParseItems reads detailed items. An expiration_date of "N/A" or empty means
// the item does not expire.
func ParseItems(r io.Reader, format Format, loc *time.Location) ([]domain.DetailedItem, Stats, error) {
	stats := newStats(KindItems)
	var (
		cols  columns
		items []domain.DetailedItem
	)

	err := readRecords(r, format, func(line int, record []string) error {
		if line == 1 {
			cols = newColumns(record)
			if !cols.hasAny("category") {
				return fmt.Errorf("%w: category", errMissingColumn)
			}
			return nil
		}
		if isBlank(record) {
			return nil
		}
		stats.Rows++

		category, ok := domain.ParseCategory(cols.get(record, "category"))
		if !ok {
			stats.skip(line, reasonUnknownCategory)
			return nil
		}
		name := cols.get(record, "name")
		if name == "" {
			stats.skip(line, reasonMissingName)
			return nil
		}
		weight, reason := cols.number(record, "weight")
		if reason != "" {
			stats.skip(line, reason)
			return nil
		}

		var expires *time.Time
		if raw := cols.get(record, "expiration_date"); raw != "" && !strings.EqualFold(raw, "N/A") {
			t, ok := resolveText(raw, loc)
			if !ok {
				stats.skip(line, reasonBadDate)
				return nil
			}
			expires = &t
		}

		var added time.Time
		if raw := cols.get(record, "added_date"); raw != "" {
			t, ok := resolveText(raw, loc)
			if !ok {
				stats.skip(line, reasonBadDate)
				return nil
			}
			added = t
		}

		items = append(items, domain.DetailedItem{
			Category:       category,
			Name:           name,
			Weight:         weight,
			ExpirationDate: expires,
			Source:         cols.get(record, "source"),
			AddedDate:      added,
		})
		stats.Accepted++
		return nil
	})

	return items, stats, err
}

// columns maps normalized header names to their positions.
type columns struct {
	index      map[string]int
	categories map[domain.Category]int
}

var columnAliases = map[string]string{
	"weight_total":   "total_weight",
	"total":          "total_weight",
	"clients":        "clients_served",
	"child":          "children",
	"adult":          "adults",
	"elder":          "elders",
	"seniors":        "elders",
	"occurred_at":    "timestamp",
	"datetime":       "timestamp",
	"expiration":     "expiration_date",
	"expires":        "expiration_date",
	"added":          "added_date",
	"date_added":     "added_date",
	"event_id":       "id",
	"recipient_name": "recipient",
}

func newColumns(header []string) columns {
	c := columns{index: make(map[string]int), categories: make(map[domain.Category]int)}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		name = strings.ReplaceAll(name, " ", "_")
		if alias, ok := columnAliases[name]; ok {
			name = alias
		}
		if _, seen := c.index[name]; !seen {
			c.index[name] = i
		}
		if cat, ok := domain.ParseCategory(name); ok {
			c.categories[cat] = i
		}
	}
	return c
}

func (c columns) hasAny(names ...string) bool {
	for _, n := range names {
		if _, ok := c.index[n]; ok {
			return true
		}
	}
	return false
}

func (c columns) get(record []string, name string) string {
	i, ok := c.index[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// stamp resolves the timestamp and date columns, whichever parses first.
func (c columns) stamp(record []string, loc *time.Location) (time.Time, bool) {
	var fields domain.StampFields
	for _, name := range []string{"timestamp", "date"} {
		s := analytics.ParseStampText(c.get(record, name))
		switch {
		case s.Kind == domain.StampISO && fields.ISO == "":
			fields.ISO = s.Text
		case s.Kind == domain.StampLocalDate && fields.Date == "":
			fields.Date = s.Text
		}
	}
	stamp := analytics.NormalizeStamp(fields, loc)
	if stamp.Kind != domain.StampInstant {
		return time.Time{}, false
	}
	return stamp.Instant, true
}

func (c columns) number(record []string, name string) (float64, string) {
	raw := strings.ReplaceAll(c.get(record, name), ",", "")
	if raw == "" {
		return 0, ""
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, reasonBadNumber
	}
	if v < 0 {
		return 0, reasonNegative
	}
	return v, ""
}

func (c columns) integer(record []string, name string) (int, string) {
	v, reason := c.number(record, name)
	if reason != "" {
		return 0, reason
	}
	if v != math.Trunc(v) {
		return 0, reasonBadNumber
	}
	return int(v), ""
}

func (c columns) categoryTotals(record []string) (domain.CategoryTotals, string) {
	cats := make([]domain.Category, 0, len(c.categories))
	for cat := range c.categories {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].Order() < cats[j].Order() })

	totals := make(domain.CategoryTotals, len(cats))
	for _, cat := range cats {
		v, reason := c.number(record, strings.ToLower(string(cat)))
		if reason != "" {
			return nil, reason
		}
		totals[cat] = v
	}
	return totals, ""
}

func resolveText(raw string, loc *time.Location) (time.Time, bool) {
	return analytics.ResolveStamp(analytics.ParseStampText(raw), loc)
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
