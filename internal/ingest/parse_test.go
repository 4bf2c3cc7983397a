package ingest

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/domain"
	"github.com/xuri/excelize/v2"
)

const eventsCSV = `id,date,recipient,total_weight,clients_served,children,adults,elders,DAIRY,Grain,produce
e1,2026-03-02,North Pantry,,3,1,1,1,10,5,0
,2026-03-03T10:00:00Z,South Shelter,20,2,0,2,0,20,,
e3,not-a-date,x,1,1,0,1,0,1,0,0
e4,2026-03-04,x,abc,1,0,1,0,1,0,0
e5,2026-03-05,x,5,1,0,1,0,-5,0,0
,,,,,,,,,,
`

func TestParseEvents_CSV(t *testing.T) {
	events, stats, err := ParseEvents(strings.NewReader(eventsCSV), FormatCSV, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.Rows != 5 || stats.Accepted != 2 || stats.Skipped != 3 {
		t.Errorf("stats = %+v", stats)
	}
	for _, reason := range []string{reasonBadTimestamp, reasonBadNumber, reasonNegative} {
		if stats.Reasons[reason] != 1 {
			t.Errorf("reason %q = %d, want 1", reason, stats.Reasons[reason])
		}
	}

	if len(events) != 2 {
		t.Fatalf("events = %+v", events)
	}
	first := events[0]
	if first.ID != "e1" || first.Recipient != "North Pantry" {
		t.Errorf("first = %+v", first)
	}
	if first.TotalWeight != 15 {
		t.Errorf("total weight = %v, want sum of categories 15", first.TotalWeight)
	}
	if !first.OccurredAt.Equal(time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("occurred at = %v", first.OccurredAt)
	}
	if first.AgeGroups != (domain.AgeGroups{Child: 1, Adult: 1, Elder: 1}) || first.ClientsServed != 3 {
		t.Errorf("demographics = %+v", first)
	}
	if first.CategoryTotals[domain.CategoryGrain] != 5 {
		t.Errorf("grain = %v", first.CategoryTotals[domain.CategoryGrain])
	}

	second := events[1]
	if len(second.ID) != 36 {
		t.Errorf("missing id should be derived as a uuid, got %q", second.ID)
	}
	if second.TotalWeight != 20 || second.OccurredAt.Hour() != 10 {
		t.Errorf("second = %+v", second)
	}
}

func TestParseEvents_DerivedIDsAreStable(t *testing.T) {
	const data = "date,recipient,DAIRY\n2026-03-05,North,100\n2026-03-05,North,100\n2026-03-06,North,100\n"

	first, _, err := ParseEvents(strings.NewReader(data), FormatCSV, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := ParseEvents(strings.NewReader(data), FormatCSV, time.UTC)
	if err != nil {
		t.Fatal(err)
	}

	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("events = %d/%d, want 3", len(first), len(second))
	}
	ids := make(map[string]bool)
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("row %d id changed between parses: %s vs %s", i, first[i].ID, second[i].ID)
		}
		ids[first[i].ID] = true
	}
	if len(ids) != 3 {
		t.Errorf("identical rows share an id: %v", ids)
	}
}

func TestParseEvents_FractionalCountsSkipped(t *testing.T) {
	const data = "date,clients_served,DAIRY\n2026-03-05,2.7,10\n2026-03-06,3,10\n2026-03-07,4.0,10\n"

	events, stats, err := ParseEvents(strings.NewReader(data), FormatCSV, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Accepted != 2 || stats.Reasons[reasonBadNumber] != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if len(events) != 2 || events[0].ClientsServed != 3 || events[1].ClientsServed != 4 {
		t.Errorf("events = %+v", events)
	}
}

func TestParseEvents_MissingTimestampColumn(t *testing.T) {
	_, _, err := ParseEvents(strings.NewReader("id,DAIRY\ne1,3\n"), FormatCSV, time.UTC)
	if !errors.Is(err, errMissingColumn) {
		t.Errorf("err = %v, want missing column", err)
	}
}

func TestParseEvents_XLSXMatchesCSV(t *testing.T) {
	rows := [][]string{
		{"id", "timestamp", "recipient", "total_weight", "clients_served", "children", "adults", "elders", "DAIRY", "GRAIN"},
		{"a", "2026-03-02 09:30:00", "North", "12", "2", "1", "1", "0", "7", "5"},
		{"b", "2026-03-03", "South", "", "1", "0", "0", "1", "4", "4"},
		{"c", "bogus", "West", "1", "1", "0", "1", "0", "1", "0"},
	}

	var csvBuf bytes.Buffer
	for _, r := range rows {
		csvBuf.WriteString(strings.Join(r, ",") + "\n")
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, r := range rows {
		cells := make([]interface{}, len(r))
		for j, v := range r {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			t.Fatal(err)
		}
	}
	xlsxBuf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	fromCSV, csvStats, err := ParseEvents(&csvBuf, FormatCSV, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	fromXLSX, xlsxStats, err := ParseEvents(xlsxBuf, FormatXLSX, time.UTC)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(fromCSV, fromXLSX) {
		t.Errorf("csv and xlsx differ:\n%+v\n%+v", fromCSV, fromXLSX)
	}
	if !reflect.DeepEqual(csvStats, xlsxStats) {
		t.Errorf("stats differ: %+v vs %+v", csvStats, xlsxStats)
	}
	if len(fromCSV) != 2 || fromCSV[1].TotalWeight != 8 {
		t.Errorf("events = %+v", fromCSV)
	}
}

func TestParseSnapshots(t *testing.T) {
	in := `Date,DAIRY,GRAIN,PROTEIN
2026-03-01,100,200,50
2026-03-02,90,,40
2026-03-03,abc,1,1
`
	snaps, stats, err := ParseSnapshots(strings.NewReader(in), FormatCSV, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Accepted != 2 || stats.Skipped != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if len(snaps) != 2 || snaps[1].CategoryTotals[domain.CategoryProtein] != 40 || snaps[1].CategoryTotals.Sum() != 130 {
		t.Errorf("snapshots = %+v", snaps)
	}
}

func TestParseItems(t *testing.T) {
	in := `category,name,weight,expiration_date,source,added_date
dairy,Milk,10,2026-03-12,Donation,2026-03-01
GRAIN,Rice,25,N/A,Purchase,2026-01-01
CANDY,Gum,1,N/A,x,2026-03-01
VEG,,3,N/A,x,2026-03-01
FRUIT,Apples,2,someday,x,2026-03-01
`
	items, stats, err := ParseItems(strings.NewReader(in), FormatCSV, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Accepted != 2 || stats.Skipped != 3 {
		t.Errorf("stats = %+v", stats)
	}
	for _, reason := range []string{reasonUnknownCategory, reasonMissingName, reasonBadDate} {
		if stats.Reasons[reason] != 1 {
			t.Errorf("reason %q = %d, want 1", reason, stats.Reasons[reason])
		}
	}

	if len(items) != 2 {
		t.Fatalf("items = %+v", items)
	}
	milk := items[0]
	if milk.Category != domain.CategoryDairy || milk.ExpirationDate == nil || milk.ExpirationDate.Day() != 12 {
		t.Errorf("milk = %+v", milk)
	}
	rice := items[1]
	if rice.ExpirationDate != nil {
		t.Errorf("N/A should mean no expiration, got %v", rice.ExpirationDate)
	}
	if rice.AddedDate.Month() != time.January || rice.Source != "Purchase" {
		t.Errorf("rice = %+v", rice)
	}
}

func TestParse_Dispatch(t *testing.T) {
	batch, stats, err := Parse(KindSnapshots, strings.NewReader("date,MISC\n2026-03-01,4\n"), FormatCSV, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if batch.Kind != KindSnapshots || batch.Len() != 1 || stats.Kind != KindSnapshots {
		t.Errorf("batch = %+v, stats = %+v", batch, stats)
	}
}

func TestParseKind(t *testing.T) {
	tests := map[string]Kind{
		"events":    KindEvents,
		" Event ":   KindEvents,
		"inventory": KindSnapshots,
		"items":     KindItems,
	}
	for in, want := range tests {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseKind("receipts"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "events-2026.csv", want: FormatCSV},
		{in: "Inventory.XLSX", want: FormatXLSX},
		{in: "text/csv", want: FormatCSV},
		{in: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", want: FormatXLSX},
		{in: "report.pdf", wantErr: true},
	}
	for _, tt := range tests {
		got, err := DetectFormat(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("DetectFormat(%q) err = %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("DetectFormat(%q) = %s, %v", tt.in, got, err)
		}
	}
}
