package service

import (
	"strings"
	"testing"
	"time"

	"github.com/ZAX3000/mailtrace/internal/domain"
)

func jobDay(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func sampleMatches() []domain.Match {
	return []domain.Match{
		{CRMID: "c1", CRMJobDate: jobDay(2023, 3, 5), JobValue: 100, CRMCity: "Austin", Zip5: "78701", MatchedMailAddress: "123 Main St", ConfidencePercent: 95},
		{CRMID: "c2", CRMJobDate: jobDay(2024, 3, 12), JobValue: 200, CRMCity: "Austin", Zip5: "78701", MatchedMailAddress: "456 Oak Ave", ConfidencePercent: 90},
		{CRMID: "c3", CRMJobDate: jobDay(2024, 5, 1), JobValue: 300, CRMCity: "Dallas", Zip5: "75201", MatchedMailAddress: "789 Elm Dr", ConfidencePercent: 85},
	}
}

func TestBuildRunReport(t *testing.T) {
	run := &domain.Run{
		ID:            "run-1",
		MailCount:     10,
		CRMCount:      5,
		MatchCount:    3,
		MatchRate:     0.3,
		AvgConfidence: 0.9,
		MatchRevenue:  600,
	}
	report := BuildRunReport(run, sampleMatches())

	if report.RunID != "run-1" {
		t.Errorf("run id = %q, want run-1", report.RunID)
	}
	if report.KPIs.MatchCount != 3 || report.KPIs.MatchRevenue != 600 {
		t.Errorf("unexpected KPIs %+v", report.KPIs)
	}
	if len(report.Matches) != 3 {
		t.Errorf("matches = %d, want 3", len(report.Matches))
	}
	if report.Summary == "" || len(report.Summary) > summaryMaxLen {
		t.Errorf("summary length = %d, want non-empty and capped", len(report.Summary))
	}
}

func TestYearOverYearGraph(t *testing.T) {
	g := yearOverYearGraph(sampleMatches())

	if len(g.Labels) != 12 || g.Labels[0] != "Jan" {
		t.Fatalf("labels = %v, want 12 months", g.Labels)
	}
	if len(g.Series) != 2 {
		t.Fatalf("series = %d, want one per year", len(g.Series))
	}
	if g.Series[0].Name != "2023" || g.Series[1].Name != "2024" {
		t.Errorf("series order = %s,%s, want oldest year first", g.Series[0].Name, g.Series[1].Name)
	}
	// March counts: one match in 2023, one in 2024.
	if g.Series[0].Values[2] != 1 || g.Series[1].Values[2] != 1 {
		t.Errorf("march values = %d/%d, want 1/1", g.Series[0].Values[2], g.Series[1].Values[2])
	}
	if g.Series[1].Values[4] != 1 {
		t.Errorf("may 2024 = %d, want 1", g.Series[1].Values[4])
	}
}

func TestMonthlyGraphContiguous(t *testing.T) {
	g := monthlyGraph(sampleMatches())

	if len(g.Series) != 1 {
		t.Fatalf("series = %d, want 1", len(g.Series))
	}
	// 2023-03 through 2024-05 inclusive is 15 months.
	if len(g.Labels) != 15 || len(g.Series[0].Values) != 15 {
		t.Fatalf("labels = %d, want 15 contiguous months", len(g.Labels))
	}
	if g.Labels[0] != "2023-03" || g.Labels[14] != "2024-05" {
		t.Errorf("label range = %s..%s, want 2023-03..2024-05", g.Labels[0], g.Labels[14])
	}
	total := 0
	for _, v := range g.Series[0].Values {
		total += v
	}
	if total != 3 {
		t.Errorf("total bucketed matches = %d, want 3", total)
	}
}

func TestTopCounts(t *testing.T) {
	items := topCounts(sampleMatches(), func(m domain.Match) string { return m.CRMCity }, 10)
	if len(items) != 2 {
		t.Fatalf("items = %v, want 2 cities", items)
	}
	if items[0].Label != "Austin" || items[0].Count != 2 {
		t.Errorf("top city = %+v, want Austin x2", items[0])
	}

	// Ties break alphabetically
	tied := topCounts([]domain.Match{
		{CRMCity: "Waco"}, {CRMCity: "Plano"},
	}, func(m domain.Match) string { return m.CRMCity }, 10)
	if tied[0].Label != "Plano" {
		t.Errorf("tie order = %v, want alphabetical", tied)
	}

	// Limit respected
	if got := topCounts(sampleMatches(), func(m domain.Match) string { return m.CRMCity }, 1); len(got) != 1 {
		t.Errorf("limited items = %d, want 1", len(got))
	}
}

func TestBuildAggregateReport(t *testing.T) {
	report := BuildAggregateReport(sampleMatches())

	if report.RunID != "" {
		t.Errorf("aggregate report carries run id %q", report.RunID)
	}
	if report.KPIs.MatchCount != 3 {
		t.Errorf("match count = %d, want 3", report.KPIs.MatchCount)
	}
	if report.KPIs.MatchRevenue != 600 {
		t.Errorf("revenue = %v, want 600", report.KPIs.MatchRevenue)
	}
	if report.KPIs.AvgConfidence != 0.9 {
		t.Errorf("avg confidence = %v, want 0.9", report.KPIs.AvgConfidence)
	}
}

func TestDedupMatches(t *testing.T) {
	rows := []domain.Match{
		{MatchedMailAddress: "123 Main St", CRMJobDate: jobDay(2024, 3, 12), CRMID: "first"},
		{MatchedMailAddress: "123 Main St", CRMJobDate: jobDay(2024, 3, 12), CRMID: "dup"},
		{MatchedMailAddress: "123 Main St", CRMJobDate: jobDay(2024, 4, 1), CRMID: "other-date"},
		{MatchedMailAddress: "456 Oak Ave", CRMJobDate: jobDay(2024, 3, 12), CRMID: "other-addr"},
		{MatchedMailAddress: "789 Elm Dr", CRMID: "nil-date"},
		{MatchedMailAddress: "789 Elm Dr", CRMID: "nil-date-dup"},
	}

	out := dedupMatches(rows)
	if len(out) != 4 {
		t.Fatalf("deduped = %d, want 4", len(out))
	}
	if out[0].CRMID != "first" {
		t.Errorf("kept = %q, want first occurrence", out[0].CRMID)
	}
}

func TestMatchRowsToWire(t *testing.T) {
	rows := []domain.Match{
		{CRMID: "c1", CRMJobDate: jobDay(2024, 3, 12), MatchNotes: "perfect match", MailDatesInWindow: "03-01-24"},
		{CRMID: "c2"},
	}

	wire := matchRowsToWire(rows)
	if wire[0].CRMJobDate != "03-12-24" {
		t.Errorf("job date = %q, want 03-12-24", wire[0].CRMJobDate)
	}
	if wire[1].CRMJobDate != "None provided" {
		t.Errorf("nil job date = %q, want None provided", wire[1].CRMJobDate)
	}
}

func TestJoinNotes(t *testing.T) {
	if got := joinNotes(nil); got != "perfect match" {
		t.Errorf("empty notes = %q, want perfect match", got)
	}
	got := joinNotes([]string{"st vs street (street type)", "none vs Apt 2 (unit)"})
	if !strings.Contains(got, "; ") {
		t.Errorf("joined notes = %q, want semicolon separated", got)
	}
}

func TestStateCode(t *testing.T) {
	testCases := []struct{ in, want string }{
		{"tx", "TX"},
		{" Texas ", "TE"},
		{"", ""},
	}
	for _, tc := range testCases {
		if got := stateCode(tc.in); got != tc.want {
			t.Errorf("stateCode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
