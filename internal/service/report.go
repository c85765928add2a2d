package service

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ZAX3000/mailtrace/internal/domain"
	"github.com/ZAX3000/mailtrace/internal/matching"
)

const summaryMaxLen = 2000

// Report is the payload returned by the result endpoints: headline KPIs, a
// monthly match graph, leaderboards, and the matched rows themselves.
type Report struct {
	RunID     string      `json:"run_id,omitempty"`
	KPIs      KPIs        `json:"kpis"`
	Graph     Graph       `json:"graph"`
	TopCities []CountItem `json:"top_cities"`
	TopZips   []CountItem `json:"top_zips"`
	Summary   string      `json:"summary"`
	Matches   []MatchRow  `json:"matches"`
}

// KPIs are the headline figures for a run or an aggregate view.
type KPIs struct {
	MailCount     int     `json:"mail_count"`
	CRMCount      int     `json:"crm_count"`
	MatchCount    int     `json:"match_count"`
	SkippedMail   int     `json:"skipped_mail"`
	SkippedCRM    int     `json:"skipped_crm"`
	MatchRate     float64 `json:"match_rate"`
	AvgConfidence float64 `json:"avg_confidence"`
	MatchRevenue  float64 `json:"match_revenue"`
}

// Graph is a labelled series chart. Run reports use month labels with one
// series per calendar year; the aggregate report uses year-month labels with
// a single series.
type Graph struct {
	Labels []string `json:"labels"`
	Series []Series `json:"series"`
}

// Series is one named line of the graph.
type Series struct {
	Name   string `json:"name"`
	Values []int  `json:"values"`
}

// CountItem is one leaderboard entry.
type CountItem struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// MatchRow is the wire form of a persisted match.
type MatchRow struct {
	CRMID              string  `json:"crm_id"`
	CRMJobDate         string  `json:"crm_job_date"`
	JobValue           float64 `json:"job_value"`
	MatchedMailAddress string  `json:"matched_mail_address"`
	MailDatesInWindow  string  `json:"mail_dates_in_window"`
	MailCountInWindow  int     `json:"mail_count_in_window"`
	ConfidencePercent  int     `json:"confidence_percent"`
	MatchNotes         string  `json:"match_notes"`
	City               string  `json:"city"`
	State              string  `json:"state"`
	Zip                string  `json:"zip"`
}

var monthLabels = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// BuildRunReport assembles the report for one completed run.
func BuildRunReport(run *domain.Run, rows []domain.Match) *Report {
	return &Report{
		RunID: run.ID,
		KPIs: KPIs{
			MailCount:     run.MailCount,
			CRMCount:      run.CRMCount,
			MatchCount:    run.MatchCount,
			SkippedMail:   run.SkippedMail,
			SkippedCRM:    run.SkippedCRM,
			MatchRate:     round2(run.MatchRate),
			AvgConfidence: round2(run.AvgConfidence),
			MatchRevenue:  round2(run.MatchRevenue),
		},
		Graph:     yearOverYearGraph(rows),
		TopCities: topCounts(rows, func(m domain.Match) string { return strings.TrimSpace(m.CRMCity) }, 10),
		TopZips:   topCounts(rows, func(m domain.Match) string { return m.Zip5 }, 10),
		Summary:   buildSummary(run.MatchCount, run.MatchRate, run.AvgConfidence, run.MatchRevenue, rows),
		Matches:   matchRowsToWire(rows),
	}
}

// BuildAggregateReport assembles the cross-run report over deduplicated
// match rows.
func BuildAggregateReport(rows []domain.Match) *Report {
	var revenue float64
	var confSum int
	for _, r := range rows {
		revenue += r.JobValue
		confSum += r.ConfidencePercent
	}
	var avgConf float64
	if len(rows) > 0 {
		avgConf = float64(confSum) / float64(len(rows)) / 100
	}
	return &Report{
		KPIs: KPIs{
			MatchCount:    len(rows),
			AvgConfidence: round2(avgConf),
			MatchRevenue:  round2(revenue),
		},
		Graph:     monthlyGraph(rows),
		TopCities: topCounts(rows, func(m domain.Match) string { return strings.TrimSpace(m.CRMCity) }, 10),
		TopZips:   topCounts(rows, func(m domain.Match) string { return m.Zip5 }, 10),
		Summary:   buildSummary(len(rows), 0, avgConf, revenue, rows),
		Matches:   matchRowsToWire(rows),
	}
}

// yearOverYearGraph buckets matches by the calendar month of the CRM job
// date, one series per year, ordered oldest year first.
func yearOverYearGraph(rows []domain.Match) Graph {
	byYear := make(map[int][]int)
	for _, r := range rows {
		if r.CRMJobDate == nil {
			continue
		}
		y := r.CRMJobDate.Year()
		if byYear[y] == nil {
			byYear[y] = make([]int, 12)
		}
		byYear[y][int(r.CRMJobDate.Month())-1]++
	}
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)
	g := Graph{Labels: monthLabels}
	for _, y := range years {
		g.Series = append(g.Series, Series{Name: fmt.Sprintf("%d", y), Values: byYear[y]})
	}
	return g
}

// monthlyGraph buckets matches into contiguous year-month labels from the
// earliest to the latest job date.
func monthlyGraph(rows []domain.Match) Graph {
	counts := make(map[string]int)
	var first, last time.Time
	for _, r := range rows {
		if r.CRMJobDate == nil {
			continue
		}
		d := r.CRMJobDate
		counts[d.Format("2006-01")]++
		if first.IsZero() || d.Before(first) {
			first = *d
		}
		if last.IsZero() || d.After(last) {
			last = *d
		}
	}
	g := Graph{Labels: []string{}}
	if len(counts) == 0 {
		return g
	}
	values := []int{}
	cur := time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cur.After(end) {
		label := cur.Format("2006-01")
		g.Labels = append(g.Labels, label)
		values = append(values, counts[label])
		cur = cur.AddDate(0, 1, 0)
	}
	g.Series = []Series{{Name: "matches", Values: values}}
	return g
}

// topCounts returns the n most common non-empty keys, ties broken by label.
func topCounts(rows []domain.Match, key func(domain.Match) string, n int) []CountItem {
	counts := make(map[string]int)
	for _, r := range rows {
		if k := key(r); k != "" {
			counts[k]++
		}
	}
	items := make([]CountItem, 0, len(counts))
	for k, c := range counts {
		items = append(items, CountItem{Label: k, Count: c})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Label < items[j].Label
	})
	if len(items) > n {
		items = items[:n]
	}
	return items
}

func buildSummary(matchCount int, rate, avgConf, revenue float64, rows []domain.Match) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d matched jobs", matchCount)
	if rate > 0 {
		fmt.Fprintf(&b, " (%.1f%% of mail)", rate*100)
	}
	fmt.Fprintf(&b, ", average confidence %.0f%%, attributed revenue $%.2f.", avgConf*100, revenue)
	if cities := topCounts(rows, func(m domain.Match) string { return strings.TrimSpace(m.CRMCity) }, 3); len(cities) > 0 {
		labels := make([]string, len(cities))
		for i, c := range cities {
			labels[i] = fmt.Sprintf("%s (%d)", c.Label, c.Count)
		}
		fmt.Fprintf(&b, " Top cities: %s.", strings.Join(labels, ", "))
	}
	s := b.String()
	if len(s) > summaryMaxLen {
		s = s[:summaryMaxLen]
	}
	return s
}

func matchRowsToWire(rows []domain.Match) []MatchRow {
	out := make([]MatchRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, MatchRow{
			CRMID:              r.CRMID,
			CRMJobDate:         matching.FormatMMDDYY(r.CRMJobDate),
			JobValue:           r.JobValue,
			MatchedMailAddress: r.MatchedMailAddress,
			MailDatesInWindow:  r.MailDatesInWindow,
			MailCountInWindow:  r.MailCountInWindow,
			ConfidencePercent:  r.ConfidencePercent,
			MatchNotes:         r.MatchNotes,
			City:               r.CRMCity,
			State:              r.CRMState,
			Zip:                r.CRMZip,
		})
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
