package matching

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ZAX3000/mailtrace/internal/domain"
)

// Progress phases reported while a match runs.
const (
	PhaseLoading = "loading"
	PhaseScoring = "scoring"
	PhaseDone    = "done"
)

// ProgressFunc receives coarse progress updates: once at the start, once per
// processed batch, and once at 100%. A nil ProgressFunc is allowed.
type ProgressFunc func(percent int, phase string)

// Candidate is one accepted mail/CRM pairing with its component scores.
// Candidates are immutable once the run produces them.
type Candidate struct {
	Mail domain.MailRecord
	CRM  domain.CRMRecord

	Score             float64
	NameScore         float64
	AddressScore      float64
	DateScore         float64
	ConfidencePercent int
	Notes             []string

	// All mail sent dates that fell inside the CRM record's block and date
	// window, sorted ascending. Drives the "mail pieces in window" report
	// columns.
	WindowMailDates []time.Time
}

// Exclusion records why a CRM record produced no candidates at all.
type Exclusion struct {
	CRMID      string `json:"crm_id"`
	Reason     string `json:"reason"`
	Block      string `json:"block"`
	Address1   string `json:"address1"`
	PostalCode string `json:"postal_code"`
}

// Exclusion reasons.
const (
	ExcludedNoBlock  = "no_block_candidates"
	ExcludedNoWindow = "no_date_window_candidates"
)

// Result is the output of one matching invocation. Candidates are ordered by
// descending score and satisfy the one-to-one guarantee: no mail or CRM
// record appears twice.
type Result struct {
	Candidates  []Candidate
	Excluded    []Exclusion
	MailCount   int
	CRMCount    int
	SkippedMail int
	SkippedCRM  int
}

// MatchRate returns accepted matches over usable mail records, 0 for empty
// input.
func (r *Result) MatchRate() float64 {
	if r.MailCount == 0 {
		return 0
	}
	return float64(len(r.Candidates)) / float64(r.MailCount)
}

// AvgConfidence returns the mean candidate score, 0 when there are none.
func (r *Result) AvgConfidence() float64 {
	if len(r.Candidates) == 0 {
		return 0
	}
	var sum float64
	for _, c := range r.Candidates {
		sum += c.Score
	}
	return sum / float64(len(r.Candidates))
}

// mailRow and crmRow carry a record plus everything precomputed once per run.
type mailRow struct {
	rec         domain.MailRecord
	idx         int
	normAddress string
	tokens      []string
	block       string
	zip5        string
	cityLower   string
	stateLower  string
	sent        time.Time
}

type crmRow struct {
	rec         domain.CRMRecord
	idx         int
	normAddress string
	tokens      []string
	block       string
	zip5        string
	cityLower   string
	stateLower  string
	job         time.Time
}

// scoredPair is a provisional pairing before one-to-one assignment.
type scoredPair struct {
	mail        *mailRow
	crm         *crmRow
	score       float64
	nameScore   float64
	addrScore   float64
	dateScore   float64
	notes       []string
	windowDates []time.Time
}

// Match scores every mail record against every CRM record sharing its address
// block and date window, then resolves accepted pairs to a deterministic
// one-to-one assignment. Identical inputs and config always produce an
// identical Result, candidate order included.
//
// Malformed records (missing address line, postal code, or a parseable date)
// are skipped and counted. Empty input on either side yields an empty Result,
// not an error. The context is checked at batch boundaries only; a cancelled
// context aborts the run with ctx.Err().
func Match(ctx context.Context, mail []domain.MailRecord, crm []domain.CRMRecord, cfg Config, progress ProgressFunc) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	report := func(pct int, phase string) {
		if progress != nil {
			progress(pct, phase)
		}
	}
	report(0, PhaseLoading)

	res := &Result{}

	mailRows := prepareMail(mail, res)
	crmRows := prepareCRM(crm, res)

	// Block index bounds the otherwise quadratic comparison.
	blocks := make(map[string][]*mailRow, len(mailRows))
	for _, m := range mailRows {
		blocks[m.block] = append(blocks[m.block], m)
	}

	var pairs []scoredPair
	total := len(crmRows)
	for start := 0; start < total; start += cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + cfg.BatchSize
		if end > total {
			end = total
		}
		for _, c := range crmRows[start:end] {
			pairs = appendPairsFor(pairs, c, blocks[c.block], cfg, res)
		}
		report(scoringPercent(end, total), PhaseScoring)
	}

	res.Candidates = assign(pairs)
	report(100, PhaseDone)
	return res, nil
}

// scoringPercent maps batch completion onto the 2..95 progress band, leaving
// room for loading before and persistence after.
func scoringPercent(done, total int) int {
	if total == 0 {
		return 95
	}
	return 2 + int(float64(done)/float64(total)*93)
}

func prepareMail(mail []domain.MailRecord, res *Result) []*mailRow {
	rows := make([]*mailRow, 0, len(mail))
	for i, rec := range mail {
		if strings.TrimSpace(rec.Address1) == "" ||
			strings.TrimSpace(rec.PostalCode) == "" ||
			rec.SentDate == nil {
			res.SkippedMail++
			continue
		}
		norm := NormalizeAddress(rec.Address1)
		rows = append(rows, &mailRow{
			rec:         rec,
			idx:         i,
			normAddress: norm,
			tokens:      strings.Fields(norm),
			block:       BlockKey(rec.Address1),
			zip5:        Zip5(rec.PostalCode),
			cityLower:   strings.ToLower(strings.TrimSpace(rec.City)),
			stateLower:  strings.ToLower(strings.TrimSpace(rec.State)),
			sent:        *rec.SentDate,
		})
	}
	res.MailCount = len(rows)
	return rows
}

func prepareCRM(crm []domain.CRMRecord, res *Result) []*crmRow {
	rows := make([]*crmRow, 0, len(crm))
	for i, rec := range crm {
		if strings.TrimSpace(rec.Address1) == "" ||
			strings.TrimSpace(rec.PostalCode) == "" ||
			rec.JobDate == nil {
			res.SkippedCRM++
			continue
		}
		norm := NormalizeAddress(rec.Address1)
		rows = append(rows, &crmRow{
			rec:         rec,
			idx:         i,
			normAddress: norm,
			tokens:      strings.Fields(norm),
			block:       BlockKey(rec.Address1),
			zip5:        Zip5(rec.PostalCode),
			cityLower:   strings.ToLower(strings.TrimSpace(rec.City)),
			stateLower:  strings.ToLower(strings.TrimSpace(rec.State)),
			job:         *rec.JobDate,
		})
	}
	res.CRMCount = len(rows)
	return rows
}

// appendPairsFor scores one CRM record against its block of mail candidates
// and appends every pair reaching the acceptance threshold.
func appendPairsFor(pairs []scoredPair, c *crmRow, block []*mailRow, cfg Config, res *Result) []scoredPair {
	if len(block) == 0 {
		res.Excluded = append(res.Excluded, Exclusion{
			CRMID:      c.rec.CRMID,
			Reason:     ExcludedNoBlock,
			Block:      c.block,
			Address1:   c.rec.Address1,
			PostalCode: c.rec.PostalCode,
		})
		return pairs
	}

	var inWindow []*mailRow
	var windowDates []time.Time
	for _, m := range block {
		gap := daysBetween(m.sent, c.job)
		if gap < 0 || gap > cfg.DateWindowDays {
			continue
		}
		inWindow = append(inWindow, m)
		windowDates = append(windowDates, m.sent)
	}
	if len(inWindow) == 0 {
		res.Excluded = append(res.Excluded, Exclusion{
			CRMID:      c.rec.CRMID,
			Reason:     ExcludedNoWindow,
			Block:      c.block,
			Address1:   c.rec.Address1,
			PostalCode: c.rec.PostalCode,
		})
		return pairs
	}
	sort.Slice(windowDates, func(i, j int) bool { return windowDates[i].Before(windowDates[j]) })

	for _, m := range inWindow {
		nameW, addrW := effectiveWeights(cfg, m.rec.Name, c.rec.Name)
		nameScore := NameSimilarity(m.rec.Name, c.rec.Name)
		addrScore := addressScore(m, c)
		dateScore := dateProximity(daysBetween(m.sent, c.job), cfg.DateWindowDays)

		score := nameW*nameScore + addrW*addrScore + cfg.DateWeight*dateScore
		if score < cfg.AcceptThreshold {
			continue
		}
		pairs = append(pairs, scoredPair{
			mail:        m,
			crm:         c,
			score:       score,
			nameScore:   nameScore,
			addrScore:   addrScore,
			dateScore:   dateScore,
			notes:       scoreNotes(m, c),
			windowDates: windowDates,
		})
	}
	return pairs
}

// effectiveWeights folds the name weight into the address component when
// neither record carries a recipient name, so nameless exports are not
// penalized for a field they never had.
func effectiveWeights(cfg Config, mailName, crmName string) (nameW, addrW float64) {
	if strings.TrimSpace(mailName) == "" && strings.TrimSpace(crmName) == "" {
		return 0, cfg.AddressWeight + cfg.NameWeight
	}
	return cfg.NameWeight, cfg.AddressWeight
}

// assign resolves accepted pairs to a one-to-one mapping: pairs are claimed
// in descending score order and a pair loses silently when either side is
// already taken, which leaves the loser's sides free for their next-best
// pair. Ties break on earlier mail sent date, then input position, keeping
// the order fully deterministic.
func assign(pairs []scoredPair) []Candidate {
	sort.SliceStable(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if !a.mail.sent.Equal(b.mail.sent) {
			return a.mail.sent.Before(b.mail.sent)
		}
		if a.mail.idx != b.mail.idx {
			return a.mail.idx < b.mail.idx
		}
		return a.crm.idx < b.crm.idx
	})

	usedMail := make(map[int]struct{})
	usedCRM := make(map[int]struct{})
	var out []Candidate
	for _, p := range pairs {
		if _, taken := usedMail[p.mail.idx]; taken {
			continue
		}
		if _, taken := usedCRM[p.crm.idx]; taken {
			continue
		}
		usedMail[p.mail.idx] = struct{}{}
		usedCRM[p.crm.idx] = struct{}{}

		pct := int(math.Round(p.score * 100))
		notes := p.notes
		if pct >= 100 && len(notes) == 0 {
			notes = []string{"perfect match"}
		}
		out = append(out, Candidate{
			Mail:              p.mail.rec,
			CRM:               p.crm.rec,
			Score:             p.score,
			NameScore:         p.nameScore,
			AddressScore:      p.addrScore,
			DateScore:         p.dateScore,
			ConfidencePercent: pct,
			Notes:             notes,
			WindowMailDates:   p.windowDates,
		})
	}
	return out
}
