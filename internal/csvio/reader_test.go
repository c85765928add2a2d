package csvio

import (
	"strings"
	"testing"
)

func TestReadTable(t *testing.T) {
	csv := "ID, Name ,ZIP\n1,John,78701\n2,Jane,78702\n"
	table, err := ReadTable(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}

	wantHeaders := []string{"id", "name", "zip"}
	for i, h := range wantHeaders {
		if table.Headers[i] != h {
			t.Errorf("header[%d] = %q, want %q", i, table.Headers[i], h)
		}
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(table.Rows))
	}
	if table.Rows[0]["name"] != "John" {
		t.Errorf("row 0 name = %q, want John", table.Rows[0]["name"])
	}
	if table.Rows[1]["zip"] != "78702" {
		t.Errorf("row 1 zip = %q, want 78702", table.Rows[1]["zip"])
	}
}

func TestReadTableBOM(t *testing.T) {
	csv := "\xEF\xBB\xBFid,name\n1,John\n"
	table, err := ReadTable(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}
	if table.Headers[0] != "id" {
		t.Errorf("header[0] = %q, want id (BOM stripped)", table.Headers[0])
	}
}

func TestReadTableLatin1(t *testing.T) {
	// 0xE9 is é in Latin-1 and invalid on its own in UTF-8.
	csv := "name,city\nRen\xE9,Montr\xE9al\n"
	table, err := ReadTable(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}
	if got := table.Rows[0]["name"]; got != "René" {
		t.Errorf("name = %q, want René", got)
	}
	if got := table.Rows[0]["city"]; got != "Montréal" {
		t.Errorf("city = %q, want Montréal", got)
	}
}

func TestReadTableRaggedRows(t *testing.T) {
	csv := "id,name,zip\n1,John\n2,Jane,78702,extra\n"
	table, err := ReadTable(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(table.Rows))
	}
	if _, ok := table.Rows[0]["zip"]; ok {
		t.Error("short row should not carry a zip value")
	}
	if table.Rows[1]["zip"] != "78702" {
		t.Errorf("long row zip = %q, want 78702", table.Rows[1]["zip"])
	}
}

func TestReadTableEmpty(t *testing.T) {
	table, err := ReadTable(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}
	if len(table.Rows) != 0 {
		t.Errorf("rows = %d, want 0", len(table.Rows))
	}
}

func TestMailRecordsAliases(t *testing.T) {
	csv := "mail_id,recipient,street,town,st,zipcode,mail_date\n" +
		"m1,John Smith,123 Main St,Austin,TX,78701,2024-01-15\n"
	table, err := ReadTable(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}

	records := MailRecords(table)
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	r := records[0]
	if r.ID != "m1" || r.Name != "John Smith" || r.Address1 != "123 Main St" {
		t.Errorf("unexpected record %+v", r)
	}
	if r.City != "Austin" || r.State != "TX" || r.PostalCode != "78701" {
		t.Errorf("unexpected locality %+v", r)
	}
	if r.SentDate == nil || r.SentDate.Format("2006-01-02") != "2024-01-15" {
		t.Errorf("sent date = %v, want 2024-01-15", r.SentDate)
	}
}

func TestCRMRecordsAliases(t *testing.T) {
	csv := "lead_id,customer,address,city,state,zip,completed_at,amount\n" +
		"c7,Jane Doe,456 Oak Ave,Austin,TX,78702,02/20/2024,1250.50\n" +
		"c8,No Date,789 Elm Dr,Austin,TX,78703,not-a-date,\n"
	table, err := ReadTable(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}

	records := CRMRecords(table)
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	r := records[0]
	if r.CRMID != "c7" || r.Name != "Jane Doe" {
		t.Errorf("unexpected record %+v", r)
	}
	if r.JobDate == nil || r.JobDate.Format("2006-01-02") != "2024-02-20" {
		t.Errorf("job date = %v, want 2024-02-20", r.JobDate)
	}
	if r.JobValue != 1250.50 {
		t.Errorf("job value = %v, want 1250.50", r.JobValue)
	}

	// Unparseable dates come through as nil; the matcher counts them.
	if records[1].JobDate != nil {
		t.Errorf("job date = %v, want nil for unparseable input", records[1].JobDate)
	}
	if records[1].JobValue != 0 {
		t.Errorf("job value = %v, want 0 for empty input", records[1].JobValue)
	}
}
