package sheet

import (
	"testing"

	"auction_display/internal/record"
)

func TestParseCSVMapsHeadersToValues(t *testing.T) {
	rows := ParseCSV("Item,Status\nA001,open\nA002,closed\nA003,open")
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}
	if rows[0]["Item"] != "A001" || rows[0]["Status"] != "open" {
		t.Errorf("Row 0 mismatch: %v", rows[0])
	}
	if rows[1]["Status"] != "closed" {
		t.Errorf("Row 1 mismatch: %v", rows[1])
	}
}

func TestParseCSVShortRowPadsTrailingFields(t *testing.T) {
	rows := ParseCSV("Item,Type,Current Bid\nA001,Painting")
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	if rows[0]["Current Bid"] != "" {
		t.Errorf("Expected empty Current Bid, got %q", rows[0]["Current Bid"])
	}
	if rows[0]["Type"] != "Painting" {
		t.Errorf("Expected Painting, got %q", rows[0]["Type"])
	}
}

func TestParseCSVTrimsHeadersAndValues(t *testing.T) {
	rows := ParseCSV(" Item , Status \n A001 , open ")
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	if rows[0]["Item"] != "A001" || rows[0]["Status"] != "open" {
		t.Errorf("Expected trimmed fields, got %v", rows[0])
	}
}

func TestParseCSVHandlesCRLF(t *testing.T) {
	rows := ParseCSV("Item,Status\r\nA001,open\r\n")
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	if rows[0]["Item"] != "A001" {
		t.Errorf("Expected A001, got %q", rows[0]["Item"])
	}
}

func TestParseCSVHeaderOnly(t *testing.T) {
	if rows := ParseCSV("Item,Status"); rows != nil {
		t.Errorf("Expected no rows for header-only payload, got %v", rows)
	}
}

func TestParseCSVOpenFilterScenario(t *testing.T) {
	store := record.NewStore()
	store.SetRows(ParseCSV("Item,Status\nA001,open\nA002,closed\nA003,open"))

	open := store.Open()
	if len(open) != 2 {
		t.Fatalf("Expected 2 open records, got %d", len(open))
	}
	if open[0].Item() != "A001" || open[1].Item() != "A003" {
		t.Errorf("Expected A001 then A003, got %s then %s", open[0].Item(), open[1].Item())
	}
}

func TestLooksLikeMarkup(t *testing.T) {
	cases := []struct {
		payload string
		want    bool
	}{
		{"<!DOCTYPE html><html>", true},
		{"  <html lang=\"en\">", true},
		{"\n<HTML>", true},
		{"Item,Status\nA001,open", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := LooksLikeMarkup(tc.payload); got != tc.want {
			t.Errorf("LooksLikeMarkup(%q) = %v, want %v", tc.payload, got, tc.want)
		}
	}
}
