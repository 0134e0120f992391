package record

import "testing"

func TestOpenFiltersCaseInsensitively(t *testing.T) {
	store := NewStore()
	store.SetRows([]Record{
		{"Item": "A001", "Status": "open"},
		{"Item": "A002", "Status": "closed"},
		{"Item": "A003", "Status": "OPEN"},
		{"Item": "A004", "Status": " Open "},
		{"Item": "A005", "Status": ""},
	})

	open := store.Open()
	if len(open) != 3 {
		t.Fatalf("Expected 3 open records, got %d", len(open))
	}

	want := []string{"A001", "A003", "A004"}
	for i, w := range want {
		if open[i].Item() != w {
			t.Errorf("Open record %d: expected %s, got %s", i, w, open[i].Item())
		}
	}
}

func TestSetRowsReplacesWholesale(t *testing.T) {
	store := NewStore()
	store.SetRows([]Record{
		{"Item": "A001", "Status": "open"},
		{"Item": "A002", "Status": "open"},
	})
	store.SetRows([]Record{
		{"Item": "B001", "Status": "open"},
	})

	if store.Len() != 1 {
		t.Fatalf("Expected 1 record after replacement, got %d", store.Len())
	}
	if got := store.Open()[0].Item(); got != "B001" {
		t.Errorf("Expected B001, got %s", got)
	}
}

func TestGetMissingColumnIsEmpty(t *testing.T) {
	r := Record{"Item": "A001"}
	if got := r.Get("Current Bid"); got != "" {
		t.Errorf("Expected empty string for missing column, got %q", got)
	}
}

func TestOpenOnEmptyStore(t *testing.T) {
	store := NewStore()
	if open := store.Open(); len(open) != 0 {
		t.Errorf("Expected no open records, got %d", len(open))
	}
}
