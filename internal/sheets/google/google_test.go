package google

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"billetera/internal/core"

	gsheet "google.golang.org/api/sheets/v4"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), "  ", "Billetera", Credentials{JSON: "{}"})
	if err == nil || err.Error() != "missing spreadsheet id" {
		t.Fatalf("New() error = %v, want missing spreadsheet id", err)
	}
}

func TestNew_Credentials(t *testing.T) {
	tests := []struct {
		name    string
		creds   Credentials
		wantErr string
	}{
		{
			name:    "no credentials",
			creds:   Credentials{},
			wantErr: "missing service account credentials",
		},
		{
			name:    "unreadable file",
			creds:   Credentials{File: filepath.Join(t.TempDir(), "missing.json")},
			wantErr: "read service account file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), "sheet-id", "Billetera", tt.creds)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("New() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestClient_WriteLedgerWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "test", prefix: "Billetera"}

	_, err := c.WriteLedger(context.Background(), "ana", core.DefaultState(), core.Totals{})
	if err == nil {
		t.Fatal("WriteLedger() expected error without a service")
	}
}

func TestQuoteTab(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Billetera ana", "'Billetera ana'"},
		{"Billetera o'neil", "'Billetera o''neil'"},
		{"", "''"},
	}

	for _, tt := range tests {
		if got := quoteTab(tt.in); got != tt.want {
			t.Errorf("quoteTab(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHasTab(t *testing.T) {
	sheets := []*gsheet.Sheet{
		nil,
		{Properties: nil},
		{Properties: &gsheet.SheetProperties{Title: "Billetera ana"}},
	}

	tests := []struct {
		title string
		want  bool
	}{
		{"Billetera ana", true},
		{"billetera ANA ", true},
		{"Billetera beto", false},
	}

	for _, tt := range tests {
		if got := hasTab(sheets, tt.title); got != tt.want {
			t.Errorf("hasTab(%q) = %v, want %v", tt.title, got, tt.want)
		}
	}
}
