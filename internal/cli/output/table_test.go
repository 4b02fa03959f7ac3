package output

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type blockRow struct {
	Identity  string     `json:"identity"`
	Reason    string     `json:"reason" table:"wide"`
	BlockedAt time.Time  `json:"blocked_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Permanent bool       `json:"permanent"`
	internal  string
}

type tradeRow struct {
	Symbol   string          `json:"symbol"`
	Quantity decimal.Decimal `json:"quantity"`
	Secret   string          `json:"-" table:"-"`
}

func render(t *testing.T, f Formatter, data any) string {
	t.Helper()
	var buf bytes.Buffer
	if err := f.Format(&buf, data); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	return buf.String()
}

func TestTableFormatter_Table(t *testing.T) {
	table := &Table{Headers: []string{"NAME", "VALUE"}}
	table.AddRow("key1", "value1")

	out := render(t, &TableFormatter{}, table)
	if !strings.Contains(out, "NAME") || !strings.Contains(out, "key1") {
		t.Errorf("output = %q", out)
	}

	out = render(t, &TableFormatter{NoHeaders: true}, *table)
	if strings.Contains(out, "NAME") {
		t.Errorf("NoHeaders output = %q", out)
	}
}

func TestTableFormatter_Slice(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := []*blockRow{
		{Identity: "203.0.113.7", Reason: "injection", BlockedAt: at, Permanent: true},
		{Identity: "198.51.100.2", Reason: "manual", BlockedAt: at, ExpiresAt: &at},
	}

	out := render(t, &TableFormatter{}, rows)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, output = %q", len(lines), out)
	}
	header := strings.Fields(lines[0])
	want := []string{"IDENTITY", "BLOCKED_AT", "EXPIRES_AT", "PERMANENT"}
	if !reflect.DeepEqual(header, want) {
		t.Errorf("header = %v, want %v", header, want)
	}
	if !strings.Contains(lines[1], "2026-01-02T03:04:05Z") || !strings.Contains(lines[1], "-") {
		t.Errorf("row 1 = %q", lines[1])
	}

	wide := render(t, &TableFormatter{Wide: true}, rows)
	if !strings.Contains(wide, "REASON") || !strings.Contains(wide, "injection") {
		t.Errorf("wide output missing reason: %q", wide)
	}
}

func TestTableFormatter_Stringer(t *testing.T) {
	out := render(t, &TableFormatter{}, []tradeRow{{Symbol: "BTCUSDT", Quantity: decimal.RequireFromString("0.015"), Secret: "s3cret"}})
	if !strings.Contains(out, "0.015") {
		t.Errorf("decimal not rendered: %q", out)
	}
	if strings.Contains(out, "s3cret") || strings.Contains(out, "SECRET") {
		t.Errorf("hidden field rendered: %q", out)
	}
}

func TestTableFormatter_MapSorted(t *testing.T) {
	out := render(t, &TableFormatter{}, map[string]any{"zeta": 1, "alpha": "a", "mid": true})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("output = %q", out)
	}
	for i, key := range []string{"alpha", "mid", "zeta"} {
		if !strings.HasPrefix(lines[i+1], key) {
			t.Errorf("line %d = %q, want prefix %q", i+1, lines[i+1], key)
		}
	}
}

func TestTableFormatter_Struct(t *testing.T) {
	out := render(t, &TableFormatter{}, struct {
		Status string `json:"status"`
		Count  int
	}{Status: "healthy", Count: 3})

	if !strings.Contains(out, "FIELD") || !strings.Contains(out, "status") || !strings.Contains(out, "count") {
		t.Errorf("output = %q", out)
	}
}

func TestTableFormatter_Fallback(t *testing.T) {
	out := render(t, &TableFormatter{}, "plain")
	if strings.TrimSpace(out) != `"plain"` {
		t.Errorf("output = %q", out)
	}
	if out := render(t, &TableFormatter{}, []string{}); out != "" {
		t.Errorf("empty slice output = %q", out)
	}
}

func TestFormatValue(t *testing.T) {
	var nilTime *time.Time
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"empty string", "", "-"},
		{"int", 42, "42"},
		{"uint", uint8(7), "7"},
		{"float", 1.5, "1.5"},
		{"bool", false, "false"},
		{"nil pointer", nilTime, "-"},
		{"zero time", time.Time{}, "-"},
		{"slice", []int{1, 2}, "[2 items]"},
		{"empty slice", []int{}, "-"},
		{"map", map[string]int{"a": 1}, `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatValue(reflect.ValueOf(tt.in)); got != tt.want {
				t.Errorf("formatValue(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := []struct{ in, want string }{
		{"CreatedAt", "created_at"},
		{"ID", "i_d"},
		{"name", "name"},
	}
	for _, tt := range tests {
		if got := toSnakeCase(tt.in); got != tt.want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
