package fixedwidth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestEncodeKinds(t *testing.T) {
	layout := NewLayout(40,
		Field{Name: "name", Width: 10, Kind: TextLeftTruncate},
		Field{Name: "code", Width: 5, Kind: NumericZeroPad},
		Field{Name: "value", Width: 15, Kind: DecimalImplicit, Scale: 2},
		Field{Name: "due", Width: 8, Kind: DateDDMMYYYY},
		Field{Name: "flag", Width: 2, Kind: TextLeft},
	)

	line, err := layout.Encode(map[string]any{
		"name":  "ACME",
		"code":  42,
		"value": decimal.RequireFromString("25.50"),
		"due":   time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		"flag":  "N",
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	expected := "ACME      00042" + "000000000002550" + "15032024" + "N "
	if line != expected {
		t.Errorf("Encode mismatch:\nExpected: %q\nGot:      %q", expected, line)
	}
	if len(line) != 40 {
		t.Errorf("Expected 40 columns, got %d", len(line))
	}
}

func TestEncodeTruncatesLongText(t *testing.T) {
	layout := NewLayout(5, Field{Name: "name", Width: 5, Kind: TextLeftTruncate})

	line, err := layout.Encode(map[string]any{"name": "COMPANHIA BRASILEIRA"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if line != "COMPA" {
		t.Errorf("Expected truncation to %q, got %q", "COMPA", line)
	}
}

func TestEncodeDeaccentsText(t *testing.T) {
	cases := []struct {
		in       string
		width    int
		expected string
	}{
		{"JOÃO", 4, "JOAO"},
		{"JOSÉ AÇÃO", 9, "JOSE ACAO"},
		// Clipping at the field boundary must land between characters,
		// never inside a multi-byte rune.
		{"ANDRÉIA MÜLLER", 6, "ANDREI"},
		{"日本 LTDA", 7, "   LTDA"},
	}
	for _, c := range cases {
		layout := NewLayout(c.width, Field{Name: "name", Width: c.width, Kind: TextLeftTruncate})
		line, err := layout.Encode(map[string]any{"name": c.in})
		if err != nil {
			t.Fatalf("Encode(%q) failed: %v", c.in, err)
		}
		if line != c.expected {
			t.Errorf("Encode(%q): expected %q, got %q", c.in, c.expected, line)
		}
		if len(line) != c.width {
			t.Errorf("Encode(%q): expected %d columns, got %d", c.in, c.width, len(line))
		}
	}
}

func TestEncodeRejectsNegativeNumeric(t *testing.T) {
	layout := NewLayout(5, Field{Name: "n", Width: 5, Kind: NumericZeroPad})

	_, err := layout.Encode(map[string]any{"n": -1})
	var encErr *EncodeError
	if !errors.As(err, &encErr) {
		t.Fatalf("Expected EncodeError, got %v", err)
	}
	if encErr.Field != "n" {
		t.Errorf("Expected field %q, got %q", "n", encErr.Field)
	}
}

func TestEncodeRejectsNumericOverflow(t *testing.T) {
	layout := NewLayout(3, Field{Name: "n", Width: 3, Kind: NumericZeroPad})

	if _, err := layout.Encode(map[string]any{"n": 1000}); err == nil {
		t.Fatal("Expected overflow error, got nil")
	}
}

func TestEncodeRoundsHalfAwayFromZero(t *testing.T) {
	layout := NewLayout(10, Field{Name: "v", Width: 10, Kind: DecimalImplicit, Scale: 2})

	line, err := layout.Encode(map[string]any{"v": decimal.RequireFromString("0.125")})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if line != "0000000013" {
		t.Errorf("Expected half-away-from-zero rounding to %q, got %q", "0000000013", line)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	layout := NewLayout(38,
		Field{Name: "name", Width: 10, Kind: TextLeftTruncate},
		Field{Name: "code", Width: 5, Kind: NumericZeroPad},
		Field{Name: "value", Width: 15, Kind: DecimalImplicit, Scale: 2},
		Field{Name: "due", Width: 8, Kind: DateDDMMYYYY},
	)

	due := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	value := decimal.RequireFromString("1234.56")
	line, err := layout.Encode(map[string]any{
		"name": "PADARIA", "code": 7, "value": value, "due": due,
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	values, err := layout.Decode(line)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if values.String("name") != "PADARIA" {
		t.Errorf("name: expected %q, got %q", "PADARIA", values.String("name"))
	}
	if values.Int("code") != 7 {
		t.Errorf("code: expected 7, got %d", values.Int("code"))
	}
	if !values.Decimal("value").Equal(value) {
		t.Errorf("value: expected %s, got %s", value, values.Decimal("value"))
	}
	if !values.Date("due").Equal(due) {
		t.Errorf("due: expected %s, got %s", due, values.Date("due"))
	}
}

func TestDecodeMalformedNumeric(t *testing.T) {
	layout := NewLayout(10,
		Field{Name: "head", Width: 5, Kind: TextLeft},
		Field{Name: "n", Width: 5, Kind: NumericZeroPad},
	)

	_, err := layout.Decode("AAAAA12X45")
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("Expected DecodeError, got %v", err)
	}
	if decErr.Field != "n" || decErr.Offset != 5 {
		t.Errorf("Expected field %q at offset 5, got %q at %d", "n", decErr.Field, decErr.Offset)
	}
}

func TestDecodeZeroDate(t *testing.T) {
	layout := NewLayout(8, Field{Name: "d", Width: 8, Kind: DateDDMMYYYY})

	values, err := layout.Decode("00000000")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !values.Date("d").IsZero() {
		t.Errorf("Expected zero time, got %s", values.Date("d"))
	}
}

func TestDecodeWrongLength(t *testing.T) {
	layout := NewLayout(8, Field{Name: "d", Width: 8, Kind: TextLeft})

	if _, err := layout.Decode(strings.Repeat(" ", 7)); err == nil {
		t.Fatal("Expected length error, got nil")
	}
}

func TestNewLayoutPanicsOnWidthMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Expected panic on width mismatch")
		}
	}()
	NewLayout(10, Field{Name: "short", Width: 9, Kind: TextLeft})
}
