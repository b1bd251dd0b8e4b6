// Package fixedwidth packs and unpacks positional records: every record
// is described once, as an ordered list of field descriptors, and a
// single encoder enforces width, justification and truncation for all of
// them. CNAB layouts are built on top of this.
package fixedwidth

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Kind selects how a field value is rendered into its column range.
type Kind int

const (
	// TextLeft is for text values sized to the field (codes, fixed
	// identifiers). Left-justified, space-padded.
	TextLeft Kind = iota
	// TextLeftTruncate is for free text (names, addresses) where the
	// Febraban convention applies: overflow is silently clipped so the
	// record stays exactly as wide as declared.
	TextLeftTruncate
	// NumericZeroPad is a non-negative integer, right-justified and
	// zero-padded. Negative or fractional input is a caller bug.
	NumericZeroPad
	// DateDDMMYYYY renders a calendar date as eight digits, no
	// separators. The zero time renders as all zeros.
	DateDDMMYYYY
	// DateDDMMYY is the legacy six-digit form.
	DateDDMMYY
	// DecimalImplicit renders a monetary value with an implicit decimal
	// point: shifted by Scale, rounded half away from zero to an
	// integer, zero-padded. "R$ 25,50" at scale 2 in 15 columns becomes
	// "000000000002550".
	DecimalImplicit
)

// Field describes one column range of a record.
type Field struct {
	Name  string
	Width int
	Kind  Kind
	Scale int32 // DecimalImplicit only
}

// Layout is an ordered field list whose widths sum to the record length.
type Layout struct {
	length  int
	fields  []Field
	offsets []int // 0-based start of each field
}

// NewLayout builds a layout and asserts the field widths cover the record
// exactly. A mismatch is a field-table bug, not bad input, so it panics.
func NewLayout(length int, fields ...Field) *Layout {
	offsets := make([]int, len(fields))
	total := 0
	for i, f := range fields {
		if f.Width <= 0 {
			panic(fmt.Sprintf("fixedwidth: field %q has width %d", f.Name, f.Width))
		}
		offsets[i] = total
		total += f.Width
	}
	if total != length {
		panic(fmt.Sprintf("fixedwidth: fields sum to %d columns, layout declares %d", total, length))
	}
	return &Layout{length: length, fields: fields, offsets: offsets}
}

// Length returns the record length in columns.
func (l *Layout) Length() int {
	return l.length
}

// EncodeError reports a field value the caller handed in that cannot be
// rendered (negative numeric, overflow, wrong type). The file is never
// emitted truncated: encoding fails fast instead.
type EncodeError struct {
	Field  string
	Reason string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("fixedwidth: field %q: %s", e.Field, e.Reason)
}

// DecodeError reports a slice of the input line that cannot be converted
// back per its field kind. Corrupt bank files must never be read as
// zeroes, so malformed slices fail with the field name and its record
// offset instead of defaulting.
type DecodeError struct {
	Field  string
	Offset int // 0-based column offset within the record
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("fixedwidth: field %q at offset %d: %s", e.Field, e.Offset, e.Reason)
}

// Encode renders values into an exact-length line. Every field of the
// layout must be present in values; text overflow is clipped, numeric
// overflow is an error.
func (l *Layout) Encode(values map[string]any) (string, error) {
	var b strings.Builder
	b.Grow(l.length)
	for _, f := range l.fields {
		v, ok := values[f.Name]
		if !ok {
			return "", &EncodeError{Field: f.Name, Reason: "value missing"}
		}
		s, err := renderField(f, v)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	line := b.String()
	if len(line) != l.length {
		// Unreachable unless renderField breaks its width contract.
		panic(fmt.Sprintf("fixedwidth: encoded %d columns, layout declares %d", len(line), l.length))
	}
	return line, nil
}

func renderField(f Field, v any) (string, error) {
	switch f.Kind {
	case TextLeft, TextLeftTruncate:
		s, ok := v.(string)
		if !ok {
			return "", &EncodeError{Field: f.Name, Reason: fmt.Sprintf("want string, got %T", v)}
		}
		s = toASCII(s)
		if len(s) > f.Width {
			s = s[:f.Width]
		}
		return s + strings.Repeat(" ", f.Width-len(s)), nil

	case NumericZeroPad:
		n, err := toInt64(v)
		if err != nil {
			return "", &EncodeError{Field: f.Name, Reason: err.Error()}
		}
		if n < 0 {
			return "", &EncodeError{Field: f.Name, Reason: fmt.Sprintf("negative numeric %d", n)}
		}
		s := fmt.Sprintf("%0*d", f.Width, n)
		if len(s) > f.Width {
			return "", &EncodeError{Field: f.Name, Reason: fmt.Sprintf("%d does not fit in %d digits", n, f.Width)}
		}
		return s, nil

	case DecimalImplicit:
		d, ok := v.(decimal.Decimal)
		if !ok {
			return "", &EncodeError{Field: f.Name, Reason: fmt.Sprintf("want decimal.Decimal, got %T", v)}
		}
		if d.IsNegative() {
			return "", &EncodeError{Field: f.Name, Reason: "negative amount " + d.String()}
		}
		// Round half away from zero to the nearest integer unit.
		n := d.Shift(f.Scale).Round(0)
		s := fmt.Sprintf("%0*s", f.Width, n.String())
		if len(s) > f.Width {
			return "", &EncodeError{Field: f.Name, Reason: fmt.Sprintf("%s does not fit in %d digits", n.String(), f.Width)}
		}
		return s, nil

	case DateDDMMYYYY:
		t, ok := v.(time.Time)
		if !ok {
			return "", &EncodeError{Field: f.Name, Reason: fmt.Sprintf("want time.Time, got %T", v)}
		}
		if t.IsZero() {
			return "00000000", nil
		}
		return t.Format("02012006"), nil

	case DateDDMMYY:
		t, ok := v.(time.Time)
		if !ok {
			return "", &EncodeError{Field: f.Name, Reason: fmt.Sprintf("want time.Time, got %T", v)}
		}
		if t.IsZero() {
			return "000000", nil
		}
		return t.Format("020106"), nil
	}
	return "", &EncodeError{Field: f.Name, Reason: fmt.Sprintf("unknown kind %d", f.Kind)}
}

var deaccenter = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// toASCII strips accents and replaces anything still outside printable
// ASCII with a space. Records are addressed in bytes, so text must be
// one byte per column before width clipping; accented names would
// otherwise split mid-rune at the field boundary.
func toASCII(s string) string {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			ascii = false
			break
		}
	}
	if ascii {
		return s
	}
	out, _, err := transform.String(deaccenter, s)
	if err != nil {
		out = s
	}
	var b strings.Builder
	b.Grow(len(out))
	for _, r := range out {
		if r < 0x20 || r > 0x7e {
			r = ' '
		}
		b.WriteRune(r)
	}
	return b.String()
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case string:
		var out int64
		if n == "" {
			return 0, fmt.Errorf("empty numeric string")
		}
		for _, c := range n {
			if c < '0' || c > '9' {
				return 0, fmt.Errorf("non-digit %q in numeric string %q", c, n)
			}
			out = out*10 + int64(c-'0')
		}
		return out, nil
	default:
		return 0, fmt.Errorf("want integer, got %T", v)
	}
}

// Values holds a decoded record. Accessors return the zero value for
// unknown field names; Decode already guaranteed every known field
// parsed, so the accessors carry no error return.
type Values struct {
	raw  map[string]string
	vals map[string]any
}

// Raw returns the untouched column slice for a field.
func (v *Values) Raw(name string) string { return v.raw[name] }

// String returns a text field with trailing padding removed.
func (v *Values) String(name string) string {
	s, _ := v.vals[name].(string)
	return s
}

// Digits returns a numeric field as its digit string, zero padding
// intact. Bank identifiers like the nosso número keep their leading
// zeros this way.
func (v *Values) Digits(name string) string { return v.raw[name] }

// Int returns a numeric field as an integer.
func (v *Values) Int(name string) int64 {
	n, _ := v.vals[name].(int64)
	return n
}

// Decimal returns an implicit-decimal field with its scale applied.
func (v *Values) Decimal(name string) decimal.Decimal {
	d, _ := v.vals[name].(decimal.Decimal)
	return d
}

// Date returns a date field; the all-zero convention decodes to the zero
// time.
func (v *Values) Date(name string) time.Time {
	t, _ := v.vals[name].(time.Time)
	return t
}

// Decode slices line at the layout's fixed positions and converts every
// slice back per its field kind. The line must be exactly the record
// length; the caller filters shorter/longer lines beforehand.
func (l *Layout) Decode(line string) (*Values, error) {
	if len(line) != l.length {
		return nil, &DecodeError{Field: "", Offset: 0, Reason: fmt.Sprintf("line is %d columns, record is %d", len(line), l.length)}
	}
	out := &Values{
		raw:  make(map[string]string, len(l.fields)),
		vals: make(map[string]any, len(l.fields)),
	}
	for i, f := range l.fields {
		off := l.offsets[i]
		raw := line[off : off+f.Width]
		out.raw[f.Name] = raw

		switch f.Kind {
		case TextLeft, TextLeftTruncate:
			out.vals[f.Name] = strings.TrimRight(raw, " ")

		case NumericZeroPad:
			n, err := parseDigits(raw)
			if err != nil {
				return nil, &DecodeError{Field: f.Name, Offset: off, Reason: err.Error()}
			}
			out.vals[f.Name] = n

		case DecimalImplicit:
			n, err := parseDigits(raw)
			if err != nil {
				return nil, &DecodeError{Field: f.Name, Offset: off, Reason: err.Error()}
			}
			out.vals[f.Name] = decimal.New(n, -f.Scale)

		case DateDDMMYYYY:
			t, err := parseDate(raw, "02012006")
			if err != nil {
				return nil, &DecodeError{Field: f.Name, Offset: off, Reason: err.Error()}
			}
			out.vals[f.Name] = t

		case DateDDMMYY:
			t, err := parseDate(raw, "020106")
			if err != nil {
				return nil, &DecodeError{Field: f.Name, Offset: off, Reason: err.Error()}
			}
			out.vals[f.Name] = t
		}
	}
	return out, nil
}

func parseDigits(raw string) (int64, error) {
	var out int64
	for _, c := range raw {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("non-digit %q in numeric slice %q", c, raw)
		}
		out = out*10 + int64(c-'0')
	}
	return out, nil
}

func parseDate(raw, format string) (time.Time, error) {
	if raw == strings.Repeat("0", len(raw)) {
		return time.Time{}, nil
	}
	t, err := time.Parse(format, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed date %q", raw)
	}
	return t, nil
}
