// Package boleto issues bank slips: it allocates the nosso número,
// computes the 44-digit barcode and the 47-digit digitable line, and
// persists the open slip.
package boleto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// factorBase is the Febraban epoch for the due-date factor.
var factorBase = time.Date(1997, time.October, 7, 0, 0, 0, 0, time.UTC)

// dueDateFactor is the number of days since the Febraban base date,
// wrapped back by 9000 once it exceeds four digits.
func dueDateFactor(due time.Time) int {
	days := int(due.Sub(factorBase).Hours() / 24)
	for days > 9999 {
		days -= 9000
	}
	if days < 0 {
		days = 0
	}
	return days
}

// mod10 is the Luhn-style check digit used on the digitable line
// fields: weights 2,1,2,... from the right, digits of each product
// summed, check = distance to the next multiple of ten.
func mod10(digits string) int {
	sum := 0
	weight := 2
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i]-'0') * weight
		if d > 9 {
			d = d/10 + d%10
		}
		sum += d
		if weight == 2 {
			weight = 1
		} else {
			weight = 2
		}
	}
	return (10 - sum%10) % 10
}

// mod11 is the general barcode check digit: weights 2..9 cycling from
// the right; results 0, 10 and 11 collapse to 1 per the Febraban rule.
func mod11(digits string) int {
	sum := 0
	weight := 2
	for i := len(digits) - 1; i >= 0; i-- {
		sum += int(digits[i]-'0') * weight
		weight++
		if weight > 9 {
			weight = 2
		}
	}
	dv := 11 - sum%11
	if dv == 0 || dv == 10 || dv == 11 {
		return 1
	}
	return dv
}

// Barcode builds the 44-digit cobrança barcode:
// bank(3) currency(1) dv(1) factor(4) value(10) free(25), where the
// free field is agency(4) wallet(3) nosso número(11) account(7).
func Barcode(bankCode, agency, wallet, account, nossoNumero string, value decimal.Decimal, due time.Time) (string, error) {
	cents := value.Shift(2).Round(0)
	if cents.IsNegative() {
		return "", fmt.Errorf("boleto: negative value %s", value)
	}
	valueField := fmt.Sprintf("%010d", cents.IntPart())
	if len(valueField) > 10 {
		return "", fmt.Errorf("boleto: value %s does not fit the barcode", value)
	}

	free := fmt.Sprintf("%04s%03s%011s%07s", digits(agency, 4), digits(wallet, 3), digits(nossoNumero, 11), digits(account, 7))
	if len(free) != 25 {
		return "", fmt.Errorf("boleto: free field is %d digits, want 25", len(free))
	}

	base := fmt.Sprintf("%03s9%04d%s%s", digits(bankCode, 3), dueDateFactor(due), valueField, free)
	// base is the barcode without its check digit (43 digits).
	dv := mod11(base)
	return fmt.Sprintf("%s%d%s", base[:4], dv, base[4:]), nil
}

// DigitableLine derives the 47-digit typed line from a 44-digit
// barcode: three mod10-checked fields over bank/currency and the free
// field, the general check digit, then factor and value.
func DigitableLine(barcode string) (string, error) {
	if len(barcode) != 44 {
		return "", fmt.Errorf("boleto: barcode is %d digits, want 44", len(barcode))
	}
	free := barcode[19:44]

	field1 := barcode[0:4] + free[0:5]
	field2 := free[5:15]
	field3 := free[15:25]

	line := fmt.Sprintf("%s%d%s%d%s%d%s%s",
		field1, mod10(field1),
		field2, mod10(field2),
		field3, mod10(field3),
		barcode[4:5],  // general check digit
		barcode[5:19], // factor + value
	)
	return line, nil
}

// digits truncates or left-pads a value with zeros to exactly n digits,
// dropping anything that is not a digit first.
func digits(s string, n int) string {
	var out []byte
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	for len(out) < n {
		out = append([]byte{'0'}, out...)
	}
	return string(out)
}
