// Package normalize canonicalises caller-supplied identity fields into the
// forms the query builder and scorer compare. Every function is pure.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"identitypulse/internal/identity/country"
	"identitypulse/internal/identity/models"
	dErrors "identitypulse/pkg/domain-errors"
)

// CanonicalDateLayout is the YYYYMMDD form every date is normalized to.
const CanonicalDateLayout = "20060102"

// dateLayouts are tried in order when separator stripping does not yield a
// valid YYYYMMDD. Day-first layouts precede month-first ones.
var dateLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"1/2/2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

var separatorStripper = strings.NewReplacer("-", "", "/", "")

// Date normalizes a date of birth to YYYYMMDD.
func Date(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidDate, "date is empty")
	}

	stripped := separatorStripper.Replace(s)
	if len(stripped) == 8 && isDigits(stripped) {
		if _, err := time.Parse(CanonicalDateLayout, stripped); err == nil {
			return stripped, nil
		}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(CanonicalDateLayout), nil
		}
	}
	return "", dErrors.New(dErrors.CodeInvalidDate, fmt.Sprintf("date %q is not a recognised date", raw))
}

// Phone normalizes a phone or mobile number for the given storage kind.
// Numeric storage keeps digits only and drops a single leading trunk 0;
// string storage keeps the caller's formatting.
func Phone(raw string, kind country.StorageKind) string {
	s := strings.TrimSpace(raw)
	if kind != country.StorageNumeric {
		return s
	}
	digits := Digits(s)
	return strings.TrimPrefix(digits, "0")
}

// Email lowercases and trims an email address.
func Email(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Text trims a free-text value and puts it in NFC form. Case is preserved.
func Text(raw string) string {
	return norm.NFC.String(strings.TrimSpace(raw))
}

// Digits keeps only the decimal digits of s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Request validates q against the profile's required fields and normalizes
// every supplied value. Fields outside the profile's schema are kept; the
// query builder ignores what it cannot map.
func Request(q models.IdentityQuery, p *country.Profile) (models.Normalized, error) {
	strictness, err := models.ParseStrictness(string(q.Strictness))
	if err != nil {
		return models.Normalized{}, err
	}

	raw := map[models.Field]string{
		models.FieldFirstName:   q.FirstName,
		models.FieldLastName:    q.LastName,
		models.FieldDateOfBirth: q.DateOfBirth,
		models.FieldNationalID:  q.NationalID,
		models.FieldEmail:       q.Email,
		models.FieldPhone:       q.Phone,
		models.FieldMobile:      q.Mobile,
		models.FieldAddressLine: q.AddressLine,
		models.FieldCity:        q.City,
		models.FieldState:       q.State,
		models.FieldPostCode:    q.PostCode,
	}

	for _, f := range p.Required() {
		if strings.TrimSpace(raw[f]) == "" {
			return models.Normalized{}, dErrors.New(dErrors.CodeInvalidRequest,
				fmt.Sprintf("%s is required for country %s", f, p.Code()))
		}
	}

	values := make(map[models.Field]string, len(raw))
	for _, f := range models.AllFields {
		v := raw[f]
		if strings.TrimSpace(v) == "" {
			continue
		}
		var out string
		switch f {
		case models.FieldDateOfBirth:
			if out, err = Date(v); err != nil {
				return models.Normalized{}, err
			}
		case models.FieldPhone, models.FieldMobile:
			out = Phone(v, p.PhoneStorage())
		case models.FieldEmail:
			out = Email(v)
		case models.FieldNationalID:
			out = strings.TrimSpace(v)
		default:
			out = Text(v)
		}
		if out != "" {
			values[f] = out
		}
	}

	return models.Normalized{
		CountryCode: p.Code(),
		Strictness:  strictness,
		Values:      values,
	}, nil
}
