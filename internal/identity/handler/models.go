package handler

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"identitypulse/internal/identity/country"
	"identitypulse/internal/identity/dispatch"
	"identitypulse/internal/identity/models"
	dErrors "identitypulse/pkg/domain-errors"
)

// maxFieldLen bounds every free-text search input.
const maxFieldLen = 256

// SearchRequest is the body of POST /identity/search.
type SearchRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	DateOfBirth     string `json:"dateOfBirth"`
	CountryCode     string `json:"countryCode"`
	NationalID      string `json:"nationalId"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Mobile          string `json:"mobile"`
	AddressLine     string `json:"addressLine"`
	City            string `json:"city"`
	State           string `json:"state"`
	PostCode        string `json:"postCode"`
	MatchStrictness string `json:"matchStrictness"`
}

// Validate trims the inputs and rejects oversized values. Per-country rules
// are enforced by the search service.
func (r *SearchRequest) Validate() error {
	fields := []struct {
		name  string
		value *string
	}{
		{"firstName", &r.FirstName},
		{"lastName", &r.LastName},
		{"dateOfBirth", &r.DateOfBirth},
		{"countryCode", &r.CountryCode},
		{"nationalId", &r.NationalID},
		{"email", &r.Email},
		{"phone", &r.Phone},
		{"mobile", &r.Mobile},
		{"addressLine", &r.AddressLine},
		{"city", &r.City},
		{"state", &r.State},
		{"postCode", &r.PostCode},
		{"matchStrictness", &r.MatchStrictness},
	}
	for _, f := range fields {
		*f.value = strings.TrimSpace(*f.value)
		if utf8.RuneCountInString(*f.value) > maxFieldLen {
			return dErrors.New(dErrors.CodeInvalidRequest,
				fmt.Sprintf("%s must be at most %d characters", f.name, maxFieldLen))
		}
	}
	return nil
}

// Query converts the request to the search criteria.
func (r *SearchRequest) Query() models.IdentityQuery {
	return models.IdentityQuery{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		DateOfBirth: r.DateOfBirth,
		CountryCode: r.CountryCode,
		NationalID:  r.NationalID,
		Email:       r.Email,
		Phone:       r.Phone,
		Mobile:      r.Mobile,
		AddressLine: r.AddressLine,
		City:        r.City,
		State:       r.State,
		PostCode:    r.PostCode,
		Strictness:  models.Strictness(r.MatchStrictness),
	}
}

// CountryResponse describes one supported country.
type CountryResponse struct {
	Code                string   `json:"code"`
	Name                string   `json:"name"`
	Region              string   `json:"region"`
	Required            []string `json:"required"`
	Optional            []string `json:"optional"`
	IdentificationField string   `json:"identificationField,omitempty"`
	FormatHints         string   `json:"formatHints,omitempty"`
}

type CountriesResponse struct {
	Countries []CountryResponse `json:"countries"`
}

func toCountryResponse(p *country.Profile) CountryResponse {
	return CountryResponse{
		Code:                p.Code(),
		Name:                p.DisplayName(),
		Region:              p.Region(),
		Required:            fieldNames(p.Required()),
		Optional:            fieldNames(p.Optional()),
		IdentificationField: p.IDFieldName(),
		FormatHints:         p.FormatHints(),
	}
}

func fieldNames(fields []models.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}

// ServerResponse is one endpoint's entry in the health table.
type ServerResponse struct {
	Name               string     `json:"name"`
	CountryCode        string     `json:"countryCode"`
	IndexName          string     `json:"indexName,omitempty"`
	Status             string     `json:"status"`
	LastResponseTimeMs int64      `json:"lastResponseTimeMs"`
	LastCheckedAt      *time.Time `json:"lastCheckedAt,omitempty"`
	LastError          string     `json:"lastError,omitempty"`
}

type ServersResponse struct {
	Servers []ServerResponse `json:"servers"`
}

func toServersResponse(snapshots []dispatch.EndpointSnapshot) ServersResponse {
	out := ServersResponse{Servers: make([]ServerResponse, 0, len(snapshots))}
	for _, s := range snapshots {
		sr := ServerResponse{
			Name:               s.Name,
			CountryCode:        s.CountryCode,
			IndexName:          s.IndexName,
			Status:             string(s.Status),
			LastResponseTimeMs: s.LastResponseTime.Milliseconds(),
			LastError:          s.LastError,
		}
		if !s.LastCheckedAt.IsZero() {
			checked := s.LastCheckedAt.UTC()
			sr.LastCheckedAt = &checked
		}
		out.Servers = append(out.Servers, sr)
	}
	return out
}
