package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"identitypulse/internal/identity/country"
	"identitypulse/internal/identity/dispatch"
	"identitypulse/internal/identity/handler/mocks"
	"identitypulse/internal/identity/models"
	"identitypulse/internal/platform/middleware"
	dErrors "identitypulse/pkg/domain-errors"
	"identitypulse/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type IdentityHandlerSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	service  *mocks.MockService
	router   chi.Router
	registry *country.Registry
}

func TestIdentityHandlerSuite(t *testing.T) {
	suite.Run(t, new(IdentityHandlerSuite))
}

func (s *IdentityHandlerSuite) SetupSuite() {
	reg, err := country.Default()
	s.Require().NoError(err)
	s.registry = reg
}

func (s *IdentityHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.router = chi.NewRouter()
	New(s.service, logger, nil).Register(s.router)
}

func (s *IdentityHandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *IdentityHandlerSuite) profile(code string) *country.Profile {
	p, err := s.registry.Get(code)
	s.Require().NoError(err)
	return p
}

func (s *IdentityHandlerSuite) TestSearch() {
	s.Run("returns the match result", func() {
		s.service.EXPECT().Search(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, q models.IdentityQuery) (*models.MatchResult, error) {
				s.Equal("Daniel", q.FirstName)
				s.Equal("AU", q.CountryCode)
				s.Equal(models.StrictnessLoose, q.Strictness)
				return &models.MatchResult{
					SearchID:            "search-1",
					OverallMatchPercent: 92,
					PerFieldScores:      models.ZeroScores().PerField,
					ConfidenceTier:      models.TierVeryHigh,
					CandidateDocuments:  []models.Document{{"FirstName": "Daniel"}},
					SearchLatencyMs:     41,
					Endpoint:            "au-1",
				}, nil
			})

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/identity/search", map[string]string{
			"firstName":       "  Daniel ",
			"lastName":        "Friedman",
			"dateOfBirth":     "1957-06-23",
			"countryCode":     "AU",
			"matchStrictness": "loose",
		})
		rr := testutil.DoRequest(s.router, req)

		s.Equal(http.StatusOK, rr.Code)
		s.NotEmpty(rr.Header().Get(middleware.RequestIDHeader))
		res := testutil.UnmarshalResponse[models.MatchResult](s.T(), rr)
		s.Equal(92, res.OverallMatchPercent)
		s.Equal(models.TierVeryHigh, res.ConfidenceTier)
		s.Len(res.CandidateDocuments, 1)
	})

	s.Run("keeps the caller's request id", func() {
		s.service.EXPECT().Search(gomock.Any(), gomock.Any()).Return(&models.MatchResult{}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/identity/search", map[string]string{"countryCode": "AU"})
		req.Header.Set(middleware.RequestIDHeader, "req-42")
		rr := testutil.DoRequest(s.router, req)

		s.Equal("req-42", rr.Header().Get(middleware.RequestIDHeader))
	})

	s.Run("handler method called directly", func() {
		s.service.EXPECT().Search(gomock.Any(), gomock.Any()).Return(nil, dErrors.New(dErrors.CodeSearchUnavailable, "down"))
		h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/identity/search", map[string]string{"countryCode": "AU"})
		rr := httptest.NewRecorder()
		h.HandleSearch(rr, testutil.WithRequestID(req, "req-7"))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusServiceUnavailable, string(dErrors.CodeSearchUnavailable), true)
	})

	s.Run("rejects malformed JSON without calling the service", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/identity/search", `{"firstName":`)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest), false)
	})

	s.Run("rejects oversized fields", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/identity/search", map[string]string{
			"firstName":   strings.Repeat("a", maxFieldLen+1),
			"countryCode": "AU",
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidRequest), false)
	})

	s.Run("rejects non-JSON bodies", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/identity/search", "firstName=Daniel")
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest), false)
	})
}

func (s *IdentityHandlerSuite) TestSearchErrors() {
	cases := []struct {
		name      string
		err       error
		status    int
		code      dErrors.Code
		retryable bool
	}{
		{"unknown country", dErrors.New(dErrors.CodeUnknownCountry, "country \"ZZ\" is not supported"), http.StatusBadRequest, dErrors.CodeUnknownCountry, false},
		{"invalid date", dErrors.New(dErrors.CodeInvalidDate, "bad date"), http.StatusBadRequest, dErrors.CodeInvalidDate, false},
		{"no server", dErrors.New(dErrors.CodeNoServerForCountry, "no server"), http.StatusNotImplemented, dErrors.CodeNoServerForCountry, false},
		{"no index", dErrors.New(dErrors.CodeNoIdentityIndex, "no index"), http.StatusServiceUnavailable, dErrors.CodeNoIdentityIndex, true},
		{"backend down", dErrors.New(dErrors.CodeSearchUnavailable, "down"), http.StatusServiceUnavailable, dErrors.CodeSearchUnavailable, true},
		{"internal", dErrors.New(dErrors.CodeInternal, "boom"), http.StatusInternalServerError, dErrors.CodeInternal, false},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.service.EXPECT().Search(gomock.Any(), gomock.Any()).Return(nil, tc.err)

			req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/identity/search", map[string]string{"countryCode": "AU"})
			rr := testutil.DoRequest(s.router, req)

			testutil.AssertStatusAndError(s.T(), rr, tc.status, string(tc.code), tc.retryable)
		})
	}

	s.Run("internal errors hide their description", func() {
		s.service.EXPECT().Search(gomock.Any(), gomock.Any()).Return(nil, dErrors.New(dErrors.CodeInternal, "db password is hunter2"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/identity/search", map[string]string{"countryCode": "AU"})
		rr := testutil.DoRequest(s.router, req)

		s.NotContains(rr.Body.String(), "hunter2")
	})
}

func (s *IdentityHandlerSuite) TestCountries() {
	s.Run("lists every profile", func() {
		s.service.EXPECT().Countries().Return(s.registry.List())

		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodGet, "/identity/countries", ""))

		s.Equal(http.StatusOK, rr.Code)
		res := testutil.UnmarshalResponse[CountriesResponse](s.T(), rr)
		s.Len(res.Countries, s.registry.Len())
	})

	s.Run("returns one profile", func() {
		s.service.EXPECT().Country("id").Return(s.profile("ID"), nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodGet, "/identity/countries/id", ""))

		s.Equal(http.StatusOK, rr.Code)
		res := testutil.UnmarshalResponse[CountryResponse](s.T(), rr)
		s.Equal("ID", res.Code)
		s.Contains(res.Required, string(models.FieldFirstName))
		s.Contains(res.Optional, string(models.FieldLastName))
	})

	s.Run("unknown country is a 400", func() {
		s.service.EXPECT().Country("ZZ").Return(nil, dErrors.New(dErrors.CodeUnknownCountry, "country \"ZZ\" is not supported"))

		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodGet, "/identity/countries/ZZ", ""))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeUnknownCountry), false)
	})
}

func (s *IdentityHandlerSuite) TestServers() {
	checked := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snapshots := []dispatch.EndpointSnapshot{
		{
			Endpoint:       dispatch.Endpoint{Name: "au-1", CountryCode: "AU", BaseURL: "http://au:9200"},
			EndpointStatus: dispatch.EndpointStatus{Status: dispatch.StatusOnline, LastResponseTime: 35 * time.Millisecond, LastCheckedAt: checked},
		},
		{
			Endpoint:       dispatch.Endpoint{Name: "id-1", CountryCode: "ID", BaseURL: "http://id:9200"},
			EndpointStatus: dispatch.EndpointStatus{Status: dispatch.StatusUnknown},
		},
	}

	s.Run("lists the health table", func() {
		s.service.EXPECT().Servers().Return(snapshots)

		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodGet, "/identity/servers", ""))

		s.Equal(http.StatusOK, rr.Code)
		s.NotContains(rr.Body.String(), "9200")
		res := testutil.UnmarshalResponse[ServersResponse](s.T(), rr)
		s.Require().Len(res.Servers, 2)
		s.Equal("online", res.Servers[0].Status)
		s.Equal(int64(35), res.Servers[0].LastResponseTimeMs)
		s.Require().NotNil(res.Servers[0].LastCheckedAt)
		s.True(checked.Equal(*res.Servers[0].LastCheckedAt))
		s.Nil(res.Servers[1].LastCheckedAt)
	})

	s.Run("runs a health check", func() {
		s.service.EXPECT().CheckServers(gomock.Any()).Return(snapshots[:1], nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/identity/servers/check", ""))

		s.Equal(http.StatusOK, rr.Code)
		res := testutil.UnmarshalResponse[ServersResponse](s.T(), rr)
		s.Len(res.Servers, 1)
	})

	s.Run("check without a checker is an internal error", func() {
		s.service.EXPECT().CheckServers(gomock.Any()).Return(nil, dErrors.New(dErrors.CodeInternal, "health checker is not configured"))

		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/identity/servers/check", ""))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, string(dErrors.CodeInternal), false)
	})
}

func TestSearchRequestValidate(t *testing.T) {
	testutil.Given(t, "a request with padded values", func(t *testing.T) {
		req := SearchRequest{FirstName: "  Daniel ", CountryCode: " au ", MatchStrictness: " strict"}

		testutil.When(t, "it is validated", func(t *testing.T) {
			err := req.Validate()

			testutil.Then(t, "values are trimmed", func(t *testing.T) {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				q := req.Query()
				if q.FirstName != "Daniel" || q.CountryCode != "au" || q.Strictness != models.StrictnessStrict {
					t.Fatalf("unexpected query %+v", q)
				}
			})
		})
	})
}
