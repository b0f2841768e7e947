package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"rentledger/internal/jwttoken"
	"rentledger/internal/payment"
	"rentledger/internal/platform/logger"
	"rentledger/internal/templateconfig"
	"rentledger/internal/tenancy"
	"rentledger/pkg/domain"
)

type RouterSuite struct {
	suite.Suite
	router http.Handler
	store  *tenancy.InMemory
	tokens *jwttoken.Service

	landlordID domain.PartyID
	tenantID   domain.PartyID
}

func (s *RouterSuite) SetupTest() {
	s.store = tenancy.NewInMemory()
	s.tokens = jwttoken.NewService("router-test-key", "rentledger")
	s.landlordID = domain.NewPartyID()
	s.tenantID = domain.NewPartyID()

	cfgStore := templateconfig.NewInMemoryStore()
	s.Require().NoError(cfgStore.Save(context.Background(), &templateconfig.Config{
		MaxAdvanceMonths: 3,
		MinLeaseDuration: 6,
		MaxLeaseDuration: 24,
		TaxRate:          decimal.RequireFromString("0.08"),
	}))
	resolver := templateconfig.NewResolver(cfgStore)

	log := logger.New()
	tenancies := tenancy.NewService(s.store, s.store, resolver, tenancy.WithLogger(log))
	payments := payment.NewService(s.store, s.store, payment.WithLogger(log))

	s.router = NewRouter(NewHandler(tenancies, payments, resolver, s.tokens, log))
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) bearer(party domain.PartyID) string {
	token, err := s.tokens.GenerateToken(party, time.Hour)
	s.Require().NoError(err)
	return "Bearer " + token
}

func (s *RouterSuite) do(method, path, authorization string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *RouterSuite) decode(rec *httptest.ResponseRecorder, out any) {
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(out))
}

func (s *RouterSuite) registerUnit() string {
	rec := s.do(http.MethodPost, "/units", s.bearer(s.landlordID), map[string]any{
		"property_id":  domain.NewPropertyID().String(),
		"monthly_rent": "1000",
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var unit struct {
		ID string `json:"id"`
	}
	s.decode(rec, &unit)
	return unit.ID
}

func (s *RouterSuite) propose(unitID string) map[string]any {
	rec := s.do(http.MethodPost, "/tenancies", s.bearer(s.landlordID), map[string]any{
		"tenant_id":             s.tenantID.String(),
		"unit_id":               unitID,
		"agreed_rent":           "1000",
		"advance_months":        2,
		"lease_duration_months": 12,
		"start_date":            "2026-03-01",
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var agreement map[string]any
	s.decode(rec, &agreement)
	return agreement
}

func (s *RouterSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *RouterSuite) TestAuthRequired() {
	rec := s.do(http.MethodPost, "/tenancies", "", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/tenancies", "Bearer nonsense", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *RouterSuite) TestConfigEndpoints() {
	s.Run("read is public", func() {
		rec := s.do(http.MethodGet, "/regulator/template-config", "", nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		var cfg struct {
			MaxAdvanceMonths int `json:"max_advance_months"`
		}
		s.decode(rec, &cfg)
		s.Equal(3, cfg.MaxAdvanceMonths)
	})

	s.Run("write requires a token", func() {
		rec := s.do(http.MethodPut, "/regulator/template-config", "", nil)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("write replaces the configuration and bumps the version", func() {
		rec := s.do(http.MethodPut, "/regulator/template-config", s.bearer(s.landlordID), map[string]any{
			"max_advance_months":   5,
			"min_lease_duration":   6,
			"max_lease_duration":   24,
			"tax_rate":             "0.10",
			"registration_deadline_days": 30,
		})
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

		var cfg struct {
			MaxAdvanceMonths int `json:"max_advance_months"`
			Version          int `json:"version"`
		}
		s.decode(rec, &cfg)
		s.Equal(5, cfg.MaxAdvanceMonths)
		s.Equal(2, cfg.Version)
	})

	s.Run("rejects invalid statutory bounds", func() {
		rec := s.do(http.MethodPut, "/regulator/template-config", s.bearer(s.landlordID), map[string]any{
			"min_lease_duration": 12,
			"max_lease_duration": 6,
			"tax_rate":           "0.10",
		})
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *RouterSuite) TestTenancyLifecycle() {
	unitID := s.registerUnit()
	agreement := s.propose(unitID)
	agreementID := agreement["id"].(string)

	s.Regexp(`^TR-01-2026-[0-9A-F]{8}$`, agreement["registration_code"])
	s.Equal("pending", agreement["status"])

	s.Run("second proposal on the unit conflicts", func() {
		rec := s.do(http.MethodPost, "/tenancies", s.bearer(s.landlordID), map[string]any{
			"tenant_id":             domain.NewPartyID().String(),
			"unit_id":               unitID,
			"lease_duration_months": 12,
			"start_date":            "2026-03-01",
		})
		s.Equal(http.StatusConflict, rec.Code)
	})

	s.Run("a stranger cannot accept", func() {
		rec := s.do(http.MethodPost, "/tenancies/"+agreementID+"/accept", s.bearer(domain.NewPartyID()), nil)
		s.Equal(http.StatusUnprocessableEntity, rec.Code)
	})

	s.Run("the named tenant accepts", func() {
		rec := s.do(http.MethodPost, "/tenancies/"+agreementID+"/accept", s.bearer(s.tenantID), nil)
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

		var accepted map[string]any
		s.decode(rec, &accepted)
		s.Equal("active", accepted["status"])
	})

	s.Run("get returns the agreement", func() {
		rec := s.do(http.MethodGet, "/tenancies/"+agreementID, s.bearer(s.landlordID), nil)
		s.Require().Equal(http.StatusOK, rec.Code)
	})

	s.Run("terminate releases the unit", func() {
		rec := s.do(http.MethodPost, "/tenancies/"+agreementID+"/terminate", s.bearer(s.landlordID), nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		unitRec := s.do(http.MethodGet, "/units/"+unitID, s.bearer(s.landlordID), nil)
		s.Require().Equal(http.StatusOK, unitRec.Code)
		var unit struct {
			Status string `json:"status"`
		}
		s.decode(unitRec, &unit)
		s.Equal("vacant", unit.Status)
	})
}

func (s *RouterSuite) TestProposeValidation() {
	rec := s.do(http.MethodPost, "/tenancies", s.bearer(s.landlordID), map[string]any{
		"tenant_id":             "not-a-uuid",
		"unit_id":               domain.NewUnitID().String(),
		"lease_duration_months": 12,
		"start_date":            "2026-03-01",
	})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/tenancies", s.bearer(s.landlordID), "not json")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RouterSuite) TestPaymentFlow() {
	unitID := s.registerUnit()
	agreement := s.propose(unitID)
	agreementID := agreement["id"].(string)

	rec := s.do(http.MethodPost, "/tenancies/"+agreementID+"/accept", s.bearer(s.tenantID), nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/tenancies/"+agreementID+"/obligations", s.bearer(s.landlordID), nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var obligations []struct {
		ID         string `json:"id"`
		MonthLabel string `json:"month_label"`
		Status     string `json:"status"`
	}
	s.decode(rec, &obligations)
	s.Require().Len(obligations, 12)
	s.Equal("March 2026", obligations[0].MonthLabel)
	first := obligations[0].ID

	s.Run("tenant-paid webhook needs no token", func() {
		rec := s.do(http.MethodPost, "/obligations/"+first+"/tenant-paid", "", nil)
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

		var o struct {
			TenantMarkedPaid bool   `json:"tenant_marked_paid"`
			Status           string `json:"status"`
		}
		s.decode(rec, &o)
		s.True(o.TenantMarkedPaid)
		s.Equal("pending", o.Status)
	})

	s.Run("only the landlord confirms", func() {
		rec := s.do(http.MethodPost, "/obligations/"+first+"/confirm", s.bearer(s.tenantID), nil)
		s.Equal(http.StatusUnprocessableEntity, rec.Code)

		rec = s.do(http.MethodPost, "/obligations/"+first+"/confirm", s.bearer(s.landlordID), nil)
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

		var o struct {
			LandlordConfirmed bool   `json:"landlord_confirmed"`
			Status            string `json:"status"`
		}
		s.decode(rec, &o)
		s.True(o.LandlordConfirmed)
		s.Equal("confirmed", o.Status)
	})

	s.Run("summary reflects the confirmation", func() {
		rec := s.do(http.MethodGet, "/tenancies/"+agreementID+"/summary", s.bearer(s.landlordID), nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		var summary struct {
			TotalObligations int     `json:"total_obligations"`
			PaidObligations  int     `json:"paid_obligations"`
			ValidityPercent  float64 `json:"validity_percent"`
		}
		s.decode(rec, &summary)
		s.Equal(12, summary.TotalObligations)
		s.Equal(1, summary.PaidObligations)
		s.InDelta(100.0/12, summary.ValidityPercent, 0.0001)
	})
}

func (s *RouterSuite) TestUnknownResources() {
	rec := s.do(http.MethodGet, "/tenancies/"+domain.NewAgreementID().String(), s.bearer(s.landlordID), nil)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/obligations/"+domain.NewObligationID().String()+"/tenant-paid", "", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}
