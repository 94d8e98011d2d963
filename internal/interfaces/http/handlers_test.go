package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/crm-inmobiliario/internal/application/contract"
	"github.com/jhoicas/crm-inmobiliario/internal/application/ledger"
	"github.com/jhoicas/crm-inmobiliario/internal/application/reservation"
	"github.com/jhoicas/crm-inmobiliario/internal/domain"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	apphttp "github.com/jhoicas/crm-inmobiliario/internal/interfaces/http"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockReservations struct{ mock.Mock }

func (m *mockReservations) CreateReservation(ctx context.Context, actor domain.Actor, in reservation.CreateInput) (*entity.Reservation, error) {
	args := m.Called(ctx, actor, in)
	res, _ := args.Get(0).(*entity.Reservation)
	return res, args.Error(1)
}

func (m *mockReservations) CancelReservation(ctx context.Context, actor domain.Actor, id, reason string) (*entity.Reservation, error) {
	args := m.Called(ctx, actor, id, reason)
	res, _ := args.Get(0).(*entity.Reservation)
	return res, args.Error(1)
}

func (m *mockReservations) ExpireReservation(ctx context.Context, actor domain.Actor, id string) (*entity.Reservation, error) {
	args := m.Called(ctx, actor, id)
	res, _ := args.Get(0).(*entity.Reservation)
	return res, args.Error(1)
}

type mockContracts struct{ mock.Mock }

func (m *mockContracts) ConvertReservation(ctx context.Context, actor domain.Actor, id string, terms contract.Terms) (*entity.Contract, error) {
	args := m.Called(ctx, actor, id, terms)
	c, _ := args.Get(0).(*entity.Contract)
	return c, args.Error(1)
}

func (m *mockContracts) UpdateStatus(ctx context.Context, actor domain.Actor, id string, to entity.ContractStatus, extra contract.StatusExtra) (*entity.Contract, error) {
	args := m.Called(ctx, actor, id, to, extra)
	c, _ := args.Get(0).(*entity.Contract)
	return c, args.Error(1)
}

func (m *mockContracts) RegisterRescission(ctx context.Context, actor domain.Actor, id, reason string) (*entity.Contract, error) {
	args := m.Called(ctx, actor, id, reason)
	c, _ := args.Get(0).(*entity.Contract)
	return c, args.Error(1)
}

func (m *mockContracts) GetContract(ctx context.Context, actor domain.Actor, id string) (*entity.Contract, []*entity.Installment, error) {
	args := m.Called(ctx, actor, id)
	c, _ := args.Get(0).(*entity.Contract)
	list, _ := args.Get(1).([]*entity.Installment)
	return c, list, args.Error(2)
}

type mockLedger struct{ mock.Mock }

func (m *mockLedger) GeneratePaymentPlan(ctx context.Context, actor domain.Actor, id string) ([]*entity.Installment, error) {
	args := m.Called(ctx, actor, id)
	list, _ := args.Get(0).([]*entity.Installment)
	return list, args.Error(1)
}

func (m *mockLedger) RecordPayment(ctx context.Context, actor domain.Actor, in ledger.RecordPaymentInput) (*entity.Payment, *entity.Installment, error) {
	args := m.Called(ctx, actor, in)
	p, _ := args.Get(0).(*entity.Payment)
	inst, _ := args.Get(1).(*entity.Installment)
	return p, inst, args.Error(2)
}

func (m *mockLedger) ApplyIndexation(ctx context.Context, actor domain.Actor, id string) (*ledger.IndexationResult, error) {
	args := m.Called(ctx, actor, id)
	res, _ := args.Get(0).(*ledger.IndexationResult)
	return res, args.Error(1)
}

func (m *mockLedger) PersistIndexation(ctx context.Context, actor domain.Actor, id string) (*entity.Installment, *ledger.IndexationResult, error) {
	args := m.Called(ctx, actor, id)
	inst, _ := args.Get(0).(*entity.Installment)
	res, _ := args.Get(1).(*ledger.IndexationResult)
	return inst, res, args.Error(2)
}

type testAPI struct {
	app          *fiber.App
	reservations *mockReservations
	contracts    *mockContracts
	ledger       *mockLedger
}

func newTestAPI(t *testing.T, checks map[string]apphttp.Check) *testAPI {
	t.Helper()
	api := &testAPI{
		app:          fiber.New(),
		reservations: &mockReservations{},
		contracts:    &mockContracts{},
		ledger:       &mockLedger{},
	}
	apphttp.Router(api.app, apphttp.RouterDeps{
		Reservations: api.reservations,
		Converter:    api.contracts,
		Contracts:    api.contracts,
		Plan:         api.ledger,
		Ledger:       api.ledger,
		Health:       apphttp.NewHealthHandler("crm-test", checks),
		JWTSecret:    testJWTSecret,
	})
	t.Cleanup(func() {
		api.reservations.AssertExpectations(t)
		api.contracts.AssertExpectations(t)
		api.ledger.AssertExpectations(t)
	})
	return api
}

func (a *testAPI) do(t *testing.T, method, path, body, auth string) (*http.Response, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

var testActor = domain.Actor{UserID: testUserID, CompanyID: testCompanyID}

func sampleReservation() *entity.Reservation {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return &entity.Reservation{
		ID: "res-1", LeadID: "lead-1", CompanyID: testCompanyID,
		Item:       entity.ItemRef{Kind: entity.ItemKindUnit, ID: "unit-1"},
		ReservedAt: now, ExpiresAt: now.Add(48 * time.Hour),
		ListPriceAtReservation: decimal.NewFromInt(500000),
		Status:                 entity.ReservationActive,
	}
}

func TestCreateReservation_Created(t *testing.T) {
	api := newTestAPI(t, nil)
	api.reservations.On("CreateReservation", mock.Anything, testActor, mock.MatchedBy(func(in reservation.CreateInput) bool {
		return in.LeadID == "lead-1" &&
			in.Item == entity.ItemRef{Kind: entity.ItemKindUnit, ID: "unit-1"} &&
			in.ExpiresAt.Equal(time.Date(2024, 3, 3, 10, 0, 0, 0, time.UTC)) &&
			in.SignalAmount != nil && in.SignalAmount.Equal(decimal.NewFromInt(5000))
	})).Return(sampleReservation(), nil)

	resp, body := api.do(t, http.MethodPost, "/api/reservations",
		`{"lead_id":"lead-1","item_kind":"unit","item_id":"unit-1","expires_at":"2024-03-03T10:00:00Z","signal_amount":5000}`,
		tokenForRole(t, "corredor"))

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "res-1", body["id"])
	assert.Equal(t, "ACTIVE", body["status"])
	assert.Equal(t, "UNIT", body["item_kind"])
}

func TestCreateReservation_SinToken(t *testing.T) {
	api := newTestAPI(t, nil)
	resp, _ := api.do(t, http.MethodPost, "/api/reservations", `{}`, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateReservation_CuerpoInvalido(t *testing.T) {
	api := newTestAPI(t, nil)
	resp, body := api.do(t, http.MethodPost, "/api/reservations", `{"lead_id":`, tokenForRole(t, "corredor"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_BODY", body["code"])
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validación", domain.Validation("lead requerido"), http.StatusBadRequest, "VALIDATION"},
		{"no encontrado", domain.NotFound("lead"), http.StatusNotFound, "NOT_FOUND"},
		{"conflicto", domain.Conflict(nil, "el ítem ya no está disponible"), http.StatusConflict, "CONFLICT"},
		{"estado inválido", domain.InvalidState("la reserva aún no venció"), http.StatusUnprocessableEntity, "INVALID_STATE"},
		{"transición", &domain.TransitionError{Entity: "reserva", From: "CANCELLED", To: "CANCELLED"}, http.StatusUnprocessableEntity, "INVALID_TRANSITION"},
		{"persistencia", domain.Persistence("guardar reserva", errors.New("pq: connection reset")), http.StatusServiceUnavailable, "PERSISTENCE"},
		{"no autorizado", &domain.Error{Kind: domain.ErrUnauthorized, Message: "empresa no resuelta"}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"desconocido", errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := newTestAPI(t, nil)
			api.reservations.On("ExpireReservation", mock.Anything, testActor, "res-1").Return(nil, tc.err)

			resp, body := api.do(t, http.MethodPost, "/api/reservations/res-1/expire", "", tokenForRole(t, "corredor"))
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.code, body["code"])
			assert.NotContains(t, body["message"], "connection reset")
		})
	}
}

func TestCancelReservation_MotivoOpcional(t *testing.T) {
	api := newTestAPI(t, nil)
	cancelled := sampleReservation()
	cancelled.Status = entity.ReservationCancelled
	api.reservations.On("CancelReservation", mock.Anything, testActor, "res-1", "cliente desistió").Return(cancelled, nil).Once()
	api.reservations.On("CancelReservation", mock.Anything, testActor, "res-2", "").Return(cancelled, nil).Once()

	resp, body := api.do(t, http.MethodPost, "/api/reservations/res-1/cancel", `{"reason":" cliente desistió "}`, tokenForRole(t, "corredor"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "CANCELLED", body["status"])

	resp, _ = api.do(t, http.MethodPost, "/api/reservations/res-2/cancel", "", tokenForRole(t, "corredor"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestConvertReservation_MapeaCondiciones(t *testing.T) {
	api := newTestAPI(t, nil)
	ct := &entity.Contract{
		ID: "ct-1", ReservationID: "res-1", Status: entity.ContractDrafting,
		ProposedPrice: decimal.NewFromInt(450000), Discount: decimal.NewFromInt(50000),
		Snapshot: entity.ContractSnapshot{ItemLabel: "Residencial Sol - A 101"},
	}
	api.contracts.On("ConvertReservation", mock.Anything, testActor, "res-1", mock.MatchedBy(func(terms contract.Terms) bool {
		return terms.ProposedPrice.Equal(decimal.NewFromInt(450000)) &&
			terms.ResponsibleUserID == "user-1" &&
			len(terms.PaymentPlanTerms) == 1 &&
			terms.PaymentPlanTerms[0].Quantity == 12 &&
			terms.PaymentPlanTerms[0].FirstDueDate.Equal(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)) &&
			len(terms.IndexationRules) == 1 &&
			terms.IndexationRules[0].EndsOn == nil &&
			terms.IndexationRules[0].LagMonths == 2
	})).Return(ct, nil)

	body := `{
		"proposed_price": "450000",
		"responsible_user_id": "user-1",
		"payment_plan_terms": [{"kind": "MENSAL", "quantity": 12, "unit_amount": "30000", "first_due_date": "2025-01-10"}],
		"indexation_rules": [{"kind": "MENSAL", "index": "INCC", "base_date": "2024-11-01", "starts_on": "2025-01-01", "lag_months": 2}]
	}`
	resp, out := api.do(t, http.MethodPost, "/api/reservations/res-1/convert", body, tokenForRole(t, "corredor"))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "DRAFTING", out["status"])
	assert.Equal(t, "50000", out["discount"])
	snapshot, _ := out["snapshot"].(map[string]any)
	assert.Equal(t, "Residencial Sol - A 101", snapshot["item_label"])
}

func TestConvertReservation_FechaInvalida(t *testing.T) {
	api := newTestAPI(t, nil)
	body := `{"proposed_price": "1", "payment_plan_terms": [{"first_due_date": "10/01/2025"}]}`
	resp, out := api.do(t, http.MethodPost, "/api/reservations/res-1/convert", body, tokenForRole(t, "corredor"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_BODY", out["code"])
}

func TestUpdateContractStatus_NormalizaEstado(t *testing.T) {
	api := newTestAPI(t, nil)
	signedAt := time.Date(2024, 4, 1, 15, 0, 0, 0, time.UTC)
	api.contracts.On("UpdateStatus", mock.Anything, testActor, "ct-1", entity.ContractSigned, mock.MatchedBy(func(extra contract.StatusExtra) bool {
		return extra.SignedAt != nil && extra.SignedAt.Equal(signedAt)
	})).Return(&entity.Contract{ID: "ct-1", Status: entity.ContractSigned, SignedAt: &signedAt}, nil)

	resp, out := api.do(t, http.MethodPatch, "/api/contracts/ct-1/status",
		`{"status":"signed","signed_at":"2024-04-01T15:00:00Z"}`, tokenForRole(t, "corredor"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "SIGNED", out["status"])
}

func TestRescission_SoloGerencia(t *testing.T) {
	api := newTestAPI(t, nil)
	resp, out := api.do(t, http.MethodPost, "/api/contracts/ct-1/rescission", `{"reason":"financiación denegada"}`, tokenForRole(t, "corredor"))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", out["code"])

	api.contracts.On("RegisterRescission", mock.Anything, testActor, "ct-1", "financiación denegada").
		Return(&entity.Contract{ID: "ct-1", Status: entity.ContractRescinded, RescissionReason: "financiación denegada"}, nil)
	resp, out = api.do(t, http.MethodPost, "/api/contracts/ct-1/rescission", `{"reason":"financiación denegada"}`, tokenForRole(t, "gerente"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "RESCINDED", out["status"])
}

func TestGetContract_IncluyeCuotas(t *testing.T) {
	api := newTestAPI(t, nil)
	due := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	api.contracts.On("GetContract", mock.Anything, testActor, "ct-1").Return(
		&entity.Contract{ID: "ct-1", Status: entity.ContractSold},
		[]*entity.Installment{{ID: "inst-1", ContractID: "ct-1", SequenceNumber: 1, Kind: "MENSAL", DueDate: due, Status: entity.InstallmentPending}},
		nil,
	)
	resp, out := api.do(t, http.MethodGet, "/api/contracts/ct-1", "", tokenForRole(t, "corredor"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	list, _ := out["installments"].([]any)
	require.Len(t, list, 1)
	first, _ := list[0].(map[string]any)
	assert.Equal(t, "2025-01-10", first["due_date"])
	assert.Equal(t, "PENDING", first["status"])
}

func TestGeneratePlan_Created(t *testing.T) {
	api := newTestAPI(t, nil)
	api.ledger.On("GeneratePaymentPlan", mock.Anything, testActor, "ct-1").Return([]*entity.Installment{
		{ID: "i1", SequenceNumber: 1}, {ID: "i2", SequenceNumber: 2},
	}, nil)
	resp, out := api.do(t, http.MethodPost, "/api/contracts/ct-1/payment-plan", "", tokenForRole(t, "corredor"))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "ct-1", out["contract_id"])
	assert.Len(t, out["installments"], 2)
}

func TestRecordPayment_ParseaFecha(t *testing.T) {
	api := newTestAPI(t, nil)
	paidOn := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	api.ledger.On("RecordPayment", mock.Anything, testActor, mock.MatchedBy(func(in ledger.RecordPaymentInput) bool {
		return in.InstallmentID == "inst-1" && in.Amount.Equal(decimal.NewFromInt(45000)) &&
			in.Method == "PIX" && in.PaidOn.Equal(paidOn)
	})).Return(
		&entity.Payment{ID: "pay-1", Amount: decimal.NewFromInt(45000), Method: "PIX", PaidOn: paidOn},
		&entity.Installment{ID: "inst-1", AmountDue: decimal.NewFromInt(45000), AmountPaid: decimal.NewFromInt(45000), DueDate: paidOn, PaidAt: &paidOn, Status: entity.InstallmentPaid},
		nil,
	)
	resp, out := api.do(t, http.MethodPost, "/api/installments/inst-1/payments",
		`{"amount":"45000","method":"PIX","paid_on":"2025-01-10"}`, tokenForRole(t, "corredor"))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	inst, _ := out["installment"].(map[string]any)
	assert.Equal(t, "PAID", inst["status"])
	assert.Equal(t, "2025-01-10", inst["paid_at"])
}

func TestIndexation_PreviewYPersistencia(t *testing.T) {
	api := newTestAPI(t, nil)
	res := &ledger.IndexationResult{
		InstallmentID:  "inst-1",
		OriginalAmount: decimal.NewFromInt(45000),
		AdjustedAmount: decimal.RequireFromString("45677.25"),
		Factor:         decimal.RequireFromString("1.01505"),
		Applied:        true,
		Index:          "INCC",
	}
	api.ledger.On("ApplyIndexation", mock.Anything, testActor, "inst-1").Return(res, nil)
	api.ledger.On("PersistIndexation", mock.Anything, testActor, "inst-1").Return(
		&entity.Installment{ID: "inst-1", AmountDue: res.AdjustedAmount, Status: entity.InstallmentPending}, res, nil,
	)

	resp, out := api.do(t, http.MethodGet, "/api/installments/inst-1/indexation", "", tokenForRole(t, "corredor"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "45677.25", out["adjusted_amount"])
	assert.Equal(t, true, out["applied"])

	resp, out = api.do(t, http.MethodPost, "/api/installments/inst-1/indexation", "", tokenForRole(t, "corredor"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	inst, _ := out["installment"].(map[string]any)
	assert.Equal(t, "45677.25", inst["amount_due"])
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, map[string]apphttp.Check{
		"postgres": func(context.Context) error { return nil },
	})
	resp, out := api.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", out["status"])

	down := newTestAPI(t, map[string]apphttp.Check{
		"redis": func(context.Context) error { return errors.New("dial tcp: refused") },
	})
	resp, out = down.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "degraded", out["status"])
}
