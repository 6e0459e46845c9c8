package receiving_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"mouralws/internal/api/receiving"
	"mouralws/internal/domain"
	apperror "mouralws/internal/errors"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/pkg/middleware"
	"mouralws/internal/pkg/pagination"
)

type MockReceivingService struct {
	mock.Mock
}

func (m *MockReceivingService) Create(ctx context.Context, actor domain.Actor, req domain.CreateReceivingRequest) (domain.Receiving, error) {
	args := m.Called(ctx, actor, req)
	return args.Get(0).(domain.Receiving), args.Error(1)
}

func (m *MockReceivingService) RegisterRead(ctx context.Context, actor domain.Actor, receivingID, code string) (domain.ReceivingReadResult, error) {
	args := m.Called(ctx, actor, receivingID, code)
	return args.Get(0).(domain.ReceivingReadResult), args.Error(1)
}

func (m *MockReceivingService) Approve(ctx context.Context, actor domain.Actor, id string, req domain.ApproveReceivingRequest) (domain.Receiving, error) {
	args := m.Called(ctx, actor, id, req)
	return args.Get(0).(domain.Receiving), args.Error(1)
}

func (m *MockReceivingService) Reject(ctx context.Context, actor domain.Actor, id string, req domain.RejectReceivingRequest) (domain.Receiving, error) {
	args := m.Called(ctx, actor, id, req)
	return args.Get(0).(domain.Receiving), args.Error(1)
}

func (m *MockReceivingService) Get(ctx context.Context, actor domain.Actor, id string) (domain.Receiving, error) {
	args := m.Called(ctx, actor, id)
	return args.Get(0).(domain.Receiving), args.Error(1)
}

func (m *MockReceivingService) List(ctx context.Context, actor domain.Actor, filter domain.ReceivingFilter, page pagination.Page) (pagination.Result[domain.Receiving], error) {
	args := m.Called(ctx, actor, filter, page)
	return args.Get(0).(pagination.Result[domain.Receiving]), args.Error(1)
}

var admin = domain.Actor{UserID: "u-1", CompanyID: "co-1", Role: domain.RoleAdmin}

func request(method, target, body, id string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req.SetPathValue("id", id)
	return req.WithContext(middleware.WithActor(req.Context(), admin))
}

func newHandler() (*receiving.Handler, *MockReceivingService) {
	svc := new(MockReceivingService)
	return receiving.NewHandler(svc, logger.Nop(), pagination.Limits{Default: 20, Max: 100}), svc
}

func TestCreateHandler_Success(t *testing.T) {
	h, svc := newHandler()
	body := `{"warehouse_id":"6f1c2b1e-8a4e-4c55-9d2a-0f4b8c7e1a10","supplier":"Fornecedor X","invoice_number":"NF-123",` +
		`"items":[{"variant_id":"0b8d7a64-7c39-4a4f-8a25-3e7c1f2d9b01","quantity":10}]}`
	svc.On("Create", mock.Anything, admin, mock.MatchedBy(func(req domain.CreateReceivingRequest) bool {
		return req.InvoiceNumber == "NF-123" && len(req.Items) == 1 && req.Items[0].Quantity == 10
	})).Return(domain.Receiving{ID: "r-1", Status: domain.ReceivingOpen}, nil).Once()

	rec := httptest.NewRecorder()
	h.CreateHandler(rec, request(http.MethodPost, "/v1/receivings", body, ""))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ABERTO"`)
	svc.AssertExpectations(t)
}

func TestCreateHandler_NoItems(t *testing.T) {
	h, svc := newHandler()
	body := `{"warehouse_id":"6f1c2b1e-8a4e-4c55-9d2a-0f4b8c7e1a10","supplier":"X","invoice_number":"NF-1","items":[]}`

	rec := httptest.NewRecorder()
	h.CreateHandler(rec, request(http.MethodPost, "/v1/receivings", body, ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestReadHandler_LabelAlreadyUsed(t *testing.T) {
	h, svc := newHandler()
	svc.On("RegisterRead", mock.Anything, admin, "r-1", "LWS-ABC").
		Return(domain.ReceivingReadResult{}, apperror.NewConflictError("Etiqueta já utilizada.")).Once()

	rec := httptest.NewRecorder()
	h.ReadHandler(rec, request(http.MethodPost, "/v1/receivings/r-1/reads", `{"code":"LWS-ABC"}`, "r-1"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Etiqueta já utilizada.")
}

func TestApproveHandler(t *testing.T) {
	tests := []struct {
		name string
		body string
		want domain.ApproveReceivingRequest
	}{
		{name: "sem corpo", body: "", want: domain.ApproveReceivingRequest{}},
		{name: "aceitando divergência", body: `{"allow_divergence":true}`, want: domain.ApproveReceivingRequest{AllowDivergence: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, svc := newHandler()
			svc.On("Approve", mock.Anything, admin, "r-1", tt.want).
				Return(domain.Receiving{ID: "r-1", Status: domain.ReceivingApproved}, nil).Once()

			rec := httptest.NewRecorder()
			h.ApproveHandler(rec, request(http.MethodPost, "/v1/receivings/r-1/approve", tt.body, "r-1"))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), `"APROVADO"`)
			svc.AssertExpectations(t)
		})
	}
}

func TestRejectHandler_ReasonRequired(t *testing.T) {
	h, svc := newHandler()

	rec := httptest.NewRecorder()
	h.RejectHandler(rec, request(http.MethodPost, "/v1/receivings/r-1/reject", `{"reason":""}`, "r-1"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Reject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestListHandler_StatusFilter(t *testing.T) {
	h, svc := newHandler()
	svc.On("List", mock.Anything, admin, domain.ReceivingFilter{Status: domain.ReceivingRejected}, mock.Anything).
		Return(pagination.Result[domain.Receiving]{Items: []domain.Receiving{{ID: "r-9"}}}, nil).Once()

	rec := httptest.NewRecorder()
	h.ListHandler(rec, request(http.MethodGet, "/v1/receivings?status=REPROVADO", "", ""))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"r-9"`)
	svc.AssertExpectations(t)
}
