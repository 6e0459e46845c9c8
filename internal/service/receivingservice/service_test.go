package receivingservice_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mouralws/internal/domain"
	apperror "mouralws/internal/errors"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/pkg/pagination"
	"mouralws/internal/service/receivingservice"
)

type MockReceivingRepository struct {
	mock.Mock
}

func (m *MockReceivingRepository) Create(ctx context.Context, rec domain.Receiving, expected map[string]int) (domain.Receiving, error) {
	args := m.Called(ctx, rec, expected)
	return args.Get(0).(domain.Receiving), args.Error(1)
}

func (m *MockReceivingRepository) FindByID(ctx context.Context, companyID, id string) (domain.Receiving, error) {
	args := m.Called(ctx, companyID, id)
	return args.Get(0).(domain.Receiving), args.Error(1)
}

func (m *MockReceivingRepository) List(ctx context.Context, companyID string, filter domain.ReceivingFilter, page pagination.Page) ([]domain.Receiving, error) {
	args := m.Called(ctx, companyID, filter, page)
	return args.Get(0).([]domain.Receiving), args.Error(1)
}

func (m *MockReceivingRepository) RegisterLabelRead(ctx context.Context, companyID, receivingID, code string) (domain.Label, domain.ReceivingItem, error) {
	args := m.Called(ctx, companyID, receivingID, code)
	return args.Get(0).(domain.Label), args.Get(1).(domain.ReceivingItem), args.Error(2)
}

func (m *MockReceivingRepository) Approve(ctx context.Context, companyID, id string, allowDivergence bool) (domain.Receiving, error) {
	args := m.Called(ctx, companyID, id, allowDivergence)
	return args.Get(0).(domain.Receiving), args.Error(1)
}

func (m *MockReceivingRepository) Reject(ctx context.Context, companyID, id, reason string) (domain.Receiving, error) {
	args := m.Called(ctx, companyID, id, reason)
	return args.Get(0).(domain.Receiving), args.Error(1)
}

type MockWarehouseReader struct {
	mock.Mock
}

func (m *MockWarehouseReader) GetWarehouseByID(ctx context.Context, companyID, id string) (domain.Warehouse, error) {
	args := m.Called(ctx, companyID, id)
	return args.Get(0).(domain.Warehouse), args.Error(1)
}

type MockVariantReader struct {
	mock.Mock
}

func (m *MockVariantReader) FindVariant(ctx context.Context, companyID, variantID string) (domain.VariantSummary, error) {
	args := m.Called(ctx, companyID, variantID)
	return args.Get(0).(domain.VariantSummary), args.Error(1)
}

type MockLabelNotifier struct {
	mock.Mock
}

func (m *MockLabelNotifier) Consumed(ctx context.Context, code string) {
	m.Called(ctx, code)
}

type fixture struct {
	repo       *MockReceivingRepository
	warehouses *MockWarehouseReader
	variants   *MockVariantReader
	labels     *MockLabelNotifier
	svc        *receivingservice.Service
}

var (
	operator = domain.Actor{UserID: "op", CompanyID: "co-1", Role: domain.RoleOperator}
	admin    = domain.Actor{UserID: "adm", CompanyID: "co-1", Role: domain.RoleAdmin}
)

func newFixture() *fixture {
	f := &fixture{
		repo:       new(MockReceivingRepository),
		warehouses: new(MockWarehouseReader),
		variants:   new(MockVariantReader),
		labels:     new(MockLabelNotifier),
	}
	f.svc = receivingservice.NewService(f.repo, f.warehouses, f.variants, f.labels, logger.Nop())
	return f
}

func TestCreate_MergesDuplicateItems(t *testing.T) {
	f := newFixture()
	f.warehouses.On("GetWarehouseByID", mock.Anything, "co-1", "w-1").Return(domain.Warehouse{ID: "w-1"}, nil)
	f.variants.On("FindVariant", mock.Anything, "co-1", "v-1").Return(domain.VariantSummary{VariantID: "v-1"}, nil).Once()
	f.variants.On("FindVariant", mock.Anything, "co-1", "v-2").Return(domain.VariantSummary{VariantID: "v-2"}, nil).Once()
	f.repo.On("Create", mock.Anything, mock.AnythingOfType("domain.Receiving"), map[string]int{"v-1": 15, "v-2": 3}).
		Return(domain.Receiving{ID: "r-1", Status: domain.ReceivingOpen}, nil)

	rec, err := f.svc.Create(context.Background(), operator, domain.CreateReceivingRequest{
		WarehouseID: "w-1", Supplier: " Moura SA ", InvoiceNumber: "NF-123",
		Items: []domain.ExpectedItem{{VariantID: "v-1", Quantity: 10}, {VariantID: "v-2", Quantity: 3}, {VariantID: "v-1", Quantity: 5}},
	})

	require.NoError(t, err)
	assert.Equal(t, "r-1", rec.ID)
	sent := f.repo.Calls[0].Arguments.Get(1).(domain.Receiving)
	assert.Equal(t, "Moura SA", sent.Supplier)
	assert.Equal(t, "op", sent.CreatedBy)
	f.variants.AssertExpectations(t)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), operator, domain.CreateReceivingRequest{WarehouseID: "w-1", Supplier: "X", InvoiceNumber: "1"})
	assert.IsType(t, &apperror.ValidationError{}, err)

	_, err = f.svc.Create(context.Background(), operator, domain.CreateReceivingRequest{WarehouseID: "w-1", InvoiceNumber: "1",
		Items: []domain.ExpectedItem{{VariantID: "v", Quantity: 1}}})
	assert.IsType(t, &apperror.ValidationError{}, err)
}

func TestRegisterRead(t *testing.T) {
	f := newFixture()
	id := uuid.New().String()
	code := "LWS-" + uuid.New().String()
	f.repo.On("RegisterLabelRead", mock.Anything, "co-1", id, code).
		Return(domain.Label{Code: code, VariantID: "v-9", Status: domain.LabelUsed}, domain.ReceivingItem{Expected: 0, Received: 1}, nil)
	f.labels.On("Consumed", mock.Anything, code).Return()
	f.variants.On("FindVariant", mock.Anything, "co-1", "v-9").Return(domain.VariantSummary{VariantID: "v-9", ProductName: "Bateria 75Ah"}, nil)

	res, err := f.svc.RegisterRead(context.Background(), operator, id, code)

	require.NoError(t, err)
	assert.True(t, res.Item.Divergent())
	assert.Equal(t, "Bateria 75Ah", res.Item.Variant.ProductName)
	assert.Equal(t, domain.LabelUsed, res.Label.Label.Status)
	f.labels.AssertExpectations(t)
}

func TestRegisterRead_UsedLabelDoesNotInvalidate(t *testing.T) {
	f := newFixture()
	id := uuid.New().String()
	code := "LWS-" + uuid.New().String()
	f.repo.On("RegisterLabelRead", mock.Anything, "co-1", id, code).
		Return(domain.Label{}, domain.ReceivingItem{}, apperror.NewConflictError("Etiqueta já utilizada."))

	_, err := f.svc.RegisterRead(context.Background(), operator, id, code)

	assert.True(t, apperror.IsConflict(err))
	f.labels.AssertNotCalled(t, "Consumed", mock.Anything, mock.Anything)
}

func TestRegisterRead_RejectsBarcode(t *testing.T) {
	f := newFixture()
	_, err := f.svc.RegisterRead(context.Background(), operator, uuid.New().String(), "7891234567895")
	assert.IsType(t, &apperror.ValidationError{}, err)
}

const recID = "5b0e4f7a-2c1d-4e8b-9a6f-3d2c1b0a9e8f"

func TestApproveAndReject(t *testing.T) {
	f := newFixture()
	f.repo.On("Approve", mock.Anything, "co-1", recID, false).Return(domain.Receiving{}, apperror.NewConflictError("divergências"))
	f.repo.On("Reject", mock.Anything, "co-1", recID, "Avaria no transporte").Return(domain.Receiving{ID: recID, Status: domain.ReceivingRejected}, nil)

	_, err := f.svc.Approve(context.Background(), operator, recID, domain.ApproveReceivingRequest{})
	assert.IsType(t, &apperror.ForbiddenError{}, err)

	_, err = f.svc.Approve(context.Background(), admin, recID, domain.ApproveReceivingRequest{})
	assert.True(t, apperror.IsConflict(err))

	_, err = f.svc.Reject(context.Background(), admin, recID, domain.RejectReceivingRequest{Reason: "   "})
	assert.IsType(t, &apperror.ValidationError{}, err)

	rec, err := f.svc.Reject(context.Background(), admin, recID, domain.RejectReceivingRequest{Reason: " Avaria no transporte "})
	require.NoError(t, err)
	assert.Equal(t, domain.ReceivingRejected, rec.Status)
}

func TestApproveAndReject_MalformedID(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Approve(context.Background(), admin, "r-1", domain.ApproveReceivingRequest{})
	assert.IsType(t, &apperror.ValidationError{}, err)

	_, err = f.svc.Reject(context.Background(), admin, "r-1", domain.RejectReceivingRequest{Reason: "Avaria"})
	assert.IsType(t, &apperror.ValidationError{}, err)

	f.repo.AssertNotCalled(t, "Approve", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "Reject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
