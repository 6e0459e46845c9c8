package warehouseservice_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"mouralws/internal/domain"
	apperror "mouralws/internal/errors"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/service/warehouseservice"
)

// MockWarehouseRepository é uma implementação mock da interface WarehouseRepository
type MockWarehouseRepository struct {
	mock.Mock
}

func (m *MockWarehouseRepository) CreateWarehouse(ctx context.Context, warehouse domain.Warehouse) (domain.Warehouse, error) {
	args := m.Called(ctx, warehouse)
	return args.Get(0).(domain.Warehouse), args.Error(1)
}

func (m *MockWarehouseRepository) GetWarehouseByID(ctx context.Context, companyID, id string) (domain.Warehouse, error) {
	args := m.Called(ctx, companyID, id)
	return args.Get(0).(domain.Warehouse), args.Error(1)
}

func (m *MockWarehouseRepository) GetAllWarehouses(ctx context.Context, companyID string) ([]domain.Warehouse, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).([]domain.Warehouse), args.Error(1)
}

func (m *MockWarehouseRepository) CountByCompany(ctx context.Context, companyID string) (int, error) {
	args := m.Called(ctx, companyID)
	return args.Int(0), args.Error(1)
}

func (m *MockWarehouseRepository) UpdateWarehouse(ctx context.Context, warehouse domain.Warehouse) (domain.Warehouse, error) {
	args := m.Called(ctx, warehouse)
	return args.Get(0).(domain.Warehouse), args.Error(1)
}

func (m *MockWarehouseRepository) DeleteWarehouse(ctx context.Context, companyID, id string) error {
	args := m.Called(ctx, companyID, id)
	return args.Error(0)
}

type MockCompanyReader struct {
	mock.Mock
}

func (m *MockCompanyReader) FindByID(ctx context.Context, id string) (domain.Company, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Company), args.Error(1)
}

var actor = domain.Actor{UserID: "u-1", CompanyID: "co-1", Role: domain.RoleAdmin}

func TestCreateWarehouse_Success(t *testing.T) {
	mockRepo := new(MockWarehouseRepository)
	companies := new(MockCompanyReader)
	svc := warehouseservice.NewService(mockRepo, companies, logger.Nop())

	companies.On("FindByID", mock.Anything, "co-1").Return(domain.Company{ID: "co-1", Plan: domain.PlanPro}, nil)
	mockRepo.On("CountByCompany", mock.Anything, "co-1").Return(4, nil)
	mockRepo.On("CreateWarehouse", mock.Anything, domain.Warehouse{CompanyID: "co-1", Name: "CD Recife"}).
		Return(domain.Warehouse{ID: uuid.NewString(), CompanyID: "co-1", Name: "CD Recife", CreatedAt: time.Now()}, nil)

	w, err := svc.CreateWarehouse(context.Background(), actor, domain.Warehouse{Name: "  CD Recife ", CompanyID: "outra"})

	assert.NoError(t, err)
	assert.Equal(t, "co-1", w.CompanyID)
	mockRepo.AssertExpectations(t)
	companies.AssertExpectations(t)
}

func TestCreateWarehouse_PlanLimitReached(t *testing.T) {
	mockRepo := new(MockWarehouseRepository)
	companies := new(MockCompanyReader)
	svc := warehouseservice.NewService(mockRepo, companies, logger.Nop())

	companies.On("FindByID", mock.Anything, "co-1").Return(domain.Company{ID: "co-1", Plan: domain.PlanBasic}, nil)
	mockRepo.On("CountByCompany", mock.Anything, "co-1").Return(1, nil)

	_, err := svc.CreateWarehouse(context.Background(), actor, domain.Warehouse{Name: "CD Natal"})

	assert.True(t, apperror.IsConflict(err))
	mockRepo.AssertNotCalled(t, "CreateWarehouse", mock.Anything, mock.Anything)
}

func TestCreateWarehouse_EnterpriseIsUnlimited(t *testing.T) {
	mockRepo := new(MockWarehouseRepository)
	companies := new(MockCompanyReader)
	svc := warehouseservice.NewService(mockRepo, companies, logger.Nop())

	companies.On("FindByID", mock.Anything, "co-1").Return(domain.Company{ID: "co-1", Plan: domain.PlanEnterprise}, nil)
	mockRepo.On("CountByCompany", mock.Anything, "co-1").Return(500, nil)
	mockRepo.On("CreateWarehouse", mock.Anything, mock.AnythingOfType("domain.Warehouse")).Return(domain.Warehouse{ID: "w"}, nil)

	_, err := svc.CreateWarehouse(context.Background(), actor, domain.Warehouse{Name: "CD 501"})
	assert.NoError(t, err)
}

func TestCreateWarehouse_InvalidName(t *testing.T) {
	svc := warehouseservice.NewService(new(MockWarehouseRepository), new(MockCompanyReader), logger.Nop())

	_, err := svc.CreateWarehouse(context.Background(), actor, domain.Warehouse{Name: "  "})
	assert.IsType(t, &apperror.ValidationError{}, err)

	_, err = svc.CreateWarehouse(context.Background(), actor, domain.Warehouse{Name: "AB"})
	assert.IsType(t, &apperror.ValidationError{}, err)
}

func TestGetWarehouseByID(t *testing.T) {
	mockRepo := new(MockWarehouseRepository)
	svc := warehouseservice.NewService(mockRepo, new(MockCompanyReader), logger.Nop())

	_, err := svc.GetWarehouseByID(context.Background(), actor, "nao-uuid")
	assert.IsType(t, &apperror.ValidationError{}, err)

	id := uuid.NewString()
	mockRepo.On("GetWarehouseByID", mock.Anything, "co-1", id).Return(domain.Warehouse{}, apperror.NewNotFoundError("x"))
	_, err = svc.GetWarehouseByID(context.Background(), actor, id)
	assert.True(t, apperror.IsNotFound(err))
}

func TestUpdateAndDeleteWarehouse_ScopedToCompany(t *testing.T) {
	mockRepo := new(MockWarehouseRepository)
	svc := warehouseservice.NewService(mockRepo, new(MockCompanyReader), logger.Nop())
	id := uuid.NewString()

	mockRepo.On("UpdateWarehouse", mock.Anything, domain.Warehouse{ID: id, CompanyID: "co-1", Name: "CD Sul"}).
		Return(domain.Warehouse{ID: id, CompanyID: "co-1", Name: "CD Sul"}, nil)
	mockRepo.On("DeleteWarehouse", mock.Anything, "co-1", id).Return(nil)

	w, err := svc.UpdateWarehouse(context.Background(), actor, domain.Warehouse{ID: id, Name: "CD Sul"})
	assert.NoError(t, err)
	assert.Equal(t, "CD Sul", w.Name)
	assert.NoError(t, svc.DeleteWarehouse(context.Background(), actor, id))
	mockRepo.AssertExpectations(t)
}
