package companyservice_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mouralws/internal/domain"
	apperror "mouralws/internal/errors"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/pkg/pagination"
	"mouralws/internal/service/companyservice"
)

type MockCompanyRepository struct {
	mock.Mock
}

func (m *MockCompanyRepository) Create(ctx context.Context, company domain.Company, admin domain.User) (domain.Company, domain.User, error) {
	args := m.Called(ctx, company, admin)
	return args.Get(0).(domain.Company), args.Get(1).(domain.User), args.Error(2)
}

func (m *MockCompanyRepository) FindByID(ctx context.Context, id string) (domain.Company, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Company), args.Error(1)
}

func (m *MockCompanyRepository) List(ctx context.Context, page pagination.Page) ([]domain.Company, error) {
	args := m.Called(ctx, page)
	return args.Get(0).([]domain.Company), args.Error(1)
}

func (m *MockCompanyRepository) Usage(ctx context.Context, id string) (domain.CompanyUsage, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.CompanyUsage), args.Error(1)
}

func (m *MockCompanyRepository) UpdatePlan(ctx context.Context, id string, plan domain.Plan) (domain.Company, error) {
	args := m.Called(ctx, id, plan)
	return args.Get(0).(domain.Company), args.Error(1)
}

func (m *MockCompanyRepository) SetActive(ctx context.Context, id string, active bool) (domain.Company, error) {
	args := m.Called(ctx, id, active)
	return args.Get(0).(domain.Company), args.Error(1)
}

var root = domain.Actor{UserID: "root", Role: domain.RoleSuperAdmin}

func TestCreate(t *testing.T) {
	repo := new(MockCompanyRepository)
	svc := companyservice.NewService(repo, logger.Nop())

	repo.On("Create", mock.Anything, mock.AnythingOfType("domain.Company"), mock.AnythingOfType("domain.User")).
		Run(func(args mock.Arguments) {
			c := args.Get(1).(domain.Company)
			u := args.Get(2).(domain.User)
			assert.Equal(t, c.ID, u.CompanyID)
			assert.Equal(t, domain.RoleAdmin, u.Role)
			assert.True(t, c.Active)
		}).
		Return(domain.Company{ID: "co-1", Plan: domain.PlanPro}, domain.User{ID: "u-1"}, nil)

	company, adminUser, err := svc.Create(context.Background(), root, domain.CreateCompanyRequest{
		Name: "Distribuidora Norte", CNPJ: "12345678000199", Plan: domain.PlanPro,
		Admin: domain.UserRegistration{Name: "Gestor", Email: "gestor@norte.com", Password: "senha-segura"},
	})

	require.NoError(t, err)
	assert.Equal(t, "co-1", company.ID)
	assert.Equal(t, "u-1", adminUser.ID)
	repo.AssertExpectations(t)
}

func TestCreate_RequiresSuperAdmin(t *testing.T) {
	svc := companyservice.NewService(new(MockCompanyRepository), logger.Nop())
	_, _, err := svc.Create(context.Background(), domain.Actor{Role: domain.RoleAdmin}, domain.CreateCompanyRequest{Plan: domain.PlanPro})
	assert.IsType(t, &apperror.ForbiddenError{}, err)
}

const companyID = "0f9e8d7c-6b5a-4c3d-8e2f-1a0b9c8d7e6f"

func TestChangePlan(t *testing.T) {
	t.Run("downgrade com uso excedente", func(t *testing.T) {
		repo := new(MockCompanyRepository)
		svc := companyservice.NewService(repo, logger.Nop())
		repo.On("Usage", mock.Anything, companyID).Return(domain.CompanyUsage{Users: 4, Warehouses: 1}, nil)

		_, err := svc.ChangePlan(context.Background(), root, companyID, domain.PlanBasic)

		assert.True(t, apperror.IsConflict(err))
		repo.AssertNotCalled(t, "UpdatePlan", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("downgrade no limite exato", func(t *testing.T) {
		repo := new(MockCompanyRepository)
		svc := companyservice.NewService(repo, logger.Nop())
		repo.On("Usage", mock.Anything, companyID).Return(domain.CompanyUsage{Users: 3, Warehouses: 1}, nil)
		repo.On("UpdatePlan", mock.Anything, companyID, domain.PlanBasic).Return(domain.Company{ID: companyID, Plan: domain.PlanBasic}, nil)

		c, err := svc.ChangePlan(context.Background(), root, companyID, domain.PlanBasic)

		require.NoError(t, err)
		assert.Equal(t, domain.PlanBasic, c.Plan)
	})

	t.Run("plano desconhecido", func(t *testing.T) {
		svc := companyservice.NewService(new(MockCompanyRepository), logger.Nop())
		_, err := svc.ChangePlan(context.Background(), root, companyID, domain.Plan("GOLD"))
		assert.IsType(t, &apperror.ValidationError{}, err)
	})
}

func TestSetActiveAndList(t *testing.T) {
	repo := new(MockCompanyRepository)
	svc := companyservice.NewService(repo, logger.Nop())
	repo.On("SetActive", mock.Anything, companyID, false).Return(domain.Company{ID: companyID}, nil)
	repo.On("List", mock.Anything, pagination.Page{Limit: 5}).Return([]domain.Company{{ID: companyID}}, nil)

	c, err := svc.SetActive(context.Background(), root, companyID, false)
	require.NoError(t, err)
	assert.False(t, c.Active)

	res, err := svc.List(context.Background(), root, pagination.Page{Limit: 5})
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
	assert.Empty(t, res.NextCursor)
}

func TestMalformedCompanyID(t *testing.T) {
	repo := new(MockCompanyRepository)
	svc := companyservice.NewService(repo, logger.Nop())

	_, err := svc.Get(context.Background(), root, "co-1")
	assert.IsType(t, &apperror.ValidationError{}, err)

	_, err = svc.ChangePlan(context.Background(), root, "co-1", domain.PlanPro)
	assert.IsType(t, &apperror.ValidationError{}, err)

	_, err = svc.SetActive(context.Background(), root, "co-1", true)
	assert.IsType(t, &apperror.ValidationError{}, err)

	repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "Usage", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "SetActive", mock.Anything, mock.Anything, mock.Anything)
}
