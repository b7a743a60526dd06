package deduction_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"go-payroll/internal/deduction"
	deductionerrors "go-payroll/internal/deduction/errors"
	"go-payroll/internal/employee"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeDeductionRepository struct {
	findByIDFn       func(ctx context.Context, companyID, id string) (*deduction.Deduction, error)
	findAssignmentFn func(ctx context.Context, companyID, deductionID, employeeID string) (*deduction.DeductionAssignment, error)
	saveAssignmentFn func(ctx context.Context, a *deduction.DeductionAssignment) error
	appendHistoryFn  func(ctx context.Context, entry *deduction.DeductionHistory) error
	listHistoryFn    func(ctx context.Context, companyID, deductionID string) ([]deduction.DeductionHistory, error)
}

func (f *fakeDeductionRepository) WithTx(tx *sql.Tx) deduction.Repository { return f }

func (f *fakeDeductionRepository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*deduction.Deduction, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, companyID, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeDeductionRepository) FindApplicable(ctx context.Context, companyID, employeeID, departmentID string, start, end time.Time) ([]deduction.Deduction, error) {
	return nil, nil
}

func (f *fakeDeductionRepository) FindAssignment(ctx context.Context, companyID, deductionID, employeeID string) (*deduction.DeductionAssignment, error) {
	if f.findAssignmentFn != nil {
		return f.findAssignmentFn(ctx, companyID, deductionID, employeeID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeDeductionRepository) SaveAssignment(ctx context.Context, a *deduction.DeductionAssignment) error {
	if f.saveAssignmentFn != nil {
		return f.saveAssignmentFn(ctx, a)
	}
	return nil
}

func (f *fakeDeductionRepository) AppendHistory(ctx context.Context, entry *deduction.DeductionHistory) error {
	if f.appendHistoryFn != nil {
		return f.appendHistoryFn(ctx, entry)
	}
	return nil
}

func (f *fakeDeductionRepository) ListHistory(ctx context.Context, companyID, deductionID string) ([]deduction.DeductionHistory, error) {
	if f.listHistoryFn != nil {
		return f.listHistoryFn(ctx, companyID, deductionID)
	}
	return nil, nil
}

type fakeEmployeeRepository struct {
	findByIDFn func(ctx context.Context, companyID, id string) (*employee.Employee, error)
}

func (f *fakeEmployeeRepository) WithTx(tx *sql.Tx) employee.Repository { return f }

func (f *fakeEmployeeRepository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*employee.Employee, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, companyID, id)
	}
	return &employee.Employee{ID: uuid.MustParse(id), CompanyID: uuid.MustParse(companyID), EmploymentStatus: employee.StatusActive}, nil
}

func (f *fakeEmployeeRepository) FindActiveByCompany(ctx context.Context, companyID string) ([]employee.Employee, error) {
	return nil, nil
}

func (f *fakeEmployeeRepository) FindActiveByDepartment(ctx context.Context, companyID, departmentID string) ([]employee.Employee, error) {
	return nil, nil
}

type deductionServiceDeps struct {
	db      *sql.DB
	sqlMock sqlmock.Sqlmock
	service deduction.Service
	repo    *fakeDeductionRepository
	emp     *fakeEmployeeRepository
}

func setupDeductionServiceTest(t *testing.T) *deductionServiceDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	repo := &fakeDeductionRepository{}
	emp := &fakeEmployeeRepository{}
	svc := deduction.NewService(db, repo, emp, zap.NewNop())

	return &deductionServiceDeps{db: db, sqlMock: sqlMock, service: svc, repo: repo, emp: emp}
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func individualDeduction(companyID, id string) *deduction.Deduction {
	return &deduction.Deduction{
		ID:        uuid.MustParse(id),
		CompanyID: uuid.MustParse(companyID),
		Name:      "Cooperative Loan",
		Scope:     deduction.ScopeIndividual,
		Kind:      deduction.KindVoluntary,
		Category:  deduction.CategoryLoan,
		IsActive:  true,
	}
}

func TestDeductionService_Assign(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New().String()
	actorID := uuid.New().String()
	deductionID := uuid.New().String()
	employeeID := uuid.New().String()

	t.Run("success writes assignment and history", func(t *testing.T) {
		deps := setupDeductionServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		deps.repo.findByIDFn = func(ctx context.Context, cid, id string) (*deduction.Deduction, error) {
			return individualDeduction(cid, id), nil
		}
		var saved *deduction.DeductionAssignment
		deps.repo.saveAssignmentFn = func(ctx context.Context, a *deduction.DeductionAssignment) error {
			saved = a
			return nil
		}
		var history []deduction.DeductionHistory
		deps.repo.appendHistoryFn = func(ctx context.Context, entry *deduction.DeductionHistory) error {
			history = append(history, *entry)
			return nil
		}

		resp, err := deps.service.Assign(ctx, companyID, actorID, deductionID, deduction.AssignDeductionRequest{
			EmployeeID: employeeID,
			Reason:     "loan approved",
		})

		assert.NoError(t, err)
		assert.True(t, resp.IsActive)
		assert.Equal(t, employeeID, resp.EmployeeID)
		assert.NotNil(t, saved)
		if assert.Len(t, history, 1) {
			assert.Equal(t, deduction.HistoryAssign, history[0].Action)
			assert.Equal(t, actorID, history[0].ActorID.String())
			assert.Equal(t, "loan approved", history[0].Reason)
		}
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("already assigned", func(t *testing.T) {
		deps := setupDeductionServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		deps.repo.findByIDFn = func(ctx context.Context, cid, id string) (*deduction.Deduction, error) {
			return individualDeduction(cid, id), nil
		}
		deps.repo.findAssignmentFn = func(ctx context.Context, cid, did, eid string) (*deduction.DeductionAssignment, error) {
			return &deduction.DeductionAssignment{IsActive: true}, nil
		}

		_, err := deps.service.Assign(ctx, companyID, actorID, deductionID, deduction.AssignDeductionRequest{EmployeeID: employeeID})

		assert.ErrorIs(t, err, deductionerrors.ErrAlreadyAssigned)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("company wide deduction cannot be assigned", func(t *testing.T) {
		deps := setupDeductionServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		deps.repo.findByIDFn = func(ctx context.Context, cid, id string) (*deduction.Deduction, error) {
			d := individualDeduction(cid, id)
			d.Scope = deduction.ScopeCompany
			return d, nil
		}

		_, err := deps.service.Assign(ctx, companyID, actorID, deductionID, deduction.AssignDeductionRequest{EmployeeID: employeeID})

		assert.ErrorIs(t, err, deductionerrors.ErrNotAssignable)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("unknown employee", func(t *testing.T) {
		deps := setupDeductionServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		deps.repo.findByIDFn = func(ctx context.Context, cid, id string) (*deduction.Deduction, error) {
			return individualDeduction(cid, id), nil
		}
		deps.emp.findByIDFn = func(ctx context.Context, cid, id string) (*employee.Employee, error) {
			return nil, gorm.ErrRecordNotFound
		}

		_, err := deps.service.Assign(ctx, companyID, actorID, deductionID, deduction.AssignDeductionRequest{EmployeeID: employeeID})

		assert.ErrorIs(t, err, deductionerrors.ErrEmployeeNotFound)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("invalid deduction id", func(t *testing.T) {
		deps := setupDeductionServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.Assign(ctx, companyID, actorID, "bad-id", deduction.AssignDeductionRequest{EmployeeID: employeeID})

		assert.ErrorIs(t, err, deductionerrors.ErrInvalidDeductionID)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestDeductionService_Remove(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New().String()
	actorID := uuid.New().String()
	deductionID := uuid.New().String()
	employeeID := uuid.New().String()

	t.Run("success deactivates and appends history", func(t *testing.T) {
		deps := setupDeductionServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		deps.repo.findByIDFn = func(ctx context.Context, cid, id string) (*deduction.Deduction, error) {
			return individualDeduction(cid, id), nil
		}
		deps.repo.findAssignmentFn = func(ctx context.Context, cid, did, eid string) (*deduction.DeductionAssignment, error) {
			return &deduction.DeductionAssignment{
				DeductionID: uuid.MustParse(did),
				EmployeeID:  uuid.MustParse(eid),
				IsActive:    true,
			}, nil
		}
		var action string
		deps.repo.appendHistoryFn = func(ctx context.Context, entry *deduction.DeductionHistory) error {
			action = entry.Action
			return nil
		}

		resp, err := deps.service.Remove(ctx, companyID, actorID, deductionID, employeeID, "loan settled")

		assert.NoError(t, err)
		assert.False(t, resp.IsActive)
		assert.NotNil(t, resp.RemovedAt)
		assert.Equal(t, deduction.HistoryRemove, action)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("not assigned", func(t *testing.T) {
		deps := setupDeductionServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		deps.repo.findByIDFn = func(ctx context.Context, cid, id string) (*deduction.Deduction, error) {
			return individualDeduction(cid, id), nil
		}

		_, err := deps.service.Remove(ctx, companyID, actorID, deductionID, employeeID, "")

		assert.ErrorIs(t, err, deductionerrors.ErrNotAssigned)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}
