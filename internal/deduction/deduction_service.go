package deduction

import (
	"context"
	"database/sql"
	"errors"
	"time"

	deductionerrors "go-payroll/internal/deduction/errors"
	"go-payroll/internal/employee"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:generate mockgen -source=deduction_service.go -destination=mock/deduction_service_mock.go -package=mock
type Service interface {
	Assign(ctx context.Context, companyID, actorID, deductionID string, req AssignDeductionRequest) (AssignmentResponse, error)
	Remove(ctx context.Context, companyID, actorID, deductionID, employeeID, reason string) (AssignmentResponse, error)
	History(ctx context.Context, companyID, deductionID string) ([]HistoryResponse, error)
}

type service struct {
	db           *sql.DB
	repo         Repository
	employeeRepo employee.Repository
	logger       *zap.Logger
	now          func() time.Time
}

func NewService(db *sql.DB, repo Repository, employeeRepo employee.Repository, logger ...*zap.Logger) Service {
	l := zap.L().Named("deduction.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &service{
		db:           db,
		repo:         repo,
		employeeRepo: employeeRepo,
		logger:       l,
		now:          time.Now,
	}
}

func (s *service) Assign(
	ctx context.Context,
	companyID, actorID, deductionID string,
	req AssignDeductionRequest,
) (AssignmentResponse, error) {
	companyUUID, actorUUID, deductionUUID, employeeUUID, err := parseAssignmentIDs(companyID, actorID, deductionID, req.EmployeeID)
	if err != nil {
		return AssignmentResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return AssignmentResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	d, err := s.loadAssignable(ctx, qtx, companyID, deductionID)
	if err != nil {
		return AssignmentResponse{}, err
	}
	if !d.IsActive {
		return AssignmentResponse{}, deductionerrors.ErrDeductionInactive
	}

	if _, err := s.employeeRepo.WithTx(tx).FindByIDAndCompany(ctx, companyID, req.EmployeeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AssignmentResponse{}, deductionerrors.ErrEmployeeNotFound
		}
		return AssignmentResponse{}, err
	}

	now := s.now()
	assignment, err := qtx.FindAssignment(ctx, companyID, deductionID, req.EmployeeID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		assignment = &DeductionAssignment{
			ID:          uuid.New(),
			CompanyID:   companyUUID,
			DeductionID: deductionUUID,
			EmployeeID:  employeeUUID,
		}
	case err != nil:
		return AssignmentResponse{}, err
	case assignment.IsActive:
		return AssignmentResponse{}, deductionerrors.ErrAlreadyAssigned
	}

	assignment.IsActive = true
	assignment.AssignedBy = actorUUID
	assignment.AssignedAt = now
	assignment.RemovedAt = nil

	if err := qtx.SaveAssignment(ctx, assignment); err != nil {
		return AssignmentResponse{}, err
	}

	if err := qtx.AppendHistory(ctx, &DeductionHistory{
		ID:          uuid.New(),
		CompanyID:   companyUUID,
		DeductionID: deductionUUID,
		EmployeeID:  employeeUUID,
		Action:      HistoryAssign,
		ActorID:     actorUUID,
		Reason:      req.Reason,
		CreatedAt:   now,
	}); err != nil {
		return AssignmentResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		return AssignmentResponse{}, err
	}

	s.logger.Info("deduction assigned",
		zap.String("company_id", companyID),
		zap.String("deduction_id", deductionID),
		zap.String("employee_id", req.EmployeeID),
		zap.String("actor_id", actorID),
	)

	return mapAssignment(*assignment), nil
}

func (s *service) Remove(
	ctx context.Context,
	companyID, actorID, deductionID, employeeID, reason string,
) (AssignmentResponse, error) {
	companyUUID, actorUUID, deductionUUID, employeeUUID, err := parseAssignmentIDs(companyID, actorID, deductionID, employeeID)
	if err != nil {
		return AssignmentResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return AssignmentResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	if _, err := s.loadAssignable(ctx, qtx, companyID, deductionID); err != nil {
		return AssignmentResponse{}, err
	}

	assignment, err := qtx.FindAssignment(ctx, companyID, deductionID, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AssignmentResponse{}, deductionerrors.ErrNotAssigned
		}
		return AssignmentResponse{}, err
	}
	if !assignment.IsActive {
		return AssignmentResponse{}, deductionerrors.ErrNotAssigned
	}

	now := s.now()
	assignment.IsActive = false
	assignment.RemovedAt = &now

	if err := qtx.SaveAssignment(ctx, assignment); err != nil {
		return AssignmentResponse{}, err
	}

	if err := qtx.AppendHistory(ctx, &DeductionHistory{
		ID:          uuid.New(),
		CompanyID:   companyUUID,
		DeductionID: deductionUUID,
		EmployeeID:  employeeUUID,
		Action:      HistoryRemove,
		ActorID:     actorUUID,
		Reason:      reason,
		CreatedAt:   now,
	}); err != nil {
		return AssignmentResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		return AssignmentResponse{}, err
	}

	s.logger.Info("deduction removed",
		zap.String("company_id", companyID),
		zap.String("deduction_id", deductionID),
		zap.String("employee_id", employeeID),
		zap.String("actor_id", actorID),
	)

	return mapAssignment(*assignment), nil
}

func (s *service) History(ctx context.Context, companyID, deductionID string) ([]HistoryResponse, error) {
	if _, err := uuid.Parse(deductionID); err != nil {
		return nil, deductionerrors.ErrInvalidDeductionID
	}
	if _, err := s.repo.FindByIDAndCompany(ctx, companyID, deductionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, deductionerrors.ErrDeductionNotFound
		}
		return nil, err
	}

	entries, err := s.repo.ListHistory(ctx, companyID, deductionID)
	if err != nil {
		return nil, err
	}

	resp := make([]HistoryResponse, len(entries))
	for i, e := range entries {
		resp[i] = HistoryResponse{
			EmployeeID: e.EmployeeID.String(),
			Action:     e.Action,
			ActorID:    e.ActorID.String(),
			Reason:     e.Reason,
			CreatedAt:  e.CreatedAt.Format(time.RFC3339),
		}
	}
	return resp, nil
}

func (s *service) loadAssignable(ctx context.Context, repo Repository, companyID, deductionID string) (*Deduction, error) {
	d, err := repo.FindByIDAndCompany(ctx, companyID, deductionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, deductionerrors.ErrDeductionNotFound
		}
		return nil, err
	}
	if !d.Assignable() {
		return nil, deductionerrors.ErrNotAssignable
	}
	return d, nil
}

func parseAssignmentIDs(companyID, actorID, deductionID, employeeID string) (uuid.UUID, uuid.UUID, uuid.UUID, uuid.UUID, error) {
	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, uuid.Nil, deductionerrors.ErrInvalidCompanyID
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, uuid.Nil, deductionerrors.ErrInvalidActorID
	}
	deductionUUID, err := uuid.Parse(deductionID)
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, uuid.Nil, deductionerrors.ErrInvalidDeductionID
	}
	employeeUUID, err := uuid.Parse(employeeID)
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, uuid.Nil, deductionerrors.ErrInvalidEmployeeID
	}
	return companyUUID, actorUUID, deductionUUID, employeeUUID, nil
}

func mapAssignment(a DeductionAssignment) AssignmentResponse {
	resp := AssignmentResponse{
		DeductionID: a.DeductionID.String(),
		EmployeeID:  a.EmployeeID.String(),
		IsActive:    a.IsActive,
		AssignedBy:  a.AssignedBy.String(),
		AssignedAt:  a.AssignedAt.Format(time.RFC3339),
	}
	if a.RemovedAt != nil {
		v := a.RemovedAt.Format(time.RFC3339)
		resp.RemovedAt = &v
	}
	return resp
}
