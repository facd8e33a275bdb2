package material

import (
	"context"
	"fmt"
	"time"

	"stocktake/internal/core/apperror"
	"stocktake/internal/core/id"
	"stocktake/internal/core/tx"
	"stocktake/internal/domain"
	"stocktake/pkg/logger"
	"stocktake/pkg/numerator"
)

// Service provides business logic for the Material catalog.
type Service struct {
	repo      Repository
	txManager tx.Manager
	numerator numerator.Generator
}

// NewService creates a new Material service.
func NewService(repo Repository, txManager tx.Manager, gen numerator.Generator) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		numerator: gen,
	}
}

// Create validates and persists a new material.
// A code is generated when the caller did not provide one.
func (s *Service) Create(ctx context.Context, m *Material) error {
	if err := m.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if m.Code == "" {
			code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("MAT"), time.Now())
			if err != nil {
				return fmt.Errorf("generate material code: %w", err)
			}
			m.Code = code
		}

		exists, err := s.repo.ExistsByCode(ctx, m.Code, id.Nil())
		if err != nil {
			return fmt.Errorf("check material code: %w", err)
		}
		if exists {
			return apperror.NewDuplicate("material", "code", m.Code)
		}

		if err := s.repo.Create(ctx, m); err != nil {
			return fmt.Errorf("create material: %w", err)
		}

		logger.Info(ctx, "material created", "id", m.ID, "code", m.Code)
		return nil
	})
}

// Update validates and saves changes to an existing material.
func (s *Service) Update(ctx context.Context, m *Material) error {
	if err := m.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByID(ctx, m.ID)
		if err != nil {
			return err
		}

		if current.Version != m.Version {
			return apperror.NewConcurrentModification("material", m.ID.String())
		}

		exists, err := s.repo.ExistsByCode(ctx, m.Code, m.ID)
		if err != nil {
			return fmt.Errorf("check material code: %w", err)
		}
		if exists {
			return apperror.NewDuplicate("material", "code", m.Code)
		}

		if err := s.repo.Update(ctx, m); err != nil {
			return fmt.Errorf("update material: %w", err)
		}

		return nil
	})
}

// GetByID retrieves a material by its identifier.
func (s *Service) GetByID(ctx context.Context, materialID id.ID) (*Material, error) {
	return s.repo.GetByID(ctx, materialID)
}

// GetByCode retrieves a material by its code.
func (s *Service) GetByCode(ctx context.Context, code string) (*Material, error) {
	return s.repo.GetByCode(ctx, code)
}

// List returns materials matching the filter.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Material], error) {
	return s.repo.List(ctx, filter)
}

// ListActive returns all active materials.
func (s *Service) ListActive(ctx context.Context) ([]*Material, error) {
	return s.repo.ListActive(ctx)
}

// Delete marks a material as deleted. Data stays for historical transactions.
func (s *Service) Delete(ctx context.Context, materialID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		m, err := s.repo.GetByID(ctx, materialID)
		if err != nil {
			return err
		}

		m.MarkDeleted()
		if err := s.repo.Update(ctx, m); err != nil {
			return fmt.Errorf("delete material: %w", err)
		}

		logger.Info(ctx, "material deleted", "id", materialID)
		return nil
	})
}
