package service

import (
	"context"
	"errors"

	"sweetshop/internal/apperror"
	"sweetshop/internal/model"
	"sweetshop/internal/repository"
	"sweetshop/pkg/logger"
	"sweetshop/prometheus"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogService answers catalog queries and applies admin edits
type CatalogService struct {
	sweets repository.SweetRepository
}

// NewCatalogService creates the catalog service
func NewCatalogService(sweets repository.SweetRepository) *CatalogService {
	return &CatalogService{sweets: sweets}
}

// List returns one page of the filtered, sorted catalog
func (s *CatalogService) List(ctx context.Context, q model.SweetQuery) (model.Page[model.Sweet], error) {
	sweets, total, err := s.sweets.List(ctx, q)
	if err != nil {
		return model.Page[model.Sweet]{}, apperror.InternalError(err)
	}
	return model.NewPage(sweets, q.PageQuery, total), nil
}

// Get returns a single sweet
func (s *CatalogService) Get(ctx context.Context, id uuid.UUID) (*model.Sweet, error) {
	sweet, err := s.sweets.GetByID(ctx, id)
	if err != nil {
		return nil, catalogError(err)
	}
	return sweet, nil
}

// Create adds a sweet to the catalog
func (s *CatalogService) Create(ctx context.Context, id Identity, sweet model.Sweet) (*model.Sweet, error) {
	if err := id.RequireAdmin(); err != nil {
		return nil, err
	}

	sweet.ID = uuid.Nil
	if err := s.sweets.Create(ctx, &sweet); err != nil {
		return nil, catalogError(err)
	}

	prometheus.RecordCatalogOperation("create")
	prometheus.UpdateSweetStock(sweet.ID.String(), string(sweet.Category), sweet.Quantity)
	logger.FromStdContext(ctx).Info("Sweet created",
		zap.String("sweet_id", sweet.ID.String()),
		zap.String("name", sweet.Name),
		zap.String("admin_id", id.UserID().String()))
	return &sweet, nil
}

// Update replaces every editable field of a sweet
func (s *CatalogService) Update(ctx context.Context, id Identity, sweetID uuid.UUID, sweet model.Sweet) (*model.Sweet, error) {
	if err := id.RequireAdmin(); err != nil {
		return nil, err
	}

	previous, err := s.sweets.GetByID(ctx, sweetID)
	if err != nil {
		return nil, catalogError(err)
	}

	sweet.ID = sweetID
	if err := s.sweets.Update(ctx, &sweet); err != nil {
		return nil, catalogError(err)
	}

	prometheus.RecordCatalogOperation("update")
	if previous.Category != sweet.Category {
		prometheus.ForgetSweet(sweetID.String(), string(previous.Category))
	}
	prometheus.UpdateSweetStock(sweetID.String(), string(sweet.Category), sweet.Quantity)
	logger.FromStdContext(ctx).Info("Sweet updated",
		zap.String("sweet_id", sweetID.String()),
		zap.String("admin_id", id.UserID().String()))
	return &sweet, nil
}

// Delete removes a sweet. Past purchases keep their snapshots.
func (s *CatalogService) Delete(ctx context.Context, id Identity, sweetID uuid.UUID) error {
	if err := id.RequireAdmin(); err != nil {
		return err
	}

	sweet, err := s.sweets.GetByID(ctx, sweetID)
	if err != nil {
		return catalogError(err)
	}
	if err := s.sweets.Delete(ctx, sweetID); err != nil {
		return catalogError(err)
	}

	prometheus.RecordCatalogOperation("delete")
	prometheus.ForgetSweet(sweetID.String(), string(sweet.Category))
	logger.FromStdContext(ctx).Info("Sweet deleted",
		zap.String("sweet_id", sweetID.String()),
		zap.String("admin_id", id.UserID().String()))
	return nil
}

func catalogError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperror.NotFound("sweet not found")
	case errors.Is(err, repository.ErrDuplicate):
		return apperror.Conflict("a sweet with this name already exists")
	}
	return apperror.InternalError(err)
}
