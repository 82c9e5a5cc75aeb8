package service

import (
	"context"
	"errors"

	"sweetshop/internal/apperror"
	"sweetshop/internal/model"
	"sweetshop/internal/repository"
	"sweetshop/pkg/logger"

	"go.uber.org/zap"
)

// ProfileUpdate carries the self-editable profile fields
type ProfileUpdate struct {
	Name    string
	Phone   string
	Address string
}

// ProfileService lets callers read and edit their own profile
type ProfileService struct {
	users repository.UserRepository
}

// NewProfileService creates the profile service
func NewProfileService(users repository.UserRepository) *ProfileService {
	return &ProfileService{users: users}
}

// Get returns the caller's profile with the account email
func (s *ProfileService) Get(ctx context.Context, id Identity) (*model.Profile, error) {
	if err := id.RequireUser(); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// Update edits name, phone and address. Role is never changed here.
func (s *ProfileService) Update(ctx context.Context, id Identity, update ProfileUpdate) (*model.Profile, error) {
	if err := id.RequireUser(); err != nil {
		return nil, err
	}

	err := s.users.UpdateProfile(ctx, &model.Profile{
		ID:      id.UserID(),
		Name:    update.Name,
		Phone:   update.Phone,
		Address: update.Address,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("profile not found")
		}
		return nil, apperror.InternalError(err)
	}

	logger.FromStdContext(ctx).Info("Profile updated", zap.String("user_id", id.UserID().String()))
	return s.load(ctx, id)
}

func (s *ProfileService) load(ctx context.Context, id Identity) (*model.Profile, error) {
	profile, err := s.users.GetProfile(ctx, id.UserID())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("profile not found")
		}
		return nil, apperror.InternalError(err)
	}
	return profile, nil
}
