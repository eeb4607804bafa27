package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
	"github.com/noah-isme/school-portal-api/internal/session"
)

// ProfileDirectory owns the access records. It resolves profiles for the
// session layer and announces every change so open sessions re-resolve.
type ProfileDirectory interface {
	session.ProfileFetcher
	Save(ctx context.Context, record models.UserProfile) error
	Delete(ctx context.Context, id string) error
}

type profileDirectory struct {
	repo   repository.UserProfileRepository
	hub    RealtimeHub
	logger zerolog.Logger
}

// NewProfileDirectory constructs the access record directory. hub may be nil.
func NewProfileDirectory(repo repository.UserProfileRepository, hub RealtimeHub, logger zerolog.Logger) ProfileDirectory {
	return &profileDirectory{
		repo:   repo,
		hub:    hub,
		logger: logger.With().Str("component", "profile_directory").Logger(),
	}
}

func (d *profileDirectory) FetchProfile(ctx context.Context, identityID string) (models.Profile, error) {
	record, err := d.repo.GetByID(ctx, identityID)
	if err != nil {
		if isNotFound(err) {
			return nil, session.ErrProfileNotFound
		}
		return nil, fmt.Errorf("load profile %s: %w", identityID, err)
	}

	profile, err := record.ToProfile()
	if err != nil {
		d.logger.Warn().Err(err).Str("identity_id", identityID).Msg("access record carries an unknown role")
		return nil, err
	}
	return profile, nil
}

func (d *profileDirectory) Save(ctx context.Context, record models.UserProfile) error {
	role, err := models.ParseRole(record.Role)
	if err != nil {
		return err
	}
	record.Role = role.String()

	if err := d.repo.Save(ctx, &record); err != nil {
		return err
	}
	d.announce(ctx, record.ID)
	return nil
}

func (d *profileDirectory) Delete(ctx context.Context, id string) error {
	if err := d.repo.Delete(ctx, id); err != nil {
		return err
	}
	d.announce(ctx, id)
	return nil
}

func (d *profileDirectory) announce(ctx context.Context, id string) {
	if d.hub == nil {
		return
	}
	payload := map[string]string{"identity_id": id}
	if err := d.hub.Publish(ctx, EventProfileChanged, []string{UserAudience(id)}, payload); err != nil {
		d.logger.Warn().Err(err).Str("identity_id", id).Msg("failed to announce profile change")
	}
}
