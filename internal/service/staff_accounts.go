package service

import (
	"context"
	"mime/multipart"

	"github.com/rs/zerolog"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/observability"
)

// staffAccounts runs the multi-record lifecycle shared by login-capable staff:
// identity, profile document and access record.
type staffAccounts struct {
	auth     AuthService
	profiles ProfileDirectory
	logger   zerolog.Logger
}

// provision creates the identity first so the document can use its id as key.
// Any failure after the identity exists is a ProvisioningError; nothing is
// rolled back.
func (a staffAccounts) provision(ctx context.Context, operation, email, password string, writeDocument func(id string) error, access func(id string) models.UserProfile) (string, error) {
	identity, err := a.auth.CreateUser(ctx, email, password)
	if err != nil {
		return "", err
	}

	fail := func(err error) (string, error) {
		observability.PartialFailures().WithLabelValues(operation).Inc()
		a.logger.Error().Err(err).
			Str("identity_id", identity.ID).
			Str("identifier", identity.Identifier).
			Msg("identity left without profile")
		return "", &ProvisioningError{IdentityID: identity.ID, Identifier: identity.Identifier, Err: err}
	}

	if err := writeDocument(identity.ID); err != nil {
		return fail(err)
	}
	if err := a.profiles.Save(ctx, access(identity.ID)); err != nil {
		return fail(err)
	}

	return identity.ID, nil
}

// remove revokes the access record first, then deletes the identity, then the
// profile document. Callers confirm the document exists before calling, so the
// id is known to belong to this kind of account. A missing record at any step
// counts as already removed, which lets a retry finish an earlier
// PartialDeleteError. A failure before anything was removed is returned as is.
func (a staffAccounts) remove(ctx context.Context, operation, id string, deleteDocument func() error) error {
	steps := []struct {
		name string
		run  func() error
	}{
		{name: "access record", run: func() error { return a.profiles.Delete(ctx, id) }},
		{name: "identity", run: func() error { return a.auth.DeleteUser(ctx, id) }},
		{name: "profile", run: deleteDocument},
	}

	deleted := make([]string, 0, len(steps))
	for i, step := range steps {
		err := step.run()
		if err == nil || isNotFound(err) {
			deleted = append(deleted, step.name)
			continue
		}
		if i == 0 {
			return err
		}

		remaining := make([]string, 0, len(steps)-i)
		for _, rest := range steps[i:] {
			remaining = append(remaining, rest.name)
		}
		observability.PartialFailures().WithLabelValues(operation).Inc()
		a.logger.Error().Err(err).Str("id", id).Strs("remaining", remaining).Msg("staff removal stopped half way")
		return &PartialDeleteError{ID: id, Deleted: deleted, Remaining: remaining, Err: err}
	}

	return nil
}

// storePhoto uploads a replacement photo. It returns the upload outcome and
// whether the record should point at the new asset.
func storePhoto(ctx context.Context, uploads UploadService, file *multipart.FileHeader, subfolder, userID string) (*dto.PhotoUploadResponse, bool, error) {
	if file == nil || uploads == nil {
		return nil, false, nil
	}
	upload, err := uploads.UploadImage(ctx, file, subfolder, userID)
	if err != nil {
		return nil, false, err
	}
	return &upload, upload.Persisted, nil
}
