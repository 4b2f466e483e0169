package widget

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/Canopy/backend/internal/domain/manifest"
	"github.com/GriffinCanCode/Canopy/backend/internal/shared/errs"
	"github.com/GriffinCanCode/Canopy/backend/internal/shared/utils"
	"github.com/GriffinCanCode/Canopy/backend/internal/store"
)

// Store persists widget instances.
type Store struct {
	backend  store.Backend
	types    *Types
	validate *validator.Validate
	logger   *zap.Logger
}

// NewStore creates a widget store over backend
func NewStore(backend store.Backend, types *Types, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		backend:  backend,
		types:    types,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// Types returns the widget type table
func (s *Store) Types() *Types { return s.types }

// Create stores a widget of folder's type with default settings
func (s *Store) Create(ctx context.Context, folder string) (int64, error) {
	if err := utils.DefaultFolderPolicy().Validate(folder); err != nil {
		return 0, errs.Validation("widget.create", "%v", err)
	}
	w, err := s.types.New(folder)
	if err != nil {
		return 0, err
	}
	return s.CreateFrom(ctx, w, folder)
}

// CreateFrom stores w as a new instance of folder's type
func (s *Store) CreateFrom(ctx context.Context, w Widget, folder string) (int64, error) {
	if err := utils.DefaultFolderPolicy().Validate(folder); err != nil {
		return 0, errs.Validation("widget.create", "%v", err)
	}
	folder = strings.ToLower(folder)
	if !s.types.Matches(folder, w) {
		return 0, errs.Validation("widget.create", "settings do not match widget type %q", folder)
	}

	core := w.Core()
	core.ID = 0
	core.Folder = folder
	value, err := s.prepare(w)
	if err != nil {
		return 0, err
	}

	meta, err := s.backend.Create(ctx, &store.Meta{
		Key:   folder + "-" + uuid.NewString(),
		Value: value,
		Type:  store.MetaTypeWidget,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create widget: %w", err)
	}
	core.ID = meta.ID

	s.logger.Debug("Widget created", zap.Int64("id", meta.ID), zap.String("folder", folder))
	return meta.ID, nil
}

// Update replaces the settings of widget id. The folder tag cannot change.
func (s *Store) Update(ctx context.Context, id int64, w Widget) error {
	meta, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	folder, err := Tag(meta)
	if err != nil {
		return err
	}
	if !s.types.Matches(folder, w) {
		return errs.Validation("widget.update", "settings do not match widget type %q", folder)
	}

	core := w.Core()
	core.ID = id
	core.Folder = strings.ToLower(folder)
	value, err := s.prepare(w)
	if err != nil {
		return err
	}

	meta.Value = value
	if err := s.backend.Update(ctx, meta); err != nil {
		return fmt.Errorf("failed to update widget %d: %w", id, err)
	}
	s.logger.Debug("Widget updated", zap.Int64("id", id))
	return nil
}

// Delete removes widget id. Deleting an absent widget succeeds.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if _, err := s.load(ctx, id); err != nil {
		if errs.IsNotFound(err) {
			return nil
		}
		return err
	}
	if err := s.backend.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete widget %d: %w", id, err)
	}
	s.logger.Debug("Widget deleted", zap.Int64("id", id))
	return nil
}

// Get returns widget id decoded into its concrete type
func (s *Store) Get(ctx context.Context, id int64) (Widget, error) {
	meta, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.types.Decode(meta)
}

// Exists reports whether widget id is stored
func (s *Store) Exists(ctx context.Context, id int64) (bool, error) {
	_, err := s.load(ctx, id)
	if errs.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

// load fetches a record and checks it holds a widget
func (s *Store) load(ctx context.Context, id int64) (*store.Meta, error) {
	meta, err := s.backend.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if meta.Type != store.MetaTypeWidget {
		return nil, errs.NotFound("widget.get", "widget %d not found", id)
	}
	return meta, nil
}

// prepare cleans, validates and encodes w
func (s *Store) prepare(w Widget) (string, error) {
	core := w.Core()
	core.Title = manifest.Sanitize(core.Title)
	if si, ok := w.(*SocialIcons); ok {
		si.normalize()
	}

	if err := s.validate.Struct(w); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return "", errs.Validation("widget.validate", "%s", describe(verrs))
		}
		return "", errs.Validation("widget.validate", "%v", err)
	}

	value, err := store.Encode(w)
	if err != nil {
		return "", errs.Validation("widget.encode", "%v", err)
	}
	return value, nil
}

func describe(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
