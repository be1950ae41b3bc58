package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/nexx/mediacenter/internal/api"
	"github.com/nexx/mediacenter/internal/config"
	"github.com/nexx/mediacenter/internal/constants"
	"github.com/nexx/mediacenter/internal/events"
	"github.com/nexx/mediacenter/internal/locale"
	"github.com/nexx/mediacenter/internal/logging"
	"github.com/nexx/mediacenter/internal/scope"
	"github.com/nexx/mediacenter/internal/state"
)

// Session wires one configured client: the shared scope, the event bus
// and every service built on them.
type Session struct {
	Config    *config.Config
	API       *api.Client
	Bus       *events.EventBus
	Scope     *scope.Scope
	Files     *FileService
	Folders   *FolderService
	Transfers *TransferService
	Shares    *ShareService
}

// NewSession creates the services for cfg. bus may be nil.
func NewSession(cfg *config.Config, bus *events.EventBus) (*Session, error) {
	lang, err := locale.ParseLanguage(cfg.Language)
	if err != nil {
		return nil, err
	}
	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if bus == nil {
		bus = events.NewEventBus(constants.EventBusDefaultBuffer)
	}

	sc := scope.New(scope.Value{Locale: locale.For(lang), EntityID: cfg.EntityID}, bus)
	client.SetLanguageSource(func() string { return string(sc.Locale().Language) })

	files := NewFileService(client, sc, FileServiceConfig{SizeMode: cfg.SizeMode})
	return &Session{
		Config:    cfg,
		API:       client,
		Bus:       bus,
		Scope:     sc,
		Files:     files,
		Folders:   NewFolderService(client, sc, bus, files, 0),
		Transfers: NewTransferService(client, sc, bus, files, TransferServiceConfig{}),
		Shares:    NewShareService(client),
	}, nil
}

// NewListView creates a file list view bound to the session scope.
func (s *Session) NewListView() *state.ListView {
	return state.NewListView(s.Files, s.Scope, state.ListViewOptions{
		EventBus: s.Bus,
		Logger:   logging.NewLogger("list-view"),
		PageSize: s.Config.PageSize,
	})
}

// Bootstrap loads the folder tree and the first page of view in
// parallel. The view failing on a superseded fetch is not an error.
func (s *Session) Bootstrap(ctx context.Context, view *state.ListView) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.Folders.Load(gctx, false); err != nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := view.Reload(gctx); err != nil && !errors.Is(err, state.ErrSuperseded) {
			return fmt.Errorf("failed to load files: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// ConfigureTransfers replaces the transfer service, for callers that
// need a different concurrency or a conflict prompt.
func (s *Session) ConfigureTransfers(cfg TransferServiceConfig) {
	s.Transfers = NewTransferService(s.API, s.Scope, s.Bus, s.Files, cfg)
}
