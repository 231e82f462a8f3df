package app

import (
	"errors"

	"shortsflow/internal/distribution/youtube"
	"shortsflow/internal/storage"
	"shortsflow/internal/store"
	"shortsflow/internal/tts"
	"shortsflow/internal/workflow"
	"shortsflow/pkg/config"
)

type Service struct {
	cfg     *config.Config
	store   *store.Store
	engine  *workflow.Engine
	speech  *tts.ElevenLabsClient
	youtube *youtube.Client
	paths   *storage.LocalStorage
	closers []func() error
}

type ServiceOptions struct {
	Config  *config.Config
	Store   *store.Store
	Engine  *workflow.Engine
	Speech  *tts.ElevenLabsClient
	YouTube *youtube.Client
	Paths   *storage.LocalStorage
	Closers []func() error
}

func NewService(opts ServiceOptions) *Service {
	return &Service{
		cfg:     opts.Config,
		store:   opts.Store,
		engine:  opts.Engine,
		speech:  opts.Speech,
		youtube: opts.YouTube,
		paths:   opts.Paths,
		closers: opts.Closers,
	}
}

func (s *Service) Config() *config.Config { return s.cfg }
func (s *Service) Store() *store.Store { return s.store }
func (s *Service) Engine() *workflow.Engine { return s.engine }
func (s *Service) Speech() *tts.ElevenLabsClient { return s.speech }
func (s *Service) YouTube() *youtube.Client { return s.youtube }
func (s *Service) Paths() *storage.LocalStorage { return s.paths }

// Close releases clients in reverse order of creation.
func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
