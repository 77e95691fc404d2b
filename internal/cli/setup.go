package cli

import (
	"fmt"
	"io"
	"log"

	"envkit/internal/catalog"
	"envkit/internal/config"
	"envkit/internal/execx"
	"envkit/internal/logx"
	"envkit/internal/orchestrator"
	"envkit/internal/paths"
	"envkit/internal/probe"
	"envkit/internal/progress"
)

// session bundles everything a command needs to check or install
// prerequisites. Dependencies are constructed here, once, and passed down
// explicitly.
type session struct {
	Paths   paths.ProjectPaths
	Config  config.Config
	Catalog catalog.Catalog
	Orch    *orchestrator.Orchestrator
	Logger  *log.Logger

	closer io.Closer
}

func newSession() (*session, error) {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return nil, err
	}
	if results := cfg.Validate(); config.HasErrors(results) {
		return nil, fmt.Errorf("invalid config: %s", results[0].Message)
	}
	pp = paths.ApplyConfig(pp, cfg.Files.Catalog)

	if err := pp.EnsureMetaDirs(); err != nil {
		return nil, err
	}
	logger, closer, err := logx.New(pp)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Load(pp.CatalogFile)
	if err != nil {
		closer.Close()
		return nil, err
	}

	runner := execx.CmdRunner{ExecTemplate: cfg.Runtime.ExecTemplate}
	prober := probe.New(runner, cfg.CacheTTL(), cfg.ProbeTimeout(), logger)
	unifier := progress.New(runner, cfg.StepTimeout(), logger)
	orch := orchestrator.New(cat, prober, unifier, orchestrator.Options{
		RequiredMajors:     cfg.Runtime.RequiredMajors,
		InstallConcurrency: cfg.Install.Concurrency,
		Logger:             logger,
	})

	return &session{
		Paths:   pp,
		Config:  cfg,
		Catalog: cat,
		Orch:    orch,
		Logger:  logger,
		closer:  closer,
	}, nil
}

func (s *session) Close() {
	if s.closer != nil {
		s.closer.Close()
	}
}
