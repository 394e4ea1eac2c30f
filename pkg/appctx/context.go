// Package appctx provides the application context that holds all runtime dependencies.
package appctx

import (
	"nextsoundwave/pkg/config"
	"nextsoundwave/pkg/interfaces"
	"nextsoundwave/pkg/logging"
)

// Version is reported by the service info endpoint and the CLI.
const Version = "1.0.0"

// Context holds all application runtime dependencies.
// Pass this single struct to components instead of individual parameters.
type Context struct {
	Config    *config.Config
	Log       *logging.Logger
	Extractor interfaces.Extractor
	Search    interfaces.Searcher
}

// New creates a new application context.
func New(cfg *config.Config, log *logging.Logger) *Context {
	return &Context{
		Config: cfg,
		Log:    log,
	}
}

// WithExtractor sets the extraction orchestrator.
func (c *Context) WithExtractor(e interfaces.Extractor) *Context {
	c.Extractor = e
	return c
}

// WithSearch sets the search service.
func (c *Context) WithSearch(s interfaces.Searcher) *Context {
	c.Search = s
	return c
}
