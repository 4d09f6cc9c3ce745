package optiongrid

import (
	"strings"

	"go.uber.org/zap"

	rendertemplate "github.com/goliatone/go-politemail/pkg/render/template"
)

// Default page contract used by the compose page.
const (
	DefaultTemplateID        = "tmpl-option"
	DefaultContainerSelector = ".option-grid"
	DefaultCellSelector      = ".cell"
	DefaultControlID         = "option-add"
)

// Fallback decides where a row goes when the grid holds no cells.
type Fallback int

const (
	// FallbackAppend adds the row as the container's last child.
	FallbackAppend Fallback = iota
	// FallbackPrepend adds the row as the container's first child.
	FallbackPrepend
	// FallbackError refuses the insertion with ErrNoCells.
	FallbackError
)

func (f Fallback) String() string {
	switch f {
	case FallbackAppend:
		return "append"
	case FallbackPrepend:
		return "prepend"
	case FallbackError:
		return "error"
	default:
		return "unknown"
	}
}

// Option configures an Appender.
type Option func(*config)

type config struct {
	templateID        string
	containerSelector string
	cellSelector      string
	controlID         string
	compiler          rendertemplate.Compiler
	logger            *zap.Logger
	fallback          Fallback
}

func defaultConfig() config {
	return config{
		templateID:        DefaultTemplateID,
		containerSelector: DefaultContainerSelector,
		cellSelector:      DefaultCellSelector,
		controlID:         DefaultControlID,
		fallback:          FallbackAppend,
	}
}

// WithTemplateID sets the id of the element holding the row template.
func WithTemplateID(id string) Option {
	return func(cfg *config) {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			cfg.templateID = strings.TrimPrefix(trimmed, "#")
		}
	}
}

// WithContainerSelector sets the CSS selector of the grid container.
func WithContainerSelector(selector string) Option {
	return func(cfg *config) {
		if trimmed := strings.TrimSpace(selector); trimmed != "" {
			cfg.containerSelector = trimmed
		}
	}
}

// WithCellSelector sets the CSS selector matching grid cells.
func WithCellSelector(selector string) Option {
	return func(cfg *config) {
		if trimmed := strings.TrimSpace(selector); trimmed != "" {
			cfg.cellSelector = trimmed
		}
	}
}

// WithControlID sets the id of the add control.
func WithControlID(id string) Option {
	return func(cfg *config) {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			cfg.controlID = strings.TrimPrefix(trimmed, "#")
		}
	}
}

// WithCompiler injects the template compiler. The default is a string-only
// pongo2 engine.
func WithCompiler(compiler rendertemplate.Compiler) Option {
	return func(cfg *config) {
		if compiler != nil {
			cfg.compiler = compiler
		}
	}
}

// WithLogger attaches a logger; insertions are logged at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithFallback sets the empty grid policy.
func WithFallback(fallback Fallback) Option {
	return func(cfg *config) {
		cfg.fallback = fallback
	}
}
