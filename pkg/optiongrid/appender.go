package optiongrid

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/goliatone/go-politemail/pkg/dom"
	rendertemplate "github.com/goliatone/go-politemail/pkg/render/template"
	gotemplate "github.com/goliatone/go-politemail/pkg/render/template/gotemplate"
)

// Row is one inserted option row.
type Row struct {
	// Index is the zero-based insertion order.
	Index int
	// Markup is the template output the row was parsed from.
	Markup string
	// Nodes are the top-level nodes placed into the page.
	Nodes []*html.Node
}

// Appender renders the option row template and inserts rows into a page's
// grid. One Appender serves one page for its whole lifetime.
type Appender struct {
	page   *dom.Document
	cfg    config
	logger *zap.Logger

	tmpl      rendertemplate.Compiled
	container *html.Node
	control   *html.Node
	rows      []Row

	initialized bool
}

// New binds an Appender to page. Nothing on the page is resolved until
// Initialize runs.
func New(page *dom.Document, options ...Option) (*Appender, error) {
	if page == nil || page.Root() == nil {
		return nil, errors.New("optiongrid: page is required")
	}

	cfg := defaultConfig()
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	if cfg.compiler == nil {
		engine, err := gotemplate.New()
		if err != nil {
			return nil, fmt.Errorf("optiongrid: configure template compiler: %w", err)
		}
		cfg.compiler = engine
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Appender{
		page:   page,
		cfg:    cfg,
		logger: logger.Named("optiongrid"),
	}, nil
}

// Initialize compiles the page's row template, inserts the first row and
// binds the add control so each click inserts one more. Missing page parts
// are reported before anything is mutated. Repeated calls are no-ops.
func (a *Appender) Initialize(ctx context.Context) error {
	return a.page.Locked(func() error {
		return a.initialize(ctx)
	})
}

func (a *Appender) initialize(ctx context.Context) error {
	if a.initialized {
		return nil
	}

	source := a.page.ByID(a.cfg.templateID)
	if source == nil {
		return fmt.Errorf("%w: #%s", ErrMissingTemplate, a.cfg.templateID)
	}

	container, err := dom.Query(a.page.Root(), a.cfg.containerSelector)
	if err != nil {
		return fmt.Errorf("optiongrid: resolve container: %w", err)
	}
	if container == nil {
		return fmt.Errorf("%w: %s", ErrMissingContainer, a.cfg.containerSelector)
	}

	control := a.page.ByID(a.cfg.controlID)
	if control == nil {
		return fmt.Errorf("%w: #%s", ErrMissingControl, a.cfg.controlID)
	}

	text := templateSource(source)
	if text == "" {
		return fmt.Errorf("%w: #%s is blank", ErrEmptyTemplate, a.cfg.templateID)
	}

	tmpl, err := a.cfg.compiler.Compile(text)
	if err != nil {
		return fmt.Errorf("optiongrid: compile #%s: %w", a.cfg.templateID, err)
	}

	a.tmpl = tmpl
	a.container = container
	a.control = control

	if _, err := a.addOption(ctx); err != nil {
		return err
	}

	if err := a.page.On(control, dom.EventClick, a.handleClick); err != nil {
		return fmt.Errorf("optiongrid: bind #%s: %w", a.cfg.controlID, err)
	}

	a.initialized = true
	return nil
}

func (a *Appender) handleClick(ctx context.Context, _ *html.Node) error {
	_, err := a.addOption(ctx)
	return err
}

// AddOption renders the row template with no data and inserts it right
// before the grid's current last cell.
func (a *Appender) AddOption(ctx context.Context) (Row, error) {
	var row Row
	err := a.page.Locked(func() error {
		if !a.initialized {
			return ErrNotInitialized
		}
		var err error
		row, err = a.addOption(ctx)
		return err
	})
	return row, err
}

func (a *Appender) addOption(ctx context.Context) (Row, error) {
	if err := ctx.Err(); err != nil {
		return Row{}, err
	}

	markup, err := a.tmpl.Render(nil)
	if err != nil {
		return Row{}, fmt.Errorf("optiongrid: render row: %w", err)
	}

	last, err := dom.QueryLast(a.container, a.cfg.cellSelector)
	if err != nil {
		return Row{}, fmt.Errorf("optiongrid: resolve cells: %w", err)
	}

	parent := a.container
	if last != nil {
		parent = last.Parent
	} else if a.cfg.fallback == FallbackError {
		return Row{}, ErrNoCells
	}

	nodes, err := dom.ParseFragment(markup, parent)
	if err != nil {
		return Row{}, fmt.Errorf("optiongrid: parse row: %w", err)
	}
	if !hasElement(nodes) {
		return Row{}, fmt.Errorf("%w: rendered %q", ErrEmptyTemplate, markup)
	}

	switch {
	case last != nil:
		err = dom.InsertBefore(last, nodes...)
	case a.cfg.fallback == FallbackPrepend:
		err = dom.PrependChildren(parent, nodes...)
	default:
		err = dom.AppendChildren(parent, nodes...)
	}
	if err != nil {
		return Row{}, fmt.Errorf("optiongrid: insert row: %w", err)
	}

	row := Row{Index: len(a.rows), Markup: markup, Nodes: nodes}
	a.rows = append(a.rows, row)

	a.logger.Debug("option row inserted",
		zap.Int("index", row.Index),
		zap.Bool("fallback", last == nil),
	)
	return row, nil
}

// Rows returns the rows inserted so far in insertion order.
func (a *Appender) Rows() []Row {
	var out []Row
	_ = a.page.Locked(func() error {
		out = append([]Row(nil), a.rows...)
		return nil
	})
	return out
}

func hasElement(nodes []*html.Node) bool {
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			return true
		}
	}
	return false
}

// templateSource reads the raw template text. Script-style holders expose it
// as a text child; <template> elements parse their content into nodes, which
// are serialized back.
func templateSource(n *html.Node) string {
	if n.Data != "template" {
		return strings.TrimSpace(dom.Text(n))
	}
	var sb strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		sb.WriteString(dom.OuterHTML(child))
	}
	return strings.TrimSpace(sb.String())
}
