package app

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/goliatone/go-politemail/pkg/dom"
	"github.com/goliatone/go-politemail/pkg/optiongrid"
)

// ComposeForm carries values echoed back into the compose page.
type ComposeForm struct {
	To      string   `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	Options []string `json:"-"`
}

// ComposeRequest describes one rendering of the compose page.
type ComposeRequest struct {
	State ReqState
	Form  ComposeForm
	// Add is how many times the add control is activated after load.
	Add     int
	Flashes []string
}

// RenderCompose renders the compose page, lets the option grid insert its
// initial row, replays Add clicks on the add control and fills option rows
// with any submitted values.
func (a *App) RenderCompose(ctx context.Context, w io.Writer, req ComposeRequest) error {
	clicks := req.Add
	if need := len(req.Form.Options) - 1; need > clicks {
		clicks = need
	}
	if clicks < 0 {
		clicks = 0
	}
	if clicks > a.cfg.MaxExtraOptions {
		clicks = a.cfg.MaxExtraOptions
	}

	markup, err := a.templates.RenderTemplate("compose", map[string]any{
		"state":    req.State,
		"flashes":  req.Flashes,
		"from":     req.State.Email,
		"form":     req.Form,
		"next_add": strconv.Itoa(clicks + 1),
	})
	if err != nil {
		return fmt.Errorf("app: render compose: %w", err)
	}

	page, err := dom.ParseString(markup)
	if err != nil {
		return fmt.Errorf("app: parse compose: %w", err)
	}

	grid, err := optiongrid.New(page, optiongrid.WithLogger(a.logger))
	if err != nil {
		return fmt.Errorf("app: option grid: %w", err)
	}
	if err := grid.Initialize(ctx); err != nil {
		return fmt.Errorf("app: option grid: %w", err)
	}
	for i := 0; i < clicks; i++ {
		if err := page.Click(ctx, optiongrid.DefaultControlID); err != nil {
			return fmt.Errorf("app: add option %d: %w", i+1, err)
		}
	}

	fillOptions(grid.Rows(), req.Form.Options)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("app: write compose: %w", err)
	}
	return nil
}

// fillOptions sets the value of each row's option input, in row order.
func fillOptions(rows []optiongrid.Row, values []string) {
	for i, row := range rows {
		if i >= len(values) {
			return
		}
		for _, node := range row.Nodes {
			input, err := dom.Query(node, `input[name="option"]`)
			if err != nil {
				return
			}
			if input == nil && node.Type == html.ElementNode && node.Data == "input" {
				input = node
			}
			if input != nil {
				setAttr(input, "value", values[i])
				break
			}
		}
	}
}

func setAttr(n *html.Node, key, value string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && strings.EqualFold(n.Attr[i].Key, key) {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}
