// Package optiongrid inserts "option" rows into a form grid on a parsed page.
//
// The page carries three things: an element holding the row template (by
// default <script type="text/x-template" id="tmpl-option">), a grid container
// (".option-grid") whose children are cells (".cell"), and an add control
// ("#option-add"). Initialize compiles the template once, inserts the first
// row and binds the control's click event; every click inserts one more row
// immediately before whatever cell is last at that moment.
//
// When the grid has no cells the row is appended to the container by default
// (see WithFallback). Rows carry the cell class, so later rows then land
// before the previously inserted one.
package optiongrid
