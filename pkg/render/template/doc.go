// Package template defines engine-agnostic template interfaces. Page handlers
// render named templates through TemplateRenderer while fragment renderers
// (option rows and similar) compile their source once through Compiler and
// render the Compiled result on every insertion.
package template
