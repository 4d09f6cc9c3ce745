package template

import (
	"io"
)

// TemplateRenderer is the engine contract page renderers depend on. Named
// templates are resolved by the engine's loaders; RenderString parses ad-hoc
// content on every call. GlobalContext merges values visible to every
// template the engine renders.
type TemplateRenderer interface {
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
	GlobalContext(data any) error
}

// Compiled is a parsed template that can be rendered many times without
// reparsing its source.
type Compiled interface {
	Render(data any, out ...io.Writer) (string, error)
}

// Compiler turns template source text into a reusable Compiled template.
type Compiler interface {
	Compile(templateContent string) (Compiled, error)
}

// CompilerFunc adapts a plain function to the Compiler interface.
type CompilerFunc func(templateContent string) (Compiled, error)

// Compile calls f.
func (f CompilerFunc) Compile(templateContent string) (Compiled, error) {
	return f(templateContent)
}
