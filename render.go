package main

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"
)

// Renderer resolves template references to rendered HTML.
type Renderer struct {
	tpl *template.Template
}

func NewRenderer(dir string) (*Renderer, error) {
	tpl, err := template.ParseGlob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("parsing templates in %s: %w", dir, err)
	}
	return &Renderer{tpl: tpl}, nil
}

func (r *Renderer) Render(templateRef string) ([]byte, error) {
	t := r.tpl.Lookup(templateRef)
	if t == nil {
		return nil, fmt.Errorf("unknown template %q", templateRef)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, nil); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
