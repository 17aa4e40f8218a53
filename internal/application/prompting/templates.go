package prompting

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"3tcapital/ms_extraccion_core/internal/core/blob"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var funcs = template.FuncMap{
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	},
	"join": strings.Join,
}

// Templates renders prompt templates. Built-in templates are embedded; a
// merchant may replace any of them with a template stored at a blob key.
type Templates struct {
	store     blob.Store
	mu        sync.RWMutex
	overrides map[string]*template.Template
	builtin   *template.Template
}

// NewTemplates parses the embedded templates. store may be nil when no
// overrides are used.
func NewTemplates(store blob.Store) (*Templates, error) {
	builtin, err := template.New("prompts").Funcs(funcs).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse prompt templates: %w", err)
	}
	return &Templates{
		store:     store,
		overrides: map[string]*template.Template{},
		builtin:   builtin,
	}, nil
}

// Render executes the template called name, or the template at overrideKey
// when one is configured.
func (t *Templates) Render(ctx context.Context, name, overrideKey string, data any) (string, error) {
	tmpl, err := t.lookup(ctx, name, overrideKey)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

func (t *Templates) lookup(ctx context.Context, name, overrideKey string) (*template.Template, error) {
	if strings.TrimSpace(overrideKey) == "" || t.store == nil {
		tmpl := t.builtin.Lookup(name + ".tmpl")
		if tmpl == nil {
			return nil, fmt.Errorf("prompt template %q not found", name)
		}
		return tmpl, nil
	}

	t.mu.RLock()
	tmpl, ok := t.overrides[overrideKey]
	t.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	raw, err := t.store.Get(ctx, overrideKey)
	if err != nil {
		return nil, fmt.Errorf("load prompt override %s: %w", overrideKey, err)
	}
	tmpl, err = template.New(overrideKey).Funcs(funcs).Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse prompt override %s: %w", overrideKey, err)
	}

	t.mu.Lock()
	t.overrides[overrideKey] = tmpl
	t.mu.Unlock()
	return tmpl, nil
}
