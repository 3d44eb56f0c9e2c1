// Package msgcat holds the user-facing texts of the board server.
//
// Texts are text/template sources keyed by their dotted YAML path
// ("result.timeout"). The embedded English file is always loaded; an optional
// directory of *.yaml files may replace or add keys.
package msgcat

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.en.yaml
var embeddedEN []byte

// Catalog is immutable once built and safe for concurrent use.
type Catalog struct {
	texts map[string]*template.Template
}

// New loads the embedded texts and then the overrides in dir, if dir is set.
// A key defined by two override files is an error; overrides may shadow
// embedded keys freely.
func New(dir string) (*Catalog, error) {
	sources, err := flatten("messages.en.yaml", embeddedEN)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dir) != "" {
		overrides, err := readOverrides(dir)
		if err != nil {
			return nil, err
		}
		for k, v := range overrides {
			sources[k] = v
		}
	}

	c := &Catalog{texts: make(map[string]*template.Template, len(sources))}
	for key, src := range sources {
		t, err := template.New(key).Option("missingkey=error").Parse(src)
		if err != nil {
			return nil, fmt.Errorf("message %s: %w", key, err)
		}
		c.texts[key] = t
	}
	return c, nil
}

// MustDefault is New("") for callers that cannot fail; only a broken build panics.
func MustDefault() *Catalog {
	c, err := New("")
	if err != nil {
		panic(err)
	}
	return c
}

func readOverrides(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read message dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			if !e.IsDir() {
				names = append(names, e.Name())
			}
		}
	}
	slices.Sort(names)

	merged := make(map[string]string)
	origin := make(map[string]string)
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		flat, err := flatten(name, raw)
		if err != nil {
			return nil, err
		}
		for k, v := range flat {
			if prev, dup := origin[k]; dup {
				return nil, fmt.Errorf("duplicate message %q in %s and %s", k, prev, name)
			}
			origin[k] = name
			merged[k] = v
		}
	}
	return merged, nil
}

// flatten turns nested YAML mappings into dotted keys. Every leaf must be a string.
func flatten(name string, raw []byte) (map[string]string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	out := make(map[string]string)
	if len(doc.Content) == 0 {
		return out, nil
	}
	if err := walk(doc.Content[0], "", out); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func walk(n *yaml.Node, path string, out map[string]string) error {
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			if path != "" {
				key = path + "." + key
			}
			if err := walk(n.Content[i+1], key, out); err != nil {
				return err
			}
		}
		return nil
	case yaml.ScalarNode:
		switch {
		case n.ShortTag() == "!!null":
			return nil
		case n.ShortTag() != "!!str":
			return fmt.Errorf("line %d: %s must be a string, got %s", n.Line, path, n.ShortTag())
		case path == "":
			return fmt.Errorf("line %d: top-level string has no key", n.Line)
		}
		out[path] = n.Value
		return nil
	default:
		return fmt.Errorf("line %d: %s must be a mapping or string", n.Line, path)
	}
}

// Has reports whether key names a message.
func (c *Catalog) Has(key string) bool {
	_, ok := c.texts[strings.TrimSpace(key)]
	return ok
}

// Render fills the message key with data. Unknown keys and fields missing
// from data are errors.
func (c *Catalog) Render(key string, data any) (string, error) {
	t, ok := c.texts[strings.TrimSpace(key)]
	if !ok {
		return "", fmt.Errorf("unknown message %q", key)
	}
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// RenderOr is Render returning fallback on any error, including a nil Catalog.
func (c *Catalog) RenderOr(key string, data any, fallback string) string {
	if c == nil {
		return fallback
	}
	s, err := c.Render(key, data)
	if err != nil {
		return fallback
	}
	return s
}
