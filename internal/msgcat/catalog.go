// Package msgcat holds the player-facing message catalog. Messages live in
// an embedded YAML file, flattened to dot-separated keys, and individual
// keys can be overridden by YAML files in an operator-supplied directory.
package msgcat

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.en.yaml
var embeddedMessages []byte

// Catalog resolves message keys to rendered text. It is immutable after New
// and safe for concurrent use.
type Catalog struct {
	entries map[string]string // flattened dot-keys → template text
}

// New loads the embedded defaults and then merges every *.yaml or *.yml
// file from overrideDir, if given, on top of them. Override files use the
// same nested layout as the embedded catalog.
func New(overrideDir string) (*Catalog, error) {
	entries, err := parseYAMLToFlat(embeddedMessages)
	if err != nil {
		return nil, fmt.Errorf("parse embedded messages: %w", err)
	}
	c := &Catalog{entries: entries}
	if strings.TrimSpace(overrideDir) != "" {
		if err := c.applyDir(overrideDir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) applyDir(dir string) error {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read override dir: %w", err)
	}
	files := make([]string, 0, len(dirEntries))
	for _, e := range dirEntries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	for _, name := range files {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		flat, err := parseYAMLToFlat(raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		for k, v := range flat {
			c.entries[k] = v
		}
	}
	return nil
}

// Lookup returns the raw template text for key.
func (c *Catalog) Lookup(key string) (string, bool) {
	v, ok := c.entries[strings.TrimSpace(key)]
	return v, ok
}

// Render executes the template stored under key with data. Unknown keys and
// missing template fields are errors; callers wanting a fallback use
// RenderOr instead.
func (c *Catalog) Render(key string, data any) (string, error) {
	raw, ok := c.entries[strings.TrimSpace(key)]
	if !ok || strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("template not found: %s", key)
	}
	if !strings.Contains(raw, "{{") {
		return raw, nil
	}
	t, err := template.New(key).Option("missingkey=error").Parse(raw)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// RenderOr renders key, falling back to the given text when the key is
// missing or its template fails.
func (c *Catalog) RenderOr(key string, data any, fallback string) string {
	out, err := c.Render(key, data)
	if err != nil {
		return fallback
	}
	return out
}

func parseYAMLToFlat(raw []byte) (map[string]string, error) {
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}
	flat := make(map[string]string)
	flatten("", tree, flat)
	return flat, nil
}

func flatten(prefix string, tree map[string]any, out map[string]string) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = val
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprintf("%v", val)
		}
	}
}
