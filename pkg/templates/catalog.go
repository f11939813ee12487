// Package templates is the read-only catalog of playable game skeletons.
package templates

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"sync"
)

//go:embed catalog
var catalogFS embed.FS

const DefaultGameType = "platformer"

var gameTypes = map[string]string{
	"platformer_basic": "platformer",
	"shooter_topdown":  "topdown_shooter",
	"puzzle_match":     "puzzle",
	"runner_endless":   "runner",
	"clicker_idle":     "clicker",
	"defense_tower":    "tower_defense",
}

type Metadata struct {
	TemplateID string   `json:"template_id"`
	Title      string   `json:"title"`
	CoreLoop   string   `json:"core_loop"`
	Controls   string   `json:"controls"`
	Mechanics  []string `json:"mechanics"`
	Complexity string   `json:"complexity"`
	MobileFit  string   `json:"mobile_fit"`
	Tags       []string `json:"tags"`
	GameType   string   `json:"game_type"`
}

type File struct {
	FilePath string `json:"file_path"`
	FileType string `json:"file_type"`
	Content  string `json:"content"`
}

type Template struct {
	Metadata
	Files []File `json:"files"`
}

// FileMap returns the template files keyed by path.
func (t *Template) FileMap() map[string]string {
	out := make(map[string]string, len(t.Files))
	for _, f := range t.Files {
		out[f.FilePath] = f.Content
	}
	return out
}

// Catalog serves the embedded templates. It is safe for concurrent use.
type Catalog struct {
	order     []string
	templates map[string]*Template
	feel      map[string]map[string]interface{}
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the process-wide catalog loaded from the embedded files.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Load(catalogFS, "catalog")
	})
	return defaultCatalog, defaultErr
}

// Load reads catalog.json, feel_defaults.json and one directory of files per template.
func Load(fsys fs.FS, root string) (*Catalog, error) {
	raw, err := fs.ReadFile(fsys, path.Join(root, "catalog.json"))
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var metas []Metadata
	if err := json.Unmarshal(raw, &metas); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{templates: make(map[string]*Template, len(metas))}
	for _, m := range metas {
		if m.GameType == "" {
			m.GameType = GameType(m.TemplateID)
		}
		dir := path.Join(root, m.TemplateID)
		entries, err := fs.ReadDir(fsys, dir)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", m.TemplateID, err)
		}
		t := &Template{Metadata: m}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			content, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
			if err != nil {
				return nil, err
			}
			t.Files = append(t.Files, File{FilePath: e.Name(), FileType: fileType(e.Name()), Content: string(content)})
		}
		c.order = append(c.order, m.TemplateID)
		c.templates[m.TemplateID] = t
	}

	raw, err = fs.ReadFile(fsys, path.Join(root, "feel_defaults.json"))
	if err != nil {
		return nil, fmt.Errorf("read feel defaults: %w", err)
	}
	if err := json.Unmarshal(raw, &c.feel); err != nil {
		return nil, fmt.Errorf("parse feel defaults: %w", err)
	}
	return c, nil
}

func (c *Catalog) List() []Metadata {
	out := make([]Metadata, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.templates[id].Metadata)
	}
	return out
}

func (c *Catalog) Get(id string) (*Template, bool) {
	t, ok := c.templates[id]
	return t, ok
}

func (c *Catalog) Exists(id string) bool {
	_, ok := c.templates[id]
	return ok
}

// FeelDefaults returns the baseline feel sections for a template's game type.
func (c *Catalog) FeelDefaults(templateID string) map[string]interface{} {
	if d, ok := c.feel[GameType(templateID)]; ok {
		return d
	}
	return c.feel[DefaultGameType]
}

func (c *Catalog) GameTypes() []string {
	out := make([]string, 0, len(c.feel))
	for k := range c.feel {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// GameType maps a template id to its archetype. Unknown ids map to platformer.
func GameType(templateID string) string {
	if gt, ok := gameTypes[templateID]; ok {
		return gt
	}
	return DefaultGameType
}

func fileType(name string) string {
	switch path.Ext(name) {
	case ".html":
		return "text/html"
	case ".js":
		return "application/javascript"
	case ".css":
		return "text/css"
	default:
		return "text/plain"
	}
}
