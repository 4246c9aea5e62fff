package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/graph"
)

var templateExts = []string{".json", ".yaml", ".yml"}

// Templates implements ports.TemplateRepository over a directory of template
// documents. Each file is named after its template id and may be JSON or YAML.
// Files are parsed on every read, so edits on disk apply to the next lookup.
type Templates struct {
	Dir string
}

// NewTemplates creates a repository rooted at dir.
func NewTemplates(dir string) *Templates {
	return &Templates{Dir: dir}
}

// find returns the path of the document holding templateID.
func (t *Templates) find(templateID string) (string, error) {
	for _, ext := range templateExts {
		p := filepath.Join(t.Dir, templateID+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, templateID)
}

// Get loads templateID whatever its status.
func (t *Templates) Get(ctx context.Context, templateID string) (*domain.FlowGraph, error) {
	if err := checkID("template", templateID); err != nil {
		return nil, err
	}
	p, err := t.find(templateID)
	if err != nil {
		return nil, err
	}
	return LoadTemplateFile(p)
}

// GetPublishedGraph returns the graph if it exists and is published.
func (t *Templates) GetPublishedGraph(ctx context.Context, templateID string) (*domain.FlowGraph, error) {
	g, err := t.Get(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if !g.Published() {
		return nil, fmt.Errorf("%w: %s", domain.ErrTemplateNotPublished, templateID)
	}
	return g, nil
}

// Save writes the graph as <templateId>.json, replacing any YAML variant.
func (t *Templates) Save(ctx context.Context, g *domain.FlowGraph) error {
	if err := checkID("template", g.TemplateID); err != nil {
		return err
	}
	data, err := graph.Serialize(g)
	if err != nil {
		return err
	}
	if err := writeAtomic(filepath.Join(t.Dir, g.TemplateID+".json"), data); err != nil {
		return err
	}
	for _, ext := range templateExts[1:] {
		_ = os.Remove(filepath.Join(t.Dir, g.TemplateID+ext))
	}
	return nil
}

// List returns the template ids found in the directory.
func (t *Templates) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(t.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	seen := make(map[string]bool)
	ids := []string{}
	for _, entry := range entries {
		name := entry.Name()
		ext := filepath.Ext(name)
		if entry.IsDir() || !slices.Contains(templateExts, ext) || strings.HasPrefix(name, "tmp-") {
			continue
		}
		id := strings.TrimSuffix(name, ext)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes every document of templateID.
func (t *Templates) Delete(ctx context.Context, templateID string) error {
	if err := checkID("template", templateID); err != nil {
		return err
	}
	for _, ext := range templateExts {
		err := os.Remove(filepath.Join(t.Dir, templateID+ext))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to delete template file: %w", err)
		}
	}
	return nil
}

// LoadTemplateFile parses a single template document, picking the decoder
// from the file extension.
func LoadTemplateFile(path string) (*domain.FlowGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}

	var g *domain.FlowGraph
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		g, err = graph.LoadYAML(data)
	default:
		g, err = graph.Load(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}
