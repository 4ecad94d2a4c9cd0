package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"sort"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

//go:embed templates/*.html
var templatesFS embed.FS

// record fields holding the description text, in lookup order
var descriptionFields = []string{"text", "content"}

type Renderer struct {
	templates *template.Template
	markdown  goldmark.Markdown
}

func NewRenderer() (*Renderer, error) {
	templates, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &Renderer{
		templates: templates,
		// raw HTML in the markdown source is not rendered
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}, nil
}

func (r *Renderer) Render(w io.Writer, page string, data any) error {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, page, data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func (r *Renderer) Markdown(source string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

type itemView struct {
	ID     string
	Fields map[string]any
	JSON   string
}

type listView struct {
	Name  string
	Items []itemView
}

type singletonView struct {
	Name string
	JSON string
}

type indexPage struct {
	Title       string
	Profile     map[string]any
	Socials     map[string]any
	Description template.HTML
	Lists       []listView
}

type loginPage struct {
	Title string
	Email string
	Error string
}

type adminPage struct {
	Title      string
	Error      string
	Singletons []singletonView
	Lists      []listView
}

func (r *Renderer) buildIndexPage(tree map[string]any, singletons map[string]bool) indexPage {
	page := indexPage{
		Title:   "Portfolio",
		Profile: asMap(tree["profile"]),
		Socials: asMap(tree["socials"]),
		Lists:   listViews(tree, singletons),
	}
	if name, ok := page.Profile["name"].(string); ok && name != "" {
		page.Title = name
	}

	if desc := descriptionText(tree["description"]); desc != "" {
		rendered, err := r.Markdown(desc)
		if err == nil {
			page.Description = rendered
		}
	}

	return page
}

func buildAdminPage(tree map[string]any, singletons map[string]bool) adminPage {
	page := adminPage{
		Title: "Portfolio admin",
		Lists: listViews(tree, singletons),
	}
	for _, name := range sortedKeys(singletons) {
		page.Singletons = append(page.Singletons, singletonView{
			Name: name,
			JSON: toJSON(tree[name]),
		})
	}
	return page
}

// listViews returns every category that is not a singleton, sorted by name.
// Items are ordered by key, which for generated keys is creation order.
func listViews(tree map[string]any, singletons map[string]bool) []listView {
	var lists []listView
	for _, name := range sortedKeys(tree) {
		if singletons[name] {
			continue
		}
		items := asMap(tree[name])
		list := listView{Name: name}
		for _, id := range sortedKeys(items) {
			list.Items = append(list.Items, itemView{
				ID:     id,
				Fields: asMap(items[id]),
				JSON:   toJSON(items[id]),
			})
		}
		lists = append(lists, list)
	}
	return lists
}

func descriptionText(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case map[string]any:
		for _, field := range descriptionFields {
			if text, ok := v[field].(string); ok && text != "" {
				return text
			}
		}
	}
	return ""
}

func asMap(value any) map[string]any {
	if m, ok := value.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toJSON(value any) string {
	if value == nil {
		return "{}"
	}
	content, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(content)
}
