// Package web provides the embedded dashboard templates and static assets.
package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/labstack/echo/v4"
	"github.com/ycsa-dashboard/backend/internal/models"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static/*
var staticFiles embed.FS

// Page names understood by the renderer.
const (
	PageIndex   = "index"
	PageSession = "session"
)

// Branding is the text shown around every page.
type Branding struct {
	Title       string
	LogoURL     string
	SidebarInfo string
	SidebarTips string // markdown
	Footer      string
}

// Page is the data handed to a page template.
type Page struct {
	Session    *models.Session
	Preview    *models.TablePreview
	Result     *models.RunResult
	Error      string
	Extensions []string
}

// view wraps a Page with the shared branding.
type view struct {
	Page
	Title     string
	Logo      string
	Info      string
	Tips      template.HTML
	Footer    string
	AcceptExt string
}

// Renderer renders dashboard pages. It implements echo.Renderer.
type Renderer struct {
	pages    map[string]*template.Template
	branding Branding
	tips     template.HTML
}

// NewRenderer parses the embedded templates.
func NewRenderer(b Branding) (*Renderer, error) {
	funcs := template.FuncMap{
		"figure": FigureJS,
		"sizeKB": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	}
	base, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFiles, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parsing layout: %w", err)
	}

	r := &Renderer{
		pages:    make(map[string]*template.Template),
		branding: b,
		tips:     RenderMarkdown(b.SidebarTips),
	}
	for _, name := range []string{PageIndex, PageSession} {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFiles, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render implements echo.Renderer. data must be a Page or *Page.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var p Page
	switch d := data.(type) {
	case Page:
		p = d
	case *Page:
		if d != nil {
			p = *d
		}
	case nil:
	default:
		return fmt.Errorf("unsupported page data %T", data)
	}
	return t.ExecuteTemplate(w, "layout.html", view{
		Page:      p,
		Title:     r.branding.Title,
		Logo:      r.branding.LogoURL,
		Info:      r.branding.SidebarInfo,
		Tips:      r.tips,
		Footer:    r.branding.Footer,
		AcceptExt: strings.Join(p.Extensions, ","),
	})
}

// RenderMarkdown converts trusted config markdown to HTML.
func RenderMarkdown(md string) template.HTML {
	if md == "" {
		return ""
	}
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.HardLineBreak)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	return template.HTML(markdown.ToHTML([]byte(md), p, renderer))
}

// FigureJS makes a figure payload safe to embed in a script element.
func FigureJS(raw json.RawMessage) template.JS {
	if len(raw) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	json.HTMLEscape(&buf, raw)
	return template.JS(buf.String())
}

// StaticFS returns the embedded static assets rooted at static/.
func StaticFS() fs.FS {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// RegisterStaticRoutes serves the embedded assets under /static.
func RegisterStaticRoutes(e *echo.Echo) {
	e.StaticFS("/static", StaticFS())
}
