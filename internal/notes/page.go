package notes

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/sprig/v3"
)

// DefaultTheme is used when no code theme is configured or the name is unknown.
const DefaultTheme = "default"

//go:embed templates/page.html
var pageFS embed.FS

var themes = map[string]string{
	"default": `pre { background-color: #f8f8f8; }
      code { color: #333; }`,
	"github": `pre { background-color: #f6f8fa; border: 1px solid #d1d9e0; }
      code { color: #24292e; }`,
	"monokai": `pre { background-color: #272822; }
      code { color: #f8f8f2; }`,
	"vs-dark": `pre { background-color: #1e1e1e; }
      code { color: #d4d4d4; }`,
	"vs-light": `pre { background-color: #ffffff; border: 1px solid #e1e1e1; }
      code { color: #000000; }`,
	"atom-one-dark": `pre { background-color: #282c34; }
      code { color: #abb2bf; }`,
}

var pageTemplate = template.Must(
	template.New("page.html").
		Funcs(sprig.HtmlFuncMap()).
		Funcs(template.FuncMap{"themeCSS": themeCSS}).
		ParseFS(pageFS, "templates/page.html"),
)

// Themes returns the supported code theme names, sorted.
func Themes() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsTheme reports whether name is a supported code theme.
func IsTheme(name string) bool {
	_, ok := themes[name]
	return ok
}

func themeCSS(name string) template.CSS {
	css, ok := themes[name]
	if !ok {
		css = themes[DefaultTheme]
	}
	return template.CSS(css)
}

// PageContent is the input for a new page.
type PageContent struct {
	Title string

	// Body is shown verbatim inside a code block; it is HTML-escaped.
	Body string

	// Language sets the code block class. Defaults to "plaintext".
	Language string

	Tags   []string
	Theme  string
	SentAt time.Time
}

// RenderPage builds the XHTML document posted to the pages endpoint.
func RenderPage(p PageContent) (string, error) {
	if strings.TrimSpace(p.Title) == "" {
		p.Title = "Untitled"
	}
	if p.Language == "" {
		p.Language = "plaintext"
	}
	if p.SentAt.IsZero() {
		p.SentAt = time.Now()
	}

	var tags []string
	for _, tag := range p.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	p.Tags = tags

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("failed to render page: %w", err)
	}
	return buf.String(), nil
}

// LanguageFromFilename derives the code block language from a file extension.
func LanguageFromFilename(name string) string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return "plaintext"
	}
	return strings.ToLower(ext)
}
