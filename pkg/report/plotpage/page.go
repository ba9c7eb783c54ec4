// Package plotpage renders report pages: themed go-echarts charts embedded
// in a self-contained HTML page with navigation, a summary table, and a
// footer.
package plotpage

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"
)

const styleTagLen = 8 // len("</style>")

// NavLink is one entry in the page's team navigation bar.
type NavLink struct {
	Label  string
	Href   string
	Active bool
}

// Section is one chart block within a page.
type Section struct {
	Title string
	Chart Renderable
}

// SummaryTable is the per-project numbers table at the top of a page.
type SummaryTable struct {
	Headers []string
	Rows    [][]string
}

// Page is a complete report page.
type Page struct {
	Title     string
	Subtitle  string
	Generated string

	Nav      []NavLink
	NotFound []string
	Summary  *SummaryTable
	Sections []Section

	IssueLink    string
	ContactEmail string
	Version      string

	Theme Theme
}

// NewPage creates a page with the default light theme.
func NewPage(title, subtitle string) *Page {
	return &Page{
		Title:    title,
		Subtitle: subtitle,
		Theme:    ThemeLight,
	}
}

// WithTheme sets the theme for the page.
func (p *Page) WithTheme(theme Theme) *Page {
	p.Theme = theme

	return p
}

// Add appends sections to the page.
func (p *Page) Add(sections ...Section) {
	p.Sections = append(p.Sections, sections...)
}

// Renderable is the interface for chart components.
type Renderable interface {
	Render(w io.Writer) error
}

// Render writes the page as HTML.
func (p *Page) Render(w io.Writer) error {
	sections := make([]sectionData, 0, len(p.Sections))

	for _, section := range p.Sections {
		html, err := renderTemplate("section.html", sectionData{
			Title: section.Title,
			Chart: template.HTML(renderChart(section.Chart)),
		})
		if err != nil {
			return fmt.Errorf("render section %q: %w", section.Title, err)
		}

		sections = append(sections, sectionData{
			Title: section.Title,
			Chart: html,
		})
	}

	data := pageData{
		Title:        p.Title,
		Subtitle:     p.Subtitle,
		Generated:    p.Generated,
		Nav:          p.Nav,
		NotFound:     p.NotFound,
		Summary:      p.Summary,
		Sections:     sections,
		IssueLink:    p.IssueLink,
		ContactEmail: p.ContactEmail,
		Version:      p.Version,
		Theme:        GetThemeConfig(p.Theme),
	}

	html, err := renderTemplate("page.html", data)
	if err != nil {
		return fmt.Errorf("render page: %w", err)
	}

	_, err = w.Write([]byte(html))
	if err != nil {
		return fmt.Errorf("writing page: %w", err)
	}

	return nil
}

func renderChart(chart Renderable) string {
	if chart == nil {
		return ""
	}

	var buf bytes.Buffer

	err := chart.Render(&buf)
	if err != nil {
		return ""
	}

	return extractChartContent(buf.String())
}

// extractChartContent pulls the chart container and its script out of the
// full HTML page go-echarts emits, so the chart can be embedded in ours.
func extractChartContent(html string) string {
	trimmed := strings.TrimSpace(html)
	if !strings.HasPrefix(trimmed, "<!DOCTYPE") && !strings.HasPrefix(trimmed, "<html") {
		return html
	}

	start := strings.Index(html, `<div class="container">`)
	if start == -1 {
		return html
	}

	end := strings.Index(html, `</body>`)
	if end == -1 {
		return html
	}

	content := html[start:end]
	content = strings.ReplaceAll(content, `class="container"`, `class="echart-box"`)
	content = removeStyleTags(content)

	return content
}

func removeStyleTags(content string) string {
	for {
		i := strings.Index(content, `<style>`)
		if i == -1 {
			break
		}

		j := strings.Index(content[i:], `</style>`)
		if j == -1 {
			break
		}

		content = content[:i] + content[i+j+styleTagLen:]
	}

	return content
}
