package render

import (
	"bytes"
	"embed"
	"html/template"
	"path/filepath"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"entityLabel": func(key string, info EntityInfo) string {
		if info.Name != "" {
			return info.Name
		}
		return key
	},
	"deref": func(b *bool) bool {
		if b == nil {
			return false
		}
		return *b
	},
}

// HtmlRenderer renders the five static pages with Go's html/template, whose
// automatic contextual escaping is what satisfies the never-interpolate-
// unescaped-content requirement on story titles.
type HtmlRenderer struct {
	outputDir string
	writer    *AtomicWriter
	templates *template.Template
}

// NewHtmlRenderer parses the embedded templates and builds an HtmlRenderer
// that writes pages under outputDir via w.
func NewHtmlRenderer(outputDir string, w *AtomicWriter) (*HtmlRenderer, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &HtmlRenderer{outputDir: outputDir, writer: w, templates: tmpl}, nil
}

// archivePageData is the data handed to archive.html: the page only needs
// the run date and the collected archive dates, not the full RenderContext.
type archivePageData struct {
	RunDate      string
	ArchiveDates []string
}

// statusPageData is the data handed to status.html.
type statusPageData struct {
	RecentRuns []RunInfo
}

// Render writes index.html, day/<runDate>.html, archive.html, sources.html,
// and status.html, returning their manifest entries in that order.
func (r *HtmlRenderer) Render(ctx RenderContext, archiveDates []string) ([]GeneratedFile, error) {
	var files []GeneratedFile

	indexFile, err := r.renderTemplate("index.html", filepath.Join(r.outputDir, "index.html"), ctx)
	if err != nil {
		return nil, err
	}
	files = append(files, indexFile)

	dayFile, err := r.renderTemplate("day.html", filepath.Join(r.outputDir, "day", ctx.RunDate+".html"), ctx)
	if err != nil {
		return nil, err
	}
	files = append(files, dayFile)

	archiveFile, err := r.renderTemplate("archive.html", filepath.Join(r.outputDir, "archive.html"), archivePageData{
		RunDate:      ctx.RunDate,
		ArchiveDates: archiveDates,
	})
	if err != nil {
		return nil, err
	}
	files = append(files, archiveFile)

	sourcesFile, err := r.renderTemplate("sources.html", filepath.Join(r.outputDir, "sources.html"), ctx)
	if err != nil {
		return nil, err
	}
	files = append(files, sourcesFile)

	statusFile, err := r.renderTemplate("status.html", filepath.Join(r.outputDir, "status.html"), statusPageData{
		RecentRuns: ctx.RecentRuns,
	})
	if err != nil {
		return nil, err
	}
	files = append(files, statusFile)

	return files, nil
}

func (r *HtmlRenderer) renderTemplate(name, path string, data any) (GeneratedFile, error) {
	started := time.Now()
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return GeneratedFile{}, err
	}
	f, err := r.writer.Write(path, buf.Bytes())
	templateDurationSeconds.WithLabelValues(name).Observe(time.Since(started).Seconds())
	return f, err
}
