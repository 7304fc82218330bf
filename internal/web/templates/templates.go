// Package templates holds the HTML components for the web UI.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/shiplabel/internal/core"
	"github.com/JonMunkholm/shiplabel/internal/label"
)

// UploadPageParams feeds the upload page.
type UploadPageParams struct {
	RemarkColumns  []string
	HandleColumns  []string
	MaxFileSize    int64
	HistoryEnabled bool
	Recent         []core.BatchSummary
}

// ResultParams feeds the conversion result partial.
type ResultParams struct {
	Batch       core.BatchSummary
	Preview     *label.Table
	DownloadURL string
}

// html accumulates writes and keeps the first error.
type html struct {
	w   io.Writer
	err error
}

func (h *html) raw(parts ...string) {
	for _, s := range parts {
		if h.err != nil {
			return
		}
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *html) render(ctx context.Context, c templ.Component) {
	if h.err != nil {
		return
	}
	h.err = c.Render(ctx, h.w)
}

// Layout wraps body in the page shell.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
			`<title>`)
		h.text(title)
		h.raw(`</title><style>`, pageCSS, `</style></head><body><main>`)
		h.render(ctx, body)
		h.raw(`</main></body></html>`)
		return h.err
	})
}

// UploadPage is the landing page with the upload form and recent batches.
func UploadPage(p UploadPageParams) templ.Component {
	return Layout("USPS label generator", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<h1>USPS label generator</h1>`,
			`<p>Upload a CSV with a remark column (`)
		h.text(strings.Join(p.RemarkColumns, ", "))
		h.raw(`) and a handle column (`)
		h.text(strings.Join(p.HandleColumns, ", "))
		h.raw(`). Maximum size `)
		h.text(formatBytes(p.MaxFileSize))
		h.raw(`.</p>`,
			`<form method="post" action="/convert" enctype="multipart/form-data" hx-post="/convert" hx-target="#result" hx-encoding="multipart/form-data">`,
			`<input type="file" name="file" accept=".csv,text/csv" required> `,
			`<button type="submit">Convert</button> `,
			`<a href="/api/template">Download empty template</a>`,
			`</form><div id="result"></div>`)
		h.render(ctx, RecentBatches(p.Recent, p.HistoryEnabled))
		return h.err
	}))
}

// RecentBatches lists converted batches, newest first.
func RecentBatches(batches []core.BatchSummary, historyEnabled bool) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<section id="recent"><h2>Recent batches</h2>`)
		if len(batches) == 0 {
			h.raw(`<p class="muted">No batches yet.</p></section>`)
			return h.err
		}
		if !historyEnabled {
			h.raw(`<p class="muted">History is kept in memory only.</p>`)
		}
		h.raw(`<table><thead><tr><th>File</th><th>Rows</th><th>Warnings</th><th>Ship date</th><th>Created</th><th></th></tr></thead><tbody>`)
		for _, b := range batches {
			h.raw(`<tr><td>`)
			h.text(b.FileName)
			h.raw(`</td><td>`)
			h.text(fmt.Sprint(b.Rows))
			h.raw(`</td><td>`)
			h.text(fmt.Sprint(b.Warnings))
			h.raw(`</td><td>`)
			h.text(b.ShipDate)
			h.raw(`</td><td>`)
			h.text(b.CreatedAt.Format("2006-01-02 15:04"))
			h.raw(`</td><td><a href="`)
			h.text(string(templ.URL(DownloadURL(b.ID))))
			h.raw(`">Download</a></td></tr>`)
		}
		h.raw(`</tbody></table></section>`)
		return h.err
	})
}

// ConvertResult shows the batch summary, a preview of the merged rows and
// the download link.
func ConvertResult(p ResultParams) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<section class="result"><h2>`)
		h.text(p.Batch.FileName)
		h.raw(`</h2><p>`)
		h.text(fmt.Sprintf("%d rows converted, %d with warnings, %d blank rows skipped.",
			p.Batch.Rows, p.Batch.Warnings, p.Batch.BlankRows))
		h.raw(` <a class="button" href="`)
		h.text(string(templ.URL(p.DownloadURL)))
		h.raw(`">Download `)
		h.text(label.DefaultFileName)
		h.raw(`</a></p>`)
		if p.Preview != nil {
			h.render(ctx, PreviewTable(p.Preview))
		}
		h.raw(`</section>`)
		return h.err
	})
}

// ResultPage is ConvertResult as a full page.
func ResultPage(p ResultParams) templ.Component {
	return Layout(p.Batch.FileName, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<p><a href="/">Back</a></p>`)
		h.render(ctx, ConvertResult(p))
		return h.err
	}))
}

// PreviewTable renders every column of t. Rows with a parse note are
// highlighted.
func PreviewTable(t *label.Table) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<div class="scroll"><table class="preview"><thead><tr>`)
		for _, col := range t.Header {
			h.raw(`<th>`)
			h.text(col)
			h.raw(`</th>`)
		}
		h.raw(`</tr></thead><tbody>`)
		for i, row := range t.Rows {
			if t.Value(i, label.ColParseNote) != "" {
				h.raw(`<tr class="warn">`)
			} else {
				h.raw(`<tr>`)
			}
			for _, cell := range row {
				h.raw(`<td>`)
				h.text(cell)
				h.raw(`</td>`)
			}
			h.raw(`</tr>`)
		}
		h.raw(`</tbody></table></div>`)
		return h.err
	})
}

// ErrorAlert renders a user-facing error with its support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<div class="alert" role="alert"><strong>`)
		h.text(message)
		h.raw(`</strong>`)
		if action != "" {
			h.raw(`<p>`)
			h.text(action)
			h.raw(`</p>`)
		}
		h.raw(`<p class="muted">Code: `)
		h.text(code)
		h.raw(`</p></div>`)
		return h.err
	})
}

// ErrorPage is ErrorAlert as a full page.
func ErrorPage(message, action, code string) templ.Component {
	return Layout("Error", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.render(ctx, ErrorAlert(message, action, code))
		h.raw(`<p><a href="/">Back</a></p>`)
		return h.err
	}))
}

// DownloadURL is the CSV download path for a batch. It is served outside
// the API key group so browser links work when keys are required.
func DownloadURL(batchID string) string {
	return "/batch/" + batchID + "/download"
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

const pageCSS = `body{font-family:system-ui,sans-serif;margin:0;background:#f7f7f8;color:#1f2328}
main{max-width:1100px;margin:0 auto;padding:24px}
table{border-collapse:collapse;font-size:13px}
th,td{border:1px solid #d0d7de;padding:4px 8px;text-align:left;white-space:nowrap}
th{background:#eef1f4}
tr.warn td{background:#fff8c5}
.scroll{overflow-x:auto;max-width:100%}
.alert{border:1px solid #cf222e;background:#ffebe9;padding:12px;margin:12px 0}
.muted{color:#656d76}
.button{display:inline-block;padding:4px 10px;border:1px solid #1f883d;color:#1f883d;text-decoration:none}`
