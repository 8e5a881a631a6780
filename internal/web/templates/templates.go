// Package templates renders the HTML served by the web package.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// IndexData is what the upload page needs to render its form.
type IndexData struct {
	DefaultRows  int
	MaxRows      int
	MaxFileMB    int64
	Formats      []string
	Models       []string
	DefaultModel string
	Strategies   []string
}

// Index renders the upload form. The form posts to /generate/ with fetch and
// shows the download link or the error returned as JSON.
func Index(d IndexData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(pageHead)
		b.WriteString(`<main><h1>Synthetic data generator</h1>`)
		b.WriteString(`<p>Upload a CSV, TSV or Excel file. Missing and masked cells are filled, then the table is extended or truncated to the requested size.</p>`)
		fmt.Fprintf(&b, `<form id="generate" action="/generate/" method="post" enctype="multipart/form-data">`)
		fmt.Fprintf(&b, `<label>File (max %d MB)<input type="file" name="file" accept=".csv,.tsv,.xls,.xlsx" required></label>`, d.MaxFileMB)
		fmt.Fprintf(&b, `<label>Rows<input type="number" name="num_rows" min="1" max="%d" value="%d"></label>`, d.MaxRows, d.DefaultRows)
		b.WriteString(`<label>Output type`)
		writeSelect(&b, "output_file_type", d.Formats, "csv")
		b.WriteString(`</label><label>Model`)
		writeSelect(&b, "model_type", d.Models, d.DefaultModel)
		b.WriteString(`</label><label>Fill strategy`)
		writeSelect(&b, "fill_strategy", d.Strategies, "")
		b.WriteString(`</label><button type="submit">Generate</button></form>`)
		b.WriteString(`<div id="result" role="status"></div></main>`)
		b.WriteString(pageScript)
		b.WriteString(`</body></html>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// ErrorAlert renders an error fragment for HTMX requests.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<div class="alert alert-error" role="alert"><strong>%s</strong> <span>%s</span> <small>Code: %s</small></div>`,
			templ.EscapeString(message), templ.EscapeString(action), templ.EscapeString(code))
		return err
	})
}

func writeSelect(b *strings.Builder, name string, options []string, selected string) {
	fmt.Fprintf(b, `<select name="%s">`, templ.EscapeString(name))
	for i, o := range options {
		attr := ""
		if o == selected || (selected == "" && i == 0) {
			attr = " selected"
		}
		esc := templ.EscapeString(o)
		fmt.Fprintf(b, `<option value="%s"%s>%s</option>`, esc, attr, esc)
	}
	b.WriteString(`</select>`)
}

const pageHead = `<!DOCTYPE html>
<html lang="en"><head><meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Synthetic data generator</title>
<style>
body{font-family:system-ui,sans-serif;margin:0;background:#f6f7f9;color:#1f2933}
main{max-width:36rem;margin:3rem auto;padding:2rem;background:#fff;border-radius:.5rem;box-shadow:0 1px 3px rgba(0,0,0,.1)}
label{display:block;margin:1rem 0 .25rem;font-weight:600}
input,select{display:block;width:100%;margin-top:.25rem;padding:.4rem}
button{margin-top:1.5rem;padding:.6rem 1.2rem}
.alert{margin-top:1rem;padding:.75rem;border-radius:.25rem}
.alert-error{background:#fde8e8;color:#9b1c1c}
.alert-success{background:#def7ec;color:#03543f}
</style></head><body>`

const pageScript = `<script>
document.getElementById("generate").addEventListener("submit", async function (e) {
  e.preventDefault();
  const out = document.getElementById("result");
  out.className = "";
  out.textContent = "Generating...";
  const resp = await fetch(this.action, {method: "POST", body: new FormData(this), headers: {"Accept": "application/json"}});
  const body = await resp.json();
  if (resp.ok) {
    out.className = "alert alert-success";
    out.innerHTML = "";
    const a = document.createElement("a");
    a.href = body.file;
    a.textContent = "Download " + decodeURIComponent(body.file.split("/").pop());
    out.appendChild(a);
  } else {
    out.className = "alert alert-error";
    out.textContent = body.message + " (Code: " + body.code + ") " + (body.action || "");
  }
});
</script>`
