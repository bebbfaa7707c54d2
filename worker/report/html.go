package report

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
)

// RenderHTML produces a standalone HTML document with the summary table
// followed by the detail table. The image cell of each detail group spans
// the rows its algorithms contribute.
func RenderHTML(r *Report) string {
	var b strings.Builder

	b.WriteString("<html>\n<head>\n<meta charset=\"UTF-8\">\n<style>\n")
	b.WriteString("body { font-family: Arial, sans-serif; }\n")
	b.WriteString("table { width: 100%; border-collapse: collapse; margin: 10px 0; }\n")
	b.WriteString("th, td { border: 1px solid black; padding: 8px; text-align: center; }\n")
	b.WriteString("th { background-color: #f2f2f2; }\n")
	b.WriteString("</style>\n</head>\n<body>\n")

	fmt.Fprintf(&b, "<h1 style=\"text-align: center;\">%s</h1>\n", html.EscapeString(r.Title))
	if r.TemplateFallback {
		b.WriteString("<p>Warning: no template image was found; the first candidate image was used as the template.</p>\n")
	}

	b.WriteString("<table>\n<tr><th>Algorithm</th><th>Images</th><th>Passed</th><th>Failed</th></tr>\n")
	for _, row := range r.Summary {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%d</td><td>%d</td><td>%d</td></tr>\n",
			row.Name, row.Total, row.Passed, row.Failed)
	}
	fmt.Fprintf(&b, "<tr><td>%s</td><td>%d</td><td>%d</td><td>%d</td></tr>\n",
		r.GrandTotal.Name, r.GrandTotal.Total, r.GrandTotal.Passed, r.GrandTotal.Failed)
	b.WriteString("</table>\n")

	b.WriteString("<table>\n<tr><th>Image</th><th>Algorithm</th><th>Metric</th><th>Score</th><th>Raw value</th><th>Result</th><th>Pass</th></tr>\n")
	rowsPerImage := make(map[string]int)
	for _, row := range r.Details {
		rowsPerImage[row.Image]++
	}
	rendered := make(map[string]bool)
	for _, row := range r.Details {
		b.WriteString("<tr>")
		if !rendered[row.Image] {
			rendered[row.Image] = true
			fmt.Fprintf(&b, "<td rowspan='%d'>%s</td>", rowsPerImage[row.Image], html.EscapeString(row.Image))
		}
		pass := "no"
		if row.Pass {
			pass = "yes"
		}
		fmt.Fprintf(&b, "<td>%s</td><td>%s</td><td>%.3f</td><td>%.3f</td><td>%s</td><td>%s</td></tr>\n",
			row.Algorithm, row.Metric, row.Value, row.Raw, row.Label, pass)
	}
	b.WriteString("</table>\n</body>\n</html>\n")

	return b.String()
}

// WriteHTML renders the report into dir with a timestamped filename and
// returns the file path.
func WriteHTML(r *Report, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	name := fmt.Sprintf("%s_%s.html", strings.ReplaceAll(r.Title, " ", "_"), r.GeneratedAt.Format("20060102150405"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(RenderHTML(r)), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
