package export

import (
	"html/template"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/folio-scout/harvest-cli/internal/model"
)

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"join": func(items []string) string { return strings.Join(items, ", ") },
}).Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Freelancers: {{.Keyword}}</title>
  <style>
    body { font-family: sans-serif; margin: 2rem; }
    table { border-collapse: collapse; width: 100%; }
    th, td { border: 1px solid #ccc; padding: 6px 10px; text-align: left; }
    th { background: #f0f0f0; }
    .summary { color: #555; margin-bottom: 1rem; }
  </style>
</head>
<body>
  <h1>Freelancers: {{.Keyword}}</h1>
  <p class="summary">
    Outcome: {{.Outcome}} &middot;
    Records: {{len .Records}} &middot;
    Failures: {{len .Failures}} &middot;
    Pages: {{.PagesFetched}}
  </p>
  <table>
    <tr>
      <th>Name</th><th>Username</th><th>Location</th><th>Available</th>
      <th>Categories</th><th>Projects</th><th>Reviews</th>
    </tr>
    {{range .Records}}
    <tr>
      <td><a href="{{.URL}}">{{.DisplayName}}</a></td>
      <td>{{.Username}}</td>
      <td>{{.Location}}</td>
      <td>{{if .Available}}yes{{else}}no{{end}}</td>
      <td>{{join .Categories}}</td>
      <td>{{len .Projects}}</td>
      <td>{{len .Reviews}}</td>
    </tr>
    {{end}}
  </table>
</body>
</html>
`))

func writeHTML(path string, result *model.HarvestResult) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create html")
	}
	defer f.Close()

	if err := reportTmpl.Execute(f, result); err != nil {
		return eris.Wrap(err, "export: render html")
	}
	return nil
}
