package server

import (
	"html/template"
	"net/http"
	"sort"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<title>evotune</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.4em 0.8em; text-align: left; }
th { background: #f0f0f0; }
.state-running { color: #0a0; }
.state-failed { color: #a00; }
</style>
</head>
<body>
<h1>evotune search jobs</h1>
{{if .}}
<table>
<tr><th>ID</th><th>State</th><th>Population</th><th>Generation</th><th>Best cost</th><th>Grade</th><th>Started</th></tr>
{{range .}}
<tr>
<td><a href="/api/v1/jobs/{{.ID}}/status">{{.ID}}</a></td>
<td class="state-{{.State}}">{{.State}}</td>
<td>{{.Config.Population}}</td>
<td>{{.Generation}}/{{.Config.Generations}}</td>
<td>{{printf "%.4f" .BestCost}}</td>
<td>{{printf "%.4f" .Grade}}</td>
<td>{{.StartTime.Format "2006-01-02 15:04:05"}}</td>
</tr>
{{end}}
</table>
{{else}}
<p>No jobs yet. POST a search spec to /api/v1/jobs to start one.</p>
{{end}}
</body>
</html>
`))

// handleIndex handles GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	// Only handle exact root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	jobs := s.jobManager.ListJobs()
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartTime.After(jobs[j].StartTime)
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, jobs); err != nil {
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
}
