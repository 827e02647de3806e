package api

import (
	"bytes"
	"html/template"
	"net/url"

	"github.com/dgnsrekt/heatmap_agent/internal/capture"
)

type docsLink struct {
	Label string
	Href  string
}

// docsLinks are the quick links pinned above the reference: the demo page
// plus one ready-to-run request per API route.
func docsLinks() []docsLink {
	sym, tf := capture.DefaultSymbol, capture.DefaultTimeframe
	return []docsLink{
		{"Demo page", "/"},
		{"GET /api/map/" + sym + "/" + tf, "/api/map/" + sym + "/" + url.PathEscape(tf)},
		{"GET /api/price/" + sym, "/api/price/" + sym},
		{"GET /api/tools", "/api/tools"},
	}
}

var docsHTML = renderDocs()

func renderDocs() []byte {
	var buf bytes.Buffer
	if err := docsTemplate.Execute(&buf, docsLinks()); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

var docsTemplate = template.Must(template.New("docs").Parse(`<!doctype html>
<html lang="en" data-theme="dark">
<head>
  <meta charset="utf-8" />
  <meta name="referrer" content="same-origin" />
  <meta name="viewport" content="width=device-width, initial-scale=1, shrink-to-fit=no" />
  <title>Liquidation Heatmap Demo API</title>
  <link href="https://unpkg.com/@stoplight/elements@9.0.0/styles.min.css" rel="stylesheet" />
  <script src="https://unpkg.com/@stoplight/elements@9.0.0/web-components.min.js" crossorigin="anonymous"></script>
  <style>
    nav.routes { position: fixed; top: 12px; right: 16px; z-index: 9999; display: flex; gap: 6px; }
    nav.routes a {
      background: #161b22; border: 1px solid #30363d; border-radius: 6px; color: #58a6ff;
      font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; font-size: 12px; font-weight: 500;
      padding: 5px 12px; text-decoration: none;
    }
  </style>
</head>
<body style="height: 100vh; margin: 0; position: relative;">
  <nav class="routes">{{range .}}
    <a href="{{.Href}}">{{.Label}}</a>{{end}}
  </nav>
  <elements-api
    apiDescriptionUrl="/openapi.json"
    router="hash"
    layout="sidebar"
    tryItCredentialsPolicy="same-origin"
    darkMode
  />
</body>
</html>`))
