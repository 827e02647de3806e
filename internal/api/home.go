package api

import (
	"bytes"
	"html/template"

	"github.com/dgnsrekt/heatmap_agent/internal/capture"
)

var homeHTML = renderHome()

func renderHome() []byte {
	var buf bytes.Buffer
	data := struct {
		Symbols    []string
		Timeframes []string
		Default    string
		DefaultTF  string
	}{capture.Symbols, capture.Timeframes, capture.DefaultSymbol, capture.DefaultTimeframe}
	if err := homeTemplate.Execute(&buf, data); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

var homeTemplate = template.Must(template.New("home").Parse(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Liquidation Heatmap Demo</title>
  <style>
    body { background: #0d1117; color: #c9d1d9; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; margin: 0; padding: 24px; }
    .card { background: #161b22; border: 1px solid #30363d; border-radius: 8px; padding: 16px; margin-bottom: 16px; max-width: 960px; }
    select, button { background: #21262d; color: #c9d1d9; border: 1px solid #30363d; border-radius: 6px; padding: 6px 10px; margin-right: 8px; }
    button:disabled { opacity: 0.5; }
    #result img { max-width: 100%; margin-top: 12px; border-radius: 6px; }
    .error { color: #f85149; }
    a { color: #58a6ff; }
  </style>
</head>
<body>
  <h1>Liquidation Heatmap Demo</h1>
  <div class="card">
    <h3>Available tools</h3>
    <ul id="tools"><li>Loading...</li></ul>
  </div>
  <div class="card">
    <label>Symbol
      <select id="symbol">{{range .Symbols}}
        <option value="{{.}}"{{if eq . $.Default}} selected{{end}}>{{.}}</option>{{end}}
      </select>
    </label>
    <label>Timeframe
      <select id="timeframe">{{range .Timeframes}}
        <option value="{{.}}"{{if eq . $.DefaultTF}} selected{{end}}>{{.}}</option>{{end}}
      </select>
    </label>
    <button id="price-btn" onclick="getPrice()">Get price</button>
    <button id="map-btn" onclick="getMap()">Capture heatmap</button>
    <div id="result"></div>
  </div>
  <p><a href="/docs">API docs</a></p>
  <script>
    const result = document.getElementById('result');
    function showError(msg) {
      result.innerHTML = '';
      const p = document.createElement('p');
      p.className = 'error';
      p.textContent = msg;
      result.appendChild(p);
    }
    function showText(msg) {
      result.innerHTML = '';
      const p = document.createElement('p');
      p.textContent = msg;
      result.appendChild(p);
    }
    async function loadTools() {
      const list = document.getElementById('tools');
      try {
        const resp = await fetch('/api/tools');
        const data = await resp.json();
        list.innerHTML = '';
        (data.tools || []).forEach(function (t) {
          const li = document.createElement('li');
          li.textContent = t.name + ': ' + t.description;
          list.appendChild(li);
        });
      } catch (e) {
        list.textContent = 'Failed to load tools: ' + e;
      }
    }
    async function getPrice() {
      const symbol = document.getElementById('symbol').value;
      showText('Fetching price...');
      try {
        const resp = await fetch('/api/price/' + encodeURIComponent(symbol));
        const data = await resp.json();
        if (data.success) { showText(data.result); } else { showError(data.error); }
      } catch (e) {
        showError('Request failed: ' + e);
      }
    }
    async function getMap() {
      const symbol = document.getElementById('symbol').value;
      const timeframe = document.getElementById('timeframe').value;
      const btn = document.getElementById('map-btn');
      btn.disabled = true;
      showText('Capturing heatmap, this can take a minute...');
      try {
        const resp = await fetch('/api/map/' + encodeURIComponent(symbol) + '/' + encodeURIComponent(timeframe));
        const data = await resp.json();
        if (!data.success) { showError(data.error); return; }
        showText(data.message);
        if (data.image) {
          const img = document.createElement('img');
          img.src = 'data:image/png;base64,' + data.image;
          img.alt = symbol + ' liquidation heatmap';
          result.appendChild(img);
        }
      } catch (e) {
        showError('Request failed: ' + e);
      } finally {
        btn.disabled = false;
      }
    }
    loadTools();
  </script>
</body>
</html>
`))
