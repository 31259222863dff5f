package api

import "net/http"

const landingHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Document Similarity</title>
<style>
  *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #0f172a; color: #e2e8f0; min-height: 100vh; display: flex; align-items: center; justify-content: center; }
  .card { max-width: 600px; width: 90%; background: #1e293b; border-radius: 12px; padding: 2.5rem; box-shadow: 0 25px 50px rgba(0,0,0,0.4); }
  h1 { font-size: 1.75rem; margin-bottom: 1.75rem; color: #f8fafc; }
  h2 { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.1em; color: #64748b; margin-bottom: 0.5rem; }
  form { margin-bottom: 1.5rem; display: flex; gap: 0.75rem; align-items: center; flex-wrap: wrap; }
  input[type=submit] { background: #38bdf8; color: #0f172a; border: 0; border-radius: 6px; padding: 0.4rem 1rem; cursor: pointer; }
  a { color: #38bdf8; text-decoration: none; }
  .endpoint { font-family: "SF Mono", monospace; font-size: 0.9rem; color: #a5b4fc; }
</style>
</head>
<body>
<div class="card">
  <h1>Document Similarity</h1>

  <h2>Upload a text file</h2>
  <form action="upload" method="post" enctype="multipart/form-data">
    <input type="file" name="file" accept=".txt">
    <input type="submit" value="Upload">
  </form>

  <h2>Retrieve similar documents</h2>
  <form action="retrieve_similar" method="post" enctype="multipart/form-data">
    <input type="file" name="file" accept=".txt">
    <input type="submit" value="Retrieve">
  </form>

  <h2>Endpoints</h2>
  <p><a href="/health" class="endpoint">/health</a> &middot; <a href="/metrics" class="endpoint">/metrics</a> &middot; <span class="endpoint">/mcp</span></p>
</div>
</body>
</html>`

// NewLandingHandler returns an HTTP handler that serves the landing page at /.
func NewLandingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(landingHTML))
	}
}
