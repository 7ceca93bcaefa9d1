package server

import (
	"html/template"
	"net/http"
	"net/url"
	"sync"
)

// CallbackResult is the outcome of the first redirect.
type CallbackResult struct {
	URL *url.URL
	Err error
}

// CallbackHandler accepts a single OAuth2 redirect on path.
type CallbackHandler struct {
	path     string
	validate func(*url.URL) error
	results  chan CallbackResult

	mu   sync.Mutex
	hit  bool
	once sync.Once
}

// NewCallbackHandler serves path and reports the first redirect. validate decides whether the
// redirect succeeded; a nil validate accepts everything.
func NewCallbackHandler(path string, validate func(*url.URL) error) *CallbackHandler {
	if path == "" {
		path = "/callback"
	}
	return &CallbackHandler{
		path:     path,
		validate: validate,
		results:  make(chan CallbackResult, 1),
	}
}

func (h *CallbackHandler) Routes() []string {
	return []string{h.path}
}

func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.hit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.hit = true
	h.mu.Unlock()

	redirect := *r.URL
	var err error
	if h.validate != nil {
		err = h.validate(&redirect)
	}
	h.send(CallbackResult{URL: &redirect, Err: err})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = resultPage.Execute(w, pageData{Title: "Authorization Failed", Message: err.Error(), Color: "#E22134"})
		return
	}
	_ = resultPage.Execute(w, pageData{
		Title:   "Authorization Successful",
		Message: "You can close this window and return to the terminal.",
		Color:   "#1DB954",
	})
}

func (h *CallbackHandler) send(result CallbackResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result receives exactly one value and is then closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.results
}

type pageData struct {
	Title   string
	Message string
	Color   string
}

var resultPage = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #191414; }
        .container { text-align: center; background: #282828; padding: 2rem; border-radius: 8px; }
        h1 { color: {{.Color}}; margin: 0 0 1rem 0; }
        p { color: #b3b3b3; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <p>{{.Message}}</p>
    </div>
</body>
</html>
`))
