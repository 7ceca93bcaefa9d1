package testing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/floater/internal/models"
)

// ArtworkPath is served by [SpotifyServer] with the configured artwork bytes.
const ArtworkPath = "/image/artwork"

// RecordedRequest is a request seen by [SpotifyServer].
type RecordedRequest struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	ContentLength int64
}

// SpotifyServer is a stateful fake of the Web API player and library endpoints.
//
// Currently-playing returns 204 until [SpotifyServer.SetPlaying] is called. Saved tracks persist
// across calls so add-then-contains behaves like the real service.
type SpotifyServer struct {
	*httptest.Server

	mu       sync.Mutex
	playing  *models.PlaybackSnapshot
	saved    map[string]bool
	token    string
	failures map[string]int
	artwork  []byte
	requests []RecordedRequest
}

// NewSpotifyServer starts a fake API and registers its shutdown with t.
func NewSpotifyServer(t *testing.T) *SpotifyServer {
	t.Helper()
	s := &SpotifyServer{saved: map[string]bool{}, failures: map[string]int{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// SetPlaying sets the currently-playing response; nil yields 204.
func (s *SpotifyServer) SetPlaying(snap *models.PlaybackSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = snap
}

// RequireToken makes every API route answer 401 unless the bearer token matches.
func (s *SpotifyServer) RequireToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Fail makes method+path answer status until [SpotifyServer.Recover] is called.
func (s *SpotifyServer) Fail(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = status
}

func (s *SpotifyServer) Recover(method, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, method+" "+path)
}

func (s *SpotifyServer) SetArtwork(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artwork = data
}

// Saved reports whether id is in the fake library.
func (s *SpotifyServer) Saved(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved[id]
}

// Requests returns every request seen so far.
func (s *SpotifyServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// Count returns how many requests matched method and path.
func (s *SpotifyServer) Count(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (s *SpotifyServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, RecordedRequest{
		Method:        r.Method,
		Path:          r.URL.Path,
		Query:         r.URL.RawQuery,
		Authorization: r.Header.Get("Authorization"),
		ContentLength: r.ContentLength,
	})

	if r.URL.Path == ArtworkPath {
		if len(s.artwork) == 0 {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(s.artwork)
		return
	}

	if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"status": 401, "message": "The access token expired"}})
		return
	}

	if status, ok := s.failures[r.Method+" "+r.URL.Path]; ok {
		writeJSON(w, status, map[string]any{"error": map[string]any{"status": status}})
		return
	}

	switch key := r.Method + " " + r.URL.Path; key {
	case "GET /v1/me/player/currently-playing":
		if s.playing == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, s.playing)
	case "PUT /v1/me/player/play", "PUT /v1/me/player/pause":
		if s.playing != nil {
			s.playing.IsPlaying = strings.HasSuffix(key, "/play")
		}
		w.WriteHeader(http.StatusNoContent)
	case "POST /v1/me/player/next", "POST /v1/me/player/previous":
		w.WriteHeader(http.StatusNoContent)
	case "GET /v1/me/tracks/contains":
		ids := splitIDs(r.URL.Query().Get("ids"))
		out := make([]bool, 0, len(ids))
		for _, id := range ids {
			out = append(out, s.saved[id])
		}
		writeJSON(w, http.StatusOK, out)
	case "PUT /v1/me/tracks":
		for _, id := range splitIDs(r.URL.Query().Get("ids")) {
			s.saved[id] = true
		}
		w.WriteHeader(http.StatusOK)
	case "DELETE /v1/me/tracks":
		for _, id := range splitIDs(r.URL.Query().Get("ids")) {
			delete(s.saved, id)
		}
		w.WriteHeader(http.StatusOK)
	default:
		http.NotFound(w, r)
	}
}

func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// NowPlaying builds a snapshot with one artist whose artwork points back at s.
func (s *SpotifyServer) NowPlaying(id, name, artist string, playing bool) *models.PlaybackSnapshot {
	return &models.PlaybackSnapshot{
		IsPlaying: playing,
		Item: &models.Track{
			ID:      id,
			Name:    name,
			Artists: []models.Artist{{Name: artist}},
			Album: models.Album{
				Name:   name + " (Album)",
				Images: []models.Image{{URL: s.URL + ArtworkPath, Height: 640, Width: 640}},
			},
		},
	}
}
