// Package testutil provides testing utilities for the scene exporter.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
)

// SceneJSON builds a plausible raw scene object for seq (1-based).
func SceneJSON(seq int) string {
	return fmt.Sprintf(
		`{"id":"%d","title":"Scene %d","files":[{"path":"/videos/clip%02d/movie%02d.mp4","duration":%d.5}],"paths":{"sprite":"http://localhost:9999/scene/%d_sprite.jpg"}}`,
		seq, seq, seq, seq, 60+seq, seq)
}

// Scenes builds n sequential raw scene objects.
func Scenes(n int) []string {
	scenes := make([]string, n)
	for i := range scenes {
		scenes[i] = SceneJSON(i + 1)
	}
	return scenes
}

// findScenesVariables mirrors the filter object of the findScenes query.
type findScenesVariables struct {
	Filter struct {
		PerPage int `json:"per_page"`
		Page    int `json:"page"`
	} `json:"filter"`
}

// MockStash is a configurable mock Stash GraphQL server for testing. It
// serves pages out of an in-memory scene catalog and tracks every request.
type MockStash struct {
	server *httptest.Server

	mu            sync.RWMutex
	scenes        []string
	countOverride map[int]int  // page -> reported count
	emptyPages    map[int]bool // page -> serve zero scenes
	failStatus    int          // non-zero: respond with this status

	// Tracking
	RequestCount int
	LastPerPage  int
	LastPage     int
}

// NewMockStash creates a mock server seeded with sceneCount scenes.
func NewMockStash(sceneCount int) *MockStash {
	mock := &MockStash{
		scenes:        Scenes(sceneCount),
		countOverride: make(map[int]int),
		emptyPages:    make(map[int]bool),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))

	return mock
}

// URL returns the mock GraphQL endpoint URL.
func (m *MockStash) URL() string {
	return m.server.URL + "/graphql"
}

// Close shuts down the mock server.
func (m *MockStash) Close() {
	m.server.Close()
}

// SetScenes replaces the catalog contents.
func (m *MockStash) SetScenes(scenes []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenes = scenes
}

// SetFailStatus makes every subsequent request fail with the given status.
// Zero restores normal behavior.
func (m *MockStash) SetFailStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failStatus = status
}

// SetCountForPage overrides the total count reported on a specific page.
func (m *MockStash) SetCountForPage(page, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countOverride[page] = count
}

// SetEmptyPage makes a specific page return zero scenes.
func (m *MockStash) SetEmptyPage(page int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emptyPages[page] = true
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockStash) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

func (m *MockStash) handle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query     string              `json:"query"`
		Variables findScenesVariables `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"errors":[{"message":"invalid request body"}]}`, http.StatusBadRequest)
		return
	}

	perPage := body.Variables.Filter.PerPage
	page := body.Variables.Filter.Page

	m.mu.Lock()
	m.RequestCount++
	m.LastPerPage = perPage
	m.LastPage = page
	scenes := m.scenes
	failStatus := m.failStatus
	count, hasOverride := m.countOverride[page]
	empty := m.emptyPages[page]
	m.mu.Unlock()

	if failStatus != 0 {
		http.Error(w, `{"error":"mock failure"}`, failStatus)
		return
	}

	if !hasOverride {
		count = len(scenes)
	}

	var pageScenes []string
	if !empty && perPage > 0 && page >= 1 {
		start := perPage * (page - 1)
		end := start + perPage
		if start > len(scenes) {
			start = len(scenes)
		}
		if end > len(scenes) {
			end = len(scenes)
		}
		pageScenes = scenes[start:end]
	}

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"data":{"findScenes":{"count":%d,"scenes":[%s]}}}`,
		count, joinScenes(pageScenes))
}

func joinScenes(scenes []string) string {
	out := ""
	for i, s := range scenes {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}
