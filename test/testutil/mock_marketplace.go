package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockMarketplace simulates the Dify marketplace API in-process for
// integration tests. Every mutator is safe to call while the server is
// serving.
type MockMarketplace struct {
	Server *httptest.Server

	mu                sync.RWMutex
	catalog           map[string][]map[string]any
	collections       []map[string]any
	collectionMembers map[string][]map[string]any
	packages          map[string][]byte
	latency           time.Duration
	searchFailures    map[string]int
	downloadFailures  map[string]int
	requestLog        []RecordedRequest
	downloadCounts    map[string]int
	inFlight          int
	peakInFlight      int
}

// RecordedRequest is one request the mock received
type RecordedRequest struct {
	Method string
	Path   string
	Body   string
}

// NewMockMarketplace creates and starts a mock marketplace server
func NewMockMarketplace() *MockMarketplace {
	m := &MockMarketplace{
		catalog:           make(map[string][]map[string]any),
		collectionMembers: make(map[string][]map[string]any),
		packages:          make(map[string][]byte),
		searchFailures:    make(map[string]int),
		downloadFailures:  make(map[string]int),
		downloadCounts:    make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/plugins/search/advanced", m.handleSearch)
	mux.HandleFunc("GET /api/v1/collections", m.handleCollections)
	mux.HandleFunc("POST /api/v1/collections/{name}/plugins", m.handleCollectionPlugins)
	mux.HandleFunc("GET /api/v1/plugins/{org}/{plugin}/{version}/download", m.handleDownload)

	m.Server = httptest.NewServer(mux)
	return m
}

// Close shuts the server down
func (m *MockMarketplace) Close() {
	m.Server.Close()
}

// URL returns the server's base URL
func (m *MockMarketplace) URL() string {
	return m.Server.URL
}

// SeedCategory populates a category with count generated plugins, each with
// a downloadable package
func (m *MockMarketplace) SeedCategory(category string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		record, key := generateRecord(category, i)
		records = append(records, record)
		m.packages[key] = []byte(fmt.Sprintf("difypkg %s %d", category, i))
	}
	m.catalog[category] = records
}

// SeedCollection registers a curated collection whose members get their own
// downloadable packages
func (m *MockMarketplace) SeedCollection(name string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	members := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		record, key := generateRecord(name, i)
		members = append(members, record)
		m.packages[key] = []byte(fmt.Sprintf("difypkg %s %d", name, i))
	}
	m.collectionMembers[name] = members
	m.collections = append(m.collections, map[string]any{
		"name":  name,
		"label": map[string]any{"en_US": name},
	})
}

// generateRecord builds one deterministic plugin record. The returned key
// addresses the record's package in the packages map.
func generateRecord(scope string, i int) (map[string]any, string) {
	pluginID := fmt.Sprintf("mock/%s-%d", scope, i)
	version := fmt.Sprintf("1.0.%d", i)
	hash := fmt.Sprintf("%08x", uint32(i)*2654435761)
	record := map[string]any{
		"plugin_id":                 pluginID,
		"name":                      fmt.Sprintf("%s-%d", scope, i),
		"latest_version":            version,
		"latest_package_identifier": fmt.Sprintf("%s:%s@%s", pluginID, version, hash),
		"install_count":             i * 10,
	}
	return record, packageKey(pluginID, version)
}

func packageKey(pluginID, version string) string {
	return pluginID + ":" + version
}

// SetLatency adds an artificial delay to every download
func (m *MockMarketplace) SetLatency(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = latency
}

// FailSearch makes one category's search fail on the given page
func (m *MockMarketplace) FailSearch(category string, page int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchFailures[category] = page
}

// FailDownload makes one plugin's download return the given status
func (m *MockMarketplace) FailDownload(pluginID, version string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloadFailures[packageKey(pluginID, version)] = status
}

// Requests returns a copy of every recorded request
func (m *MockMarketplace) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RecordedRequest(nil), m.requestLog...)
}

// CountRequests returns how many recorded requests match the path prefix
func (m *MockMarketplace) CountRequests(method, pathPrefix string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, req := range m.requestLog {
		if req.Method == method && strings.HasPrefix(req.Path, pathPrefix) {
			count++
		}
	}
	return count
}

// DownloadCount returns how often one plugin's package was requested
func (m *MockMarketplace) DownloadCount(pluginID, version string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.downloadCounts[packageKey(pluginID, version)]
}

// TotalDownloads returns the number of download requests served
func (m *MockMarketplace) TotalDownloads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, n := range m.downloadCounts {
		total += n
	}
	return total
}

// PeakInFlight returns the maximum number of concurrently served downloads
func (m *MockMarketplace) PeakInFlight() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.peakInFlight
}

// logRequest records one request with its body
func (m *MockMarketplace) logRequest(r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(strings.NewReader(string(body)))

	m.mu.Lock()
	m.requestLog = append(m.requestLog, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Body:   string(body),
	})
	m.mu.Unlock()
}

// handleSearch serves the advanced search endpoint
func (m *MockMarketplace) handleSearch(w http.ResponseWriter, r *http.Request) {
	m.logRequest(r)

	var req struct {
		Page     int    `json:"page"`
		PageSize int    `json:"page_size"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	m.mu.RLock()
	failPage := m.searchFailures[req.Category]
	records := m.catalog[req.Category]
	m.mu.RUnlock()

	if failPage != 0 && req.Page == failPage {
		http.Error(w, "simulated search failure", http.StatusInternalServerError)
		return
	}

	if req.Page < 1 || req.PageSize < 1 {
		http.Error(w, "bad pagination", http.StatusBadRequest)
		return
	}

	start := (req.Page - 1) * req.PageSize
	end := start + req.PageSize
	if start > len(records) {
		start = len(records)
	}
	if end > len(records) {
		end = len(records)
	}

	writeJSON(w, map[string]any{
		"data": map[string]any{
			"total":   len(records),
			"plugins": records[start:end],
		},
	})
}

// handleCollections serves the collections index
func (m *MockMarketplace) handleCollections(w http.ResponseWriter, r *http.Request) {
	m.logRequest(r)

	m.mu.RLock()
	collections := append([]map[string]any(nil), m.collections...)
	m.mu.RUnlock()

	writeJSON(w, map[string]any{
		"data": map[string]any{
			"collections": collections,
		},
	})
}

// handleCollectionPlugins serves one collection's member records
func (m *MockMarketplace) handleCollectionPlugins(w http.ResponseWriter, r *http.Request) {
	m.logRequest(r)

	name := r.PathValue("name")
	m.mu.RLock()
	members, ok := m.collectionMembers[name]
	m.mu.RUnlock()

	if !ok {
		http.Error(w, "collection not found", http.StatusNotFound)
		return
	}

	writeJSON(w, map[string]any{
		"data": map[string]any{
			"plugins": members,
		},
	})
}

// handleDownload serves package bytes and tracks the in-flight gauge
func (m *MockMarketplace) handleDownload(w http.ResponseWriter, r *http.Request) {
	m.logRequest(r)

	pluginID := r.PathValue("org") + "/" + r.PathValue("plugin")
	key := packageKey(pluginID, r.PathValue("version"))

	m.mu.Lock()
	m.downloadCounts[key]++
	status := m.downloadFailures[key]
	content, ok := m.packages[key]
	latency := m.latency
	m.inFlight++
	if m.inFlight > m.peakInFlight {
		m.peakInFlight = m.inFlight
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if status != 0 {
		http.Error(w, "simulated download failure", status)
		return
	}
	if !ok {
		http.Error(w, "package not found", http.StatusNotFound)
		return
	}

	if latency > 0 {
		time.Sleep(latency)
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(content)
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}
