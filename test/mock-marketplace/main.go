package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Mock Dify Marketplace server for testing difymirror locally
// This simulates the marketplace endpoints without touching the real API

const (
	port          = 5280
	downloadDelay = 150 * time.Millisecond
)

type pluginRecord struct {
	PluginID                string            `json:"plugin_id"`
	Name                    string            `json:"name"`
	LatestVersion           string            `json:"latest_version"`
	LatestPackageIdentifier string            `json:"latest_package_identifier"`
	InstallCount            int               `json:"install_count"`
	Label                   map[string]string `json:"label"`
}

type collectionEntry struct {
	Name  string            `json:"name"`
	Label map[string]string `json:"label"`
}

var categorySizes = []struct {
	name string
	size int
}{
	{"agent-strategy", 15},
	{"extension", 30},
	{"model", 80},
	{"tool", 120},
	{"bundle", 5},
}

var (
	catalog           = make(map[string][]pluginRecord)
	collections       []collectionEntry
	collectionMembers = make(map[string][]pluginRecord)
	knownVersions     = make(map[string]string)

	mu           sync.Mutex
	requestCount = make(map[string]int)
)

func main() {
	seedCatalog()

	fmt.Println("🧪 Mock Dify Marketplace")
	fmt.Println("========================")
	fmt.Printf("Listening on http://localhost:%d\n", port)
	fmt.Println()
	fmt.Println("Seeded catalog:")
	for _, category := range categorySizes {
		fmt.Printf("  - %-14s %d plugins\n", category.name, len(catalog[category.name]))
	}
	fmt.Printf("  - collections    %d curated collections\n", len(collections))
	fmt.Println()
	fmt.Println("Simulated faults:")
	fmt.Println("  - mock/flaky-tool  download fails once, then succeeds on retry runs")
	fmt.Println("  - mock/gone-tool   listed but its download always returns 404")
	fmt.Println()
	fmt.Println("Point the CLI at it:")
	fmt.Printf("  difymirror sync --base-url http://localhost:%d --output-dir /tmp/mirror\n", port)
	fmt.Println()

	http.HandleFunc("/api/v1/plugins/search/advanced", handleSearch)
	http.HandleFunc("/api/v1/collections", handleCollections)
	http.HandleFunc("/api/v1/collections/", handleCollectionPlugins)
	http.HandleFunc("/api/v1/plugins/", handleDownload)

	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", port), nil))
}

func seedCatalog() {
	for _, category := range categorySizes {
		records := make([]pluginRecord, 0, category.size)
		for i := 0; i < category.size; i++ {
			records = append(records, makeRecord(category.name, i))
		}
		catalog[category.name] = records
	}

	// Two misbehaving entries in the tool listing exercise the failure paths
	flaky := namedRecord("mock/flaky-tool", "2.0.0", "deadbeef")
	gone := namedRecord("mock/gone-tool", "3.1.4", "c0ffee00")
	catalog["tool"] = append(catalog["tool"], flaky, gone)
	delete(knownVersions, "mock/gone-tool")

	addCollection("getting-started", catalog["tool"][:5])
	addCollection("data-pipelines", append(append([]pluginRecord{}, catalog["extension"][:3]...), catalog["model"][:2]...))
	addCollection("agent-toolkit", catalog["agent-strategy"][:4])
}

func makeRecord(category string, i int) pluginRecord {
	return namedRecord(
		fmt.Sprintf("mock/%s-%d", category, i),
		fmt.Sprintf("1.0.%d", i),
		fmt.Sprintf("%08x", uint32(i)*2654435761),
	)
}

func namedRecord(pluginID, version, hash string) pluginRecord {
	knownVersions[pluginID] = version
	name := pluginID[strings.IndexByte(pluginID, '/')+1:]
	return pluginRecord{
		PluginID:                pluginID,
		Name:                    name,
		LatestVersion:           version,
		LatestPackageIdentifier: fmt.Sprintf("%s:%s@%s", pluginID, version, hash),
		InstallCount:            len(pluginID) * 37,
		Label:                   map[string]string{"en_US": name},
	}
}

func addCollection(name string, members []pluginRecord) {
	collections = append(collections, collectionEntry{
		Name:  name,
		Label: map[string]string{"en_US": strings.ReplaceAll(name, "-", " ")},
	})
	collectionMembers[name] = members
}

func handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Page     int    `json:"page"`
		PageSize int    `json:"page_size"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Page < 1 || req.PageSize < 1 {
		http.Error(w, "Invalid pagination", http.StatusBadRequest)
		return
	}

	records := catalog[req.Category]
	start := (req.Page - 1) * req.PageSize
	end := start + req.PageSize
	if start > len(records) {
		start = len(records)
	}
	if end > len(records) {
		end = len(records)
	}

	log.Printf("[API] POST /api/v1/plugins/search/advanced - category: %s, page: %d, returning: %d of %d",
		req.Category, req.Page, end-start, len(records))

	writeData(w, map[string]interface{}{
		"total":   len(records),
		"plugins": records[start:end],
	})
}

func handleCollections(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	log.Printf("[API] GET /api/v1/collections - returning %d collections", len(collections))

	writeData(w, map[string]interface{}{
		"collections": collections,
	})
}

func handleCollectionPlugins(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/v1/collections/")
	name = strings.TrimSuffix(name, "/plugins")

	members, exists := collectionMembers[name]
	if !exists {
		log.Printf("[API] Unknown collection requested: %s", name)
		http.Error(w, "Collection not found", http.StatusNotFound)
		return
	}

	log.Printf("[API] POST /api/v1/collections/%s/plugins - returning %d members", name, len(members))

	writeData(w, map[string]interface{}{
		"plugins": members,
	})
}

func handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Path shape: /api/v1/plugins/<org>/<name>/<version>/download
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/plugins/")
	rest = strings.TrimSuffix(rest, "/download")
	parts := strings.Split(rest, "/")
	if len(parts) != 3 {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	pluginID := parts[0] + "/" + parts[1]
	version := parts[2]

	// Handle transient failure simulation
	if pluginID == "mock/flaky-tool" {
		mu.Lock()
		requestCount[pluginID]++
		attempt := requestCount[pluginID]
		mu.Unlock()
		if attempt == 1 {
			log.Printf("[API] Simulating transient failure for %s (attempt %d)", pluginID, attempt)
			http.Error(w, "Temporary upstream error", http.StatusInternalServerError)
			return
		}
	}

	if knownVersions[pluginID] != version {
		log.Printf("[API] Package not found: %s %s", pluginID, version)
		http.Error(w, "Package not found", http.StatusNotFound)
		return
	}

	time.Sleep(downloadDelay)

	content := fmt.Sprintf("difypkg %s %s\n", pluginID, version)
	log.Printf("[API] GET %s - serving %d bytes", r.URL.Path, len(content))

	w.Header().Set("Content-Type", "application/octet-stream")
	fmt.Fprint(w, content)
}

func writeData(w http.ResponseWriter, payload map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data": payload,
	})
}
