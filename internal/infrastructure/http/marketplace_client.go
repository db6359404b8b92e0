package httpinfra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/domain"
	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/ports"
)

const (
	searchPath      = "/api/v1/plugins/search/advanced"
	collectionsPath = "/api/v1/collections"
)

// MarketplaceClient implements ports.MarketplaceGateway against the Dify
// marketplace HTTP API
type MarketplaceClient struct {
	baseURL        string
	headers        map[string]string
	client         *http.Client
	downloadClient *http.Client
	logger         ports.LoggingGateway
}

// NewMarketplaceClient creates a marketplace client. timeout bounds each
// metadata request as a whole; downloads apply it to the response headers
// only, so a slow package body can still stream to completion while a dead
// server fails fast.
func NewMarketplaceClient(baseURL string, timeout time.Duration, logger ports.LoggingGateway) *MarketplaceClient {
	downloadTransport := http.DefaultTransport.(*http.Transport).Clone()
	downloadTransport.ResponseHeaderTimeout = timeout

	return &MarketplaceClient{
		baseURL:        strings.TrimRight(baseURL, "/"),
		headers:        BrowserHeaders(baseURL),
		client:         &http.Client{Timeout: timeout},
		downloadClient: &http.Client{Transport: downloadTransport},
		logger:         logger,
	}
}

// searchRequestBody is the JSON payload of the advanced search endpoint
type searchRequestBody struct {
	Page      int      `json:"page"`
	PageSize  int      `json:"page_size"`
	Query     string   `json:"query"`
	SortBy    string   `json:"sort_by"`
	SortOrder string   `json:"sort_order"`
	Category  string   `json:"category"`
	Tags      []string `json:"tags"`
	Type      string   `json:"type"`
}

// searchResponseBody mirrors the fields the pipeline reads; everything else
// inside each plugin object is preserved verbatim by PluginRecord
type searchResponseBody struct {
	Data struct {
		Total   int                   `json:"total"`
		Plugins []domain.PluginRecord `json:"plugins"`
	} `json:"data"`
}

// collectionsResponseBody is the collections index response shape
type collectionsResponseBody struct {
	Data struct {
		Collections []domain.Collection `json:"collections"`
	} `json:"data"`
}

// collectionPluginsResponseBody is the per-collection plugins response shape
type collectionPluginsResponseBody struct {
	Data struct {
		Plugins []domain.PluginRecord `json:"plugins"`
	} `json:"data"`
}

// SearchPlugins retrieves one page of plugin records for a category
func (c *MarketplaceClient) SearchPlugins(ctx context.Context, req ports.SearchRequest) (*ports.SearchPage, error) {
	payload := searchRequestBody{
		Page:      req.Page,
		PageSize:  req.PageSize,
		Query:     req.Query,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
		Category:  req.Category.Value(),
		Tags:      []string{},
		Type:      "plugin",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	status, respBody, err := c.doJSON(ctx, http.MethodPost, searchPath, nil, bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewTransportError("search request", err)
	}
	if status != http.StatusOK {
		return nil, domain.NewHTTPError(status, string(respBody))
	}

	var parsed searchResponseBody
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, domain.NewParseError("search response", err.Error())
	}

	return &ports.SearchPage{
		Total:   parsed.Data.Total,
		Records: parsed.Data.Plugins,
	}, nil
}

// ListCollections retrieves the curated collections index
func (c *MarketplaceClient) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	query := map[string]string{
		"page":      "1",
		"page_size": "100",
	}

	status, respBody, err := c.doJSON(ctx, http.MethodGet, collectionsPath, query, nil)
	if err != nil {
		return nil, domain.NewTransportError("collections request", err)
	}
	if status != http.StatusOK {
		return nil, domain.NewHTTPError(status, string(respBody))
	}

	var parsed collectionsResponseBody
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, domain.NewParseError("collections response", err.Error())
	}

	return parsed.Data.Collections, nil
}

// CollectionPlugins retrieves the member plugin records of one collection.
// The endpoint is a POST with a literal empty JSON object as its body.
func (c *MarketplaceClient) CollectionPlugins(ctx context.Context, name string) ([]domain.PluginRecord, error) {
	path := collectionsPath + "/" + url.PathEscape(name) + "/plugins"

	status, respBody, err := c.doJSON(ctx, http.MethodPost, path, nil, strings.NewReader("{}"))
	if err != nil {
		return nil, domain.NewTransportError("collection plugins request", err)
	}
	if status != http.StatusOK {
		return nil, domain.NewHTTPError(status, string(respBody))
	}

	var parsed collectionPluginsResponseBody
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, domain.NewParseError("collection plugins response", err.Error())
	}

	return parsed.Data.Plugins, nil
}

// DownloadPackage opens a stream over one package artifact. Downloads go out
// as plain GETs without the browser session, matching how the marketplace
// serves package files.
func (c *MarketplaceClient) DownloadPackage(ctx context.Context, identity domain.ArtifactIdentity) (io.ReadCloser, int64, error) {
	path := fmt.Sprintf("/api/v1/plugins/%s/%s/download", identity.PluginID(), identity.Version())
	fullURL, err := joinURL(c.baseURL, path, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build download URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Log(ports.LogLevelDebug, "downloading package", map[string]interface{}{
		"url": fullURL,
	})

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return nil, 0, domain.NewTransportError("package download", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, 0, domain.NewHTTPError(resp.StatusCode, string(body))
	}

	return resp.Body, resp.ContentLength, nil
}

// doJSON performs one metadata request with the browser session applied and
// the whole response body read
func (c *MarketplaceClient) doJSON(ctx context.Context, method, path string, query map[string]string, body io.Reader) (int, []byte, error) {
	fullURL, err := joinURL(c.baseURL, path, query)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return 0, nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Log(ports.LogLevelDebug, "marketplace request", map[string]interface{}{
		"method": method,
		"url":    fullURL,
	})

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}

	return resp.StatusCode, respBody, nil
}

func joinURL(base, p string, q map[string]string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u.Path = joinPath(u.Path, p)
	if len(q) > 0 {
		vals := u.Query()
		for k, v := range q {
			vals.Set(k, v)
		}
		u.RawQuery = vals.Encode()
	}
	return u.String(), nil
}

func joinPath(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if a[len(a)-1] == '/' {
		a = a[:len(a)-1]
	}
	if b[0] != '/' {
		b = "/" + b
	}
	return a + b
}

var _ ports.MarketplaceGateway = (*MarketplaceClient)(nil)
