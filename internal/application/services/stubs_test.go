package services

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/domain"
	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/ports"
)

// Shared test doubles for the service layer. Everything is mutex-guarded so
// the concurrency tests can hammer them from worker goroutines.

func category(t *testing.T, value string) domain.Category {
	t.Helper()
	c, err := domain.NewCategory(value)
	require.NoError(t, err)
	return c
}

func record(pluginID, version, hash string) domain.PluginRecord {
	return domain.PluginRecord{
		"plugin_id":                 pluginID,
		"latest_version":            version,
		"latest_package_identifier": pluginID + ":" + version + "@" + hash,
	}
}

// eventLog records the order of cross-component operations
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *eventLog) indexOf(event string) int {
	for i, e := range l.snapshot() {
		if e == event {
			return i
		}
	}
	return -1
}

func (l *eventLog) countPrefix(prefix string) int {
	count := 0
	for _, e := range l.snapshot() {
		if strings.HasPrefix(e, prefix) {
			count++
		}
	}
	return count
}

// fakeMarketplace implements ports.MarketplaceGateway in memory
type fakeMarketplace struct {
	mu sync.Mutex

	pages       map[string][]ports.SearchPage
	searchErrOn map[string]int
	searchCalls []ports.SearchRequest

	collections    []domain.Collection
	collectionsErr error

	collectionPlugins map[string][]domain.PluginRecord
	collectionErrs    map[string]error

	payload       []byte
	downloadErrs  map[string]error
	downloadCalls map[string]int
	downloadDelay time.Duration

	inFlight    int
	maxInFlight int

	log *eventLog
}

func newFakeMarketplace() *fakeMarketplace {
	return &fakeMarketplace{
		pages:             make(map[string][]ports.SearchPage),
		searchErrOn:       make(map[string]int),
		collectionPlugins: make(map[string][]domain.PluginRecord),
		collectionErrs:    make(map[string]error),
		payload:           []byte("difypkg-bytes"),
		downloadErrs:      make(map[string]error),
		downloadCalls:     make(map[string]int),
		log:               &eventLog{},
	}
}

func (f *fakeMarketplace) SearchPlugins(ctx context.Context, req ports.SearchRequest) (*ports.SearchPage, error) {
	f.mu.Lock()
	f.searchCalls = append(f.searchCalls, req)
	errPage := f.searchErrOn[req.Category.Value()]
	pages := f.pages[req.Category.Value()]
	f.mu.Unlock()

	if errPage != 0 && req.Page == errPage {
		return nil, domain.NewHTTPError(500, "server exploded")
	}

	if req.Page < 1 || req.Page > len(pages) {
		total := 0
		if len(pages) > 0 {
			total = pages[0].Total
		}
		return &ports.SearchPage{Total: total}, nil
	}
	page := pages[req.Page-1]
	return &page, nil
}

func (f *fakeMarketplace) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	if f.collectionsErr != nil {
		return nil, f.collectionsErr
	}
	return f.collections, nil
}

func (f *fakeMarketplace) CollectionPlugins(ctx context.Context, name string) ([]domain.PluginRecord, error) {
	f.mu.Lock()
	err := f.collectionErrs[name]
	records := f.collectionPlugins[name]
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return records, nil
}

func (f *fakeMarketplace) DownloadPackage(ctx context.Context, identity domain.ArtifactIdentity) (io.ReadCloser, int64, error) {
	f.mu.Lock()
	f.downloadCalls[identity.String()]++
	err := f.downloadErrs[identity.String()]
	if err != nil {
		f.mu.Unlock()
		return nil, 0, err
	}
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	delay := f.downloadDelay
	payload := f.payload
	f.mu.Unlock()

	f.log.add("download:" + identity.String())

	if delay > 0 {
		time.Sleep(delay)
	}

	return &gaugedBody{reader: bytes.NewReader(payload), release: f.releaseSlot}, int64(len(payload)), nil
}

func (f *fakeMarketplace) releaseSlot() {
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
}

func (f *fakeMarketplace) recordedSearches() []ports.SearchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ports.SearchRequest(nil), f.searchCalls...)
}

func (f *fakeMarketplace) calls(identity domain.ArtifactIdentity) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.downloadCalls[identity.String()]
}

func (f *fakeMarketplace) totalDownloadCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.downloadCalls {
		total += n
	}
	return total
}

func (f *fakeMarketplace) peakInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

// gaugedBody keeps the in-flight gauge up until the service closes the body
type gaugedBody struct {
	reader  io.Reader
	release func()
	once    sync.Once
}

func (b *gaugedBody) Read(p []byte) (int, error) {
	return b.reader.Read(p)
}

func (b *gaugedBody) Close() error {
	b.once.Do(b.release)
	return nil
}

// fakeArtifactStore implements ports.ArtifactStore in memory
type fakeArtifactStore struct {
	mu        sync.Mutex
	files     map[string][]byte
	existsErr error
	writeErr  error
}

func newFakeArtifactStore() *fakeArtifactStore {
	return &fakeArtifactStore{files: make(map[string][]byte)}
}

func (s *fakeArtifactStore) Path(scope domain.Category, identity domain.ArtifactIdentity) string {
	return path.Join(scope.Value(), identity.Filename())
}

func (s *fakeArtifactStore) Exists(scope domain.Category, identity domain.ArtifactIdentity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, ok := s.files[s.Path(scope, identity)]
	return ok, nil
}

func (s *fakeArtifactStore) Write(scope domain.Category, identity domain.ArtifactIdentity, content io.Reader) (int64, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	s.files[s.Path(scope, identity)] = data
	return int64(len(data)), nil
}

func (s *fakeArtifactStore) put(scope domain.Category, identity domain.ArtifactIdentity, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[s.Path(scope, identity)] = data
}

func (s *fakeArtifactStore) get(scope domain.Category, identity domain.ArtifactIdentity) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[s.Path(scope, identity)]
	return data, ok
}

func (s *fakeArtifactStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// fakeListingStore implements ports.ListingStore in memory
type fakeListingStore struct {
	mu                       sync.Mutex
	listings                 map[string]domain.Listing
	collections              []domain.Collection
	collectionPlugins        map[string][]domain.PluginRecord
	saveListingErr           error
	saveCollectionPluginsErr error
	log                      *eventLog
}

func newFakeListingStore(log *eventLog) *fakeListingStore {
	return &fakeListingStore{
		listings:          make(map[string]domain.Listing),
		collectionPlugins: make(map[string][]domain.PluginRecord),
		log:               log,
	}
}

func (s *fakeListingStore) SaveListing(listing domain.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveListingErr != nil {
		return s.saveListingErr
	}
	s.listings[listing.Category().Value()] = listing
	if s.log != nil {
		s.log.add("listing:" + listing.Category().Value())
	}
	return nil
}

func (s *fakeListingStore) SaveCollections(collections []domain.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = collections
	if s.log != nil {
		s.log.add("collections-index")
	}
	return nil
}

func (s *fakeListingStore) SaveCollectionPlugins(name string, records []domain.PluginRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveCollectionPluginsErr != nil {
		return s.saveCollectionPluginsErr
	}
	s.collectionPlugins[name] = records
	if s.log != nil {
		s.log.add("collection:" + name)
	}
	return nil
}

func (s *fakeListingStore) collectionRecords(name string) ([]domain.PluginRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, ok := s.collectionPlugins[name]
	return records, ok
}

func (s *fakeListingStore) listing(category string) (domain.Listing, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	listing, ok := s.listings[category]
	return listing, ok
}

// countingPacer counts pauses without sleeping
type countingPacer struct {
	mu    sync.Mutex
	calls int
}

func (p *countingPacer) Pause(ctx context.Context) error {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return ctx.Err()
}

func (p *countingPacer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// recordingLogger captures log entries for assertions
type recordingLogger struct {
	mu      sync.Mutex
	level   ports.LogLevel
	entries []logEntry
}

type logEntry struct {
	level   ports.LogLevel
	message string
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{level: ports.LogLevelDebug}
}

func (l *recordingLogger) Log(level ports.LogLevel, message string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, message: message})
}

func (l *recordingLogger) LogError(err error, message string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: ports.LogLevelError, message: message})
}

func (l *recordingLogger) SetLogLevel(level ports.LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *recordingLogger) GetLogLevel() ports.LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

func (l *recordingLogger) has(level ports.LogLevel, substring string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, entry := range l.entries {
		if entry.level == level && strings.Contains(entry.message, substring) {
			return true
		}
	}
	return false
}

var (
	_ ports.MarketplaceGateway = (*fakeMarketplace)(nil)
	_ ports.ArtifactStore      = (*fakeArtifactStore)(nil)
	_ ports.ListingStore       = (*fakeListingStore)(nil)
	_ Pacer                    = (*countingPacer)(nil)
	_ ports.LoggingGateway     = (*recordingLogger)(nil)
)
