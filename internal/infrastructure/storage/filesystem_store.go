package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/domain"
	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/ports"
)

const (
	artifactDirName    = "difypkg"
	listingDirName     = "plugins"
	collectionsFile    = "collections.json"
	collectionsDirName = "collections"
)

// FilesystemArtifactStore keeps package artifacts under
// <root>/difypkg/<scope>/<filename>
type FilesystemArtifactStore struct {
	root string
}

// NewFilesystemArtifactStore creates an artifact store rooted at outputDir
func NewFilesystemArtifactStore(outputDir string) *FilesystemArtifactStore {
	return &FilesystemArtifactStore{root: expandPath(outputDir)}
}

// Path returns the destination path for an artifact without touching the
// filesystem
func (s *FilesystemArtifactStore) Path(scope domain.Category, identity domain.ArtifactIdentity) string {
	return filepath.Join(s.root, artifactDirName, scope.Value(), identity.Filename())
}

// Exists reports whether the artifact file is already on disk. A truncated
// file from an interrupted run still counts as present; reruns will not
// repair it.
func (s *FilesystemArtifactStore) Exists(scope domain.Category, identity domain.ArtifactIdentity) (bool, error) {
	_, err := os.Stat(s.Path(scope, identity))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat artifact file: %w", err)
}

// Write streams content to the artifact file, creating parent directories as
// needed. The write is not atomic; a partial file left by a failed copy is
// removed, a partial file left by a crash is not.
func (s *FilesystemArtifactStore) Write(scope domain.Category, identity domain.ArtifactIdentity, content io.Reader) (int64, error) {
	path := s.Path(scope, identity)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create artifact file: %w", err)
	}

	written, err := io.Copy(file, content)
	if err != nil {
		file.Close()
		os.Remove(path)
		return 0, fmt.Errorf("failed to write artifact file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("failed to close artifact file: %w", err)
	}

	return written, nil
}

// FilesystemListingStore persists listings and collection metadata as
// pretty-printed JSON under the output root
type FilesystemListingStore struct {
	root string
}

// NewFilesystemListingStore creates a listing store rooted at outputDir
func NewFilesystemListingStore(outputDir string) *FilesystemListingStore {
	return &FilesystemListingStore{root: expandPath(outputDir)}
}

// SaveListing writes the full record array of one category to
// plugins/<category>.json
func (s *FilesystemListingStore) SaveListing(listing domain.Listing) error {
	path := filepath.Join(s.root, listingDirName, listing.Category().Value()+".json")
	return writeJSON(path, listing.Records())
}

// SaveCollections writes the collections index to collections.json
func (s *FilesystemListingStore) SaveCollections(collections []domain.Collection) error {
	if collections == nil {
		collections = []domain.Collection{}
	}
	path := filepath.Join(s.root, collectionsFile)
	return writeJSON(path, collections)
}

// SaveCollectionPlugins writes one collection's member records to
// collections/<name>.json
func (s *FilesystemListingStore) SaveCollectionPlugins(name string, records []domain.PluginRecord) error {
	if records == nil {
		records = []domain.PluginRecord{}
	}
	path := filepath.Join(s.root, collectionsDirName, name+".json")
	return writeJSON(path, records)
}

// writeJSON persists v with 4-space indentation and raw non-ASCII text, the
// format the marketplace dumps have always used
func writeJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "    ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}

	return nil
}

// expandPath expands ~ in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[2:])
		}
	}
	return path
}

var (
	_ ports.ArtifactStore = (*FilesystemArtifactStore)(nil)
	_ ports.ListingStore  = (*FilesystemListingStore)(nil)
)
