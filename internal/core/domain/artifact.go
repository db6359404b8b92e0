package domain

import (
	"fmt"
	"strings"
)

// PackageExtension is the file extension of marketplace package artifacts
const PackageExtension = ".difypkg"

// ArtifactIdentity is a value object identifying one downloadable package
// version, derived from a composite package identifier of the form
// <plugin_id>:<version>@<hash>
type ArtifactIdentity struct {
	pluginID string
	version  string
	hash     string
}

// ParsePackageIdentifier parses a composite identifier into an
// ArtifactIdentity. The plugin id may contain slashes (org/plugin); the
// identifier must contain exactly one ':' and exactly one '@', in that order,
// with no empty parts.
func ParsePackageIdentifier(identifier string) (ArtifactIdentity, error) {
	head, hash, found := strings.Cut(identifier, "@")
	if !found {
		return ArtifactIdentity{}, NewParseError(identifier, "missing '@' between version and hash")
	}
	if strings.Contains(hash, "@") {
		return ArtifactIdentity{}, NewParseError(identifier, "more than one '@' separator")
	}

	pluginID, version, found := strings.Cut(head, ":")
	if !found {
		return ArtifactIdentity{}, NewParseError(identifier, "missing ':' between plugin id and version")
	}
	if strings.Contains(version, ":") {
		return ArtifactIdentity{}, NewParseError(identifier, "more than one ':' separator")
	}

	return NewArtifactIdentity(pluginID, version, hash)
}

// NewArtifactIdentity creates an ArtifactIdentity with validation
func NewArtifactIdentity(pluginID, version, hash string) (ArtifactIdentity, error) {
	if pluginID == "" {
		return ArtifactIdentity{}, NewParseError(pluginID, "plugin id cannot be empty")
	}
	if version == "" {
		return ArtifactIdentity{}, NewParseError(version, "version cannot be empty")
	}
	if hash == "" {
		return ArtifactIdentity{}, NewParseError(hash, "hash cannot be empty")
	}
	return ArtifactIdentity{pluginID: pluginID, version: version, hash: hash}, nil
}

// PluginID returns the plugin identifier, possibly containing slashes
func (a ArtifactIdentity) PluginID() string {
	return a.pluginID
}

// Version returns the package version
func (a ArtifactIdentity) Version() string {
	return a.version
}

// Hash returns the package content hash
func (a ArtifactIdentity) Hash() string {
	return a.hash
}

// Filename returns the flat artifact filename. Slashes in the plugin id are
// replaced with underscores so org-scoped plugins stay in one directory.
func (a ArtifactIdentity) Filename() string {
	flat := strings.ReplaceAll(a.pluginID, "/", "_")
	return fmt.Sprintf("%s_%s_%s%s", flat, a.version, a.hash, PackageExtension)
}

// String returns the composite identifier form plugin_id:version@hash
func (a ArtifactIdentity) String() string {
	return fmt.Sprintf("%s:%s@%s", a.pluginID, a.version, a.hash)
}
