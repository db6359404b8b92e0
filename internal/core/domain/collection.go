package domain

// Collection is one curated plugin set as returned by the marketplace
// collections API. Like PluginRecord, fields are preserved verbatim for
// persistence.
type Collection map[string]any

// Name returns the collection's unique name, used to address its plugins
// endpoint and to namespace its files on disk
func (c Collection) Name() (string, error) {
	raw, ok := c["name"]
	if !ok {
		return "", NewParseError("collection", "collection has no name field")
	}
	name, ok := raw.(string)
	if !ok || name == "" {
		return "", NewParseError("collection", "collection name is not a non-empty string")
	}
	return name, nil
}

// Label returns the collection's human-readable label when present, falling
// back to the name
func (c Collection) Label() string {
	if label, ok := c["label"].(map[string]any); ok {
		if en, ok := label["en_US"].(string); ok && en != "" {
			return en
		}
	}
	name, err := c.Name()
	if err != nil {
		return ""
	}
	return name
}
