package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EntriesFileNames are the names probed, in order, inside a project folder.
var EntriesFileNames = []string{"sources.yml", "sources.yaml", "sources.json"}

// Entries is the ordered collection of top-level entries of a project.
type Entries []Entry

// IDs returns the entry ids in declaration order.
func (es Entries) IDs() []string {
	ids := make([]string, len(es))
	for i, e := range es {
		ids[i] = e.ID
	}
	return ids
}

// FindEntriesFile returns the first entries file present in projectFolder.
func FindEntriesFile(projectFolder string) (string, error) {
	for _, name := range EntriesFileNames {
		path := filepath.Join(projectFolder, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: no %v in %s", ErrEntriesLoad, EntriesFileNames, projectFolder)
}

// LoadEntriesFile reads and parses an entries file.
func LoadEntriesFile(path string) (Entries, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEntriesLoad, err)
	}
	entries, err := ParseEntries(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEntriesLoad, path, err)
	}
	return entries, nil
}

// ParseEntries decodes an entries document. The document is either a
// mapping from entry id to entry fields, or a sequence of entries that
// carry their own id. Declaration order is preserved in both forms. JSON
// documents parse through the same path.
func ParseEntries(data []byte) (Entries, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return Entries{}, nil
	}
	root := doc.Content[0]

	switch root.Kind {
	case yaml.MappingNode:
		entries := make(Entries, 0, len(root.Content)/2)
		for i := 0; i+1 < len(root.Content); i += 2 {
			key := root.Content[i].Value
			fields, err := decodeFields(root.Content[i+1])
			if err != nil {
				return nil, fmt.Errorf("entry %q: %w", key, err)
			}
			entries = append(entries, EntryFromMap(key, fields))
		}
		return entries, nil
	case yaml.SequenceNode:
		entries := make(Entries, 0, len(root.Content))
		for i, node := range root.Content {
			fields, err := decodeFields(node)
			if err != nil {
				return nil, fmt.Errorf("entry #%d: %w", i, err)
			}
			entries = append(entries, EntryFromMap("", fields))
		}
		return entries, nil
	default:
		return nil, errors.New("entries document must be a mapping or a sequence")
	}
}

func decodeFields(node *yaml.Node) (map[string]any, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping at line %d", node.Line)
	}
	var fields map[string]any
	if err := node.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}
