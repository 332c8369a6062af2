package oracle

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type tableFile struct {
	Classes []string `yaml:"classes"`
}

// LoadTable reads a YAML rank table. The file is either a list of classes or
// a mapping with a "classes" list; earlier classes sort first.
func LoadTable(fsys FileSystem, path string) (Table, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Inner: err}
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, &LoadError{Path: path, Inner: fmt.Errorf("parse rank table: %w", err)}
	}

	var classes []string
	switch {
	case len(node.Content) == 0:
		// Empty file
	case node.Content[0].Kind == yaml.SequenceNode:
		err = node.Content[0].Decode(&classes)
	default:
		var f tableFile
		err = node.Decode(&f)
		classes = f.Classes
	}
	if err != nil {
		return nil, &LoadError{Path: path, Inner: fmt.Errorf("decode rank table: %w", err)}
	}

	log.Infof("loaded %d classes from rank table %q", len(classes), path)
	return NewTable(classes...), nil
}
