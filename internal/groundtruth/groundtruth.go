// Package groundtruth loads the external facts that drive reconciliation:
// parsed label files, rename directives, and keyword lists. Entities are read
// once per run and immutable afterwards.
package groundtruth

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Label pairs a product name with its canonical label URL, parsed from a
// plain-text label file.
type Label struct {
	ProductName string
	LabelURL    string
	SourceFile  string
}

// Rename is a directive to assign a record a new canonical identity.
type Rename struct {
	Match string `yaml:"match"` // old-name fragment the matcher tests against
	Name  string `yaml:"name"`  // new canonical name
	Type  string `yaml:"type,omitempty"`
	Brand string `yaml:"brand,omitempty"`
}

// renameFile mirrors the directives YAML layout.
type renameFile struct {
	Renames []Rename `yaml:"renames"`
}

const (
	productPrefix = "PRODUCT:"
	linkPrefix    = "LABEL LINK:"
)

// ParseLabelFile extracts the product name and label link from one file.
// Both lines must be present; otherwise the file is malformed and skipped by
// the caller, with no partial entity produced.
func ParseLabelFile(path string) (*Label, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open label file: %w", err)
	}
	defer f.Close()

	var name, link string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, productPrefix):
			name = strings.TrimSpace(strings.TrimPrefix(line, productPrefix))
		case strings.HasPrefix(line, linkPrefix):
			link = strings.TrimSpace(strings.TrimPrefix(line, linkPrefix))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read label file: %w", err)
	}

	if name == "" || link == "" {
		return nil, fmt.Errorf("label file %s missing PRODUCT or LABEL LINK", filepath.Base(path))
	}

	return &Label{ProductName: name, LabelURL: link, SourceFile: filepath.Base(path)}, nil
}

// LoadLabels parses every .txt file under dir. Malformed files are skipped
// and reported in skipped; a run proceeds with whatever parsed cleanly.
func LoadLabels(dir string) (labels []Label, skipped []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read label directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		label, err := ParseLabelFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			skipped = append(skipped, entry.Name())
			continue
		}
		labels = append(labels, *label)
	}
	return labels, skipped, nil
}

// LoadRenames reads rename directives from a YAML file. Directives missing a
// match fragment or a new name are rejected outright: a rename with no target
// would patch every record.
func LoadRenames(path string) ([]Rename, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rename directives: %w", err)
	}

	var file renameFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rename directives: %w", err)
	}

	for i, r := range file.Renames {
		if strings.TrimSpace(r.Match) == "" || strings.TrimSpace(r.Name) == "" {
			return nil, fmt.Errorf("rename directive %d missing match or name", i+1)
		}
	}
	return file.Renames, nil
}
