package out

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"nightwatch/internal/modules/vision/domain"
	visionout "nightwatch/internal/modules/vision/port/out"
)

const manifestFile = "classifiers.yaml"

type manifestDocument struct {
	Classifiers []domain.Manifest `yaml:"classifiers"`
}

// FileManifestStore reads classifier registrations from
// <data>/plugins/classifiers.yaml. Binary paths may use environment
// variables and are resolved against the data dir when relative.
type FileManifestStore struct {
	dataDir string
	path    string
}

func NewFileManifestStore(dataDir string) visionout.ManifestStore {
	return &FileManifestStore{dataDir: dataDir, path: filepath.Join(dataDir, "plugins", manifestFile)}
}

func (s *FileManifestStore) Load(_ context.Context) ([]domain.Manifest, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []domain.Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", manifestFile, err)
	}

	var doc manifestDocument
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode %s: %w", manifestFile, err)
	}

	seen := make(map[string]struct{}, len(doc.Classifiers))
	for i := range doc.Classifiers {
		m := &doc.Classifiers[i]
		if _, dup := seen[m.Name]; dup {
			return nil, fmt.Errorf("%s: classifier %q registered twice", manifestFile, m.Name)
		}
		seen[m.Name] = struct{}{}
		m.Binary = s.resolve(m.Binary)
	}
	if doc.Classifiers == nil {
		return []domain.Manifest{}, nil
	}
	return doc.Classifiers, nil
}

func (s *FileManifestStore) resolve(binary string) string {
	if binary == "" {
		return ""
	}
	binary = os.ExpandEnv(binary)
	if filepath.IsAbs(binary) {
		return filepath.Clean(binary)
	}
	return filepath.Join(s.dataDir, binary)
}
