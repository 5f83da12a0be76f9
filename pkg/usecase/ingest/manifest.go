package ingest

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// Manifest lists the extracted brochure text and the floorplan images
type Manifest struct {
	Pages      []*ManifestPage `yaml:"pages"`
	Images     []string        `yaml:"images"`
	ImagesGlob string          `yaml:"images_glob"`

	baseDir string
}

type ManifestPage struct {
	Page int    `yaml:"page"`
	Text string `yaml:"text"`
}

// LoadManifest reads a manifest. Image paths and the glob are relative to
// the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read manifest", goerr.V("path", path))
	}

	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, goerr.Wrap(err, "failed to parse manifest", goerr.V("path", path))
	}
	m.baseDir = filepath.Dir(path)

	if err := m.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid manifest", goerr.V("path", path))
	}
	return &m, nil
}

func (m *Manifest) Validate() error {
	seen := map[int]bool{}
	for _, p := range m.Pages {
		if p.Page <= 0 {
			return goerr.New("page number must be positive", goerr.V("page", p.Page))
		}
		if seen[p.Page] {
			return goerr.New("duplicated page", goerr.V("page", p.Page))
		}
		seen[p.Page] = true
	}
	if m.ImagesGlob != "" {
		if _, err := filepath.Match(m.ImagesGlob, ""); err != nil {
			return goerr.Wrap(err, "invalid images_glob", goerr.V("pattern", m.ImagesGlob))
		}
	}
	return nil
}

// ImagePaths returns the listed images followed by the glob matches,
// without duplicates
func (m *Manifest) ImagePaths() ([]string, error) {
	paths := slices.Clone(m.Images)

	if m.ImagesGlob != "" {
		matches, err := filepath.Glob(filepath.Join(m.baseDir, m.ImagesGlob))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to glob images", goerr.V("pattern", m.ImagesGlob))
		}
		slices.Sort(matches)
		for _, match := range matches {
			rel, err := filepath.Rel(m.baseDir, match)
			if err != nil {
				rel = match
			}
			if !slices.Contains(paths, rel) {
				paths = append(paths, rel)
			}
		}
	}
	return paths, nil
}
