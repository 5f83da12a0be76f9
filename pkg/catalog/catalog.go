package catalog

import (
	_ "embed"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogRaw []byte

// GeneralInformation is the villa type reported for fragments that do not
// describe a specific villa
const GeneralInformation = "General information"

// Villa is one floorplan type of the project
type Villa struct {
	ID       string   `yaml:"id"`
	Label    string   `yaml:"label"`
	Bedrooms int      `yaml:"bedrooms"`
	Variant  string   `yaml:"variant"`
	Pool     bool     `yaml:"pool"`
	Keywords []string `yaml:"keywords"`
}

// Page describes the floorplan image rendered from a brochure page
type Page struct {
	Page        int    `yaml:"page"`
	Description string `yaml:"description"`
	Bedrooms    int    `yaml:"bedrooms"`
	Pool        bool   `yaml:"pool"`
}

type Catalog struct {
	Project   string   `yaml:"project"`
	Community string   `yaml:"community"`
	Villas    []*Villa `yaml:"villas"`
	Pages     []*Page  `yaml:"pages"`
	Gazetteer []string `yaml:"gazetteer"`
}

// Default returns the built-in catalog
func Default() *Catalog {
	c, err := Parse(defaultCatalogRaw)
	if err != nil {
		panic("embedded catalog is broken: " + err.Error())
	}
	return c
}

// Load reads a catalog from a YAML file
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read catalog file", goerr.V("path", path))
	}

	c, err := Parse(raw)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse catalog", goerr.V("path", path))
	}
	return c, nil
}

// Parse decodes and validates a YAML catalog
func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal catalog")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.Villas))
	for _, v := range c.Villas {
		if v.ID == "" {
			return goerr.New("villa id is empty")
		}
		if seen[v.ID] {
			return goerr.New("duplicated villa id", goerr.V("id", v.ID))
		}
		seen[v.ID] = true
		if v.Bedrooms <= 0 {
			return goerr.New("villa has no bedroom count", goerr.V("id", v.ID))
		}
		if len(v.Keywords) < 2 {
			return goerr.New("villa needs at least two keywords", goerr.V("id", v.ID))
		}
	}
	for _, p := range c.Pages {
		if p.Page <= 0 {
			return goerr.New("catalog page number must be positive", goerr.V("page", p.Page))
		}
	}
	return nil
}

// MentionedProperties returns the ids of villas referenced by text. A villa
// counts as mentioned when at least two of its keywords appear and one of
// them is an identifying keyword (the first two: bedroom token and model name).
func (c *Catalog) MentionedProperties(text string) []string {
	upper := strings.ToUpper(text)

	ids := []string{}
	for _, v := range c.Villas {
		matches, identified := 0, false
		for i, kw := range v.Keywords {
			if strings.Contains(upper, strings.ToUpper(kw)) {
				matches++
				identified = identified || i < 2
			}
		}
		if matches >= 2 && identified {
			ids = append(ids, v.ID)
		}
	}
	return ids
}

// VillaType names the villa a document fragment describes, or
// GeneralInformation when the fragment is not villa specific
func (c *Catalog) VillaType(content string) string {
	upper := strings.ToUpper(content)

	for _, bedrooms := range c.bedroomCounts() {
		n := strconv.Itoa(bedrooms)
		if !strings.Contains(upper, n+"BR") && !strings.Contains(upper, n+" BEDROOM") {
			continue
		}

		var typeA, typeB *Villa
		for _, v := range c.Villas {
			if v.Bedrooms != bedrooms {
				continue
			}
			switch strings.ToUpper(v.Variant) {
			case "B":
				typeB = v
			default:
				if typeA == nil {
					typeA = v
				}
			}
		}

		if typeB != nil && (strings.Contains(upper, "TYPE B") || (typeB.Pool && strings.Contains(upper, "POOL"))) {
			return typeB.Label
		}
		if typeA != nil {
			return typeA.Label
		}
		if typeB != nil {
			return typeB.Label
		}
	}

	return GeneralInformation
}

// bedroomCounts returns distinct bedroom counts in catalog order
func (c *Catalog) bedroomCounts() []int {
	var counts []int
	seen := map[int]bool{}
	for _, v := range c.Villas {
		if !seen[v.Bedrooms] {
			seen[v.Bedrooms] = true
			counts = append(counts, v.Bedrooms)
		}
	}
	return counts
}

// PageInfo returns the catalog entry for a brochure page
func (c *Catalog) PageInfo(page int) (*Page, bool) {
	for _, p := range c.Pages {
		if p.Page == page {
			return p, true
		}
	}
	return nil, false
}

var pageSuffixPattern = regexp.MustCompile(`-(\d+)\.[A-Za-z0-9]+$`)

// PageFromFilename extracts the page number from names such as
// "AlBadia_Floorplans_A3_Rev11-7.webp"
func PageFromFilename(name string) (int, bool) {
	m := pageSuffixPattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return 0, false
	}
	page, err := strconv.Atoi(m[1])
	if err != nil || page <= 0 {
		return 0, false
	}
	return page, true
}
