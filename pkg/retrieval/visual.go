package retrieval

import "strings"

var visualCues = []string{
	"floor plan", "floorplan", "layout", "show", "see", "look",
	"design", "image", "picture", "visual", "configuration",
	"how does", "what does", "ground floor", "first floor",
}

// IsVisualQuery reports whether the query asks for something that a
// floorplan image answers
func IsVisualQuery(query string) bool {
	q := strings.ToLower(query)
	for _, cue := range visualCues {
		if strings.Contains(q, cue) {
			return true
		}
	}
	return false
}
