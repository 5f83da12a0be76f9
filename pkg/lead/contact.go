package lead

import (
	"regexp"
	"strings"

	"github.com/m-mizutani/floorbot/pkg/model"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\+971[\s-]?\d{1,2}[\s-]?\d{3}[\s-]?\d{4}`),
		regexp.MustCompile(`\+\d{1,3}[\s-]?\d{3,4}[\s-]?\d{3,4}[\s-]?\d{3,4}`),
		regexp.MustCompile(`\b\d{3}[\s-]?\d{3}[\s-]?\d{4}\b`),
	}

	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:^|\W)(?i:i'm|i am|my name is|this is)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`),
		regexp.MustCompile(`(?:^|\W)(?i:call me|contact)\s+([A-Z][a-z]+)`),
	}
)

// words that follow "I am" or "this is" without being a name
var nonNames = map[string]struct{}{
	"interested": {}, "looking": {}, "planning": {}, "considering": {},
	"thinking": {}, "currently": {}, "just": {}, "not": {}, "also": {},
	"very": {}, "ready": {}, "here": {}, "new": {}, "moving": {},
	"relocating": {}, "searching": {}, "wondering": {}, "curious": {},
	"great": {}, "good": {}, "perfect": {}, "exactly": {}, "what": {},
	"tomorrow": {}, "today": {}, "back": {}, "later": {},
}

// ExtractContact returns any name, email or phone found in message.
// Missing fields are left empty.
func ExtractContact(message string) model.LeadInfo {
	var info model.LeadInfo

	info.Email = emailPattern.FindString(message)

	for _, p := range phonePatterns {
		if phone := p.FindString(message); phone != "" {
			info.Phone = strings.TrimSpace(phone)
			break
		}
	}

	for _, p := range namePatterns {
		if name := findName(p, message); name != "" {
			info.Name = name
			break
		}
	}

	return info
}

func findName(p *regexp.Regexp, message string) string {
	for _, m := range p.FindAllStringSubmatch(message, -1) {
		name := m[1]
		first, _, _ := strings.Cut(name, " ")
		if _, ok := nonNames[strings.ToLower(first)]; ok {
			continue
		}
		return name
	}
	return ""
}
