package lead

import (
	"regexp"
	"slices"
	"strings"

	"github.com/m-mizutani/floorbot/pkg/model"
)

// Signals lists every signal in detection order. Results are always
// reported in this order.
var Signals = []model.Signal{
	model.SignalBudgetMention,
	model.SignalSpecificRequirements,
	model.SignalTimeline,
	model.SignalLocationPreference,
	model.SignalLuxuryFeatureInterest,
	model.SignalComparisonIntent,
	model.SignalPurchaseProcess,
	model.SignalViewingInterest,
	model.SignalCurrentSituation,
}

type matcher struct {
	signal   model.Signal
	patterns []*regexp.Regexp
	// history enables scanning recent user messages as well
	history bool
}

func (m *matcher) match(text string) bool {
	for _, p := range m.patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func compile(patterns ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		res[i] = regexp.MustCompile(p)
	}
	return res
}

const currency = `(?:aed|dhs?|dirhams?|usd|us\$|\$|€|£|eur|gbp)`

func defaultMatchers() []*matcher {
	return []*matcher{
		{
			signal: model.SignalBudgetMention,
			patterns: compile(
				currency+`\s*\d[\d,.]*`,
				`\d[\d,.]*\s*(?:k|m|mn|million|billion)?\s*`+currency+`(?:\W|$)`,
				`\d[\d,.]*\s*(?:million|mn|billion)\b`,
				`\bbudget`,
				`\bafford`,
				`\bprice`,
				`\bhow much\b`,
				`\bcost`,
			),
		},
		{
			signal:  model.SignalSpecificRequirements,
			history: true,
			patterns: compile(
				`\b\d+\s*-?\s*(?:bedroom|br|bed)s?\b`,
				`\b(?:one|two|three|four|five|six)[\s-]*(?:bedroom|bed)s?\b`,
				`\b\d[\d,.]*\s*(?:sqm|sq\.?\s*m|sq\.?\s*ft|sqft|square\s+(?:feet|foot|meters?|metres?))\b`,
				`\b(?:at least|minimum|min\.?|no less than)\s+\d+`,
				`\b(?:pool|garden|maid'?s?\s+room|majlis|garage|parking|balcony|terrace|roof\s?top|study|storage|laundry)\b`,
			),
		},
		{
			signal: model.SignalTimeline,
			patterns: compile(
				`\bsoon\b`,
				`\b(?:asap|immediately|urgent(?:ly)?)\b`,
				`\b(?:this|next)\s+(?:week|weekend|month|year|quarter|summer|winter)\b`,
				`\bweekend\b`,
				`\b(?:today|tomorrow)\b`,
				`\bwithin\s+(?:a|one|two|three|six|\d+)\s+(?:days?|weeks?|months?|years?)\b`,
				`\bby\s+(?:the\s+)?end\s+of\b`,
				`\bby\s+(?:next\s+)?(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday|spring|summer|autumn|fall|winter)\b`,
				`\bby\s+\d{1,2}[/.-]\d{1,2}(?:[/.-]\d{2,4})?\b`,
				`\b(?:in|within)\s+\d+\s*(?:days?|weeks?|months?|years?)\b`,
				`\b(?:in|by|before)\s+20\d{2}\b`,
				`\b(?:january|february|march|april|june|july|august|september|october|november|december)\b`,
				`\b(?:in|by|before|until)\s+may\b`,
				`\bq[1-4]\b`,
				`\bmove\s+in\b`,
			),
		},
		{
			signal: model.SignalLocationPreference,
			patterns: compile(
				`\bnear\s+(?:the\s+)?\w+`,
				`\bclose\s+to\b`,
				`\bwalking\s+distance\b`,
				`\bneighbou?rhood\b`,
				`\blocation\b`,
				`\bcommute\b`,
			),
		},
		{
			signal: model.SignalLuxuryFeatureInterest,
			patterns: compile(
				`\bpremium\b`,
				`\bluxur(?:y|ious)\b`,
				`\bhigh[\s-]end\b`,
				`\bupscale\b`,
				`\bexclusive\b`,
				`\bpool\b`,
				`\bswimming\b`,
				`\bjacuzzi\b`,
				`\bspa\b`,
				`\bsmart\s+home\b`,
			),
		},
		{
			signal:  model.SignalComparisonIntent,
			history: true,
			patterns: compile(
				`\bvs\.?(?:\W|$)`,
				`\bversus\b`,
				`\bbetter\b`,
				`\bcompar(?:e|ed|ing|ison)\b`,
				`\bdifferen(?:ce|t)\b`,
				`\bwhich\s+(?:one|is|villa|type)\b`,
			),
		},
		{
			signal: model.SignalPurchaseProcess,
			patterns: compile(
				`\bhow\s+(?:to|do\s+i|can\s+i|would\s+i)\s+(?:buy|purchase)\b`,
				`\bfinanc(?:e|ing)\b`,
				`\bmortgage`,
				`\bpayment\s+plans?\b`,
				`\bdown\s?payment\b`,
				`\bdeposit\b`,
				`\breserv(?:e|ation)\b`,
				`\binstal?lments?\b`,
				`\bhandover\b`,
			),
		},
		{
			signal: model.SignalViewingInterest,
			patterns: compile(
				`\bview(?:ing|ings)?\b`,
				`\bvisit`,
				`\btour\b`,
				`\bschedul`,
				`\bappointment\b`,
				`\bsee\s+(?:it|them|in\s+person|the\s+(?:villa|property|house|home|unit)s?)\b`,
				`\bshow\s+me\s+around\b`,
				`\bshow\s?room\b`,
			),
		},
		{
			signal: model.SignalCurrentSituation,
			patterns: compile(
				`\bcurrently\s+(?:renting|living|staying|own)`,
				`\b(?:i|we)\s+(?:rent|own|live)\b`,
				`\brenting\b`,
				`\bselling\s+my\b`,
				`\bown\s+an?\b`,
				`\bmy\s+(?:current|existing)\s+(?:home|house|apartment|flat|villa|place)\b`,
				`\blease\s+(?:ends|expires)\b`,
				`\brelocat`,
			),
		},
	}
}

// Detection is the outcome of scanning one message
type Detection struct {
	Signals []model.Signal
	Contact model.LeadInfo
}

// Detector runs the signal registry against user messages
type Detector struct {
	matchers      []*matcher
	historyWindow int
}

type DetectorOption func(*Detector)

// WithGazetteer makes any of the given place names fire location_preference
func WithGazetteer(places ...string) DetectorOption {
	return func(d *Detector) {
		var patterns []string
		for _, p := range places {
			p = strings.TrimSpace(strings.ToLower(p))
			if p == "" {
				continue
			}
			patterns = append(patterns, `\b`+regexp.QuoteMeta(p)+`\b`)
		}
		for _, m := range d.matchers {
			if m.signal == model.SignalLocationPreference {
				m.patterns = append(m.patterns, compile(patterns...)...)
			}
		}
	}
}

// WithHistoryWindow sets how many recent user messages are also scanned
// for specific_requirements and comparison_intent. Zero disables it.
func WithHistoryWindow(n int) DetectorOption {
	return func(d *Detector) {
		d.historyWindow = max(n, 0)
	}
}

func NewDetector(opts ...DetectorOption) *Detector {
	d := &Detector{
		matchers: defaultMatchers(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect scans message, and for history-aware signals the recent user
// messages in history, and extracts contact fields from message
func (d *Detector) Detect(message string, history []*model.Message) *Detection {
	text := strings.ToLower(message)
	recent := d.recentUserText(history)

	result := &Detection{
		Signals: []model.Signal{},
		Contact: ExtractContact(message),
	}
	for _, m := range d.matchers {
		if m.match(text) || (m.history && slices.ContainsFunc(recent, m.match)) {
			result.Signals = append(result.Signals, m.signal)
		}
	}
	return result
}

func (d *Detector) recentUserText(history []*model.Message) []string {
	if d.historyWindow == 0 {
		return nil
	}

	var texts []string
	for i := len(history) - 1; i >= 0 && len(texts) < d.historyWindow; i-- {
		if history[i].Role == model.RoleUser {
			texts = append(texts, strings.ToLower(history[i].Content))
		}
	}
	return texts
}
