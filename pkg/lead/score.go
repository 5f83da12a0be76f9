package lead

import (
	"math"
	"slices"

	"github.com/m-mizutani/floorbot/pkg/model"
)

// Weights are kept in hundredths so that classification boundaries are
// exact.
var signalWeights = map[model.Signal]int{
	model.SignalViewingInterest:       20,
	model.SignalBudgetMention:         15,
	model.SignalTimeline:              15,
	model.SignalPurchaseProcess:       15,
	model.SignalSpecificRequirements:  12,
	model.SignalComparisonIntent:      10,
	model.SignalLuxuryFeatureInterest: 10,
	model.SignalLocationPreference:    8,
	model.SignalCurrentSituation:      8,
}

const (
	engagementStep = 2
	engagementCap  = 15
	scoreCap       = 100

	lowerBound = 30
	upperBound = 60
)

// Weight returns the weight of sig as a fraction
func Weight(sig model.Signal) float64 {
	return float64(signalWeights[sig]) / 100
}

// IntentScore sums the weights of the distinct signals, adds the
// engagement bonus and clamps the result to [0, 1]
func IntentScore(signals []model.Signal, messageCount int) float64 {
	return float64(intentHundredths(signals, messageCount)) / 100
}

func intentHundredths(signals []model.Signal, messageCount int) int {
	var seen []model.Signal
	base := 0
	for _, sig := range signals {
		if slices.Contains(seen, sig) {
			continue
		}
		seen = append(seen, sig)
		base += signalWeights[sig]
	}

	bonus := min(engagementCap, engagementStep*max(messageCount, 0))
	return min(scoreCap, base+bonus)
}

// Classify maps a score to Low (< 0.3), Medium (0.3 to 0.6 inclusive) or
// High (> 0.6). Scores are compared at hundredth precision.
func Classify(score float64) model.Intent {
	h := int(math.Round(score * 100))
	switch {
	case h < lowerBound:
		return model.IntentLow
	case h <= upperBound:
		return model.IntentMedium
	default:
		return model.IntentHigh
	}
}

// Recommend evaluates the action table; the first matching row wins
func Recommend(intent model.Intent, signals []model.Signal) model.Action {
	switch {
	case intent == model.IntentHigh && slices.Contains(signals, model.SignalViewingInterest):
		return model.ActionScheduleViewingImmediately
	case intent == model.IntentHigh:
		return model.ActionCaptureContactAndScheduleCallback
	case intent == model.IntentMedium && slices.Contains(signals, model.SignalSpecificRequirements):
		return model.ActionShowFloorplansAndQualify
	case intent == model.IntentMedium:
		return model.ActionNurtureWithInformation
	default:
		return model.ActionProvideEducationalContent
	}
}

// Evaluate scores the accumulated signals of a session
func Evaluate(session *model.Session) *model.IntentResult {
	signals := ordered(session.BuyingSignals)
	score := IntentScore(signals, session.MessageCount)
	intent := Classify(score)

	return &model.IntentResult{
		Score:          score,
		Intent:         intent,
		Signals:        signals,
		Action:         Recommend(intent, signals),
		ContactRequest: RequestContact(session.LeadInfo, intent, session.MessageCount),
	}
}

// ordered returns the known signals in registry order
func ordered(signals []model.Signal) []model.Signal {
	res := []model.Signal{}
	for _, sig := range Signals {
		if slices.Contains(signals, sig) {
			res = append(res, sig)
		}
	}
	return res
}

// RequestContact suggests which contact field is worth asking for next
func RequestContact(info model.LeadInfo, intent model.Intent, messageCount int) model.ContactRequest {
	if messageCount < 2 {
		return model.ContactRequestNone
	}

	switch intent {
	case model.IntentHigh:
		if info.Phone == "" && info.Email == "" {
			return model.ContactRequestContactMethod
		}
		if info.Name == "" {
			return model.ContactRequestName
		}
	case model.IntentMedium:
		if messageCount >= 3 && info.Email == "" {
			return model.ContactRequestEmailForBrochure
		}
	}
	return model.ContactRequestNone
}
