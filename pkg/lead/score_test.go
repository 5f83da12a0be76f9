package lead_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/floorbot/pkg/lead"
	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/gt"
)

var testTime = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func TestClassifyBoundaries(t *testing.T) {
	testCases := []struct {
		score float64
		want  model.Intent
	}{
		{0, model.IntentLow},
		{0.29, model.IntentLow},
		{0.30, model.IntentMedium},
		{0.45, model.IntentMedium},
		{0.60, model.IntentMedium},
		{0.61, model.IntentHigh},
		{1, model.IntentHigh},
	}

	for _, tc := range testCases {
		gt.Equal(t, lead.Classify(tc.score), tc.want)
	}
}

func TestIntentScore(t *testing.T) {
	t.Run("sums weights with engagement bonus", func(t *testing.T) {
		score := lead.IntentScore([]model.Signal{
			model.SignalViewingInterest,
			model.SignalBudgetMention,
		}, 1)
		gt.Equal(t, score, 0.37)
	})

	t.Run("bonus is capped", func(t *testing.T) {
		gt.Equal(t, lead.IntentScore(nil, 7), 0.14)
		gt.Equal(t, lead.IntentScore(nil, 8), 0.15)
		gt.Equal(t, lead.IntentScore(nil, 100), 0.15)
	})

	t.Run("score is clamped to one", func(t *testing.T) {
		gt.Equal(t, lead.IntentScore(lead.Signals, 20), 1.0)
	})

	t.Run("duplicates count once", func(t *testing.T) {
		score := lead.IntentScore([]model.Signal{
			model.SignalTimeline,
			model.SignalTimeline,
		}, 0)
		gt.Equal(t, score, 0.15)
	})

	t.Run("exact boundary stays medium", func(t *testing.T) {
		// 0.20 + 0.15 + 0.15 + 0.10 = 0.60
		score := lead.IntentScore([]model.Signal{
			model.SignalViewingInterest,
			model.SignalBudgetMention,
			model.SignalTimeline,
			model.SignalLuxuryFeatureInterest,
		}, 0)
		gt.Equal(t, lead.Classify(score), model.IntentMedium)
	})
}

func TestRecommend(t *testing.T) {
	testCases := []struct {
		name    string
		intent  model.Intent
		signals []model.Signal
		want    model.Action
	}{
		{"high with viewing", model.IntentHigh, []model.Signal{model.SignalViewingInterest}, model.ActionScheduleViewingImmediately},
		{"high", model.IntentHigh, []model.Signal{model.SignalBudgetMention}, model.ActionCaptureContactAndScheduleCallback},
		{"medium with requirements", model.IntentMedium, []model.Signal{model.SignalSpecificRequirements}, model.ActionShowFloorplansAndQualify},
		{"medium", model.IntentMedium, []model.Signal{model.SignalViewingInterest}, model.ActionNurtureWithInformation},
		{"low", model.IntentLow, []model.Signal{model.SignalViewingInterest}, model.ActionProvideEducationalContent},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gt.Equal(t, lead.Recommend(tc.intent, tc.signals), tc.want)
		})
	}
}

func evaluateMessage(t *testing.T, session *model.Session, msg string) *model.IntentResult {
	t.Helper()
	detection := lead.NewDetector().Detect(msg, session.Messages)
	session.AddMessage(model.RoleUser, msg, testTime)
	session.AddSignals(detection.Signals...)
	session.LeadInfo = session.LeadInfo.Merge(detection.Contact)
	return lead.Evaluate(session)
}

func TestEvaluateScenarios(t *testing.T) {
	t.Run("bedroom question on a new session", func(t *testing.T) {
		session := model.NewSession("a", testTime)
		result := evaluateMessage(t, session, "Tell me about 3-bedroom villas")

		gt.V(t, result.Signals).Equal([]model.Signal{model.SignalSpecificRequirements})
		gt.Equal(t, result.Score, 0.14)
		gt.Equal(t, result.Intent, model.IntentLow)
		gt.Equal(t, result.Action, model.ActionProvideEducationalContent)
		gt.Equal(t, result.ContactRequest, model.ContactRequestNone)
	})

	t.Run("viewing with budget is high", func(t *testing.T) {
		session := model.NewSession("c", testTime)
		result := evaluateMessage(t, session,
			"I am interested in viewing the 5-bedroom villa this weekend. My budget is around 5 million AED")

		gt.Equal(t, result.Score, 0.64)
		gt.Equal(t, result.Intent, model.IntentHigh)
		gt.Equal(t, result.Action, model.ActionScheduleViewingImmediately)
	})

	t.Run("signals accumulate across turns", func(t *testing.T) {
		session := model.NewSession("d", testTime)
		evaluateMessage(t, session, "Do you have a payment plan?")
		session.AddMessage(model.RoleAssistant, "Yes.", testTime)
		result := evaluateMessage(t, session, "What is the price of the 4 bedroom villa?")

		gt.V(t, result.Signals).Equal([]model.Signal{
			model.SignalBudgetMention,
			model.SignalSpecificRequirements,
			model.SignalPurchaseProcess,
		})
		// 0.15 + 0.12 + 0.15 + 3 messages * 0.02
		gt.Equal(t, result.Score, 0.48)
		gt.Equal(t, result.Intent, model.IntentMedium)
		gt.Equal(t, result.Action, model.ActionShowFloorplansAndQualify)
		gt.Equal(t, result.ContactRequest, model.ContactRequestEmailForBrochure)
	})
}

func TestRequestContact(t *testing.T) {
	gt.Equal(t, lead.RequestContact(model.LeadInfo{}, model.IntentHigh, 1), model.ContactRequestNone)
	gt.Equal(t, lead.RequestContact(model.LeadInfo{}, model.IntentHigh, 2), model.ContactRequestContactMethod)
	gt.Equal(t, lead.RequestContact(model.LeadInfo{Phone: "0501234567"}, model.IntentHigh, 2), model.ContactRequestName)
	gt.Equal(t, lead.RequestContact(model.LeadInfo{Phone: "0501234567", Name: "Sara"}, model.IntentHigh, 2), model.ContactRequestNone)
	gt.Equal(t, lead.RequestContact(model.LeadInfo{}, model.IntentMedium, 2), model.ContactRequestNone)
	gt.Equal(t, lead.RequestContact(model.LeadInfo{}, model.IntentMedium, 3), model.ContactRequestEmailForBrochure)
	gt.Equal(t, lead.RequestContact(model.LeadInfo{}, model.IntentLow, 9), model.ContactRequestNone)
}

func TestFollowUp(t *testing.T) {
	viewing := &model.IntentResult{Action: model.ActionScheduleViewingImmediately}
	gt.S(t, lead.FollowUp(viewing, model.LeadInfo{})).Contains("phone number")
	gt.S(t, lead.FollowUp(viewing, model.LeadInfo{Phone: "0501234567"})).Contains("What days")

	floorplans := &model.IntentResult{Action: model.ActionShowFloorplansAndQualify}
	gt.S(t, lead.FollowUp(floorplans, model.LeadInfo{})).Contains("email address")

	comparison := &model.IntentResult{
		Action:  model.ActionNurtureWithInformation,
		Signals: []model.Signal{model.SignalComparisonIntent},
	}
	gt.S(t, lead.FollowUp(comparison, model.LeadInfo{})).Contains("comparison")

	for _, action := range []model.Action{
		model.ActionScheduleViewingImmediately,
		model.ActionCaptureContactAndScheduleCallback,
		model.ActionShowFloorplansAndQualify,
		model.ActionNurtureWithInformation,
		model.ActionProvideEducationalContent,
	} {
		gt.NoError(t, action.Validate())
		gt.True(t, lead.TemplateKey(action) != "")
	}
}

func TestNextStatus(t *testing.T) {
	gt.Equal(t, lead.NextStatus(model.LeadStatusNew, model.IntentLow), model.LeadStatusNew)
	gt.Equal(t, lead.NextStatus(model.LeadStatusNew, model.IntentMedium), model.LeadStatusQualified)
	gt.Equal(t, lead.NextStatus(model.LeadStatusQualified, model.IntentHigh), model.LeadStatusHot)
	gt.Equal(t, lead.NextStatus(model.LeadStatusHot, model.IntentLow), model.LeadStatusHot)
	gt.Equal(t, lead.NextStatus(model.LeadStatusConverted, model.IntentHigh), model.LeadStatusConverted)
	gt.Equal(t, lead.NextStatus("", model.IntentLow), model.LeadStatusNew)
}
