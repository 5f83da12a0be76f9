package model

import "github.com/m-mizutani/goerr/v2"

// Signal is a detected textual indicator of buying intent
type Signal string

const (
	SignalBudgetMention         Signal = "budget_mention"
	SignalSpecificRequirements  Signal = "specific_requirements"
	SignalTimeline              Signal = "timeline"
	SignalLocationPreference    Signal = "location_preference"
	SignalLuxuryFeatureInterest Signal = "luxury_feature_interest"
	SignalComparisonIntent      Signal = "comparison_intent"
	SignalPurchaseProcess       Signal = "purchase_process"
	SignalViewingInterest       Signal = "viewing_interest"
	SignalCurrentSituation      Signal = "current_situation"
)

type Intent string

const (
	IntentLow    Intent = "low"
	IntentMedium Intent = "medium"
	IntentHigh   Intent = "high"
)

type Action string

const (
	ActionScheduleViewingImmediately        Action = "schedule_viewing_immediately"
	ActionCaptureContactAndScheduleCallback Action = "capture_contact_and_schedule_callback"
	ActionShowFloorplansAndQualify          Action = "show_floorplans_and_qualify"
	ActionNurtureWithInformation            Action = "nurture_with_information"
	ActionProvideEducationalContent         Action = "provide_educational_content"
)

// Validate checks if the action is one of the known recommendations
func (a Action) Validate() error {
	switch a {
	case ActionScheduleViewingImmediately,
		ActionCaptureContactAndScheduleCallback,
		ActionShowFloorplansAndQualify,
		ActionNurtureWithInformation,
		ActionProvideEducationalContent:
		return nil
	default:
		return goerr.New("invalid action", goerr.V("action", a))
	}
}

// ContactRequest names the piece of contact information worth asking for next
type ContactRequest string

const (
	ContactRequestNone             ContactRequest = ""
	ContactRequestContactMethod    ContactRequest = "contact_method"
	ContactRequestName             ContactRequest = "name"
	ContactRequestEmailForBrochure ContactRequest = "email_for_brochure"
)

// IntentResult is recomputed every turn from the session snapshot
type IntentResult struct {
	Score          float64
	Intent         Intent
	Signals        []Signal
	Action         Action
	ContactRequest ContactRequest
}
