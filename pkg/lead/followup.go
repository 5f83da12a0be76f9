package lead

import (
	"slices"

	"github.com/m-mizutani/floorbot/pkg/model"
)

// TemplateKey returns the follow-up prompt template bound to action
func TemplateKey(action model.Action) string {
	switch action {
	case model.ActionScheduleViewingImmediately:
		return "viewing"
	case model.ActionCaptureContactAndScheduleCallback:
		return "callback"
	case model.ActionShowFloorplansAndQualify:
		return "floorplans"
	case model.ActionNurtureWithInformation:
		return "nurture"
	default:
		return "educate"
	}
}

// FollowUp renders the follow-up prompt for the evaluated turn. The
// variant depends on which contact details are already captured.
func FollowUp(result *model.IntentResult, info model.LeadInfo) string {
	switch TemplateKey(result.Action) {
	case "viewing":
		if info.Phone == "" {
			return "I'd be happy to arrange a viewing for you. Could you share your phone number so our agent can coordinate the best time?"
		}
		return "I can arrange a site visit for you. What days this week work best for your schedule?"

	case "callback":
		return "These villas tend to move quickly. Would you like to schedule a viewing or speak with one of our property consultants?"

	case "floorplans":
		if info.Email == "" {
			return "I can send you detailed floor plans and specifications via email. What's the best email address to reach you?"
		}
		return "Would you like me to send you detailed floor plans and a comparison of the villa types that match your requirements?"

	case "nurture":
		if slices.Contains(result.Signals, model.SignalComparisonIntent) {
			return "I can create a detailed comparison for you. Which specific features are most important for your decision?"
		}
		return "Is there a particular villa type or feature you'd like to explore further? I can walk you through the layouts and community amenities."

	default:
		return "What aspects of the villas would you like to know more about? I'm here to help with any questions."
	}
}
