package lead

import "github.com/m-mizutani/floorbot/pkg/model"

// NextStatus advances the lead status from the turn's intent. It never
// moves a lead backwards and converted is terminal.
func NextStatus(current model.LeadStatus, intent model.Intent) model.LeadStatus {
	if current == "" {
		current = model.LeadStatusNew
	}

	var proposed model.LeadStatus
	switch intent {
	case model.IntentHigh:
		proposed = model.LeadStatusHot
	case model.IntentMedium:
		proposed = model.LeadStatusQualified
	default:
		proposed = model.LeadStatusNew
	}

	return Promote(current, proposed)
}

// Promote returns proposed when it ranks above current, otherwise current
func Promote(current, proposed model.LeadStatus) model.LeadStatus {
	if proposed.Rank() > current.Rank() {
		return proposed
	}
	return current
}
