package policy

import (
	"context"

	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/floorbot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/topdown/print"
)

const leadQuery = "data.lead"

// Input is the document exposed to the lead policy as `input`
type Input struct {
	SessionID        string   `json:"session_id"`
	Intent           string   `json:"intent"`
	IntentScore      float64  `json:"intent_score"`
	Signals          []string `json:"signals"`
	Action           string   `json:"recommended_action"`
	CurrentStatus    string   `json:"lead_status"`
	MessageCount     int      `json:"message_count"`
	PropertiesViewed []string `json:"properties_viewed"`
	HasName          bool     `json:"has_name"`
	HasEmail         bool     `json:"has_email"`
	HasPhone         bool     `json:"has_phone"`
}

// NewInput builds the policy input for a scored session
func NewInput(session *model.Session, result *model.IntentResult) *Input {
	signals := make([]string, len(result.Signals))
	for i, s := range result.Signals {
		signals[i] = string(s)
	}

	return &Input{
		SessionID:        string(session.ID),
		Intent:           string(result.Intent),
		IntentScore:      result.Score,
		Signals:          signals,
		Action:           string(result.Action),
		CurrentStatus:    string(session.LeadStatus),
		MessageCount:     session.MessageCount,
		PropertiesViewed: append([]string{}, session.PropertiesViewed...),
		HasName:          session.LeadInfo.Name != "",
		HasEmail:         session.LeadInfo.Email != "",
		HasPhone:         session.LeadInfo.Phone != "",
	}
}

// Decision is the result of `data.lead`. An empty Status means the policy
// has no opinion.
type Decision struct {
	Status model.LeadStatus
	Note   string
}

// LeadPolicy evaluates the Rego package `lead` to override lead status
// transitions
type LeadPolicy struct {
	query *rego.PreparedEvalQuery
}

// regoPrintHook forwards print() in policies to the context logger
type regoPrintHook struct {
	ctx context.Context
}

func (h *regoPrintHook) Print(_ print.Context, message string) error {
	logging.From(h.ctx).Debug("rego print", "message", message)
	return nil
}

// New loads all policies in policyDir. It returns nil when the directory
// holds no Rego file, and a nil *LeadPolicy decides nothing.
func New(ctx context.Context, policyDir string) (*LeadPolicy, error) {
	modules, err := loadModules(policyDir)
	if err != nil {
		return nil, err
	}
	if len(modules) == 0 {
		return nil, nil
	}

	query, err := prepareQuery(ctx, modules, leadQuery)
	if err != nil {
		return nil, err
	}
	return &LeadPolicy{query: query}, nil
}

// Decide evaluates the policy against input
func (p *LeadPolicy) Decide(ctx context.Context, input *Input) (*Decision, error) {
	if p == nil {
		return &Decision{}, nil
	}

	rs, err := p.query.Eval(ctx, rego.EvalInput(input), rego.EvalPrintHook(&regoPrintHook{ctx: ctx}))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to evaluate lead policy", goerr.V("session_id", input.SessionID))
	}

	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return &Decision{}, nil
	}

	data, ok := rs[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return &Decision{}, nil
	}

	decision := &Decision{}
	if v, ok := data["status"].(string); ok && v != "" {
		status := model.LeadStatus(v)
		if err := status.Validate(); err != nil {
			return nil, goerr.Wrap(err, "lead policy returned invalid status", goerr.V("session_id", input.SessionID))
		}
		decision.Status = status
	}
	if v, ok := data["note"].(string); ok {
		decision.Note = v
	}

	return decision, nil
}
