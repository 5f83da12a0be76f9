package model

import "time"

type Citation struct {
	Source    string `json:"source"`
	Page      int    `json:"page"`
	VillaType string `json:"villa_type,omitempty"`
}

type ImageRef struct {
	Path        string  `json:"path"`
	Description string  `json:"description"`
	Relevance   float64 `json:"relevance"`
}

type LeadSignals struct {
	Intent            Intent         `json:"intent"`
	IntentScore       float64        `json:"intent_score"`
	SignalsDetected   []Signal       `json:"signals_detected"`
	RecommendedAction Action         `json:"recommended_action"`
	ContactRequest    ContactRequest `json:"contact_request,omitempty"`
	ConversationDepth int            `json:"conversation_depth"`
}

// ChatResponse is the payload returned for one chat turn
type ChatResponse struct {
	SessionID           SessionID   `json:"session_id"`
	Response            string      `json:"response"`
	PropertiesMentioned []string    `json:"properties_mentioned"`
	Citations           []*Citation `json:"citations"`
	Images              []*ImageRef `json:"images"`
	LeadSignals         LeadSignals `json:"lead_signals"`
	FollowUpPrompt      string      `json:"follow_up_prompt"`
}

// LeadInsight is the per-turn analytics record exported to the warehouse
type LeadInsight struct {
	SessionID         SessionID
	TurnID            string
	Intent            Intent
	IntentScore       float64
	Signals           []Signal
	RecommendedAction Action
	LeadStatus        LeadStatus
	HasEmail          bool
	HasPhone          bool
	MessageCount      int
	CreatedAt         time.Time
}
