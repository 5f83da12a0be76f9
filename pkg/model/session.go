package model

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// SessionTTL is the inactivity period after which a session is expired
const SessionTTL = 24 * time.Hour

type SessionID string

// NewSessionID generates a new unique SessionID
func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role      Role      `json:"role" firestore:"role"`
	Content   string    `json:"content" firestore:"content"`
	Timestamp time.Time `json:"timestamp" firestore:"timestamp"`
}

// LeadInfo holds contact details captured from the conversation
type LeadInfo struct {
	Name  string `json:"name,omitempty" firestore:"name,omitempty"`
	Email string `json:"email,omitempty" firestore:"email,omitempty"`
	Phone string `json:"phone,omitempty" firestore:"phone,omitempty"`
}

// Merge returns a copy of l updated with the non-empty fields of other.
// An empty field in other never clears a captured value.
func (l LeadInfo) Merge(other LeadInfo) LeadInfo {
	if other.Name != "" {
		l.Name = other.Name
	}
	if other.Email != "" {
		l.Email = other.Email
	}
	if other.Phone != "" {
		l.Phone = other.Phone
	}
	return l
}

func (l LeadInfo) IsEmpty() bool {
	return l.Name == "" && l.Email == "" && l.Phone == ""
}

type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusHot       LeadStatus = "hot"
	LeadStatusConverted LeadStatus = "converted"
)

// Validate checks if the lead status is valid
func (s LeadStatus) Validate() error {
	switch s {
	case LeadStatusNew, LeadStatusQualified, LeadStatusHot, LeadStatusConverted:
		return nil
	default:
		return goerr.Wrap(ErrInvalidLeadState, "unknown lead status", goerr.V("status", s))
	}
}

// Rank orders statuses along the sales funnel
func (s LeadStatus) Rank() int {
	switch s {
	case LeadStatusQualified:
		return 1
	case LeadStatusHot:
		return 2
	case LeadStatusConverted:
		return 3
	default:
		return 0
	}
}

// Session is the conversation state of one visitor. BuyingSignals and
// PropertiesViewed have set semantics and keep first-seen order.
type Session struct {
	ID               SessionID  `json:"session_id" firestore:"session_id"`
	CreatedAt        time.Time  `json:"created_at" firestore:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" firestore:"updated_at"`
	Messages         []*Message `json:"messages" firestore:"messages"`
	PropertiesViewed []string   `json:"properties_viewed" firestore:"properties_viewed"`
	LeadInfo         LeadInfo   `json:"lead_info" firestore:"lead_info"`
	LeadStatus       LeadStatus `json:"lead_status" firestore:"lead_status"`
	BuyingSignals    []Signal   `json:"buying_signals" firestore:"buying_signals"`
	MessageCount     int        `json:"message_count" firestore:"message_count"`
}

// NewSession creates an empty session
func NewSession(id SessionID, now time.Time) *Session {
	return &Session{
		ID:         id,
		CreatedAt:  now,
		UpdatedAt:  now,
		LeadStatus: LeadStatusNew,
	}
}

// Clone returns a deep copy so a turn can be applied atomically
func (s *Session) Clone() *Session {
	c := *s
	c.Messages = make([]*Message, len(s.Messages))
	for i, m := range s.Messages {
		msg := *m
		c.Messages[i] = &msg
	}
	c.PropertiesViewed = slices.Clone(s.PropertiesViewed)
	c.BuyingSignals = slices.Clone(s.BuyingSignals)
	return &c
}

// AddMessage appends a message and keeps MessageCount in sync
func (s *Session) AddMessage(role Role, content string, at time.Time) {
	s.Messages = append(s.Messages, &Message{
		Role:      role,
		Content:   content,
		Timestamp: at,
	})
	s.MessageCount = len(s.Messages)
	s.UpdatedAt = at
}

// AddSignals merges signals into BuyingSignals as a set union
func (s *Session) AddSignals(signals ...Signal) {
	for _, sig := range signals {
		if !slices.Contains(s.BuyingSignals, sig) {
			s.BuyingSignals = append(s.BuyingSignals, sig)
		}
	}
}

func (s *Session) HasSignal(sig Signal) bool {
	return slices.Contains(s.BuyingSignals, sig)
}

// AddPropertiesViewed merges property identifiers as a set union
func (s *Session) AddPropertiesViewed(ids ...string) {
	for _, id := range ids {
		if !slices.Contains(s.PropertiesViewed, id) {
			s.PropertiesViewed = append(s.PropertiesViewed, id)
		}
	}
}

// History returns the last n messages, or all of them when n <= 0
func (s *Session) History(n int) []*Message {
	if n <= 0 || n >= len(s.Messages) {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

// Expired reports whether the session has been idle longer than ttl
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.UpdatedAt) > ttl
}
