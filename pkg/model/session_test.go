package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/gt"
)

func TestLeadInfoMerge(t *testing.T) {
	captured := model.LeadInfo{Name: "Sarah", Email: "sarah@example.com"}

	t.Run("empty fields never clear captured values", func(t *testing.T) {
		merged := captured.Merge(model.LeadInfo{Phone: "+971 50 123 4567"})
		gt.Equal(t, merged.Name, "Sarah")
		gt.Equal(t, merged.Email, "sarah@example.com")
		gt.Equal(t, merged.Phone, "+971 50 123 4567")
	})

	t.Run("new non-empty values replace old ones", func(t *testing.T) {
		merged := captured.Merge(model.LeadInfo{Email: "s.khan@example.com"})
		gt.Equal(t, merged.Email, "s.khan@example.com")
		gt.Equal(t, merged.Name, "Sarah")
	})

	t.Run("merging nothing is a no-op", func(t *testing.T) {
		gt.Equal(t, captured.Merge(model.LeadInfo{}), captured)
	})
}

func TestSessionAddSignalsIsSetUnion(t *testing.T) {
	s := model.NewSession("s1", time.Now())
	s.AddSignals(model.SignalTimeline, model.SignalBudgetMention)
	s.AddSignals(model.SignalTimeline, model.SignalBudgetMention)
	s.AddSignals(model.SignalViewingInterest, model.SignalTimeline)

	gt.A(t, s.BuyingSignals).Length(3)
	gt.Equal(t, s.BuyingSignals[0], model.SignalTimeline)
	gt.Equal(t, s.BuyingSignals[2], model.SignalViewingInterest)
	gt.True(t, s.HasSignal(model.SignalBudgetMention))
	gt.False(t, s.HasSignal(model.SignalComparisonIntent))
}

func TestSessionCloneIsIndependent(t *testing.T) {
	now := time.Now()
	s := model.NewSession("s1", now)
	s.AddMessage(model.RoleUser, "hello", now)
	s.AddSignals(model.SignalTimeline)
	s.AddPropertiesViewed("3BR-MIA-TYPE-A")

	c := s.Clone()
	c.AddMessage(model.RoleAssistant, "hi", now)
	c.Messages[0].Content = "changed"
	c.AddSignals(model.SignalViewingInterest)
	c.AddPropertiesViewed("4BR-SHADEA-TYPE-B")
	c.LeadInfo.Name = "Omar"

	gt.A(t, s.Messages).Length(1)
	gt.Equal(t, s.Messages[0].Content, "hello")
	gt.Equal(t, s.MessageCount, 1)
	gt.A(t, s.BuyingSignals).Length(1)
	gt.A(t, s.PropertiesViewed).Length(1)
	gt.Equal(t, s.LeadInfo.Name, "")
	gt.Equal(t, c.MessageCount, 2)
}

func TestSessionHistory(t *testing.T) {
	now := time.Now()
	s := model.NewSession("s1", now)
	for i := 0; i < 8; i++ {
		s.AddMessage(model.RoleUser, string(rune('a'+i)), now)
	}

	gt.A(t, s.History(6)).Length(6)
	gt.Equal(t, s.History(6)[0].Content, "c")
	gt.A(t, s.History(0)).Length(8)
	gt.A(t, s.History(20)).Length(8)
}

func TestSessionExpired(t *testing.T) {
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	s := model.NewSession("s1", base)

	gt.False(t, s.Expired(base.Add(model.SessionTTL), model.SessionTTL))
	gt.True(t, s.Expired(base.Add(model.SessionTTL+time.Second), model.SessionTTL))
}

func TestLeadStatusValidate(t *testing.T) {
	for _, st := range []model.LeadStatus{
		model.LeadStatusNew, model.LeadStatusQualified, model.LeadStatusHot, model.LeadStatusConverted,
	} {
		gt.NoError(t, st.Validate())
	}
	gt.Error(t, model.LeadStatus("archived").Validate())
	gt.True(t, model.LeadStatusHot.Rank() > model.LeadStatusQualified.Rank())
}
