package policy_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/floorbot/pkg/policy"
	"github.com/m-mizutani/gt"
)

var testTime = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func writePolicy(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "lead.rego"), []byte(body), 0644))
	return dir
}

func TestDecide(t *testing.T) {
	ctx := context.Background()
	dir := writePolicy(t, `package lead

status = "converted" if {
	input.has_phone
	input.has_email
	"viewing_interest" in input.signals
}

status = "hot" if {
	input.intent == "medium"
	count(input.properties_viewed) >= 3
}

note = "repeat visitor" if {
	input.message_count > 10
}
`)

	p, err := policy.New(ctx, dir)
	gt.NoError(t, err)
	gt.V(t, p).NotNil()

	session := model.NewSession("s1", testTime)
	session.LeadInfo = model.LeadInfo{Phone: "0501234567", Email: "a@example.com"}
	result := &model.IntentResult{
		Intent:  model.IntentHigh,
		Signals: []model.Signal{model.SignalViewingInterest},
	}

	decision, err := p.Decide(ctx, policy.NewInput(session, result))
	gt.NoError(t, err)
	gt.Equal(t, decision.Status, model.LeadStatusConverted)
	gt.Equal(t, decision.Note, "")

	session = model.NewSession("s2", testTime)
	session.AddPropertiesViewed("3BR-MIA-TYPE-A", "4BR-SHADEA-TYPE-A", "5BR-MODEA-TYPE-A")
	decision, err = p.Decide(ctx, policy.NewInput(session, &model.IntentResult{Intent: model.IntentMedium}))
	gt.NoError(t, err)
	gt.Equal(t, decision.Status, model.LeadStatusHot)

	decision, err = p.Decide(ctx, policy.NewInput(model.NewSession("s3", testTime), &model.IntentResult{Intent: model.IntentLow}))
	gt.NoError(t, err)
	gt.Equal(t, decision.Status, model.LeadStatus(""))
}

func TestDecideInvalidStatus(t *testing.T) {
	ctx := context.Background()
	dir := writePolicy(t, `package lead

status = "legendary"
`)

	p, err := policy.New(ctx, dir)
	gt.NoError(t, err)

	_, err = p.Decide(ctx, policy.NewInput(model.NewSession("s1", testTime), &model.IntentResult{}))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrInvalidLeadState))
}

func TestNoPolicyFiles(t *testing.T) {
	ctx := context.Background()

	p, err := policy.New(ctx, t.TempDir())
	gt.NoError(t, err)
	gt.True(t, p == nil)

	decision, err := p.Decide(ctx, &policy.Input{})
	gt.NoError(t, err)
	gt.Equal(t, decision.Status, model.LeadStatus(""))
}

func TestBrokenPolicy(t *testing.T) {
	dir := writePolicy(t, `package lead

status := if {
`)
	_, err := policy.New(context.Background(), dir)
	gt.Error(t, err)
}
