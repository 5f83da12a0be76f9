package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/floorbot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/oklog/ulid/v2"
)

// Transcript is the archived record of one turn
type Transcript struct {
	SessionID  model.SessionID     `json:"session_id"`
	TurnID     string              `json:"turn_id"`
	CreatedAt  time.Time           `json:"created_at"`
	Request    *ChatInput          `json:"request"`
	Response   *model.ChatResponse `json:"response"`
	LeadInfo   model.LeadInfo      `json:"lead_info"`
	LeadStatus model.LeadStatus    `json:"lead_status"`
}

func transcriptKey(sessionID model.SessionID, turnID string) string {
	return "transcripts/" + string(sessionID) + "/" + turnID + ".json"
}

// export writes the turn to the archive and the insight sink. Failures
// are logged and never fail the turn.
func (uc *UseCase) export(ctx context.Context, session *model.Session, input *ChatInput, resp *model.ChatResponse) {
	if uc.archive == nil && uc.insights == nil {
		return
	}

	turnID := ulid.Make().String()
	now := uc.clock()
	logger := logging.From(ctx)

	if uc.archive != nil {
		t := &Transcript{
			SessionID:  session.ID,
			TurnID:     turnID,
			CreatedAt:  now,
			Request:    input,
			Response:   resp,
			LeadInfo:   session.LeadInfo,
			LeadStatus: session.LeadStatus,
		}
		if err := uc.putTranscript(ctx, t); err != nil {
			logger.Warn("failed to archive transcript", "error", err)
		}
	}

	if uc.insights != nil {
		insight := &model.LeadInsight{
			SessionID:         session.ID,
			TurnID:            turnID,
			Intent:            resp.LeadSignals.Intent,
			IntentScore:       resp.LeadSignals.IntentScore,
			Signals:           resp.LeadSignals.SignalsDetected,
			RecommendedAction: resp.LeadSignals.RecommendedAction,
			LeadStatus:        session.LeadStatus,
			HasEmail:          session.LeadInfo.Email != "",
			HasPhone:          session.LeadInfo.Phone != "",
			MessageCount:      session.MessageCount,
			CreatedAt:         now,
		}
		if err := uc.insights.PutLeadInsights(ctx, insight); err != nil {
			logger.Warn("failed to export lead insight", "error", err)
		}
	}
}

func (uc *UseCase) putTranscript(ctx context.Context, t *Transcript) error {
	writer, err := uc.archive.Put(ctx, transcriptKey(t.SessionID, t.TurnID))
	if err != nil {
		return goerr.Wrap(err, "failed to create storage writer")
	}

	if err := json.NewEncoder(writer).Encode(t); err != nil {
		_ = writer.Close()
		return goerr.Wrap(err, "failed to write transcript", goerr.V("turn_id", t.TurnID))
	}

	if err := writer.Close(); err != nil {
		return goerr.Wrap(err, "failed to close storage writer", goerr.V("turn_id", t.TurnID))
	}
	return nil
}
