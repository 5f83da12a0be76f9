package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/m-mizutani/floorbot/pkg/adapter"
	"github.com/m-mizutani/floorbot/pkg/catalog"
	"github.com/m-mizutani/floorbot/pkg/lead"
	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/floorbot/pkg/policy"
	"github.com/m-mizutani/floorbot/pkg/repository"
	"github.com/m-mizutani/floorbot/pkg/retrieval"
	"github.com/m-mizutani/floorbot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// DefaultHistoryWindow is the number of previous messages sent to the
// generator with each turn
const DefaultHistoryWindow = 6

// UseCase runs chat turns. Turns of the same session are serialized;
// different sessions run concurrently.
type UseCase struct {
	store     repository.SessionStore
	retriever *retrieval.Retriever
	generator adapter.Generator

	catalog       *catalog.Catalog
	detector      *lead.Detector
	policy        *policy.LeadPolicy
	archive       adapter.Storage
	insights      adapter.InsightSink
	historyWindow int
	maxImages     int
	clock         func() time.Time

	locks *keyLock
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithCatalog replaces the built-in villa catalog
func WithCatalog(cat *catalog.Catalog) Option {
	return func(uc *UseCase) {
		uc.catalog = cat
	}
}

func WithDetector(d *lead.Detector) Option {
	return func(uc *UseCase) {
		uc.detector = d
	}
}

// WithPolicy sets a Rego policy that may override lead status transitions
func WithPolicy(p *policy.LeadPolicy) Option {
	return func(uc *UseCase) {
		uc.policy = p
	}
}

// WithArchive stores a JSON transcript of every completed turn
func WithArchive(s adapter.Storage) Option {
	return func(uc *UseCase) {
		uc.archive = s
	}
}

// WithInsightSink exports lead signals of every completed turn
func WithInsightSink(s adapter.InsightSink) Option {
	return func(uc *UseCase) {
		uc.insights = s
	}
}

func WithHistoryWindow(n int) Option {
	return func(uc *UseCase) {
		uc.historyWindow = n
	}
}

func WithMaxImages(n int) Option {
	return func(uc *UseCase) {
		uc.maxImages = n
	}
}

func WithClock(clock func() time.Time) Option {
	return func(uc *UseCase) {
		uc.clock = clock
	}
}

// New creates a new chat UseCase instance
func New(store repository.SessionStore, retriever *retrieval.Retriever, generator adapter.Generator, opts ...Option) *UseCase {
	uc := &UseCase{
		store:         store,
		retriever:     retriever,
		generator:     generator,
		historyWindow: DefaultHistoryWindow,
		maxImages:     retrieval.DefaultMaxImages,
		clock:         time.Now,
		locks:         newKeyLock(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	if uc.catalog == nil {
		uc.catalog = catalog.Default()
	}
	if uc.detector == nil {
		uc.detector = lead.NewDetector(lead.WithGazetteer(uc.catalog.Gazetteer...))
	}

	return uc
}

// ChatInput is one user turn
type ChatInput struct {
	SessionID model.SessionID `json:"session_id"`
	Message   string          `json:"message"`
}

// Validate checks the request shape
func (x *ChatInput) Validate() error {
	if x == nil {
		return goerr.Wrap(model.ErrInvalidRequest, "request is required")
	}
	if strings.TrimSpace(string(x.SessionID)) == "" {
		return goerr.Wrap(model.ErrInvalidRequest, "session_id is required")
	}
	if strings.TrimSpace(x.Message) == "" {
		return goerr.Wrap(model.ErrInvalidRequest, "message is required", goerr.V("session_id", x.SessionID))
	}
	return nil
}

// Chat processes one turn. The session is saved only after every step
// succeeded, so a failed turn leaves the stored session untouched.
func (uc *UseCase) Chat(ctx context.Context, input *ChatInput) (*model.ChatResponse, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	message := strings.TrimSpace(input.Message)

	ctx = logging.WithSession(ctx, string(input.SessionID))
	logger := logging.From(ctx)

	unlock, err := uc.locks.Lock(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	stored, err := uc.store.Load(ctx, input.SessionID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load session")
	}

	now := uc.clock()
	var session *model.Session
	if stored == nil {
		session = model.NewSession(input.SessionID, now)
	} else {
		session = stored.Clone()
	}

	history := session.History(uc.historyWindow)

	detection := uc.detector.Detect(message, session.Messages)
	session.AddMessage(model.RoleUser, message, now)
	session.AddSignals(detection.Signals...)
	session.LeadInfo = session.LeadInfo.Merge(detection.Contact)
	result := lead.Evaluate(session)

	retrieved, err := uc.retriever.Retrieve(ctx, message)
	if err != nil {
		return nil, err
	}
	ranked := retrieval.Rank(message, retrieved.Docs, retrieved.Images)
	assembled := retrieval.Assemble(retrieved.Docs, ranked, uc.catalog.VillaType, uc.maxImages)

	answer, err := uc.generate(ctx, message, history, assembled, result, session.LeadInfo)
	if err != nil {
		return nil, err
	}
	session.AddMessage(model.RoleAssistant, answer, uc.clock())

	mentioned := uc.catalog.MentionedProperties(answer)
	session.AddPropertiesViewed(mentioned...)

	session.LeadStatus = uc.nextStatus(ctx, session, result)

	if err := uc.store.Save(ctx, session); err != nil {
		return nil, goerr.Wrap(err, "failed to save session")
	}

	images := []*model.ImageRef{}
	if retrieval.IsVisualQuery(message) || len(mentioned) > 0 {
		images = retrieval.ImageRefs(assembled.Images)
	}

	resp := &model.ChatResponse{
		SessionID:           session.ID,
		Response:            answer,
		PropertiesMentioned: mentioned,
		Citations:           assembled.Citations,
		Images:              images,
		LeadSignals: model.LeadSignals{
			Intent:            result.Intent,
			IntentScore:       result.Score,
			SignalsDetected:   result.Signals,
			RecommendedAction: result.Action,
			ContactRequest:    result.ContactRequest,
			ConversationDepth: session.MessageCount,
		},
		FollowUpPrompt: lead.FollowUp(result, session.LeadInfo),
	}

	logger.Info("chat turn completed",
		"signals", len(result.Signals),
		"intent", result.Intent,
		"score", result.Score,
		"docs", len(assembled.Docs),
		"images", len(images),
		"lead_status", session.LeadStatus,
	)

	uc.export(ctx, session, input, resp)

	return resp, nil
}

func (uc *UseCase) generate(ctx context.Context, message string, history []*model.Message, assembled *retrieval.Context, result *model.IntentResult, info model.LeadInfo) (string, error) {
	systemPrompt, err := buildSystemPrompt(uc.catalog)
	if err != nil {
		return "", err
	}
	prompt, err := buildTurnPrompt(message, assembled.Block, result, info)
	if err != nil {
		return "", err
	}

	answer, err := uc.generator.Generate(ctx, &adapter.GenerateInput{
		SystemPrompt: systemPrompt,
		History:      history,
		Prompt:       prompt,
	})
	if err != nil {
		if errors.Is(err, model.ErrUpstreamUnavailable) {
			return "", err
		}
		return "", goerr.Wrap(model.ErrUpstreamUnavailable, "failed to generate response", goerr.V("cause", err))
	}
	return answer, nil
}

// nextStatus applies the default promotion rule, then lets the policy
// override it. Converted leads stay converted.
func (uc *UseCase) nextStatus(ctx context.Context, session *model.Session, result *model.IntentResult) model.LeadStatus {
	next := lead.NextStatus(session.LeadStatus, result.Intent)
	if uc.policy == nil || session.LeadStatus == model.LeadStatusConverted {
		return next
	}

	decision, err := uc.policy.Decide(ctx, policy.NewInput(session, result))
	if err != nil {
		logging.From(ctx).Warn("lead policy failed, keep default status", "error", err)
		return next
	}
	if decision.Status != "" {
		if decision.Note != "" {
			logging.From(ctx).Info("lead policy decision", "status", decision.Status, "note", decision.Note)
		}
		return decision.Status
	}
	return next
}

// CleanupSessions removes sessions idle longer than the store TTL
func (uc *UseCase) CleanupSessions(ctx context.Context) (int, error) {
	removed, err := uc.store.Cleanup(ctx, uc.clock())
	if err != nil {
		return 0, goerr.Wrap(err, "failed to cleanup sessions")
	}
	logging.From(ctx).Info("expired sessions removed", "count", removed)
	return removed, nil
}
