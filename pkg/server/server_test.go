package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/m-mizutani/floorbot/pkg/index"
	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/floorbot/pkg/server"
	"github.com/m-mizutani/floorbot/pkg/usecase/chat"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

type mockChat struct {
	inputs  []*chat.ChatInput
	err     error
	cleaned int
}

func (m *mockChat) Chat(ctx context.Context, input *chat.ChatInput) (*model.ChatResponse, error) {
	m.inputs = append(m.inputs, input)
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	return &model.ChatResponse{
		SessionID: input.SessionID,
		Response:  "answer",
		LeadSignals: model.LeadSignals{
			Intent:            model.IntentHigh,
			RecommendedAction: model.ActionScheduleViewingImmediately,
		},
	}, nil
}

func (m *mockChat) CleanupSessions(ctx context.Context) (int, error) {
	return m.cleaned, nil
}

func fragments() []*model.Fragment {
	return []*model.Fragment{
		{
			ID:        "doc-p8-c0",
			Kind:      model.FragmentKindDocument,
			Text:      "5BR MODEA ground floor with majlis and guest suite",
			Embedding: []float32{1, 0},
			Document:  &model.DocumentMeta{Page: 8},
		},
		{
			ID:        "doc-p4-c0",
			Kind:      model.FragmentKindDocument,
			Text:      "3BR MIA Type A with open kitchen",
			Embedding: []float32{0, 1},
			Document:  &model.DocumentMeta{Page: 4},
		},
	}
}

func newServer(t *testing.T, uc *mockChat, opts ...server.Option) *server.Server {
	idx := index.NewMemory()
	gt.NoError(t, idx.Add(context.Background(), fragments()...))
	return server.New(uc, idx, opts...)
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestChatEndpoint(t *testing.T) {
	uc := &mockChat{}
	srv := newServer(t, uc)

	rec, out := do(t, srv, http.MethodPost, "/chat", `{"session_id":"s-1","message":"Can I book a viewing?"}`)
	gt.Equal(t, rec.Code, http.StatusOK)
	gt.Equal(t, out["session_id"], any("s-1"))
	gt.Equal(t, out["response"], any("answer"))
	gt.A(t, uc.inputs).Length(1)
	gt.Equal(t, uc.inputs[0].Message, "Can I book a viewing?")
}

func TestChatEndpointErrors(t *testing.T) {
	testCases := map[string]struct {
		body string
		err  error
		code int
	}{
		"malformed body": {
			body: `{"session_id":`,
			code: http.StatusBadRequest,
		},
		"empty message": {
			body: `{"session_id":"s-1","message":"  "}`,
			code: http.StatusBadRequest,
		},
		"missing session": {
			body: `{"message":"hello"}`,
			code: http.StatusBadRequest,
		},
		"index not ready": {
			body: `{"session_id":"s-1","message":"hello"}`,
			err:  goerr.Wrap(model.ErrNotInitialized, "index is empty"),
			code: http.StatusServiceUnavailable,
		},
		"upstream failure": {
			body: `{"session_id":"s-1","message":"hello"}`,
			err:  goerr.Wrap(model.ErrUpstreamUnavailable, "failed to generate"),
			code: http.StatusBadGateway,
		},
		"unexpected failure": {
			body: `{"session_id":"s-1","message":"hello"}`,
			err:  errors.New("disk full"),
			code: http.StatusInternalServerError,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			srv := newServer(t, &mockChat{err: tc.err})
			rec, out := do(t, srv, http.MethodPost, "/chat", tc.body)
			gt.Equal(t, rec.Code, tc.code)
			gt.V(t, out["error"]).NotNil()
		})
	}

	t.Run("internal details are not leaked", func(t *testing.T) {
		srv := newServer(t, &mockChat{err: errors.New("disk full")})
		rec, _ := do(t, srv, http.MethodPost, "/chat", `{"session_id":"s-1","message":"hello"}`)
		gt.S(t, rec.Body.String()).NotContains("disk full")
	})
}

func TestHealthEndpoint(t *testing.T) {
	srv := newServer(t, &mockChat{}, server.WithStoreKind("sqlite"))

	rec, out := do(t, srv, http.MethodGet, "/health", "")
	gt.Equal(t, rec.Code, http.StatusOK)
	gt.Equal(t, out["status"], any("healthy"))
	gt.Equal(t, out["index_loaded"], any(true))
	gt.Equal(t, out["fragments"], any(float64(2)))
	gt.Equal(t, out["session_store"], any("sqlite"))
}

func TestHealthEndpointEmptyIndex(t *testing.T) {
	srv := server.New(&mockChat{}, index.NewMemory())

	rec, out := do(t, srv, http.MethodGet, "/health", "")
	gt.Equal(t, rec.Code, http.StatusOK)
	gt.Equal(t, out["index_loaded"], any(false))
}

func TestCleanupEndpoint(t *testing.T) {
	srv := newServer(t, &mockChat{cleaned: 3})

	rec, out := do(t, srv, http.MethodPost, "/admin/cleanup-sessions", "")
	gt.Equal(t, rec.Code, http.StatusOK)
	gt.Equal(t, out["cleaned_up"], any(float64(3)))
}

func TestRootEndpoint(t *testing.T) {
	srv := newServer(t, &mockChat{})

	rec, out := do(t, srv, http.MethodGet, "/", "")
	gt.Equal(t, rec.Code, http.StatusOK)
	gt.Equal(t, out["status"], any("running"))
}

func TestSearchEndpoint(t *testing.T) {
	lexical, err := index.NewLexical(fragments())
	gt.NoError(t, err)
	defer lexical.Close()

	srv := newServer(t, &mockChat{}, server.WithLexical(lexical))

	t.Run("hit", func(t *testing.T) {
		rec, out := do(t, srv, http.MethodGet, "/fragments/search?q=majlis", "")
		gt.Equal(t, rec.Code, http.StatusOK)
		results, ok := out["results"].([]any)
		gt.True(t, ok)
		gt.A(t, results).Length(1)
		hit := results[0].(map[string]any)
		gt.Equal(t, hit["id"], any("doc-p8-c0"))
		gt.Equal(t, hit["page"], any(float64(8)))
	})

	t.Run("missing query", func(t *testing.T) {
		rec, _ := do(t, srv, http.MethodGet, "/fragments/search", "")
		gt.Equal(t, rec.Code, http.StatusBadRequest)
	})

	t.Run("bad limit", func(t *testing.T) {
		rec, _ := do(t, srv, http.MethodGet, "/fragments/search?q=villa&limit=abc", "")
		gt.Equal(t, rec.Code, http.StatusBadRequest)
	})

	t.Run("not loaded", func(t *testing.T) {
		rec, _ := do(t, newServer(t, &mockChat{}), http.MethodGet, "/fragments/search?q=villa", "")
		gt.Equal(t, rec.Code, http.StatusServiceUnavailable)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newServer(t, &mockChat{})

	rec, _ := do(t, srv, http.MethodPost, "/chat", `{"session_id":"s-1","message":"hello"}`)
	gt.Equal(t, rec.Code, http.StatusOK)

	rec, _ = do(t, srv, http.MethodGet, "/metrics", "")
	gt.Equal(t, rec.Code, http.StatusOK)
	gt.S(t, rec.Body.String()).Contains(`floorbot_chat_turns_total{intent="high"} 1`)
	gt.S(t, rec.Body.String()).Contains(`floorbot_recommended_actions_total{action="schedule_viewing_immediately"} 1`)
}

func TestMCPMount(t *testing.T) {
	called := false
	mcpHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusAccepted)
	})
	srv := newServer(t, &mockChat{}, server.WithMCP(mcpHandler))

	rec, _ := do(t, srv, http.MethodPost, "/mcp", `{}`)
	gt.Equal(t, rec.Code, http.StatusAccepted)
	gt.True(t, called)
}
