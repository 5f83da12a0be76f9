package mcp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/m-mizutani/floorbot/pkg/catalog"
	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/floorbot/pkg/usecase/chat"
	"github.com/m-mizutani/floorbot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	ServerName    = "floorbot"
	ServerVersion = "0.1.0"

	AskToolName        = "ask_floorplan_advisor"
	VillaTypesToolName = "list_villa_types"
)

// Advisor answers one chat turn
type Advisor interface {
	Chat(ctx context.Context, input *chat.ChatInput) (*model.ChatResponse, error)
}

// AskParams is the argument of the ask tool. A missing session id starts
// a new conversation.
type AskParams struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

type villaTypesParams struct{}

var askInputSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"session_id": {
			Type:        "string",
			Description: "Conversation id returned by a previous call. Omit to start a new conversation.",
		},
		"message": {
			Type:        "string",
			Description: "Question about the floorplans, villa types or the community",
		},
	},
	Required: []string{"message"},
}

// Server exposes the advisor as MCP tools
type Server struct {
	advisor Advisor
	catalog *catalog.Catalog
	server  *mcp.Server
}

// NewServer builds an MCP server with the advisor tools registered
func NewServer(advisor Advisor, cat *catalog.Catalog) *Server {
	if cat == nil {
		cat = catalog.Default()
	}

	s := &Server{
		advisor: advisor,
		catalog: cat,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		}, nil),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        AskToolName,
		Description: "Ask the " + cat.Project + " floorplan advisor a question. Returns the answer with citations, floorplan images and lead signals as JSON.",
		InputSchema: askInputSchema,
	}, s.ask)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        VillaTypesToolName,
		Description: "List the villa types available in " + cat.Project,
	}, s.villaTypes)

	return s
}

// MCP returns the underlying SDK server
func (s *Server) MCP() *mcp.Server {
	return s.server
}

// Run serves MCP over stdin/stdout until ctx is done or the peer disconnects
func (s *Server) Run(ctx context.Context) error {
	if err := s.server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return goerr.Wrap(err, "failed to run MCP server")
	}
	return nil
}

// Handler returns a streamable HTTP handler for the server
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

func (s *Server) ask(ctx context.Context, req *mcp.CallToolRequest, params *AskParams) (*mcp.CallToolResult, any, error) {
	sessionID := params.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	resp, err := s.advisor.Chat(ctx, &chat.ChatInput{
		SessionID: model.SessionID(sessionID),
		Message:   params.Message,
	})
	if err != nil {
		logging.From(ctx).Warn("advisor tool call failed", "session_id", sessionID, "error", err)
		return nil, nil, err
	}

	return jsonResult(resp)
}

type villaType struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Bedrooms int    `json:"bedrooms"`
	Pool     bool   `json:"pool"`
}

func (s *Server) villaTypes(ctx context.Context, req *mcp.CallToolRequest, params *villaTypesParams) (*mcp.CallToolResult, any, error) {
	villas := make([]*villaType, 0, len(s.catalog.Villas))
	for _, v := range s.catalog.Villas {
		villas = append(villas, &villaType{
			ID:       v.ID,
			Label:    v.Label,
			Bedrooms: v.Bedrooms,
			Pool:     v.Pool,
		})
	}
	return jsonResult(villas)
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to marshal tool result")
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(raw)},
		},
	}, nil, nil
}
