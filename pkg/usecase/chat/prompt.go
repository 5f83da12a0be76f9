package chat

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"

	"github.com/m-mizutani/floorbot/pkg/catalog"
	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

//go:embed prompt/system.md
var systemPromptRaw string

//go:embed prompt/turn.md
var turnPromptRaw string

var (
	systemPromptTmpl = template.Must(template.New("system").Parse(systemPromptRaw))
	turnPromptTmpl   = template.Must(template.New("turn").Funcs(template.FuncMap{
		"join": strings.Join,
	}).Parse(turnPromptRaw))
)

func buildSystemPrompt(cat *catalog.Catalog) (string, error) {
	var buf bytes.Buffer
	if err := systemPromptTmpl.Execute(&buf, cat); err != nil {
		return "", goerr.Wrap(err, "failed to render system prompt")
	}
	return buf.String(), nil
}

type turnPromptInput struct {
	Context  string
	Intent   model.Intent
	Action   model.Action
	Signals  []string
	Captured []string
	Question string
}

func buildTurnPrompt(question, contextBlock string, result *model.IntentResult, info model.LeadInfo) (string, error) {
	input := turnPromptInput{
		Context:  contextBlock,
		Intent:   result.Intent,
		Action:   result.Action,
		Question: question,
	}
	for _, s := range result.Signals {
		input.Signals = append(input.Signals, string(s))
	}
	if info.Name != "" {
		input.Captured = append(input.Captured, "name: "+info.Name)
	}
	if info.Email != "" {
		input.Captured = append(input.Captured, "email: "+info.Email)
	}
	if info.Phone != "" {
		input.Captured = append(input.Captured, "phone: "+info.Phone)
	}

	var buf bytes.Buffer
	if err := turnPromptTmpl.Execute(&buf, input); err != nil {
		return "", goerr.Wrap(err, "failed to render turn prompt")
	}
	return buf.String(), nil
}
