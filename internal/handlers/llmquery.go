package handlers

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"sravz-backend/internal/compute"
	"sravz-backend/internal/models"
)

// LlmQuery forwards the request to the compute runtime's LLM pipeline and
// attaches the answer to the reply.
type LlmQuery struct {
	deps Deps
}

// NewLlmQuery builds the handler.
func NewLlmQuery(deps Deps) *LlmQuery {
	return &LlmQuery{deps: deps}
}

// Handle implements Handler.
func (h *LlmQuery) Handle(ctx context.Context, msg *models.Message) error {
	out, err := h.deps.Bridge.Run(ctx, compute.PyMessage{
		MessageID: messageID(msg),
		Key:       msg.Key,
		SravzIDs:  strings.Join(msg.Params.Args, ","),
		JSONKeys:  msg.Params.Kwargs.JSONKeys.Join(),
		LLMQuery:  msg.Params.Kwargs.LLMQuery,
	})
	if err != nil {
		return err
	}

	if out.Output != "" {
		msg.Artifact = &models.Artifact{
			Data: json.RawMessage(strconv.Quote(out.Output)),
		}
	}
	return nil
}
