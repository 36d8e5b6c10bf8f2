// Package explore drives the multi-turn "smart exploration" chat: parameters
// are accumulated through an extraction endpoint until a report can be
// requested from the analysis endpoint.
package explore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"schoolbridge/pkg/types"
)

type Stage string

const (
	StageCollecting           Stage = "collecting"
	StageAwaitingConfirmation Stage = "awaiting_confirmation"
	StageGenerating           Stage = "generating"
	StageComplete             Stage = "complete"
)

const (
	ParamResourceType   = "resource_type"
	ParamTargetCounties = "target_counties"
)

const Greeting = "您好！我是偏鄉教育資源探索助理。請告訴我您想了解哪一類資源（例如：數位設備、師資、圖書），以及關注的縣市。"

const readyPrompt = "參數已收集完成。輸入「確認」或「生成報告」即可開始分析。"

var ErrEmptyMessage = errors.New("message is empty")

var (
	generateKeywords = []string{"生成報告", "產生報告", "開始分析", "generate"}
	confirmKeywords  = []string{"確認", "是的"}
	// Short confirmations only count when they are the whole message.
	confirmReplies = []string{"好", "好的", "可以", "yes", "ok"}
)

// Assistant is the pair of backend calls the conversation depends on.
// *api.Client satisfies it.
type Assistant interface {
	ExtractParameters(ctx context.Context, req *types.ExtractRequest) (*types.ExtractResponse, error)
	Analyze(ctx context.Context, req *types.AnalyzeRequest) (*types.AnalyzeResponse, error)
}

// Turn is the outcome of one user message.
type Turn struct {
	Reply     string
	Generated bool
	// Missing names the required parameters that blocked a generate or
	// confirm request. The turn itself ran as a normal extraction.
	Missing []string
}

type Conversation struct {
	ID string

	assistant Assistant
	logger    logrus.FieldLogger

	mu      sync.Mutex
	stage   Stage
	params  map[string]any
	history []types.ChatMessage
	result  *types.AnalyzeResponse
}

func NewConversation(id string, assistant Assistant, logger logrus.FieldLogger) *Conversation {
	c := &Conversation{
		ID:        id,
		assistant: assistant,
		logger:    logger.WithField("conversation_id", id),
	}
	c.reset()
	return c
}

func (c *Conversation) Stage() Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

func (c *Conversation) Parameters() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.params)
}

func (c *Conversation) History() []types.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.ChatMessage(nil), c.history...)
}

// Result is the latest analysis, nil until a report was generated.
func (c *Conversation) Result() *types.AnalyzeResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Reset clears parameters, history and any report back to the greeting.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *Conversation) reset() {
	c.stage = StageCollecting
	c.params = make(map[string]any)
	c.history = []types.ChatMessage{{Role: types.ChatRoleAssistant, Content: Greeting}}
	c.result = nil
}

// Send processes one user message. Turns on the same conversation are
// serialized.
func (c *Conversation) Send(ctx context.Context, message string) (*Turn, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	turn := new(Turn)
	if c.wantsReport(message) {
		missing := c.missing()
		if len(missing) == 0 {
			return c.generate(ctx, message)
		}

		turn.Missing = missing
		c.logger.WithField("missing", missing).Info("report requested before required parameters were collected")
	}

	return c.extract(ctx, message, turn)
}

func (c *Conversation) wantsReport(message string) bool {
	lower := strings.ToLower(message)
	if containsAny(lower, generateKeywords) {
		return true
	}
	if c.stage != StageAwaitingConfirmation {
		return false
	}
	return containsAny(lower, confirmKeywords) || slices.Contains(confirmReplies, strings.TrimRight(lower, "!！。.~～ "))
}

func (c *Conversation) extract(ctx context.Context, message string, turn *Turn) (*Turn, error) {
	req := &types.ExtractRequest{
		Message:             message,
		ConversationHistory: append([]types.ChatMessage(nil), c.history...),
		CurrentParameters:   maps.Clone(c.params),
	}

	resp, err := c.assistant.ExtractParameters(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("extract parameters: %w", err)
	}

	c.history = append(c.history, types.ChatMessage{Role: types.ChatRoleUser, Content: message})

	maps.Copy(c.params, resp.Parameters)

	reply := resp.FollowUpQuestion
	if resp.IsComplete {
		c.stage = StageAwaitingConfirmation
		if reply == "" {
			reply = readyPrompt
		}
	}

	if reply != "" {
		c.history = append(c.history, types.ChatMessage{Role: types.ChatRoleAssistant, Content: reply})
	}

	turn.Reply = reply
	return turn, nil
}

func (c *Conversation) generate(ctx context.Context, message string) (*Turn, error) {
	previous := c.stage
	c.stage = StageGenerating
	history := append(slices.Clone(c.history), types.ChatMessage{Role: types.ChatRoleUser, Content: message})

	resp, err := c.assistant.Analyze(ctx, &types.AnalyzeRequest{
		Parameters:          maps.Clone(c.params),
		ConversationHistory: slices.Clone(history),
	})
	if err != nil {
		c.stage = previous
		return nil, fmt.Errorf("analyze: %w", err)
	}

	c.history = history

	c.result = resp
	c.stage = StageComplete

	reply := "分析報告已生成。"
	c.history = append(c.history, types.ChatMessage{Role: types.ChatRoleAssistant, Content: reply})

	return &Turn{Reply: reply, Generated: true}, nil
}

func (c *Conversation) missing() []string {
	var out []string
	if isBlank(c.params[ParamResourceType]) {
		out = append(out, ParamResourceType)
	}
	if isBlank(c.params[ParamTargetCounties]) {
		out = append(out, ParamTargetCounties)
	}
	return out
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	}
	return false
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
