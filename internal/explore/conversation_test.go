package explore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolbridge/pkg/types"
)

type fakeAssistant struct {
	extractResp *types.ExtractResponse
	extractErr  error
	analyzeResp *types.AnalyzeResponse
	analyzeErr  error

	extracts []*types.ExtractRequest
	analyses []*types.AnalyzeRequest
}

func (f *fakeAssistant) ExtractParameters(_ context.Context, req *types.ExtractRequest) (*types.ExtractResponse, error) {
	f.extracts = append(f.extracts, req)
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	if f.extractResp == nil {
		return &types.ExtractResponse{}, nil
	}
	return f.extractResp, nil
}

func (f *fakeAssistant) Analyze(_ context.Context, req *types.AnalyzeRequest) (*types.AnalyzeResponse, error) {
	f.analyses = append(f.analyses, req)
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	return f.analyzeResp, nil
}

func newTestConversation(a Assistant) (*Conversation, *test.Hook) {
	logger, hook := test.NewNullLogger()
	return NewConversation("conv-1", a, logger), hook
}

func TestGenerateWithoutCountiesFallsThrough(t *testing.T) {
	fake := &fakeAssistant{extractResp: &types.ExtractResponse{FollowUpQuestion: "請問您關注哪些縣市？"}}
	conv, hook := newTestConversation(fake)
	conv.params[ParamResourceType] = "digital_devices"

	turn, err := conv.Send(context.Background(), "生成報告")
	require.NoError(t, err)

	assert.Empty(t, fake.analyses)
	require.Len(t, fake.extracts, 1)
	assert.Equal(t, "生成報告", fake.extracts[0].Message)
	assert.Equal(t, "digital_devices", fake.extracts[0].CurrentParameters[ParamResourceType])

	assert.False(t, turn.Generated)
	assert.Equal(t, []string{ParamTargetCounties}, turn.Missing)
	assert.Equal(t, "請問您關注哪些縣市？", turn.Reply)
	assert.Equal(t, StageCollecting, conv.Stage())

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
}

func TestConfirmWhileAwaitingGeneratesOnce(t *testing.T) {
	fake := &fakeAssistant{
		extractResp: &types.ExtractResponse{
			Parameters: map[string]any{
				ParamResourceType:   "digital_devices",
				ParamTargetCounties: []any{"花蓮縣", "台東縣"},
			},
			IsComplete: true,
		},
		analyzeResp: &types.AnalyzeResponse{Report: "# 報告"},
	}
	conv, _ := newTestConversation(fake)

	turn, err := conv.Send(context.Background(), "我想了解花蓮和台東的數位設備")
	require.NoError(t, err)
	assert.Equal(t, readyPrompt, turn.Reply)
	assert.Equal(t, StageAwaitingConfirmation, conv.Stage())

	turn, err = conv.Send(context.Background(), "確認")
	require.NoError(t, err)
	assert.True(t, turn.Generated)

	require.Len(t, fake.analyses, 1)
	assert.Equal(t, map[string]any{
		ParamResourceType:   "digital_devices",
		ParamTargetCounties: []any{"花蓮縣", "台東縣"},
	}, fake.analyses[0].Parameters)
	assert.Len(t, fake.extracts, 1)

	history := fake.analyses[0].ConversationHistory
	require.NotEmpty(t, history)
	assert.Equal(t, types.ChatMessage{Role: types.ChatRoleUser, Content: "確認"}, history[len(history)-1])

	assert.Equal(t, StageComplete, conv.Stage())
	require.NotNil(t, conv.Result())
	assert.Equal(t, "# 報告", conv.Result().Report)
}

func TestConfirmKeywordIgnoredWhileCollecting(t *testing.T) {
	fake := &fakeAssistant{}
	conv, _ := newTestConversation(fake)
	conv.params[ParamResourceType] = "books"
	conv.params[ParamTargetCounties] = []any{"屏東縣"}

	_, err := conv.Send(context.Background(), "好")
	require.NoError(t, err)
	assert.Empty(t, fake.analyses)
	assert.Len(t, fake.extracts, 1)
}

func TestParametersMergeLaterWins(t *testing.T) {
	fake := &fakeAssistant{extractResp: &types.ExtractResponse{Parameters: map[string]any{"a": 1, "b": 1}}}
	conv, _ := newTestConversation(fake)

	_, err := conv.Send(context.Background(), "first")
	require.NoError(t, err)

	fake.extractResp = &types.ExtractResponse{Parameters: map[string]any{"b": 2, "c": 3}}
	_, err = conv.Send(context.Background(), "second")
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"a": 1, "b": 2, "c": 3}, conv.Parameters())
}

func TestAnalyzeFailureRestoresStage(t *testing.T) {
	fake := &fakeAssistant{analyzeErr: errors.New("upstream down")}
	conv, _ := newTestConversation(fake)
	conv.params[ParamResourceType] = "books"
	conv.params[ParamTargetCounties] = []any{"屏東縣"}
	conv.stage = StageAwaitingConfirmation

	_, err := conv.Send(context.Background(), "yes")
	require.Error(t, err)
	assert.Equal(t, StageAwaitingConfirmation, conv.Stage())
	assert.Nil(t, conv.Result())
}

func TestAnalyzeFailureKeepsHistory(t *testing.T) {
	fake := &fakeAssistant{analyzeErr: errors.New("upstream down")}
	conv, _ := newTestConversation(fake)
	conv.params[ParamResourceType] = "books"
	conv.params[ParamTargetCounties] = []any{"屏東縣"}
	conv.stage = StageAwaitingConfirmation
	before := conv.History()

	_, err := conv.Send(context.Background(), "確認")
	require.Error(t, err)
	assert.Equal(t, before, conv.History())

	fake.analyzeErr = nil
	fake.analyzeResp = &types.AnalyzeResponse{Report: "# 報告"}
	_, err = conv.Send(context.Background(), "確認")
	require.NoError(t, err)

	require.Len(t, fake.analyses, 2)
	history := fake.analyses[1].ConversationHistory
	assert.Len(t, history, len(before)+1)
	assert.Equal(t, types.ChatMessage{Role: types.ChatRoleUser, Content: "確認"}, history[len(history)-1])
}

func TestExtractFailureKeepsHistory(t *testing.T) {
	fake := &fakeAssistant{extractErr: errors.New("upstream down")}
	conv, _ := newTestConversation(fake)
	greeting := []types.ChatMessage{{Role: types.ChatRoleAssistant, Content: Greeting}}

	_, err := conv.Send(context.Background(), "我想了解花蓮的圖書資源")
	require.Error(t, err)
	assert.Equal(t, greeting, conv.History())

	fake.extractErr = nil
	fake.extractResp = &types.ExtractResponse{FollowUpQuestion: "還有其他縣市嗎？"}
	_, err = conv.Send(context.Background(), "我想了解花蓮的圖書資源")
	require.NoError(t, err)

	require.Len(t, fake.extracts, 2)
	assert.Equal(t, greeting, fake.extracts[1].ConversationHistory)
	assert.Equal(t, []types.ChatMessage{
		{Role: types.ChatRoleAssistant, Content: Greeting},
		{Role: types.ChatRoleUser, Content: "我想了解花蓮的圖書資源"},
		{Role: types.ChatRoleAssistant, Content: "還有其他縣市嗎？"},
	}, conv.History())
}

func TestShortConfirmationMustBeWholeMessage(t *testing.T) {
	for _, tc := range []struct {
		message  string
		generate bool
	}{
		{"你好", false},
		{"book", false},
		{"可以再加台東嗎", false},
		{"好", true},
		{"好的！", true},
		{"OK", true},
		{"是的，請開始", true},
	} {
		t.Run(tc.message, func(t *testing.T) {
			fake := &fakeAssistant{analyzeResp: &types.AnalyzeResponse{Report: "# 報告"}}
			conv, _ := newTestConversation(fake)
			conv.params[ParamResourceType] = "books"
			conv.params[ParamTargetCounties] = []any{"屏東縣"}
			conv.stage = StageAwaitingConfirmation

			turn, err := conv.Send(context.Background(), tc.message)
			require.NoError(t, err)
			assert.Equal(t, tc.generate, turn.Generated)
			if tc.generate {
				assert.Len(t, fake.analyses, 1)
				assert.Empty(t, fake.extracts)
			} else {
				assert.Empty(t, fake.analyses)
				assert.Len(t, fake.extracts, 1)
			}
		})
	}
}

func TestEmptyMessage(t *testing.T) {
	fake := &fakeAssistant{}
	conv, _ := newTestConversation(fake)

	_, err := conv.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, fake.extracts)
}

func TestReset(t *testing.T) {
	fake := &fakeAssistant{extractResp: &types.ExtractResponse{Parameters: map[string]any{"a": 1}, IsComplete: true}}
	conv, _ := newTestConversation(fake)

	_, err := conv.Send(context.Background(), "hello")
	require.NoError(t, err)

	conv.Reset()
	assert.Equal(t, StageCollecting, conv.Stage())
	assert.Empty(t, conv.Parameters())
	assert.Equal(t, []types.ChatMessage{{Role: types.ChatRoleAssistant, Content: Greeting}}, conv.History())
}

func TestRegistry(t *testing.T) {
	logger, _ := test.NewNullLogger()
	reg := NewRegistry(&fakeAssistant{}, logger)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	a, err := reg.Get("")
	require.NoError(t, err)
	require.NotEmpty(t, a.ID)

	again, err := reg.Get(a.ID)
	require.NoError(t, err)
	assert.Same(t, a, again)

	b, err := reg.Get("unknown")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, reg.Len())

	now = now.Add(time.Hour)
	_, err = reg.Get(a.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, reg.Prune(30*time.Minute))
	assert.Equal(t, 1, reg.Len())
}

func TestRenderReport(t *testing.T) {
	out, err := RenderReport("# 標題\n\n<script>x</script>\n- a")
	require.NoError(t, err)
	assert.Contains(t, string(out), "<h1>標題</h1>")
	assert.Contains(t, string(out), "<li>a</li>")
	assert.NotContains(t, string(out), "<script>")
}
