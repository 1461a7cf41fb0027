// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teradata-labs/chatdb/pkg/fabric"
	"github.com/teradata-labs/chatdb/pkg/llm/mock"
	"github.com/teradata-labs/chatdb/pkg/shuttle"
	"github.com/teradata-labs/chatdb/pkg/types"
)

func listTablesTool(err error) *shuttle.MockTool {
	return &shuttle.MockTool{
		MockName: "list_tables",
		MockSchema: shuttle.NewObjectSchema("", map[string]*shuttle.JSONSchema{
			"database": shuttle.NewStringSchema(""),
		}, []string{"database"}),
		MockExecute: func(ctx context.Context, params map[string]interface{}) (*shuttle.Result, error) {
			if err != nil {
				return nil, err
			}
			return &shuttle.Result{Success: true, Data: []string{"customers", "orders"}}, nil
		},
	}
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Retry.InitialDelay = time.Millisecond
	cfg.Retry.MaxDelay = time.Millisecond
	return cfg
}

func TestAgent_ChatWithoutTools(t *testing.T) {
	llm := mock.New(mock.Text("Hello!"))
	a := NewAgent(llm, WithConfig(testConfig()), WithSystemPrompt("be brief"), WithLogger(zaptest.NewLogger(t)))

	resp, err := a.Chat(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello!", resp.Content)
	assert.Equal(t, 1, resp.Turns)

	sent := llm.History(0)
	require.Len(t, sent, 2)
	assert.Equal(t, types.RoleSystem, sent[0].Role)
	assert.Equal(t, "be brief", sent[0].Content)

	history := a.Memory().History()
	require.Len(t, history, 2)
	assert.Equal(t, types.RoleAssistant, history[1].Role)
	assert.NotEmpty(t, history[1].ID)
}

func TestAgent_ToolLoop(t *testing.T) {
	tool := listTablesTool(nil)
	llm := mock.New(
		mock.CallTool("call_1", "list_tables", map[string]interface{}{"database": "sales"}),
		mock.Text("customers and orders"),
	)
	a := NewAgent(llm, WithConfig(testConfig()), WithTools(tool))

	resp, err := a.Chat(context.Background(), "which tables?")
	require.NoError(t, err)
	assert.Equal(t, "customers and orders", resp.Content)
	assert.Equal(t, 2, resp.Turns)
	require.Len(t, resp.ToolExecutions, 1)
	assert.Equal(t, 1, tool.Calls())

	second := llm.History(1)
	last := second[len(second)-1]
	assert.Equal(t, types.RoleTool, last.Role)
	assert.Equal(t, "call_1", last.ToolUseID)
	assert.Equal(t, `["customers","orders"]`, last.Content)
}

func TestAgent_ToolErrorPropagates(t *testing.T) {
	llm := mock.New(mock.CallTool("call_1", "list_tables", map[string]interface{}{"database": "finance"}))
	a := NewAgent(llm, WithConfig(testConfig()), WithTools(listTablesTool(fabric.NoSuchDatabase("finance", "sales"))))

	_, err := a.Chat(context.Background(), "tables in finance?")
	require.ErrorIs(t, err, fabric.ErrNoSuchDatabase)

	var fe *fabric.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, []string{"sales"}, fe.Suggestions)

	history := a.Memory().History()
	require.Len(t, history, 3, "user, assistant tool call, tool result")
	assert.Contains(t, history[2].Content, "database 'finance' does not exist")
	assert.Equal(t, 1, llm.Calls())
}

func TestAgent_ValidationErrorPropagates(t *testing.T) {
	llm := mock.New(mock.CallTool("call_1", "list_tables", map[string]interface{}{}))
	a := NewAgent(llm, WithConfig(testConfig()), WithTools(listTablesTool(nil)))

	_, err := a.Chat(context.Background(), "tables?")
	assert.ErrorIs(t, err, fabric.ErrInvalidArgument)
}

func TestAgent_MaxTurns(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTurns = 3
	llm := mock.New(mock.CallTool("call", "list_tables", map[string]interface{}{"database": "sales"}))
	a := NewAgent(llm, WithConfig(cfg), WithTools(listTablesTool(nil)))

	_, err := a.Chat(context.Background(), "loop")
	assert.ErrorIs(t, err, ErrMaxTurnsExceeded)
	assert.Equal(t, 3, llm.Calls())
}

func TestAgent_MaxToolExecutions(t *testing.T) {
	cfg := testConfig()
	cfg.MaxToolExecutions = 1
	llm := mock.New(func([]types.Message) (*types.LLMResponse, error) {
		return &types.LLMResponse{ToolCalls: []types.ToolCall{
			{ID: "a", Name: "list_tables", Input: map[string]interface{}{"database": "sales"}},
			{ID: "b", Name: "list_tables", Input: map[string]interface{}{"database": "hr"}},
		}}, nil
	})
	a := NewAgent(llm, WithConfig(cfg), WithTools(listTablesTool(nil)))

	_, err := a.Chat(context.Background(), "both")
	assert.ErrorIs(t, err, ErrMaxTurnsExceeded)
}

func TestAgent_RetriesProviderErrors(t *testing.T) {
	boom := errors.New("503 service unavailable")
	llm := mock.New(mock.Fail(boom), mock.Text("recovered"))
	a := NewAgent(llm, WithConfig(testConfig()), WithLogger(zaptest.NewLogger(t)))

	resp, err := a.Chat(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Content)
	assert.Equal(t, 2, llm.Calls())
}

func TestAgent_RetriesExhausted(t *testing.T) {
	boom := errors.New("401 unauthorized")
	llm := mock.New(mock.Fail(boom))
	a := NewAgent(llm, WithConfig(testConfig()))

	_, err := a.Chat(context.Background(), "hi")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, llm.Calls())
}

func TestAgent_StreamingIsNotRetried(t *testing.T) {
	boom := errors.New("stream reset")
	llm := mock.New(mock.Fail(boom), mock.Text("never"))
	a := NewAgent(llm, WithConfig(testConfig()))

	_, err := a.ChatStream(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, llm.Calls())
}

func TestAgent_ChatStream(t *testing.T) {
	llm := mock.New(mock.Text("two customers"))
	a := NewAgent(llm, WithConfig(testConfig()))

	var chunks []string
	resp, err := a.ChatStream(context.Background(), "count", func(s string) { chunks = append(chunks, s) })
	require.NoError(t, err)
	assert.Equal(t, []string{"two ", "customers"}, chunks)
	assert.Equal(t, "two customers", resp.Content)
}

func TestAgent_ChatStreamSkipsToolPreamble(t *testing.T) {
	llm := mock.New(
		mock.WithText("Let me check the tables.",
			mock.CallTool("call_1", "list_tables", map[string]interface{}{"database": "sales"})),
		mock.Text("customers and orders"),
	)
	a := NewAgent(llm, WithConfig(testConfig()), WithTools(listTablesTool(nil)))

	var chunks []string
	resp, err := a.ChatStream(context.Background(), "tables?", func(s string) { chunks = append(chunks, s) })
	require.NoError(t, err)
	assert.Equal(t, []string{"customers ", "and ", "orders"}, chunks)
	assert.Equal(t, "customers and orders", resp.Content)

	var assistant []string
	for _, m := range a.Memory().History() {
		if m.Role == types.RoleAssistant {
			assistant = append(assistant, m.Content)
		}
	}
	assert.Equal(t, []string{"Let me check the tables.", "customers and orders"}, assistant)
}

type blockingOnly struct{ types.LLMProvider }

func TestAgent_ChatStreamWithoutStreamingProvider(t *testing.T) {
	a := NewAgent(blockingOnly{mock.New(mock.Text("whole answer"))}, WithConfig(testConfig()))

	var chunks []string
	_, err := a.ChatStream(context.Background(), "q", func(s string) { chunks = append(chunks, s) })
	require.NoError(t, err)
	assert.Equal(t, []string{"whole answer"}, chunks)
}

func TestMemory_InjectSystemMessage(t *testing.T) {
	m := NewMemory()
	m.SetSystemPrompt("prompt")
	m.AddMessage(Message{Role: types.RoleUser, Content: "q"})
	m.InjectSystemMessage("Error: NoSuchTable")

	msgs := m.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "prompt", msgs[0].Content)
	assert.Equal(t, types.RoleSystem, msgs[2].Role)
	assert.Equal(t, "Error: NoSuchTable", msgs[2].Content)
	assert.Equal(t, 2, m.Len())

	m.Reset()
	assert.Len(t, m.Messages(), 1)
}

func TestFormatToolResult(t *testing.T) {
	assert.Equal(t, "text", formatToolResult(&shuttle.Result{Data: "text"}, nil))
	assert.Equal(t, `["a"]`, formatToolResult(&shuttle.Result{Data: []string{"a"}}, nil))
	assert.Equal(t, "", formatToolResult(nil, nil))
	assert.Equal(t, "Error: boom", formatToolResult(nil, errors.New("boom")))
}
