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
package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teradata-labs/chatdb/pkg/agent"
	"github.com/teradata-labs/chatdb/pkg/database"
	"github.com/teradata-labs/chatdb/pkg/fabric"
	"github.com/teradata-labs/chatdb/pkg/llm/mock"
	"github.com/teradata-labs/chatdb/pkg/shuttle"
	"github.com/teradata-labs/chatdb/pkg/shuttle/builtin"
	"github.com/teradata-labs/chatdb/pkg/types"
)

type fixture struct {
	conv    *Conversation
	agent   *agent.Agent
	tracker *QueryTracker
	llm     *mock.Provider
}

// newFixture wires a sales database, a tracker and an agent driven by a
// scripted provider.
func newFixture(t *testing.T, steps ...mock.Step) *fixture {
	t.Helper()
	ctx := context.Background()

	reg := database.NewRegistry(database.WithLogger(zaptest.NewLogger(t)))
	t.Cleanup(func() { _ = reg.Close() })
	require.NoError(t, reg.AddConnection(ctx, "sales", "sqlite://"))
	for _, stmt := range []string{
		`CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
		`INSERT INTO customers (id, name) VALUES (1, 'acme')`,
	} {
		_, err := reg.LoadData(ctx, "sales", stmt)
		require.NoError(t, err, stmt)
	}

	tracker := NewQueryTracker()
	view, err := reg.View([]string{"sales"}, tracker.Handler())
	require.NoError(t, err)

	cfg := agent.DefaultConfig()
	cfg.Retry.Enabled = false
	llm := mock.New(steps...)
	a := agent.NewAgent(llm,
		agent.WithConfig(cfg),
		agent.WithLogger(zaptest.NewLogger(t)),
		agent.WithTools(builtin.DatabaseTools(view)...))

	return &fixture{
		conv:    New("Sales questions", llm.Model(), []string{"sales"}),
		agent:   a,
		tracker: tracker,
		llm:     llm,
	}
}

func (f *fixture) turn(prompt string, stream bool) Turn {
	return Turn{Conversation: f.conv, Agent: f.agent, Tracker: f.tracker, Prompt: prompt, Stream: stream}
}

func loadData(id, query string) mock.Step {
	return mock.CallTool(id, builtin.LoadDataTool, map[string]interface{}{"database": "sales", "query": query})
}

func injected(a *agent.Agent) []string {
	var out []string
	for _, m := range a.Memory().History() {
		if m.Role == types.RoleSystem {
			out = append(out, m.Content)
		}
	}
	return out
}

func assistantMessages(c *Conversation) int {
	n := 0
	for _, m := range c.Messages {
		if m.Role == types.RoleAssistant {
			n++
		}
	}
	return n
}

func TestRunTurn_Success(t *testing.T) {
	f := newFixture(t,
		loadData("c1", "SELECT name FROM customers"),
		mock.Text("The only customer is acme."),
	)
	runner := NewRunner(WithRunnerLogger(zaptest.NewLogger(t)))

	res := runner.RunTurn(context.Background(), f.turn("who are our customers?", false))
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, 1, res.Attempts)
	assert.Nil(t, res.Retry)
	assert.NoError(t, res.Err)
	assert.Equal(t, "The only customer is acme.", res.Message.Content)
	require.Len(t, res.Message.Queries, 1)
	assert.Equal(t, "sales", res.Message.Queries[0].Database)
	assert.Equal(t, "SELECT name FROM customers", res.Message.Queries[0].Query)
	assert.Len(t, res.Message.Queries[0].Rows, 1)

	require.Len(t, f.conv.Messages, 2)
	assert.Equal(t, types.RoleUser, f.conv.Messages[0].Role)
	assert.Equal(t, "who are our customers?", f.conv.Messages[0].Content)
	assert.Equal(t, res.Message, f.conv.Messages[1])
	assert.Zero(t, f.tracker.Len())
}

func TestRunTurn_RecoversFromUnknownTables(t *testing.T) {
	// attempt 1 runs one good query before failing; attempt 2 fails; attempt 3 succeeds
	f := newFixture(t,
		loadData("c1", "SELECT 1"),
		loadData("c2", "SELECT * FROM orders"),
		loadData("c3", "SELECT * FROM invoices"),
		loadData("c4", "SELECT name FROM customers"),
		mock.Text("acme"),
	)
	runner := NewRunner(WithMaxRetries(3))

	res := runner.RunTurn(context.Background(), f.turn("list customer names", false))
	require.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, "acme", res.Message.Content)

	var queries []string
	for _, q := range res.Message.Queries {
		queries = append(queries, q.Query)
	}
	assert.Equal(t, []string{"SELECT 1", "SELECT name FROM customers"}, queries)
	assert.Zero(t, f.tracker.Len())
	assert.Equal(t, 1, assistantMessages(f.conv))

	hint := "Error: NoSuchTable\nUse list_tables() function to get a list of the tables."
	assert.Equal(t, []string{hint, hint}, injected(f.agent))
}

func TestRunTurn_ExhaustsRetriesOnUnknownColumn(t *testing.T) {
	f := newFixture(t, loadData("c", "SELECT nickname FROM customers"))
	runner := NewRunner(WithMaxRetries(3))

	res := runner.RunTurn(context.Background(), f.turn("nicknames?", true))
	assert.Equal(t, OutcomeFatal, res.Outcome)
	assert.Equal(t, 4, res.Attempts)
	assert.Equal(t, 4, f.llm.Calls())
	assert.ErrorIs(t, res.Err, fabric.ErrNoSuchColumn)
	assert.Equal(t, &RetryRequest{Prompt: "nicknames?", Stream: true}, res.Retry)

	assert.True(t, strings.HasPrefix(res.Message.Content, "[System] An SQL error has occurred:\n\n"), res.Message.Content)
	assert.Contains(t, res.Message.Content, `Error type: "NoSuchColumn"`)
	assert.Contains(t, res.Message.Content, "nickname")
	assert.Equal(t, 1, assistantMessages(f.conv))
	assert.Len(t, injected(f.agent), 4)
}

func TestRunTurn_ZeroRetries(t *testing.T) {
	f := newFixture(t, loadData("c", "SELECT * FROM orders"))
	res := NewRunner(WithMaxRetries(-1)).RunTurn(context.Background(), f.turn("orders?", false))
	assert.Equal(t, OutcomeFatal, res.Outcome)
	assert.Equal(t, 1, res.Attempts)
}

func TestRunTurn_FatalErrorIsNotRetried(t *testing.T) {
	f := newFixture(t, mock.Fail(errors.New("quota exceeded\ntry later")))
	res := NewRunner().RunTurn(context.Background(), f.turn("hi", true))

	assert.Equal(t, OutcomeFatal, res.Outcome)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, f.llm.Calls())
	assert.Empty(t, injected(f.agent))
	assert.Equal(t, "[System] An error has occurred:\n\nError type: \"Error\"\n\n```quota exceeded\n\ntry later```", res.Message.Content)
	assert.Equal(t, &RetryRequest{Prompt: "hi", Stream: true}, res.Retry)
}

func TestRunTurn_ConnectionErrorIsFatal(t *testing.T) {
	down := &shuttle.MockTool{
		MockName: builtin.ListTablesTool,
		MockExecute: func(ctx context.Context, params map[string]interface{}) (*shuttle.Result, error) {
			return nil, &fabric.Error{Kind: fabric.KindConnection, Message: "connection refused"}
		},
	}
	cfg := agent.DefaultConfig()
	cfg.Retry.Enabled = false
	llm := mock.New(mock.CallTool("c", builtin.ListTablesTool, nil))
	a := agent.NewAgent(llm, agent.WithConfig(cfg), agent.WithTools(down))
	conv := New("c", "mock", nil)

	res := NewRunner().RunTurn(context.Background(), Turn{Conversation: conv, Agent: a, Prompt: "tables?"})
	assert.Equal(t, OutcomeFatal, res.Outcome)
	assert.Equal(t, 1, res.Attempts)
	assert.ErrorIs(t, res.Err, fabric.ErrConnection)
	assert.Contains(t, res.Message.Content, `Error type: "ConnectionError"`)
	assert.Contains(t, res.Message.Content, "```connection refused```")
}

func TestRunTurn_EmptyAnswer(t *testing.T) {
	f := newFixture(t, mock.Text(""))
	res := NewRunner().RunTurn(context.Background(), f.turn("hi", false))

	assert.Equal(t, OutcomeFatal, res.Outcome)
	assert.NoError(t, res.Err)
	assert.Equal(t, "[System] An error has occurred, possibly related to streaming.", res.Message.Content)
	assert.Equal(t, &RetryRequest{Prompt: "hi", Stream: false}, res.Retry)
}

func TestRunTurn_StreamsChunksPerAttempt(t *testing.T) {
	f := newFixture(t,
		loadData("c1", "SELECT * FROM orders"),
		mock.Text("one two three"),
	)
	var attempts []int
	var chunks []string
	turn := f.turn("count", true)
	turn.OnAttempt = func(n int) { attempts = append(attempts, n) }
	turn.OnChunk = func(c string) { chunks = append(chunks, c) }

	res := NewRunner().RunTurn(context.Background(), turn)
	require.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, []int{1, 2}, attempts)
	assert.Equal(t, []string{"one ", "two ", "three"}, chunks)
	assert.Equal(t, "one two three", res.Message.Content)
}

func TestRunTurn_ModesCommitSameAnswer(t *testing.T) {
	for _, stream := range []bool{false, true} {
		f := newFixture(t,
			mock.WithText("Let me check the customers.", loadData("c1", "SELECT name FROM customers")),
			mock.Text("acme"),
		)
		var streamed strings.Builder
		turn := f.turn("who?", stream)
		turn.OnChunk = func(c string) { streamed.WriteString(c) }

		res := NewRunner().RunTurn(context.Background(), turn)
		require.Equal(t, OutcomeSuccess, res.Outcome, "stream=%v", stream)
		assert.Equal(t, "acme", res.Message.Content, "stream=%v", stream)
		assert.Equal(t, "acme", streamed.String(), "stream=%v", stream)
		require.Len(t, res.Message.Queries, 1)
	}
}

func TestRunTurn_InvalidArgument(t *testing.T) {
	f := newFixture(t,
		loadData("c1", "   "),
		mock.Text("ok"),
	)
	res := NewRunner().RunTurn(context.Background(), f.turn("q", false))
	require.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, []string{"Error: InvalidArgument\nCall load_data() again with a non-empty SQL query"}, injected(f.agent))
}

func TestCorrection(t *testing.T) {
	driverErr := fabric.ClassifyError(errors.New("near \"SELEC\": syntax error"))

	tests := []struct {
		name string
		err  error
		want string
		ok   bool
	}{
		{"column", &fabric.Error{Kind: fabric.KindNoSuchColumn}, "Error: NoSuchColumn\nUse describe_tables() function to retrieve details about the table.", true},
		{"table", fabric.NoSuchTable("t"), "Error: NoSuchTable\nUse list_tables() function to get a list of the tables.", true},
		{"database", fabric.NoSuchDatabase("finance"), "Error: NoSuchDatabase\nUse list_databases() function to get a list of the databases.", true},
		{"driver", driverErr, "Error: errors.errorString\nUse describe_tables() function to retrieve details about the table.", true},
		{"other tool argument", &shuttle.ToolError{Tool: "list_tables", Err: fabric.InvalidArgument("database is required")},
			"Error: InvalidArgument\nCall list_tables() again with the arguments its schema requires.", true},
		{"connection", &fabric.Error{Kind: fabric.KindConnection}, "", false},
		{"unclassified", errors.New("boom"), "", false},
		{"canceled", context.Canceled, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Correction(tt.err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

type quotaError struct{}

func (quotaError) Error() string { return "quota" }

func TestErrorType(t *testing.T) {
	assert.Equal(t, "NoSuchTable", ErrorType(&shuttle.ToolError{Tool: "load_data", Err: fabric.NoSuchTable("t")}))
	assert.Equal(t, "Error", ErrorType(errors.New("x")))
	assert.Equal(t, "conversation.quotaError", ErrorType(quotaError{}))
	assert.Equal(t, "conversation.quotaError", ErrorType(&shuttle.ToolError{Tool: "t", Err: quotaError{}}))
}
