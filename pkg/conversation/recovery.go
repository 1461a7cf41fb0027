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
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/zap"

	"github.com/teradata-labs/chatdb/pkg/fabric"
	"github.com/teradata-labs/chatdb/pkg/shuttle"
	"github.com/teradata-labs/chatdb/pkg/shuttle/builtin"
	"github.com/teradata-labs/chatdb/pkg/types"
)

// DefaultMaxRetries is the number of automatic retries after a recoverable
// failure.
const DefaultMaxRetries = 3

// Messages shown in place of an answer.
const (
	emptyResponseMessage = "[System] An error has occurred, possibly related to streaming."
	fatalHeader          = "[System] An error has occurred:\n\n"
	sqlFatalHeader       = "[System] An SQL error has occurred:\n\n"
)

// Outcome is how a turn resolved.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFatal:
		return "fatal"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// RetryRequest is a failed prompt the user can run again, with or without
// streaming.
type RetryRequest struct {
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// Turn is one user prompt to answer.
type Turn struct {
	Conversation *Conversation
	Agent        Chatter
	Tracker      *QueryTracker
	Prompt       string
	Stream       bool

	// OnChunk receives answer text as it is produced. Each attempt starts
	// with OnAttempt, so a display can clear partial text from a failed
	// attempt.
	OnChunk func(chunk string)
	// OnAttempt is called before every attempt, starting at 1.
	OnAttempt func(attempt int)
}

// TurnResult describes a resolved turn.
type TurnResult struct {
	Outcome Outcome
	// Message is the committed assistant message.
	Message Message
	// Retry is set when the turn failed and can be retried by hand.
	Retry *RetryRequest
	// Attempts counts the agent runs, including automatic retries.
	Attempts int
	// Err is the error that made the turn fatal, nil on success and for
	// empty answers.
	Err error
}

// Runner drives the retry loop of a turn.
type Runner struct {
	maxRetries int
	logger     *zap.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithMaxRetries sets the automatic retry bound. Negative values are
// treated as zero.
func WithMaxRetries(n int) RunnerOption {
	return func(r *Runner) {
		r.maxRetries = max(n, 0)
	}
}

// WithRunnerLogger sets the runner logger.
func WithRunnerLogger(logger *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a runner with DefaultMaxRetries.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{maxRetries: DefaultMaxRetries, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MaxRetries returns the automatic retry bound.
func (r *Runner) MaxRetries() int { return r.maxRetries }

// RunTurn records the prompt, runs the agent until it answers or fails
// beyond recovery, and commits exactly one assistant message carrying every
// query run during the turn. Recoverable failures inject a corrective system
// message into the agent memory and run the prompt again. The conversation
// is touched once the message is committed.
func (r *Runner) RunTurn(ctx context.Context, turn Turn) *TurnResult {
	conv := turn.Conversation
	conv.AddMessage(types.RoleUser, turn.Prompt, nil)

	logger := r.logger.With(zap.String("conversation", conv.ID))
	produce := ProducerFor(turn.Agent, turn.Stream)
	retriesLeft := r.maxRetries

	result := &TurnResult{}
	var content string
	for {
		result.Attempts++
		if turn.OnAttempt != nil {
			turn.OnAttempt(result.Attempts)
		}

		answer, err := collect(ctx, produce, turn.Prompt, turn.OnChunk)
		if err == nil {
			if answer == "" {
				content = emptyResponseMessage
				result.Outcome = OutcomeFatal
			} else {
				content = answer
				result.Outcome = OutcomeSuccess
			}
			break
		}

		correction, ok := Correction(err)
		if !ok {
			logger.Warn("turn failed", zap.Int("attempt", result.Attempts), zap.Error(err))
			content = FormatFatal(err)
			result.Outcome = OutcomeFatal
			result.Err = err
			break
		}

		turn.Agent.Memory().InjectSystemMessage(correction)
		if retriesLeft > 0 {
			retriesLeft--
			logger.Info("retrying after recoverable error",
				zap.Int("attempt", result.Attempts),
				zap.String("kind", fabric.KindOf(err).String()),
				zap.Error(err))
			continue
		}

		logger.Warn("retries exhausted", zap.Int("attempts", result.Attempts), zap.Error(err))
		content = FormatSQLFatal(err)
		result.Outcome = OutcomeFatal
		result.Err = err
		break
	}

	if result.Outcome == OutcomeFatal {
		result.Retry = &RetryRequest{Prompt: turn.Prompt, Stream: turn.Stream}
	}

	var queries []QueryRecord
	if turn.Tracker != nil {
		queries = turn.Tracker.Drain()
	}
	conv.AddMessage(types.RoleAssistant, content, queries)
	conv.Touch()
	result.Message, _ = conv.LastMessage()
	return result
}

// collect concatenates one attempt's chunks.
func collect(ctx context.Context, produce Producer, prompt string, onChunk func(string)) (string, error) {
	var b strings.Builder
	for chunk, err := range produce(ctx, prompt) {
		if err != nil {
			return "", err
		}
		b.WriteString(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	}
	return b.String(), nil
}

// Correction returns the system message that steers the agent away from
// err, and false when err is not recoverable.
func Correction(err error) (string, bool) {
	var fe *fabric.Error
	if !errors.As(err, &fe) {
		return "", false
	}

	switch fe.Kind {
	case fabric.KindNoSuchColumn:
		return correction(fe.Kind.String(), "Use describe_tables() function to retrieve details about the table."), true
	case fabric.KindNoSuchTable:
		return correction(fe.Kind.String(), "Use list_tables() function to get a list of the tables."), true
	case fabric.KindNoSuchDatabase:
		return correction(fe.Kind.String(), "Use list_databases() function to get a list of the databases."), true
	case fabric.KindDriver:
		return correction(fe.DriverType(), "Use describe_tables() function to retrieve details about the table."), true
	case fabric.KindInvalidArgument:
		tool := builtin.LoadDataTool
		var te *shuttle.ToolError
		if errors.As(err, &te) {
			tool = te.Tool
		}
		if tool == builtin.LoadDataTool {
			return correction(fe.Kind.String(), "Call load_data() again with a non-empty SQL query"), true
		}
		return correction(fe.Kind.String(), fmt.Sprintf("Call %s() again with the arguments its schema requires.", tool)), true
	default:
		// connection failures and unclassified errors
		return "", false
	}
}

func correction(errorType, hint string) string {
	return "Error: " + errorType + "\n" + hint
}

// FormatFatal renders an unrecoverable error for display.
func FormatFatal(err error) string {
	return fatalHeader + formatError(err)
}

// FormatSQLFatal renders a recoverable error that outlived its retries.
func FormatSQLFatal(err error) string {
	return sqlFatalHeader + formatError(err)
}

func formatError(err error) string {
	return fmt.Sprintf("Error type: %q\n\n```%s```", ErrorType(err), strings.ReplaceAll(rootMessage(err), "\n", "\n\n"))
}

// ErrorType names the kind of err for display: the classified kind for
// database errors, the driver error type for driver failures, otherwise the
// type of the innermost error.
func ErrorType(err error) string {
	var fe *fabric.Error
	if errors.As(err, &fe) {
		if fe.Kind == fabric.KindDriver {
			return fe.DriverType()
		}
		return fe.Kind.String()
	}

	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "errors" || t.PkgPath() == "fmt" {
		return "Error"
	}
	return t.String()
}

// rootMessage strips the tool name prefix added by the executor.
func rootMessage(err error) string {
	var te *shuttle.ToolError
	if errors.As(err, &te) && te.Err != nil {
		return te.Err.Error()
	}
	return err.Error()
}
