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
package session

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/teradata-labs/chatdb/pkg/agent"
	"github.com/teradata-labs/chatdb/pkg/conversation"
	"github.com/teradata-labs/chatdb/pkg/shuttle/builtin"
)

// TurnOptions are the caller hooks of one prompt.
type TurnOptions struct {
	// Stream selects the streaming producer.
	Stream bool
	// OnChunk receives response text as it is produced.
	OnChunk func(string)
	// OnAttempt is called before every attempt, starting at 1.
	OnAttempt func(int)
}

// Send answers prompt in the current conversation. A fatal result records
// a pending retry; any other result clears it.
func (s *State) Send(ctx context.Context, prompt string, opts TurnOptions) (*conversation.TurnResult, error) {
	return s.run(ctx, prompt, opts)
}

// PendingRetry returns the retry recorded by the last fatal turn.
func (s *State) PendingRetry() (conversation.RetryRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retry == nil {
		return conversation.RetryRequest{}, false
	}
	return *s.retry, true
}

// Retry re-runs the prompt of the last fatal turn. stream selects the
// response mode of the new attempt.
func (s *State) Retry(ctx context.Context, stream bool, opts TurnOptions) (*conversation.TurnResult, error) {
	s.mu.Lock()
	req := s.retry
	s.mu.Unlock()
	if req == nil {
		return nil, ErrNoRetry
	}
	opts.Stream = stream
	return s.run(ctx, req.Prompt, opts)
}

func (s *State) run(ctx context.Context, prompt string, opts TurnOptions) (*conversation.TurnResult, error) {
	s.mu.Lock()
	conv, err := s.currentLocked()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.busy[conv.ID] {
		s.mu.Unlock()
		return nil, ErrTurnInProgress
	}
	s.busy[conv.ID] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.busy, conv.ID)
		s.mu.Unlock()
	}()

	if err := s.validate(conv); err != nil {
		return nil, err
	}
	entry, err := s.cache.GetOrBuild(conv, s.buildAgent)
	if err != nil {
		return nil, err
	}

	version := conv.Version
	result := s.runner.RunTurn(ctx, conversation.Turn{
		Conversation: conv,
		Agent:        entry.Agent,
		Tracker:      entry.Tracker,
		Prompt:       prompt,
		Stream:       opts.Stream,
		OnChunk:      opts.OnChunk,
		OnAttempt:    opts.OnAttempt,
	})

	// The agent already holds the new history.
	s.cache.Rekey(conv, version)

	s.mu.Lock()
	if s.current == conv.ID {
		s.retry = result.Retry
	}
	s.mu.Unlock()

	s.logger.Debug("turn finished",
		zap.String("conversation", conv.ID),
		zap.Stringer("outcome", result.Outcome),
		zap.Int("attempts", result.Attempts))
	return result, s.persist(ctx, conv)
}

// buildAgent creates the agent of a conversation: a tracker, a registry view
// over its databases reporting to the tracker, the database tools and a
// memory seeded from the transcript.
func (s *State) buildAgent(conv *conversation.Conversation) (*conversation.Entry, error) {
	if s.providers == nil {
		return nil, errors.New("no LLM provider configured")
	}
	llm, err := s.providers.CreateProvider("", conv.Model)
	if err != nil {
		return nil, err
	}
	tracker := conversation.NewQueryTracker()
	view, err := s.registry.View(conv.DatabaseIDs, tracker.Handler())
	if err != nil {
		return nil, err
	}

	memory := agent.NewMemory()
	for _, msg := range conv.Transcript() {
		memory.AddMessage(msg)
	}

	cfg := *s.agentConfig
	cfg.SystemPrompt = s.systemPrompt
	a := agent.NewAgent(llm,
		agent.WithConfig(&cfg),
		agent.WithMemory(memory),
		agent.WithLogger(s.logger.With(zap.String("conversation", conv.ID))),
		agent.WithTools(builtin.DatabaseTools(view)...),
	)
	s.logger.Debug("agent built", zap.String("conversation", conv.ID), zap.String("model", conv.Model))
	return &conversation.Entry{Agent: a, Tracker: tracker, Closer: view}, nil
}
