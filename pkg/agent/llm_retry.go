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
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/chatdb/pkg/shuttle"
	"github.com/teradata-labs/chatdb/pkg/types"
)

// chatWithRetry calls the provider. With a token callback it streams and
// does not retry; otherwise failed calls are retried with exponential
// backoff as configured.
func (a *Agent) chatWithRetry(ctx context.Context, messages []Message, tools []shuttle.Tool, tokenCallback types.TokenCallback) (*LLMResponse, error) {
	if tokenCallback != nil {
		return a.chatWithStreaming(ctx, messages, tools, tokenCallback)
	}

	retry := a.config.Retry
	if !retry.Enabled || retry.MaxRetries == 0 {
		return a.llm.Chat(ctx, messages, tools)
	}

	var lastErr error
	delay := retry.InitialDelay

	for attempt := 0; attempt <= retry.MaxRetries; attempt++ {
		response, err := a.llm.Chat(ctx, messages, tools)
		if err == nil {
			if attempt > 0 {
				a.logger.Info("llm retry succeeded", zap.Int("attempt", attempt+1))
			}
			return response, nil
		}
		lastErr = err

		// Don't retry on context cancellation or deadline exceeded
		if ctx.Err() != nil {
			return nil, fmt.Errorf("llm call failed (attempt %d/%d): %w", attempt+1, retry.MaxRetries+1, err)
		}
		if attempt >= retry.MaxRetries {
			break
		}

		a.logger.Warn("llm call failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", retry.MaxRetries),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("llm call failed (attempt %d/%d): %w", attempt+1, retry.MaxRetries+1, ctx.Err())
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * retry.Multiplier)
		if retry.MaxDelay > 0 && delay > retry.MaxDelay {
			delay = retry.MaxDelay
		}
	}

	a.logger.Error("llm retries exhausted",
		zap.Int("max_retries", retry.MaxRetries),
		zap.Error(lastErr))
	return nil, fmt.Errorf("llm call failed after %d attempts: %w", retry.MaxRetries+1, lastErr)
}

// chatWithStreaming streams when the provider supports it and otherwise
// emits the whole text once.
func (a *Agent) chatWithStreaming(ctx context.Context, messages []Message, tools []shuttle.Tool, tokenCallback types.TokenCallback) (*LLMResponse, error) {
	streamingProvider, ok := a.llm.(types.StreamingLLMProvider)
	if !ok {
		resp, err := a.llm.Chat(ctx, messages, tools)
		if err != nil {
			return nil, err
		}
		if resp.Content != "" {
			tokenCallback(resp.Content)
		}
		return resp, nil
	}
	return streamingProvider.ChatStream(ctx, messages, tools, tokenCallback)
}
