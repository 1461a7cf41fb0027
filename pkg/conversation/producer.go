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
	"iter"

	"github.com/teradata-labs/chatdb/pkg/agent"
	"github.com/teradata-labs/chatdb/pkg/types"
)

// Chatter is the agent surface a turn needs.
type Chatter interface {
	Chat(ctx context.Context, userMessage string) (*agent.Response, error)
	ChatStream(ctx context.Context, userMessage string, tokenCallback types.TokenCallback) (*agent.Response, error)
	Memory() *agent.Memory
}

// Producer answers a prompt as an ordered, finite sequence of text chunks.
// A failure is delivered as the final element with an empty chunk. The
// sequence can be ranged over once.
type Producer func(ctx context.Context, prompt string) iter.Seq2[string, error]

// BlockingProducer yields the complete answer as a single chunk.
func BlockingProducer(a Chatter) Producer {
	return func(ctx context.Context, prompt string) iter.Seq2[string, error] {
		return func(yield func(string, error) bool) {
			resp, err := a.Chat(ctx, prompt)
			if err != nil {
				yield("", err)
				return
			}
			yield(resp.Content, nil)
		}
	}
}

// StreamingProducer yields chunks as the provider emits them. Breaking out
// of the loop cancels the underlying request.
func StreamingProducer(a Chatter) Producer {
	return func(ctx context.Context, prompt string) iter.Seq2[string, error] {
		return func(yield func(string, error) bool) {
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			stopped := false
			_, err := a.ChatStream(ctx, prompt, func(chunk string) {
				if stopped || chunk == "" {
					return
				}
				if !yield(chunk, nil) {
					stopped = true
					cancel()
				}
			})
			if err != nil && !stopped {
				yield("", err)
			}
		}
	}
}

// ProducerFor picks the producer for a response mode.
func ProducerFor(a Chatter, stream bool) Producer {
	if stream {
		return StreamingProducer(a)
	}
	return BlockingProducer(a)
}
