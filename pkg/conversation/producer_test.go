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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/chatdb/pkg/agent"
	"github.com/teradata-labs/chatdb/pkg/llm/mock"
)

func drain(t *testing.T, p Producer) ([]string, error) {
	t.Helper()
	var chunks []string
	for chunk, err := range p(context.Background(), "hi") {
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func TestBlockingProducer(t *testing.T) {
	a := agent.NewAgent(mock.New(mock.Text("all at once")))
	chunks, err := drain(t, BlockingProducer(a))
	require.NoError(t, err)
	assert.Equal(t, []string{"all at once"}, chunks)
}

func TestStreamingProducer(t *testing.T) {
	a := agent.NewAgent(mock.New(mock.Text("one two")))
	chunks, err := drain(t, StreamingProducer(a))
	require.NoError(t, err)
	assert.Equal(t, []string{"one ", "two"}, chunks)
}

func TestProducers_FailureIsLastElement(t *testing.T) {
	boom := errors.New("boom")
	for _, stream := range []bool{false, true} {
		cfg := agent.DefaultConfig()
		cfg.Retry.Enabled = false
		a := agent.NewAgent(mock.New(mock.Fail(boom)), agent.WithConfig(cfg))

		chunks, err := drain(t, ProducerFor(a, stream))
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, chunks)
	}
}

func TestStreamingProducer_StopsEarly(t *testing.T) {
	a := agent.NewAgent(mock.New(mock.Text("a b c d")))
	var got []string
	for chunk, err := range StreamingProducer(a)(context.Background(), "hi") {
		require.NoError(t, err)
		got = append(got, chunk)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a ", "b "}, got)
}
