package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khimraj/budget-planner/internal/capability"
)

func TestRespond_EmitsSingleDelta(t *testing.T) {
	var invoked []string
	reasoner := &scriptedReasoner{script: []Turn{{Content: "Your total is $42.00."}}}
	responder := NewResponder(NewLoop(reasoner, echoRegistry(&invoked), testLog()), testLog())

	var chunks []Chunk
	history, err := responder.Respond(context.Background(), nil, "What did I spend?", func(c Chunk) {
		chunks = append(chunks, c)
	})
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, "Your total is $42.00.", chunks[0].Delta)
	assert.True(t, strings.HasPrefix(chunks[0].ID, "chunk_"))

	// history extended with user turn and final assistant turn
	require.Len(t, history, 2)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.True(t, history[1].Final())
}

func TestRespond_ApologyOnLoopFailure(t *testing.T) {
	var invoked []string
	responder := NewResponder(NewLoop(failingReasoner{}, echoRegistry(&invoked), testLog()), testLog())

	prior := []Turn{
		{Role: RoleUser, Content: "earlier question"},
		{Role: RoleAssistant, Content: "earlier answer"},
	}

	var chunks []Chunk
	history, err := responder.Respond(context.Background(), prior, "next question", func(c Chunk) {
		chunks = append(chunks, c)
	})
	require.NoError(t, err, "internal failure must not surface as a transport fault")

	require.Len(t, chunks, 1)
	assert.Equal(t, ApologyMessage, chunks[0].Delta)
	assert.Equal(t, prior, history, "failed exchange must leave history unchanged")
}

func TestRespond_CanceledContextPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var invoked []string
	responder := NewResponder(NewLoop(failingReasoner{}, echoRegistry(&invoked), testLog()), testLog())

	emitted := false
	_, err := responder.Respond(ctx, nil, "question", func(Chunk) { emitted = true })

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, emitted, "no chunk should be emitted for an abandoned exchange")
}

func TestRespond_CarriesHistoryAcrossExchanges(t *testing.T) {
	var invoked []string
	reasoner := &scriptedReasoner{script: []Turn{
		{Calls: []ToolCall{{ID: "c1", Name: capability.AnalyzeFinances, Args: map[string]any{"code": "result = len(df)"}}}},
		{Content: "4 transactions."},
		{Content: "The largest is $2000."},
	}}
	responder := NewResponder(NewLoop(reasoner, echoRegistry(&invoked), testLog()), testLog())
	ctx := context.Background()

	history, err := responder.Respond(ctx, nil, "How many transactions?", func(Chunk) {})
	require.NoError(t, err)
	require.Len(t, history, 4)

	history, err = responder.Respond(ctx, history, "And the largest?", func(Chunk) {})
	require.NoError(t, err)
	require.Len(t, history, 6)
	assert.Equal(t, "The largest is $2000.", history[len(history)-1].Content)
}
