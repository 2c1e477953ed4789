package agent

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Chunk is one incremental piece of a response. The loop produces a single
// atomic final string, so exactly one chunk is emitted per exchange; the
// outer transport is free to re-chunk it.
type Chunk struct {
	ID    string
	Delta string
}

// ApologyMessage is emitted when the exchange fails internally. The
// conversational channel stays intact; the transport never sees a fault.
const ApologyMessage = "I'm sorry, I ran into a problem answering that. Please try again."

// Responder adapts one user utterance plus prior history into a driven
// exchange, emitting the final text as a single content delta.
type Responder struct {
	loop *Loop
	log  zerolog.Logger
}

// NewResponder creates a responder over a loop.
func NewResponder(loop *Loop, log zerolog.Logger) *Responder {
	return &Responder{loop: loop, log: log}
}

// Respond drives the loop for the utterance and emits exactly one chunk. On
// internal failure it emits the apology chunk and returns the history
// unchanged with a nil error, so the caller keeps a usable conversation. A
// canceled context is the one failure that does propagate: the caller is
// gone and there is nobody left to apologize to.
func (r *Responder) Respond(ctx context.Context, history []Turn, utterance string, emit func(Chunk)) ([]Turn, error) {
	turns := make([]Turn, len(history), len(history)+1)
	copy(turns, history)
	turns = append(turns, Turn{Role: RoleUser, Content: utterance})

	answer, extended, err := r.loop.Run(ctx, turns)
	if err != nil {
		if ctx.Err() != nil {
			return history, ctx.Err()
		}
		r.log.Error().Err(err).Msg("Exchange failed, sending apology")
		emit(Chunk{ID: chunkID(), Delta: ApologyMessage})
		return history, nil
	}

	emit(Chunk{ID: chunkID(), Delta: answer})
	return extended, nil
}

func chunkID() string {
	return "chunk_" + uuid.NewString()
}
