// Package agent drives the conversation between the reasoning component and
// the capability registry: a finite state machine that alternates reasoning
// and acting until a final answer is produced or the cycle budget runs out.
package agent

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/khimraj/budget-planner/internal/capability"
)

// Reasoner is the external text-generation collaborator. Given the directive,
// the turn history, and the available capabilities, it returns an assistant
// turn carrying either final text or capability requests. The decision is
// opaque; only the shape is contracted.
type Reasoner interface {
	Decide(ctx context.Context, directive string, turns []Turn, decls []capability.Declaration) (Turn, error)
}

// MaxCycles bounds reason/act alternations within one exchange. The
// reasoning component's output is the only natural termination signal, so
// without a ceiling a misbehaving response could loop forever.
const MaxCycles = 8

type state int

const (
	stateReason state = iota
	stateAct
	stateDone
	stateFailed
)

// Loop orchestrates one exchange. It holds no conversation state between
// invocations; all continuity comes from the caller re-supplying history.
type Loop struct {
	reasoner Reasoner
	registry *capability.Registry
	log      zerolog.Logger
}

// NewLoop creates a loop over a reasoner and a capability registry.
func NewLoop(reasoner Reasoner, registry *capability.Registry, log zerolog.Logger) *Loop {
	return &Loop{reasoner: reasoner, registry: registry, log: log}
}

// Run drives the state machine to completion for the given turn sequence and
// returns the final answer plus the extended sequence. The input slice is
// not mutated. Failures in ACT are absorbed into tool-result turns; a
// reasoner failure or an exhausted cycle budget fails the exchange.
func (l *Loop) Run(ctx context.Context, turns []Turn) (string, []Turn, error) {
	seq := make([]Turn, len(turns), len(turns)+4)
	copy(seq, turns)

	st := stateReason
	cycles := 0
	var answer string
	var failure error

	for {
		if err := ctx.Err(); err != nil {
			return "", seq, err
		}

		switch st {
		case stateReason:
			if cycles >= MaxCycles {
				failure = fmt.Errorf("no final answer after %d reasoning cycles", MaxCycles)
				st = stateFailed
				continue
			}
			cycles++

			turn, err := l.reasoner.Decide(ctx, Directive, seq, l.registry.Declarations())
			if err != nil {
				failure = fmt.Errorf("reasoning call: %w", err)
				st = stateFailed
				continue
			}
			turn.Role = RoleAssistant
			seq = append(seq, turn)

			if turn.Final() {
				answer = turn.Content
				st = stateDone
			} else {
				st = stateAct
			}

		case stateAct:
			// Results are appended in request order so the reasoning
			// component can correlate them deterministically.
			requests := seq[len(seq)-1].Calls
			for _, call := range requests {
				output, err := l.registry.Invoke(ctx, call.Name, call.Args)
				if err != nil {
					// Contract violation from the reasoner; feed it back
					// conversationally instead of crashing the exchange.
					l.log.Warn().Str("capability", call.Name).Msg("Unknown capability requested")
					output = fmt.Sprintf("Unknown capability %q. The only available capability is %q.",
						call.Name, capability.AnalyzeFinances)
				}
				seq = append(seq, Turn{
					Role:     RoleTool,
					Content:  output,
					CallID:   call.ID,
					CallName: call.Name,
				})
			}
			st = stateReason

		case stateDone:
			l.log.Debug().Int("cycles", cycles).Int("turns", len(seq)).Msg("Exchange complete")
			return answer, seq, nil

		case stateFailed:
			return "", seq, failure
		}
	}
}
