package transfer

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var allPhases = []Phase{
	PhaseAwaitingOperators,
	PhaseBriefing,
	PhaseCompleting,
	PhaseCompleted,
	PhaseFailed,
	PhaseCancelled,
}

func genPhase() gopter.Gen {
	vals := make([]interface{}, len(allPhases))
	for i, p := range allPhases {
		vals[i] = p
	}
	return gen.OneConstOf(vals...)
}

func TestProperty_PhaseTransitionsAreMonotonic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("every permitted transition moves strictly forward", prop.ForAll(
		func(from, to Phase) bool {
			if !from.CanTransition(to) {
				return true
			}
			return phaseRank[to] > phaseRank[from]
		},
		genPhase(), genPhase(),
	))

	properties.Property("terminal phases permit no transition at all", prop.ForAll(
		func(from, to Phase) bool {
			if !from.Terminal() {
				return true
			}
			return !from.CanTransition(to)
		},
		genPhase(), genPhase(),
	))

	properties.Property("no phase transitions to itself", prop.ForAll(
		func(p Phase) bool {
			return !p.CanTransition(p)
		},
		genPhase(),
	))

	properties.TestingRun(t)
}

func TestProperty_AnyWalkEndsTerminalOrForward(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	// Replaying any random sequence of attempted transitions, applying
	// only the permitted ones, never revisits a lower rank and stops
	// moving once terminal.
	properties.Property("random transition walks never regress", prop.ForAll(
		func(attempts []int) bool {
			cur := PhaseAwaitingOperators
			rank := phaseRank[cur]
			for _, a := range attempts {
				next := allPhases[((a%len(allPhases))+len(allPhases))%len(allPhases)]
				if cur.Terminal() {
					if cur.CanTransition(next) {
						return false
					}
					continue
				}
				if cur.CanTransition(next) {
					cur = next
					if phaseRank[cur] <= rank {
						return false
					}
					rank = phaseRank[cur]
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 5*len(allPhases))),
	))

	properties.TestingRun(t)
}
