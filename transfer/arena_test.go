package transfer

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/warmline/warmline/types"
)

func liveTransfer(transferID, callID string) *Transfer {
	return &Transfer{
		TransferID:       transferID,
		CallID:           callID,
		SourceOperatorID: "op-a",
		TargetOperatorID: "op-b",
		Phase:            PhaseAwaitingOperators,
		Participants:     make(map[string]Participant),
		CreatedAt:        time.Now().UTC(),
	}
}

func TestArena_InsertGetRemove(t *testing.T) {
	a := newArena(0)

	e, err := a.insert(liveTransfer("t1", "c1"))
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Same(t, e, a.get("t1"))
	assert.Equal(t, 1, a.len())

	a.remove("t1")
	assert.Nil(t, a.get("t1"))
	assert.Equal(t, 0, a.len())

	// Removal is idempotent.
	a.remove("t1")
	assert.Equal(t, 0, a.len())
}

func TestArena_DuplicateCallConflicts(t *testing.T) {
	a := newArena(0)

	_, err := a.insert(liveTransfer("t1", "c1"))
	require.NoError(t, err)

	_, err = a.insert(liveTransfer("t2", "c1"))
	assert.Equal(t, types.ErrConflict, types.GetErrorCode(err))

	// Removing the live transfer frees the call for a new one.
	a.remove("t1")
	_, err = a.insert(liveTransfer("t2", "c1"))
	assert.NoError(t, err)
}

func TestArena_CapacityLimit(t *testing.T) {
	a := newArena(2)

	_, err := a.insert(liveTransfer("t1", "c1"))
	require.NoError(t, err)
	_, err = a.insert(liveTransfer("t2", "c2"))
	require.NoError(t, err)

	_, err = a.insert(liveTransfer("t3", "c3"))
	assert.Equal(t, types.ErrUnavailable, types.GetErrorCode(err))

	a.remove("t1")
	_, err = a.insert(liveTransfer("t3", "c3"))
	assert.NoError(t, err)
}

func TestArena_SnapshotsAreCopies(t *testing.T) {
	a := newArena(0)
	e, err := a.insert(liveTransfer("t1", "c1"))
	require.NoError(t, err)

	snaps := a.snapshots()
	require.Len(t, snaps, 1)

	e.mu.Lock()
	e.xfer.Phase = PhaseBriefing
	e.xfer.Participants["op-a"] = Participant{OperatorID: "op-a", Role: RoleSource}
	e.mu.Unlock()

	assert.Equal(t, PhaseAwaitingOperators, snaps[0].Phase)
	assert.Empty(t, snaps[0].Participants)
}

// The arena behaves like a map keyed by transferID with a uniqueness
// constraint on callID; this model-based test exercises random
// interleavings of insert and remove against that model.
func TestArena_ModelBased(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		const max = 4
		a := newArena(max)
		byTransfer := make(map[string]string) // transferID -> callID
		byCall := make(map[string]string)     // callID -> transferID
		nextID := 0

		t.Repeat(map[string]func(*rapid.T){
			"insert": func(t *rapid.T) {
				callID := rapid.SampledFrom([]string{"c0", "c1", "c2", "c3", "c4", "c5"}).Draw(t, "callID")
				transferID := fmt.Sprintf("t%d", nextID)
				nextID++

				_, err := a.insert(liveTransfer(transferID, callID))
				switch {
				case byCall[callID] != "":
					if types.GetErrorCode(err) != types.ErrConflict {
						t.Fatalf("expected CONFLICT for duplicate call %s, got %v", callID, err)
					}
				case len(byTransfer) >= max:
					if types.GetErrorCode(err) != types.ErrUnavailable {
						t.Fatalf("expected UNAVAILABLE at capacity, got %v", err)
					}
				default:
					if err != nil {
						t.Fatalf("unexpected insert error: %v", err)
					}
					byTransfer[transferID] = callID
					byCall[callID] = transferID
				}
			},
			"remove": func(t *rapid.T) {
				if len(byTransfer) == 0 {
					t.Skip("nothing live")
				}
				ids := make([]string, 0, len(byTransfer))
				for id := range byTransfer {
					ids = append(ids, id)
				}
				id := rapid.SampledFrom(ids).Draw(t, "transferID")
				a.remove(id)
				delete(byCall, byTransfer[id])
				delete(byTransfer, id)
			},
			"": func(t *rapid.T) {
				if a.len() != len(byTransfer) {
					t.Fatalf("size mismatch: arena %d, model %d", a.len(), len(byTransfer))
				}
				for id := range byTransfer {
					if a.get(id) == nil {
						t.Fatalf("transfer %s missing from arena", id)
					}
				}
				if len(a.snapshots()) != len(byTransfer) {
					t.Fatalf("snapshot count mismatch")
				}
			},
		})
	})
}
