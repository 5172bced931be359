package transfer

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/warmline/warmline/types"
)

// Config holds orchestration tunables.
type Config struct {
	// Timeout bounds the whole transfer: armed at initiation, disarmed
	// only at the terminal transition.
	Timeout time.Duration

	// SummaryTimeout bounds the summarizer call during initiation.
	SummaryTimeout time.Duration

	// BriefingRoomMaxParticipants caps the briefing room size.
	BriefingRoomMaxParticipants int

	// MaxConcurrent caps the live working set; zero means unlimited.
	MaxConcurrent int
}

// DefaultConfig returns the default orchestration config.
func DefaultConfig() Config {
	return Config{
		Timeout:                     5 * time.Minute,
		SummaryTimeout:              30 * time.Second,
		BriefingRoomMaxParticipants: 3,
		MaxConcurrent:               100,
	}
}

// Deps are the collaborators the Orchestrator drives. All are required
// except Metrics and Fallback.
type Deps struct {
	Rooms      RoomGateway
	Summarizer Summarizer
	Notifier   Notifier
	Directory  Directory
	Recorder   Recorder

	// Metrics is optional instrumentation.
	Metrics Metrics

	// Fallback builds the deterministic local summary substituted when
	// the Summarizer fails. When nil a minimal built-in is used.
	Fallback func(types.ConversationContext) *types.Summary
}

// Orchestrator owns the transfer state machine: it drives room creation
// and teardown, invokes the summarizer, admits operators, enforces the
// per-transfer timeout, and settles directory counters.
type Orchestrator struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
	live   *arena
}

// NewOrchestrator creates an Orchestrator with explicit dependencies.
func NewOrchestrator(deps Deps, cfg Config, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Fallback == nil {
		deps.Fallback = builtinFallback
	}
	return &Orchestrator{
		deps:   deps,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "orchestrator")),
		live:   newArena(cfg.MaxConcurrent),
	}
}

// builtinFallback is the minimal deterministic summary used when no
// richer fallback is injected.
func builtinFallback(cc types.ConversationContext) *types.Summary {
	return &types.Summary{
		Text:      fmt.Sprintf("Live call %s is being handed over; no automatic summary is available.", cc.CallID),
		Sentiment: types.SentimentNeutral,
		Urgency:   types.UrgencyMedium,
		Fallback:  true,
	}
}

// InitiateRequest asks for a warm transfer of a live call.
type InitiateRequest struct {
	CallID           string `json:"call_id"`
	SourceOperatorID string `json:"source_operator_id"`
	TargetOperatorID string `json:"target_operator_id"`
	Reason           string `json:"reason,omitempty"`
	Priority         string `json:"priority,omitempty"`
}

// InitiateResult is returned once the briefing room exists and the
// timeout timer is armed.
type InitiateResult struct {
	TransferID   string         `json:"transfer_id"`
	BriefingRoom string         `json:"briefing_room"`
	Summary      *types.Summary `json:"summary"`
}

// Initiate validates the request, reserves target capacity, creates the
// briefing room while the summary is generated concurrently, arms the
// timeout timer, and notifies both operators.
func (o *Orchestrator) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	if req.CallID == "" || req.SourceOperatorID == "" || req.TargetOperatorID == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "call_id, source_operator_id and target_operator_id are required")
	}
	if req.SourceOperatorID == req.TargetOperatorID {
		return nil, types.NewError(types.ErrInvalidRequest, "source and target operator must differ")
	}
	if req.Priority == "" {
		req.Priority = "medium"
	}

	call, err := o.deps.Recorder.LookupCall(ctx, req.CallID)
	if err != nil {
		return nil, err
	}
	if _, err := o.deps.Directory.LookupOperator(ctx, req.SourceOperatorID); err != nil {
		return nil, err
	}
	// Advisory reservation: checked now, committed only on success.
	if err := o.deps.Directory.CheckAndReserve(ctx, req.TargetOperatorID); err != nil {
		return nil, err
	}

	transferID := uuid.NewString()
	roomName := briefingRoomName(transferID)

	t := &Transfer{
		TransferID:       transferID,
		CallID:           req.CallID,
		SourceOperatorID: req.SourceOperatorID,
		TargetOperatorID: req.TargetOperatorID,
		BriefingRoom:     roomName,
		OriginalRoom:     call.RoomName,
		Phase:            PhaseAwaitingOperators,
		Participants:     make(map[string]Participant),
		Reason:           req.Reason,
		Priority:         req.Priority,
		CreatedAt:        time.Now().UTC(),
	}

	e, err := o.live.insert(t)
	if err != nil {
		return nil, err
	}

	// Room setup and summarization overlap; the summary only affects
	// data, so its failure is absorbed with the fallback while a room
	// failure aborts the whole initiation.
	conversation := conversationContext(call, req)
	var sum *types.Summary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := o.deps.Rooms.CreateRoom(gctx, roomName, o.cfg.BriefingRoomMaxParticipants, map[string]string{
			"type":          "briefing",
			"transfer_id":   transferID,
			"original_room": call.RoomName,
			"source":        req.SourceOperatorID,
			"target":        req.TargetOperatorID,
		})
		if err != nil {
			return types.NewErrorf(types.ErrUpstreamFailure, "create briefing room %s", roomName).WithCause(err)
		}
		return nil
	})
	g.Go(func() error {
		sctx, cancel := context.WithTimeout(gctx, o.cfg.SummaryTimeout)
		defer cancel()
		s, serr := o.deps.Summarizer.Summarize(sctx, conversation)
		if serr != nil {
			o.logger.Warn("summarizer failed, using fallback",
				zap.String("transfer_id", transferID), zap.Error(serr))
			if o.deps.Metrics != nil {
				o.deps.Metrics.SummaryFallback()
			}
			s = o.deps.Fallback(conversation)
		}
		sum = s
		return nil
	})
	if err := g.Wait(); err != nil {
		o.live.remove(transferID)
		return nil, err
	}

	e.mu.Lock()
	if t.Phase.Terminal() {
		// Cancelled while setting up; the room is orphaned, reap it.
		e.mu.Unlock()
		if _, derr := o.deps.Rooms.DeleteRoom(ctx, roomName); derr != nil {
			o.logger.Warn("failed to delete briefing room after early cancel",
				zap.String("room", roomName), zap.Error(derr))
		}
		return nil, types.NewErrorf(types.ErrConflict, "transfer %s cancelled during setup", transferID)
	}
	t.Summary = sum
	e.ready = true
	e.timer = time.AfterFunc(o.cfg.Timeout, func() { o.timeoutCancel(transferID) })
	e.mu.Unlock()

	o.saveRecord(ctx, t.snapshot())
	o.notifyInitiated(ctx, t)
	if o.deps.Metrics != nil {
		o.deps.Metrics.TransferInitiated(req.Priority)
	}

	o.logger.Info("transfer initiated",
		zap.String("transfer_id", transferID),
		zap.String("call_id", req.CallID),
		zap.String("source", req.SourceOperatorID),
		zap.String("target", req.TargetOperatorID),
		zap.String("briefing_room", roomName),
		zap.Bool("summary_fallback", sum.Fallback),
	)

	return &InitiateResult{TransferID: transferID, BriefingRoom: roomName, Summary: sum}, nil
}

// JoinResult carries the join credential for the briefing room. The
// summary is disclosed to the target operator only.
type JoinResult struct {
	Credential string         `json:"credential"`
	RoomName   string         `json:"room_name"`
	Phase      Phase          `json:"phase"`
	Summary    *types.Summary `json:"summary,omitempty"`
}

// Join admits an operator into the briefing room. A transfer discovered
// while initiation is still setting up the room and summary is not yet
// joinable. Once both operators are present the transfer moves to
// briefing and the summary is pushed into the room; repeated
// both-present checks after that are no-ops.
func (o *Orchestrator) Join(ctx context.Context, transferID, operatorID string) (*JoinResult, error) {
	e := o.live.get(transferID)
	if e == nil {
		return nil, types.NewErrorf(types.ErrNotFound, "transfer %s not found or already terminal", transferID)
	}

	e.mu.Lock()
	if e.xfer.Phase.Terminal() {
		e.mu.Unlock()
		return nil, types.NewErrorf(types.ErrNotFound, "transfer %s already terminal", transferID)
	}
	if !e.ready {
		e.mu.Unlock()
		return nil, types.NewErrorf(types.ErrUnavailable, "transfer %s is still being set up", transferID)
	}
	var role Role
	switch operatorID {
	case e.xfer.SourceOperatorID:
		role = RoleSource
	case e.xfer.TargetOperatorID:
		role = RoleTarget
	default:
		e.mu.Unlock()
		return nil, types.NewErrorf(types.ErrNotFound, "operator %s is not part of transfer %s", operatorID, transferID)
	}
	room := e.xfer.BriefingRoom
	e.mu.Unlock()

	// Credential issuance is slow I/O that affects data only; keep it
	// outside the phase-mutating critical section.
	cred, err := o.deps.Rooms.IssueCredential(ctx, room, operatorID, "Operator-"+operatorID, map[string]string{
		"transfer_id": transferID,
		"role":        string(role),
	})
	if err != nil {
		return nil, types.NewErrorf(types.ErrUpstreamFailure, "issue credential for %s", operatorID).WithCause(err)
	}

	e.mu.Lock()
	if e.xfer.Phase.Terminal() {
		e.mu.Unlock()
		return nil, types.NewErrorf(types.ErrNotFound, "transfer %s already terminal", transferID)
	}
	if _, ok := e.xfer.Participants[operatorID]; !ok {
		e.xfer.Participants[operatorID] = Participant{
			OperatorID: operatorID,
			Role:       role,
			JoinedAt:   time.Now().UTC(),
		}
	}
	_, sourceIn := e.xfer.Participants[e.xfer.SourceOperatorID]
	_, targetIn := e.xfer.Participants[e.xfer.TargetOperatorID]
	startBriefing := sourceIn && targetIn && e.xfer.Phase == PhaseAwaitingOperators
	if startBriefing {
		o.transition(e.xfer, PhaseBriefing)
	}
	snap := e.xfer.snapshot()
	e.mu.Unlock()

	o.notifyJoined(ctx, snap, operatorID, role)
	if startBriefing {
		o.shareBriefing(ctx, snap)
	}

	res := &JoinResult{Credential: cred, RoomName: room, Phase: snap.Phase}
	if role == RoleTarget {
		res.Summary = snap.Summary
	}
	return res, nil
}

// CompleteResult reports the terminal state reached by Complete.
type CompleteResult struct {
	Phase           Phase   `json:"phase"`
	Outcome         Outcome `json:"outcome"`
	DurationSeconds int     `json:"duration_seconds,omitempty"`
}

// Complete finishes the briefing. On success the target operator is
// moved into the original room, the source operator is removed from it,
// the briefing room is deleted, and directory counters are committed.
// On failure the original session is left untouched.
func (o *Orchestrator) Complete(ctx context.Context, transferID string, success bool, feedback string) (*CompleteResult, error) {
	e := o.live.get(transferID)
	if e == nil {
		if rec, rerr := o.deps.Recorder.LookupTransfer(ctx, transferID); rerr == nil {
			return nil, types.NewErrorf(types.ErrConflict, "transfer %s already %s", transferID, rec.Phase)
		}
		return nil, types.NewErrorf(types.ErrNotFound, "transfer %s not found", transferID)
	}

	e.mu.Lock()
	if e.xfer.Phase != PhaseBriefing {
		phase := e.xfer.Phase
		e.mu.Unlock()
		return nil, types.NewErrorf(types.ErrConflict, "cannot complete transfer %s in phase %s", transferID, phase)
	}

	if !success {
		snap := o.terminalizeLocked(e, PhaseFailed, OutcomeFailed, "", feedback)
		e.mu.Unlock()
		o.finalize(ctx, snap, nil, nil)
		return &CompleteResult{Phase: PhaseFailed, Outcome: OutcomeFailed}, nil
	}

	// The target's admission credential for the original room must exist
	// before the handoff is committed; a gateway failure here leaves the
	// transfer in briefing for a retry or an explicit cancel.
	cred, err := o.deps.Rooms.IssueCredential(ctx, e.xfer.OriginalRoom, e.xfer.TargetOperatorID,
		"Operator-"+e.xfer.TargetOperatorID, map[string]string{"transfer_id": transferID, "role": "operator"})
	if err != nil {
		e.mu.Unlock()
		return nil, types.NewErrorf(types.ErrUpstreamFailure, "issue credential for original room").WithCause(err)
	}

	o.transition(e.xfer, PhaseCompleting)

	if _, rerr := o.deps.Rooms.RemoveParticipant(ctx, e.xfer.OriginalRoom, e.xfer.SourceOperatorID); rerr != nil {
		o.logger.Warn("failed to remove source operator from original room",
			zap.String("transfer_id", transferID), zap.Error(rerr))
	}
	if _, derr := o.deps.Rooms.DeleteRoom(ctx, e.xfer.BriefingRoom); derr != nil {
		o.logger.Warn("failed to delete briefing room",
			zap.String("transfer_id", transferID), zap.Error(derr))
	}
	if cerr := o.deps.Directory.ReleaseOrCommit(ctx, e.xfer.SourceOperatorID, e.xfer.TargetOperatorID, OutcomeSuccessful); cerr != nil {
		o.logger.Warn("failed to commit directory counters",
			zap.String("transfer_id", transferID), zap.Error(cerr))
	}

	snap := o.terminalizeLocked(e, PhaseCompleted, OutcomeSuccessful, "", feedback)
	e.mu.Unlock()

	o.finalize(ctx, snap, nil, map[string]any{"credential": cred, "room_name": snap.OriginalRoom})

	return &CompleteResult{
		Phase:           PhaseCompleted,
		Outcome:         OutcomeSuccessful,
		DurationSeconds: snap.DurationSeconds(),
	}, nil
}

// CancelResult reports the cancelled (or previously terminal) state.
type CancelResult struct {
	Phase  Phase  `json:"phase"`
	Reason string `json:"reason,omitempty"`
}

// Cancel moves a live transfer to cancelled, deleting the briefing room
// and leaving the original session with the source operator. Cancelling
// an already-terminal transfer is a no-op, not an error.
func (o *Orchestrator) Cancel(ctx context.Context, transferID, reason string) (*CancelResult, error) {
	e := o.live.get(transferID)
	if e == nil {
		rec, rerr := o.deps.Recorder.LookupTransfer(ctx, transferID)
		if rerr != nil {
			return nil, types.NewErrorf(types.ErrNotFound, "transfer %s not found", transferID)
		}
		return &CancelResult{Phase: rec.Phase, Reason: rec.Reason}, nil
	}

	e.mu.Lock()
	if e.xfer.Phase.Terminal() {
		res := &CancelResult{Phase: e.xfer.Phase, Reason: e.xfer.Reason}
		e.mu.Unlock()
		return res, nil
	}

	if _, derr := o.deps.Rooms.DeleteRoom(ctx, e.xfer.BriefingRoom); derr != nil {
		o.logger.Warn("failed to delete briefing room on cancel",
			zap.String("transfer_id", transferID), zap.Error(derr))
	}
	snap := o.terminalizeLocked(e, PhaseCancelled, OutcomeCancelled, reason, "")
	e.mu.Unlock()

	o.finalize(ctx, snap, map[string]any{"reason": reason}, nil)

	return &CancelResult{Phase: PhaseCancelled, Reason: reason}, nil
}

// timeoutCancel is the timer callback: push-based cancellation sharing
// the explicit cancel path.
func (o *Orchestrator) timeoutCancel(transferID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	o.logger.Warn("transfer timed out", zap.String("transfer_id", transferID))
	if _, err := o.Cancel(ctx, transferID, "timeout"); err != nil {
		o.logger.Warn("timeout cancel failed", zap.String("transfer_id", transferID), zap.Error(err))
	}
}

// Status reports the current state of a transfer. Live transfers are
// served from the working set; terminal transfers fall back to the
// durable record.
type Status struct {
	TransferID       string                 `json:"transfer_id"`
	CallID           string                 `json:"call_id,omitempty"`
	SourceOperatorID string                 `json:"source_operator_id,omitempty"`
	TargetOperatorID string                 `json:"target_operator_id,omitempty"`
	Phase            Phase                  `json:"phase"`
	Outcome          Outcome                `json:"outcome,omitempty"`
	Participants     map[string]Participant `json:"participants,omitempty"`
	Summary          *types.Summary         `json:"summary,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	TerminalAt       *time.Time             `json:"terminal_at,omitempty"`
	DurationSeconds  int                    `json:"duration_seconds,omitempty"`
}

// Status returns the state of a transfer, live or terminal.
func (o *Orchestrator) Status(ctx context.Context, transferID string) (*Status, error) {
	if e := o.live.get(transferID); e != nil {
		e.mu.Lock()
		snap := e.xfer.snapshot()
		e.mu.Unlock()
		return statusFromTransfer(snap), nil
	}

	rec, err := o.deps.Recorder.LookupTransfer(ctx, transferID)
	if err != nil {
		return nil, types.NewErrorf(types.ErrNotFound, "transfer %s not found", transferID)
	}
	return &Status{
		TransferID:       rec.TransferID,
		CallID:           rec.CallID,
		SourceOperatorID: rec.SourceOperatorID,
		TargetOperatorID: rec.TargetOperatorID,
		Phase:            rec.Phase,
		Outcome:          rec.Outcome,
		Summary:          rec.Summary,
		CreatedAt:        rec.InitiatedAt,
		TerminalAt:       rec.TerminalAt,
		DurationSeconds:  rec.DurationSeconds,
	}, nil
}

// ListActive returns snapshots of all live transfers.
func (o *Orchestrator) ListActive() []*Transfer {
	return o.live.snapshots()
}

// Close disarms all timers. Live transfers are left as-is; a restart
// reconciliation sweep is an external concern.
func (o *Orchestrator) Close() {
	for _, t := range o.live.snapshots() {
		if e := o.live.get(t.TransferID); e != nil {
			e.mu.Lock()
			e.disarm()
			e.mu.Unlock()
		}
	}
}

// ---------------------------------------------------------------------
// internals
// ---------------------------------------------------------------------

// transition applies a state machine edge. Callers hold the entry lock
// and have verified the edge; an undefined edge is an internal bug and
// is refused loudly.
func (o *Orchestrator) transition(t *Transfer, next Phase) {
	if !t.Phase.CanTransition(next) {
		o.logger.Error("refusing undefined phase transition",
			zap.String("transfer_id", t.TransferID),
			zap.String("from", string(t.Phase)),
			zap.String("to", string(next)),
		)
		return
	}
	if o.deps.Metrics != nil {
		o.deps.Metrics.PhaseTransition(string(t.Phase), string(next))
	}
	t.Phase = next
}

// terminalizeLocked applies the terminal transition under the entry
// lock: phase, outcome, terminal timestamp (set exactly once), timer
// disarm, and removal from the live set. Returns a snapshot for the
// lock-free follow-up work.
func (o *Orchestrator) terminalizeLocked(e *entry, phase Phase, outcome Outcome, reason, feedback string) *Transfer {
	o.transition(e.xfer, phase)
	if e.xfer.TerminalAt == nil {
		now := time.Now().UTC()
		e.xfer.TerminalAt = &now
	}
	e.xfer.Outcome = outcome
	if reason != "" {
		e.xfer.Reason = reason
	}
	if feedback != "" {
		e.xfer.Feedback = feedback
	}
	e.disarm()
	o.live.remove(e.xfer.TransferID)
	return e.xfer.snapshot()
}

// finalize performs the lock-free tail of a terminal transition: the
// best-effort durable write, terminal event fan-out, and metrics.
// shared fields go to both operators; targetOnly fields (the original
// room credential, notably) reach the target operator alone.
func (o *Orchestrator) finalize(ctx context.Context, snap *Transfer, shared, targetOnly map[string]any) {
	o.saveRecord(ctx, snap)

	eventType := types.EventTransferCancelled
	switch snap.Phase {
	case PhaseCompleted:
		eventType = types.EventTransferCompleted
	case PhaseFailed:
		eventType = types.EventTransferFailed
	}
	payload := map[string]any{
		"phase":            string(snap.Phase),
		"outcome":          string(snap.Outcome),
		"duration_seconds": snap.DurationSeconds(),
	}
	for k, v := range shared {
		payload[k] = v
	}
	targetPayload := payload
	if len(targetOnly) > 0 {
		targetPayload = make(map[string]any, len(payload)+len(targetOnly))
		for k, v := range payload {
			targetPayload[k] = v
		}
		for k, v := range targetOnly {
			targetPayload[k] = v
		}
	}
	o.deps.Notifier.Send(ctx, snap.SourceOperatorID, types.NewEvent(eventType, snap.TransferID, payload))
	o.deps.Notifier.Send(ctx, snap.TargetOperatorID, types.NewEvent(eventType, snap.TransferID, targetPayload))

	if o.deps.Metrics != nil && snap.TerminalAt != nil {
		o.deps.Metrics.TransferTerminal(string(snap.Outcome), snap.TerminalAt.Sub(snap.CreatedAt))
	}

	o.logger.Info("transfer terminal",
		zap.String("transfer_id", snap.TransferID),
		zap.String("phase", string(snap.Phase)),
		zap.String("outcome", string(snap.Outcome)),
		zap.Int("duration_seconds", snap.DurationSeconds()),
	)
}

// saveRecord writes the durable history row. Storage failure is logged,
// never retried synchronously, and never blocks a phase transition.
func (o *Orchestrator) saveRecord(ctx context.Context, snap *Transfer) {
	rec := &Record{
		TransferID:       snap.TransferID,
		CallID:           snap.CallID,
		SourceOperatorID: snap.SourceOperatorID,
		TargetOperatorID: snap.TargetOperatorID,
		BriefingRoom:     snap.BriefingRoom,
		OriginalRoom:     snap.OriginalRoom,
		Phase:            snap.Phase,
		Outcome:          snap.Outcome,
		Reason:           snap.Reason,
		Feedback:         snap.Feedback,
		Priority:         snap.Priority,
		Summary:          snap.Summary,
		InitiatedAt:      snap.CreatedAt,
		TerminalAt:       snap.TerminalAt,
		DurationSeconds:  snap.DurationSeconds(),
	}
	if err := o.deps.Recorder.SaveTransfer(ctx, rec); err != nil {
		o.logger.Error("durable transfer write failed",
			zap.String("transfer_id", snap.TransferID), zap.Error(err))
	}
}

// notifyInitiated tells both operators about the new transfer.
func (o *Orchestrator) notifyInitiated(ctx context.Context, t *Transfer) {
	o.deps.Notifier.Send(ctx, t.SourceOperatorID, types.NewEvent(types.EventTransferInitiated, t.TransferID, map[string]any{
		"role":          string(RoleSource),
		"briefing_room": t.BriefingRoom,
		"target":        t.TargetOperatorID,
		"summary":       t.Summary,
	}))
	o.deps.Notifier.Send(ctx, t.TargetOperatorID, types.NewEvent(types.EventTransferRequested, t.TransferID, map[string]any{
		"role":          string(RoleTarget),
		"briefing_room": t.BriefingRoom,
		"source":        t.SourceOperatorID,
		"summary":       t.Summary,
	}))
}

// notifyJoined fans out a membership event to both operators and the
// briefing room, excluding the joiner from the room broadcast.
func (o *Orchestrator) notifyJoined(ctx context.Context, snap *Transfer, operatorID string, role Role) {
	ev := types.NewEvent(types.EventOperatorJoined, snap.TransferID, map[string]any{
		"operator_id": operatorID,
		"role":        string(role),
		"phase":       string(snap.Phase),
	})
	ev.RoomName = snap.BriefingRoom
	o.deps.Notifier.Send(ctx, snap.SourceOperatorID, ev)
	o.deps.Notifier.Send(ctx, snap.TargetOperatorID, ev)
	o.deps.Notifier.BroadcastToRoom(ctx, snap.BriefingRoom, ev, operatorID)
}

// shareBriefing pushes the summary into the briefing room once both
// operators are present. Gateway failure is logged, not escalated.
func (o *Orchestrator) shareBriefing(ctx context.Context, snap *Transfer) {
	payload := map[string]any{
		"type":        types.EventSummaryShared,
		"transfer_id": snap.TransferID,
		"summary":     snap.Summary,
	}
	if err := o.deps.Rooms.SendData(ctx, snap.BriefingRoom, payload); err != nil {
		o.logger.Warn("failed to push summary into briefing room",
			zap.String("transfer_id", snap.TransferID), zap.Error(err))
	}

	ev := types.NewEvent(types.EventBriefingStarted, snap.TransferID, map[string]any{
		"phase": string(PhaseBriefing),
	})
	ev.RoomName = snap.BriefingRoom
	o.deps.Notifier.Send(ctx, snap.SourceOperatorID, ev)
	o.deps.Notifier.Send(ctx, snap.TargetOperatorID, ev)
	o.deps.Notifier.BroadcastToRoom(ctx, snap.BriefingRoom, ev)
}

func statusFromTransfer(snap *Transfer) *Status {
	return &Status{
		TransferID:       snap.TransferID,
		CallID:           snap.CallID,
		SourceOperatorID: snap.SourceOperatorID,
		TargetOperatorID: snap.TargetOperatorID,
		Phase:            snap.Phase,
		Outcome:          snap.Outcome,
		Participants:     snap.Participants,
		Summary:          snap.Summary,
		CreatedAt:        snap.CreatedAt,
		TerminalAt:       snap.TerminalAt,
		DurationSeconds:  snap.DurationSeconds(),
	}
}

// conversationContext assembles what is known about the call for the
// summarizer.
func conversationContext(call *CallInfo, req InitiateRequest) types.ConversationContext {
	minutes := 0.0
	if !call.StartedAt.IsZero() {
		minutes = time.Since(call.StartedAt).Minutes()
	}
	return types.ConversationContext{
		CallID:          call.CallID,
		CallerName:      call.CallerName,
		Priority:        req.Priority,
		DurationMinutes: minutes,
		CurrentIssue:    req.Reason,
	}
}

// briefingRoomName generates a unique, recognizable room name.
func briefingRoomName(transferID string) string {
	u := uuid.New()
	return fmt.Sprintf("briefing_%s_%s", transferID[:8], hex.EncodeToString(u[:3]))
}
