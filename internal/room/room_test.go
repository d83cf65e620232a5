package room

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"holdem-server/internal/randutil"
)

func testRoom(t *testing.T, clock quartz.Clock, seed int64) *Room {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{})
	return New("abc123", DefaultConfig(), logger, clock, randutil.New(seed))
}

// seat adds a connected, non-spectator player
func seat(t *testing.T, r *Room, id, name string) {
	t.Helper()
	spectator, err := r.AddPlayer(id, name)
	if err != nil {
		t.Fatalf("AddPlayer(%s) failed: %v", id, err)
	}
	if spectator {
		t.Fatalf("AddPlayer(%s) unexpectedly seated a spectator", id)
	}
}

func readyAll(t *testing.T, r *Room, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if err := r.ToggleReady(id); err != nil {
			t.Fatalf("ToggleReady(%s) failed: %v", id, err)
		}
	}
}

// act submits an action for whoever is on turn
func act(t *testing.T, r *Room, action Action, amount int) {
	t.Helper()
	id := r.currentID
	if err := r.Apply(id, action, amount); err != nil {
		t.Fatalf("Apply(%s, %s, %d) failed: %v", id, action, amount, err)
	}
}

func totalChips(r *Room) int {
	total := r.pot
	for _, p := range r.players {
		total += p.Chips
	}
	return total
}

func TestReadyAllStartsHand(t *testing.T) {
	t.Parallel()
	r := testRoom(t, quartz.NewMock(t), 42)
	seat(t, r, "p1", "Alice")
	seat(t, r, "p2", "Bob")
	readyAll(t, r, "p1", "p2")

	if r.phase != PhasePreFlop {
		t.Fatalf("Expected pre-flop after all ready, got %s", r.phase)
	}
	if r.pot != 6 {
		t.Errorf("Expected pot 6 after blinds, got %d", r.pot)
	}
	if r.currentBet != 4 {
		t.Errorf("Expected current bet 4, got %d", r.currentBet)
	}
	for _, id := range []string{"p1", "p2"} {
		if got := len(r.players[id].HoleCards); got != 2 {
			t.Errorf("Player %s has %d hole cards, want 2", id, got)
		}
	}

	// Heads-up the dealer posts the big blind and the small blind opens
	if r.dealerID != r.bigBlindID {
		t.Errorf("Heads-up dealer should be big blind, dealer=%s bb=%s", r.dealerID, r.bigBlindID)
	}
	if r.currentID != r.smallBlindID {
		t.Errorf("Small blind should act first heads-up, current=%s sb=%s", r.currentID, r.smallBlindID)
	}
}

func TestReadyRequiresWaitingPhase(t *testing.T) {
	t.Parallel()
	r := testRoom(t, quartz.NewMock(t), 1)
	seat(t, r, "p1", "Alice")
	seat(t, r, "p2", "Bob")
	readyAll(t, r, "p1", "p2")

	if err := r.ToggleReady("p1"); err != ErrIllegalAction {
		t.Errorf("ToggleReady mid-hand should fail, got %v", err)
	}
}

func TestReadyRejectedForBustedPlayer(t *testing.T) {
	t.Parallel()
	r := testRoom(t, quartz.NewMock(t), 1)
	seat(t, r, "p1", "Alice")
	seat(t, r, "p2", "Bob")
	r.players["p2"].Chips = 0

	if err := r.ToggleReady("p2"); err != ErrIllegalAction {
		t.Errorf("ToggleReady with zero chips should fail, got %v", err)
	}
}

func TestRoomFull(t *testing.T) {
	t.Parallel()
	r := testRoom(t, quartz.NewMock(t), 1)
	for i := 0; i < MaxPlayers; i++ {
		seat(t, r, string(rune('a'+i)), "Player")
	}
	if _, err := r.AddPlayer("overflow", "Nope"); err != ErrRoomFull {
		t.Errorf("Expected ErrRoomFull, got %v", err)
	}
}

func TestMidHandJoinBecomesSpectator(t *testing.T) {
	t.Parallel()
	r := testRoom(t, quartz.NewMock(t), 7)
	seat(t, r, "p1", "Alice")
	seat(t, r, "p2", "Bob")
	readyAll(t, r, "p1", "p2")

	spectator, err := r.AddPlayer("p3", "Carol")
	if err != nil {
		t.Fatalf("AddPlayer mid-hand failed: %v", err)
	}
	if !spectator {
		t.Error("Mid-hand join should be a spectator")
	}
	if err := r.ToggleReady("p3"); err != ErrIllegalAction {
		t.Errorf("Spectator ToggleReady should fail, got %v", err)
	}
}

func TestSpectatorSeatedAfterHandEnds(t *testing.T) {
	t.Parallel()
	mock := quartz.NewMock(t)
	r := testRoom(t, mock, 7)
	seat(t, r, "p1", "Alice")
	seat(t, r, "p2", "Bob")
	readyAll(t, r, "p1", "p2")

	if _, err := r.AddPlayer("p3", "Carol"); err != nil {
		t.Fatalf("AddPlayer failed: %v", err)
	}

	// Fold out the hand, then let the showdown timer expire
	act(t, r, ActionFold, 0)
	if r.phase != PhaseShowdown {
		t.Fatalf("Expected showdown after fold heads-up, got %s", r.phase)
	}
	mock.Advance(DefaultConfig().ShowdownDelay).MustWait(context.Background())

	if r.phase != PhaseWaiting {
		t.Fatalf("Expected waiting after reset timer, got %s", r.phase)
	}
	if r.players["p3"].Spectator {
		t.Error("Spectator with chips should get a seat once the hand ends")
	}
	if err := r.ToggleReady("p3"); err != nil {
		t.Errorf("Former spectator should be able to ready up: %v", err)
	}
}

func TestFoldHeadsUpWinsUncontested(t *testing.T) {
	t.Parallel()
	r := testRoom(t, quartz.NewMock(t), 3)
	seat(t, r, "p1", "Alice")
	seat(t, r, "p2", "Bob")
	readyAll(t, r, "p1", "p2")

	folder := r.currentID
	act(t, r, ActionFold, 0)

	if r.phase != PhaseShowdown {
		t.Fatalf("Expected showdown, got %s", r.phase)
	}
	if len(r.winners) != 1 {
		t.Fatalf("Expected 1 winner, got %d", len(r.winners))
	}
	w := r.winners[0]
	if w.PlayerID == folder {
		t.Error("Folding player should not win")
	}
	if w.Description != "Uncontested" {
		t.Errorf("Expected uncontested win, got %q", w.Description)
	}
	// Winner's 6-chip pot includes the folder's small blind
	if r.players[w.PlayerID].Chips != 1000+2 {
		t.Errorf("Winner should be up the folder's blind, has %d", r.players[w.PlayerID].Chips)
	}
	if r.pot != 0 {
		t.Errorf("Pot should be swept after showdown, got %d", r.pot)
	}
}

func TestBettingRoundAdvancesOnce(t *testing.T) {
	t.Parallel()
	r := testRoom(t, quartz.NewMock(t), 11)
	seat(t, r, "p1", "Alice")
	seat(t, r, "p2", "Bob")
	seat(t, r, "p3", "Carol")
	readyAll(t, r, "p1", "p2", "p3")

	before := totalChips(r)

	// UTG calls, small blind completes, big blind checks
	act(t, r, ActionCall, 0)
	act(t, r, ActionCall, 0)
	if r.phase != PhasePreFlop {
		t.Fatalf("Round should not end before the big blind acts, got %s", r.phase)
	}
	act(t, r, ActionCheck, 0)

	if r.phase != PhaseFlop {
		t.Fatalf("Expected flop, got %s", r.phase)
	}
	if len(r.community) != 3 {
		t.Errorf("Expected 3 community cards, got %d", len(r.community))
	}
	if r.currentBet != 0 {
		t.Errorf("Current bet should reset to 0, got %d", r.currentBet)
	}
	for id, p := range r.players {
		if p.Bet != 0 {
			t.Errorf("Player %s street bet should reset, got %d", id, p.Bet)
		}
	}
	if got := totalChips(r); got != before {
		t.Errorf("Chips not conserved: %d != %d", got, before)
	}
}

func TestFullHandToShowdown(t *testing.T) {
	t.Parallel()
	mock := quartz.NewMock(t)
	r := testRoom(t, mock, 13)
	seat(t, r, "p1", "Alice")
	seat(t, r, "p2", "Bob")
	seat(t, r, "p3", "Carol")
	readyAll(t, r, "p1", "p2", "p3")

	before := totalChips(r)

	// Pre-flop: everyone calls or checks through
	act(t, r, ActionCall, 0)
	act(t, r, ActionCall, 0)
	act(t, r, ActionCheck, 0)

	for _, want := range []struct {
		phase     Phase
		community int
	}{
		{PhaseFlop, 3}, {PhaseTurn, 4}, {PhaseRiver, 5},
	} {
		if r.phase != want.phase {
			t.Fatalf("Expected %s, got %s", want.phase, r.phase)
		}
		if len(r.community) != want.community {
			t.Fatalf("Expected %d community cards on %s, got %d",
				want.community, want.phase, len(r.community))
		}
		act(t, r, ActionCheck, 0)
		act(t, r, ActionCheck, 0)
		act(t, r, ActionCheck, 0)
	}

	if r.phase != PhaseShowdown {
		t.Fatalf("Expected showdown after river, got %s", r.phase)
	}
	if len(r.winners) == 0 {
		t.Fatal("Showdown should produce winners")
	}
	if got := totalChips(r); got > before {
		t.Errorf("Chips created from nothing: %d > %d", got, before)
	}

	// History is captured before the pot resets
	h := r.History()
	if h == nil {
		t.Fatal("History should exist after showdown")
	}
	if h.Pot != 12 {
		t.Errorf("History pot should be 12 (3 x big blind), got %d", h.Pot)
	}
	if len(h.CommunityCards) != 5 {
		t.Errorf("History should have 5 community cards, got %d", len(h.CommunityCards))
	}
	if len(h.Winners) != len(r.winners) {
		t.Errorf("History winners mismatch")
	}

	mock.Advance(DefaultConfig().ShowdownDelay).MustWait(context.Background())
	if r.phase != PhaseWaiting {
		t.Fatalf("Expected waiting after timer, got %s", r.phase)
	}
	for id, p := range r.players {
		if p.Ready {
			t.Errorf("Player %s ready flag should clear after reset", id)
		}
	}
	if r.History() == nil {
		t.Error("History should survive the reset until the next showdown")
	}
}

func TestActionValidation(t *testing.T) {
	t.Parallel()
	r := testRoom(t, quartz.NewMock(t), 17)
	seat(t, r, "p1", "Alice")
	seat(t, r, "p2", "Bob")
	seat(t, r, "p3", "Carol")
	readyAll(t, r, "p1", "p2", "p3")

	onTurn := r.currentID
	var offTurn string
	for _, id := range r.playerOrder {
		if id != onTurn {
			offTurn = id
			break
		}
	}

	if err := r.Apply(offTurn, ActionFold, 0); err != ErrNotYourTurn {
		t.Errorf("Out of turn action should fail with ErrNotYourTurn, got %v", err)
	}
	// Facing the big blind: no free check, no fresh bet, no undersized raise
	if err := r.Apply(onTurn, ActionCheck, 0); err != ErrIllegalAction {
		t.Errorf("Check facing a bet should fail, got %v", err)
	}
	if err := r.Apply(onTurn, ActionBet, 10); err != ErrIllegalAction {
		t.Errorf("Bet with a live bet outstanding should fail, got %v", err)
	}
	if err := r.Apply(onTurn, ActionRaise, 7); err != ErrIllegalAction {
		t.Errorf("Raise below 2x current bet should fail, got %v", err)
	}
	if err := r.Apply(onTurn, ActionRaise, 5000); err != ErrIllegalAction {
		t.Errorf("Raise beyond stack should fail, got %v", err)
	}
	if err := r.Apply("ghost", ActionFold, 0); err != ErrNotYourTurn {
		t.Errorf("Unknown player should fail turn check, got %v", err)
	}

	// The table is unchanged after the rejected actions
	if r.pot != 6 || r.currentBet != 4 {
		t.Errorf("Rejected actions must not mutate state: pot=%d currentBet=%d", r.pot, r.currentBet)
	}
}

func TestRaiseReopensBetting(t *testing.T) {
	t.Parallel()
	r := testRoom(t, quartz.NewMock(t), 19)
	seat(t, r, "p1", "Alice")
	seat(t, r, "p2", "Bob")
	seat(t, r, "p3", "Carol")
	readyAll(t, r, "p1", "p2", "p3")

	// UTG raises to 8, both blinds must respond before the round closes
	act(t, r, ActionRaise, 8)
	if r.currentBet != 8 {
		t.Fatalf("Expected current bet 8, got %d", r.currentBet)
	}
	act(t, r, ActionCall, 0)
	if r.phase != PhasePreFlop {
		t.Fatalf("Round must stay open until all respond, got %s", r.phase)
	}
	act(t, r, ActionCall, 0)

	if r.phase != PhaseFlop {
		t.Fatalf("Expected flop once raise is called around, got %s", r.phase)
	}
	if r.pot != 24 {
		t.Errorf("Expected pot 24, got %d", r.pot)
	}
}

func TestBlindCappedByShortStack(t *testing.T) {
	t.Parallel()
	r := testRoom(t, quartz.NewMock(t), 23)
	seat(t, r, "p1", "Alice")
	seat(t, r, "p2", "Bob")
	r.players["p1"].Chips = 3
	r.players["p2"].Chips = 3
	readyAll(t, r, "p1", "p2")

	// Both stacks are short of the big blind, so each posts what it has
	if r.pot != 5 {
		t.Errorf("Expected pot 5 (2 + capped 3), got %d", r.pot)
	}
	bb := r.players[r.bigBlindID]
	if !bb.AllIn {
		t.Error("Big blind posting its whole stack should be all-in")
	}
	if bb.Chips != 0 {
		t.Errorf("Big blind should have 0 chips, has %d", bb.Chips)
	}
}

func TestTurnSkipsAllInPlayer(t *testing.T) {
	t.Parallel()
	r := testRoom(t, quartz.NewMock(t), 29)
	seat(t, r, "p1", "Alice")
	seat(t, r, "p2", "Bob")
	seat(t, r, "p3", "Carol")
	readyAll(t, r, "p1", "p2", "p3")

	// UTG shoves a short stack, blinds call; the shover never acts again
	shover := r.currentID
	r.players[shover].Chips = 46
	act(t, r, ActionAllIn, 0)
	if !r.players[shover].AllIn {
		t.Fatal("Shover should be all-in")
	}
	act(t, r, ActionCall, 0)
	act(t, r, ActionCall, 0)

	if r.phase != PhaseFlop {
		t.Fatalf("Expected flop, got %s", r.phase)
	}
	if r.currentID == shover {
		t.Error("All-in player must be skipped in turn order")
	}

	// Remaining two check it down; the shover never gets the action
	for r.phase.Betting() {
		if r.currentID == shover {
			t.Fatalf("All-in player on turn during %s", r.phase)
		}
		act(t, r, ActionCheck, 0)
	}
	if r.phase != PhaseShowdown {
		t.Fatalf("Expected showdown, got %s", r.phase)
	}
}

func TestAllAllInRunsOutBoard(t *testing.T) {
	t.Parallel()
	r := testRoom(t, quartz.NewMock(t), 31)
	seat(t, r, "p1", "Alice")
	seat(t, r, "p2", "Bob")
	readyAll(t, r, "p1", "p2")

	act(t, r, ActionAllIn, 0)
	act(t, r, ActionAllIn, 0)

	if r.phase != PhaseShowdown {
		t.Fatalf("Expected immediate showdown when everyone is all-in, got %s", r.phase)
	}
	if len(r.community) != 5 {
		t.Errorf("Board should run out to 5 cards, got %d", len(r.community))
	}
	if len(r.winners) == 0 {
		t.Error("Showdown should produce winners")
	}
}

func TestOwnerTransferOnLeave(t *testing.T) {
	t.Parallel()
	r := testRoom(t, quartz.NewMock(t), 37)
	seat(t, r, "p1", "Alice")
	seat(t, r, "p2", "Bob")

	if r.ownerID != "p1" {
		t.Fatalf("First player should own the room, owner=%s", r.ownerID)
	}
	if err := r.RemovePlayer("p1"); err != nil {
		t.Fatalf("RemovePlayer failed: %v", err)
	}
	if r.ownerID != "p2" {
		t.Errorf("Ownership should pass to p2, owner=%s", r.ownerID)
	}
}

func TestDisconnectOnTurnFoldsPlayer(t *testing.T) {
	t.Parallel()
	r := testRoom(t, quartz.NewMock(t), 41)
	seat(t, r, "p1", "Alice")
	seat(t, r, "p2", "Bob")
	seat(t, r, "p3", "Carol")
	readyAll(t, r, "p1", "p2", "p3")

	leaver := r.currentID
	r.Disconnect(leaver)

	if !r.players[leaver].Folded {
		t.Error("Disconnecting on turn should fold the player")
	}
	if r.players[leaver].Connected {
		t.Error("Player should be marked disconnected")
	}
	if r.currentID == leaver {
		t.Error("Turn should advance past the disconnected player")
	}
	if r.phase != PhasePreFlop {
		t.Errorf("Hand should continue with 2 live players, got %s", r.phase)
	}
}

func TestReconnectKeepsSeatAndStack(t *testing.T) {
	t.Parallel()
	r := testRoom(t, quartz.NewMock(t), 43)
	seat(t, r, "p1", "Alice")
	seat(t, r, "p2", "Bob")
	r.players["p1"].Chips = 777
	r.Disconnect("p1")

	spectator, err := r.Reconnect("p1")
	if err != nil {
		t.Fatalf("Reconnect failed: %v", err)
	}
	if spectator {
		t.Error("Reconnect should restore the old seat, not a spectator slot")
	}
	if !r.players["p1"].Connected {
		t.Error("Player should be connected again")
	}
	if r.players["p1"].Chips != 777 {
		t.Errorf("Stack should survive the reconnect, got %d", r.players["p1"].Chips)
	}

	if _, err := r.Reconnect("ghost"); err != ErrPlayerNotFound {
		t.Errorf("Reconnect of unknown player should fail, got %v", err)
	}
}

func TestReadyAloneRejected(t *testing.T) {
	t.Parallel()
	r := testRoom(t, quartz.NewMock(t), 59)
	seat(t, r, "p1", "Alice")

	if err := r.ToggleReady("p1"); err != ErrInsufficientPlayers {
		t.Fatalf("Readying up without an opponent should fail, got %v", err)
	}
	if r.players["p1"].Ready {
		t.Error("Rejected toggle must not set the ready flag")
	}

	seat(t, r, "p2", "Bob")
	readyAll(t, r, "p1", "p2")
	if r.phase != PhasePreFlop {
		t.Errorf("Hand should start once a second player readies, got %s", r.phase)
	}
}

func TestBothBlindsAllInFromPosting(t *testing.T) {
	t.Parallel()
	r := testRoom(t, quartz.NewMock(t), 61)
	seat(t, r, "p1", "Alice")
	seat(t, r, "p2", "Bob")
	r.players["p1"].Chips = 2
	r.players["p2"].Chips = 2
	readyAll(t, r, "p1", "p2")

	// Posting consumed both stacks, so the hand resolves on its own
	if r.phase != PhaseShowdown {
		t.Fatalf("Expected immediate showdown, got %s", r.phase)
	}
	if r.currentID != "" {
		t.Errorf("Nobody should be on turn at showdown, current=%s", r.currentID)
	}
	if len(r.community) != 5 {
		t.Errorf("Board should run out to 5 cards, got %d", len(r.community))
	}
	if len(r.winners) == 0 {
		t.Error("Showdown should produce winners")
	}
	if got := totalChips(r); got != 4 {
		t.Errorf("Chips not conserved: got %d, want 4", got)
	}
}

func TestShortSmallBlindSkippedOnHandStart(t *testing.T) {
	t.Parallel()
	mock := quartz.NewMock(t)
	r := testRoom(t, mock, 67)
	seat(t, r, "p1", "Alice")
	seat(t, r, "p2", "Bob")

	// Play out one throwaway hand so the button position is known:
	// heads-up the button rotates to the previous small blind, making
	// the previous dealer the next small blind.
	readyAll(t, r, "p1", "p2")
	act(t, r, ActionFold, 0)
	mock.Advance(DefaultConfig().ShowdownDelay).MustWait(context.Background())

	sb := r.dealerID
	bb := "p1"
	if sb == "p1" {
		bb = "p2"
	}
	r.players[sb].Chips = 2
	r.players[bb].Chips = 100
	readyAll(t, r, "p1", "p2")

	if r.smallBlindID != sb {
		t.Fatalf("Button should rotate, sb=%s want %s", r.smallBlindID, sb)
	}
	if !r.players[sb].AllIn {
		t.Fatal("Small blind posting its whole stack should be all-in")
	}
	if r.phase != PhasePreFlop {
		t.Fatalf("Hand should stay live with one actor left, got %s", r.phase)
	}
	if r.currentID != bb {
		t.Errorf("Turn must skip the all-in small blind, current=%s", r.currentID)
	}

	// The big blind checks it down alone; the all-in seat never acts
	for r.phase.Betting() {
		if r.currentID == sb {
			t.Fatalf("All-in player on turn during %s", r.phase)
		}
		act(t, r, ActionCheck, 0)
	}
	if r.phase != PhaseShowdown {
		t.Fatalf("Expected showdown, got %s", r.phase)
	}
}

func TestShortAllInKeepsRoundOpen(t *testing.T) {
	t.Parallel()
	r := testRoom(t, quartz.NewMock(t), 71)
	seat(t, r, "p1", "Alice")
	seat(t, r, "p2", "Bob")
	seat(t, r, "p3", "Carol")
	readyAll(t, r, "p1", "p2", "p3")

	// UTG raises to 50, the small blind shoves short for 20
	r.players[r.smallBlindID].Chips = 18
	act(t, r, ActionRaise, 50)
	act(t, r, ActionAllIn, 0)

	sb := r.players[r.smallBlindID]
	if !sb.AllIn || sb.Bet != 20 {
		t.Fatalf("Small blind should be all-in for 20, allin=%v bet=%d", sb.AllIn, sb.Bet)
	}
	// A short shove is below the price of the round, so the round stays
	// open until the big blind matches the full 50
	if r.currentBet != 50 {
		t.Fatalf("Short all-in must not lower the current bet, got %d", r.currentBet)
	}
	if r.phase != PhasePreFlop {
		t.Fatalf("Round must not close on a short all-in, got %s", r.phase)
	}
	if r.currentID != r.bigBlindID {
		t.Fatalf("Big blind still owes chips, current=%s", r.currentID)
	}

	act(t, r, ActionCall, 0)
	if r.phase != PhaseFlop {
		t.Fatalf("Round should close once the full bet is matched, got %s", r.phase)
	}
	if r.pot != 120 {
		t.Errorf("Expected pot 120 (50 + 20 + 50), got %d", r.pot)
	}
}
