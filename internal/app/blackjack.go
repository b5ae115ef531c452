package app

import (
	"encoding/json"
	"fmt"
	"math"

	abci "github.com/cometbft/cometbft/abci/types"

	"github.com/reliqlabs/juodzekas/internal/blackjack"
	"github.com/reliqlabs/juodzekas/internal/codec"
	"github.com/reliqlabs/juodzekas/internal/jzcrypto"
	"github.com/reliqlabs/juodzekas/internal/jzreveal"
	"github.com/reliqlabs/juodzekas/internal/jzshuffle"
	"github.com/reliqlabs/juodzekas/internal/state"
)

// escrowMultiple is the dealer bankroll requirement relative to max_bet. The
// worst-case dealer exposure is 4 doubled hands at 2x the bet each, so 10x
// always covers settlement.
const escrowMultiple = 10

// Initial deal layout: positions 0,1 to the player, 2 the dealer upcard,
// 3 the dealer hole card.
const (
	dealPlayerFirst  = 0
	dealPlayerSecond = 1
	dealDealerUp     = 2
	dealDealerHole   = 3
	dealCursorStart  = 4
)

const sweepMaxIDs = 50

func mulU64Checked(a, b uint64, field string) (uint64, error) {
	if a != 0 && b > math.MaxUint64/a {
		return 0, fmt.Errorf("%s overflows uint64", field)
	}
	return a * b, nil
}

func addU64Checked(a, b uint64, field string) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, fmt.Errorf("%s overflows uint64", field)
	}
	return a + b, nil
}

// loadDeck decodes the stored ciphertexts back into curve points, validating
// every point.
func loadDeck(g *state.GameSession) (jzshuffle.Deck, error) {
	if len(g.Deck) != jzshuffle.DeckSize {
		return nil, fmt.Errorf("stored deck has %d cards", len(g.Deck))
	}
	out := make(jzshuffle.Deck, jzshuffle.DeckSize)
	for i, ct := range g.Deck {
		c1, err := jzcrypto.PointFromBytesCanonical(ct.C1)
		if err != nil {
			return nil, fmt.Errorf("deck[%d].c1: %w", i, err)
		}
		c2, err := jzcrypto.PointFromBytesCanonical(ct.C2)
		if err != nil {
			return nil, fmt.Errorf("deck[%d].c2: %w", i, err)
		}
		out[i] = jzcrypto.ElGamalCiphertext{C1: c1, C2: c2}
	}
	return out, nil
}

func storeDeck(d jzshuffle.Deck) []state.Ciphertext {
	out := make([]state.Ciphertext, len(d))
	for i, ct := range d {
		out[i] = state.Ciphertext{C1: ct.C1.Bytes(), C2: ct.C2.Bytes()}
	}
	return out
}

func (a *JZApp) handleCreateGame(st *state.State, env codec.TxEnvelope, nowUnix int64) *abci.ExecTxResult {
	var msg codec.BlackjackCreateGameTx
	if err := json.Unmarshal(env.Value, &msg); err != nil {
		return rejectf(codeGeneric, "bad blackjack/create_game value")
	}
	if msg.Dealer == "" {
		return rejectf(codeGeneric, "missing dealer")
	}
	if err := requireAccountAuth(st, env, msg.Dealer); err != nil {
		return reject(err)
	}
	cfg := st.Config

	dealerPK, err := jzcrypto.PointFromBytesCanonical(msg.PublicKey)
	if err != nil {
		return reject(fmt.Errorf("dealer public key: %w", err))
	}
	if dealerPK.IsIdentity() {
		return reject(fmt.Errorf("dealer public key is identity: %w", jzcrypto.ErrInvalidCurvePoint))
	}
	deck, err := jzshuffle.DecodeDeck(msg.Deck)
	if err != nil {
		return reject(err)
	}

	// The initial shuffle statement: base ordering in, dealer key, no
	// key-switch. All public inputs are chain-derived; the submitter cannot
	// pick its own statement.
	publics, err := jzshuffle.PublicInputs(dealerPK, jzcrypto.PointIdentity(), jzshuffle.BaseDeck(), deck)
	if err != nil {
		return reject(err)
	}
	ok, err := a.verifier.Verify(cfg.ShuffleVkID, publics, msg.Proof)
	if err != nil {
		return reject(fmt.Errorf("verify shuffle: %w", err))
	}
	if !ok {
		return reject(fmt.Errorf("shuffle proof rejected: %w", ErrInvalidProof))
	}

	required, err := mulU64Checked(escrowMultiple, cfg.MaxBet, "escrow")
	if err != nil {
		return reject(err)
	}
	escrow, err := addU64Checked(required, msg.Escrow, "escrow")
	if err != nil {
		return reject(err)
	}
	if st.Balance(msg.Dealer) < escrow {
		return reject(fmt.Errorf("need %d %s, have %d: %w",
			escrow, cfg.Denom, st.Balance(msg.Dealer), ErrInsufficientBankroll))
	}
	if err := st.Debit(msg.Dealer, escrow); err != nil {
		return reject(err)
	}

	id := st.NextGameID
	st.NextGameID++
	g := &state.GameSession{
		ID:           id,
		Status:       state.GameCreated,
		Dealer:       msg.Dealer,
		DealerPK:     dealerPK.Bytes(),
		Deck:         storeDeck(deck),
		DealerEscrow: escrow,
		CreatedAt:    nowUnix,
	}
	touch(g, nowUnix)
	st.Games[id] = g

	return okEvent("GameCreated", map[string]string{
		"gameId": fmt.Sprintf("%d", id),
		"dealer": msg.Dealer,
		"escrow": fmt.Sprintf("%d", escrow),
	})
}

func (a *JZApp) handleJoinGame(st *state.State, env codec.TxEnvelope, nowUnix int64) *abci.ExecTxResult {
	var msg codec.BlackjackJoinGameTx
	if err := json.Unmarshal(env.Value, &msg); err != nil {
		return rejectf(codeGeneric, "bad blackjack/join_game value")
	}
	if msg.Player == "" {
		return rejectf(codeGeneric, "missing player")
	}
	if err := requireAccountAuth(st, env, msg.Player); err != nil {
		return reject(err)
	}
	cfg := st.Config

	g := st.Games[msg.GameID]
	if g == nil {
		return rejectf(codeGeneric, "game %d not found", msg.GameID)
	}
	if g.Status != state.GameCreated {
		return reject(fmt.Errorf("game %d is %s: %w", g.ID, g.Status, ErrIllegalAction))
	}
	if msg.Player == g.Dealer {
		return reject(fmt.Errorf("dealer cannot take the player seat: %w", ErrIllegalAction))
	}
	if msg.Bet < cfg.MinBet || msg.Bet > cfg.MaxBet {
		return reject(fmt.Errorf("bet %d outside [%d, %d]: %w", msg.Bet, cfg.MinBet, cfg.MaxBet, ErrOutOfRangeBet))
	}

	playerPK, err := jzcrypto.PointFromBytesCanonical(msg.PublicKey)
	if err != nil {
		return reject(fmt.Errorf("player public key: %w", err))
	}
	dealerPK, err := jzcrypto.PointFromBytesCanonical(g.DealerPK)
	if err != nil {
		return reject(fmt.Errorf("stored dealer key: %w", err))
	}
	aggPK, err := jzcrypto.AggregateKeys(dealerPK, playerPK)
	if err != nil {
		return reject(err)
	}

	inDeck, err := loadDeck(g)
	if err != nil {
		return reject(err)
	}
	outDeck, err := jzshuffle.DecodeDeck(msg.Deck)
	if err != nil {
		return reject(err)
	}

	// Re-shuffle statement: the player permutes the dealer's deck and key-
	// switches it onto the aggregated key; PkDelta = playerPK binds the
	// key-switch secret to the key the reveal statements will use.
	publics, err := jzshuffle.PublicInputs(aggPK, playerPK, inDeck, outDeck)
	if err != nil {
		return reject(err)
	}
	ok, err := a.verifier.Verify(cfg.ShuffleVkID, publics, msg.Proof)
	if err != nil {
		return reject(fmt.Errorf("verify shuffle: %w", err))
	}
	if !ok {
		return reject(fmt.Errorf("re-shuffle proof rejected: %w", ErrInvalidProof))
	}

	if st.Balance(msg.Player) < msg.Bet {
		return reject(fmt.Errorf("need %d %s, have %d: %w",
			msg.Bet, cfg.Denom, st.Balance(msg.Player), ErrInsufficientBankroll))
	}
	if err := st.Debit(msg.Player, msg.Bet); err != nil {
		return reject(err)
	}

	g.Status = state.GameJoined
	g.Player = msg.Player
	g.Bet = msg.Bet
	g.PlayerPK = playerPK.Bytes()
	g.AggregatedPK = aggPK.Bytes()
	g.Deck = storeDeck(outDeck)

	// Initial deal: two player cards face up, dealer upcard face up, hole
	// card stays encrypted.
	g.Hands = []state.Hand{{
		DeckIdxs: []uint32{dealPlayerFirst, dealPlayerSecond},
		Bet:      msg.Bet,
	}}
	g.ActiveHand = 0
	g.DealerDeckIdxs = []uint32{dealDealerUp, dealDealerHole}
	g.DeckCursor = dealCursorStart
	requestReveal(g, dealPlayerFirst)
	requestReveal(g, dealPlayerSecond)
	requestReveal(g, dealDealerUp)
	touch(g, nowUnix)

	return okEvent("GameJoined", map[string]string{
		"gameId": fmt.Sprintf("%d", g.ID),
		"player": msg.Player,
		"bet":    fmt.Sprintf("%d", msg.Bet),
	})
}

func (a *JZApp) handleAction(st *state.State, env codec.TxEnvelope, nowUnix int64) *abci.ExecTxResult {
	var msg codec.BlackjackActionTx
	if err := json.Unmarshal(env.Value, &msg); err != nil {
		return rejectf(codeGeneric, "bad %s value", env.Type)
	}
	if msg.Player == "" {
		return rejectf(codeGeneric, "missing player")
	}
	if err := requireAccountAuth(st, env, msg.Player); err != nil {
		return reject(err)
	}
	cfg := st.Config

	g := st.Games[msg.GameID]
	if g == nil {
		return rejectf(codeGeneric, "game %d not found", msg.GameID)
	}
	if msg.Player != g.Player {
		return reject(fmt.Errorf("%q is not the seated player: %w", msg.Player, ErrIllegalAction))
	}
	switch g.Status {
	case state.GameInProgress:
		// The player's turn.
	case state.GameJoined, state.GameAwaitingReveal:
		return reject(fmt.Errorf("reveals outstanding: %w", ErrOutOfTurn))
	default:
		return reject(fmt.Errorf("game is %s: %w", g.Status, ErrIllegalAction))
	}
	if g.ActiveHand >= len(g.Hands) {
		return reject(fmt.Errorf("dealer is playing: %w", ErrOutOfTurn))
	}
	hand := &g.Hands[g.ActiveHand]
	if hand.Done() {
		return reject(fmt.Errorf("hand already finished: %w", ErrIllegalAction))
	}
	rules := cfg.Rules()

	action := ""
	switch env.Type {
	case "blackjack/hit":
		action = "hit"
		if err := dealTo(g, hand); err != nil {
			return reject(err)
		}

	case "blackjack/stand":
		action = "stand"
		hand.Stood = true

	case "blackjack/double_down":
		action = "double_down"
		if hand.Doubled || len(hand.Cards) != 2 || !blackjack.CanDouble(hand.Cards, rules) {
			return reject(fmt.Errorf("double down not allowed here: %w", ErrIllegalAction))
		}
		if st.Balance(msg.Player) < hand.Bet {
			return reject(fmt.Errorf("need %d %s to double: %w", hand.Bet, cfg.Denom, ErrInsufficientBankroll))
		}
		if err := st.Debit(msg.Player, hand.Bet); err != nil {
			return reject(err)
		}
		hand.Bet *= 2
		hand.Doubled = true
		if err := dealTo(g, hand); err != nil {
			return reject(err)
		}

	case "blackjack/split":
		action = "split"
		if !blackjack.CanSplitPair(hand.Cards) || g.Splits >= rules.MaxSplits {
			return reject(fmt.Errorf("split not allowed here: %w", ErrIllegalAction))
		}
		if st.Balance(msg.Player) < hand.Bet {
			return reject(fmt.Errorf("need %d %s to split: %w", hand.Bet, cfg.Denom, ErrInsufficientBankroll))
		}
		if err := st.Debit(msg.Player, hand.Bet); err != nil {
			return reject(err)
		}
		if err := splitHand(g, g.ActiveHand); err != nil {
			return reject(err)
		}

	case "blackjack/surrender":
		action = "surrender"
		if !rules.SurrenderAllowed || len(g.Hands) != 1 || hand.FromSplit ||
			hand.Doubled || len(hand.Cards) != 2 || len(hand.DeckIdxs) != 2 {
			return reject(fmt.Errorf("surrender not allowed here: %w", ErrIllegalAction))
		}
		hand.Surrendered = true

	default:
		return rejectf(codeGeneric, "unknown action %s", env.Type)
	}

	touch(g, nowUnix)
	if err := a.progressGame(st, g, nowUnix); err != nil {
		return reject(err)
	}

	res := okEvent("ActionApplied", map[string]string{
		"gameId": fmt.Sprintf("%d", g.ID),
		"player": msg.Player,
		"action": action,
		"hand":   fmt.Sprintf("%d", g.ActiveHand),
		"status": string(g.Status),
	})
	appendResolvedEvent(res, g)
	return res
}

func (a *JZApp) handleSubmitReveal(st *state.State, env codec.TxEnvelope, nowUnix int64) *abci.ExecTxResult {
	var msg codec.BlackjackSubmitRevealTx
	if err := json.Unmarshal(env.Value, &msg); err != nil {
		return rejectf(codeGeneric, "bad blackjack/submit_reveal value")
	}
	if msg.Sender == "" {
		return rejectf(codeGeneric, "missing sender")
	}
	if err := requireAccountAuth(st, env, msg.Sender); err != nil {
		return reject(err)
	}
	cfg := st.Config

	g := st.Games[msg.GameID]
	if g == nil {
		return rejectf(codeGeneric, "game %d not found", msg.GameID)
	}
	isDealer := msg.Sender == g.Dealer
	if !isDealer && msg.Sender != g.Player {
		return reject(fmt.Errorf("%q is not a participant: %w", msg.Sender, ErrIllegalAction))
	}
	if g.Status != state.GameJoined && g.Status != state.GameAwaitingReveal {
		return reject(fmt.Errorf("no reveal outstanding in %s: %w", g.Status, ErrIllegalAction))
	}
	r := g.FindReveal(msg.CardIndex)
	if r == nil || r.Done {
		return reject(fmt.Errorf("card %d is not awaiting a reveal: %w", msg.CardIndex, ErrIllegalAction))
	}
	if msg.CardIndex >= uint32(len(g.Deck)) {
		return rejectf(codeGeneric, "card index %d out of range", msg.CardIndex)
	}

	share, err := jzcrypto.PointFromBytesCanonical(msg.Share)
	if err != nil {
		return reject(fmt.Errorf("share: %w", err))
	}
	var senderPKBytes []byte
	if isDealer {
		senderPKBytes = g.DealerPK
	} else {
		senderPKBytes = g.PlayerPK
	}
	senderPK, err := jzcrypto.PointFromBytesCanonical(senderPKBytes)
	if err != nil {
		return reject(fmt.Errorf("stored sender key: %w", err))
	}
	c1, err := jzcrypto.PointFromBytesCanonical(g.Deck[msg.CardIndex].C1)
	if err != nil {
		return reject(fmt.Errorf("stored deck[%d]: %w", msg.CardIndex, err))
	}

	// Reveal statement derived on-chain: (share, c1, sender key). Only the
	// share is submitter-chosen, and the proof pins it to the key.
	publics := jzreveal.PublicInputs(share, c1, senderPK)
	ok, err := a.verifier.Verify(cfg.RevealVkID, publics, msg.Proof)
	if err != nil {
		return reject(fmt.Errorf("verify reveal: %w", err))
	}
	if !ok {
		return reject(fmt.Errorf("reveal proof rejected: %w", ErrInvalidProof))
	}

	if isDealer {
		if len(r.DealerShare) != 0 {
			return reject(fmt.Errorf("dealer share already submitted: %w", ErrIllegalAction))
		}
		r.DealerShare = share.Bytes()
	} else {
		if len(r.PlayerShare) != 0 {
			return reject(fmt.Errorf("player share already submitted: %w", ErrIllegalAction))
		}
		r.PlayerShare = share.Bytes()
	}

	attrs := map[string]string{
		"gameId":    fmt.Sprintf("%d", g.ID),
		"sender":    msg.Sender,
		"cardIndex": fmt.Sprintf("%d", msg.CardIndex),
	}

	if len(r.DealerShare) != 0 && len(r.PlayerShare) != 0 {
		card, err := combineReveal(g, r)
		if err != nil {
			return reject(err)
		}
		r.Done = true
		r.Card = card
		attrs["card"] = fmt.Sprintf("%d", card)
	}

	touch(g, nowUnix)
	if err := a.progressGame(st, g, nowUnix); err != nil {
		return reject(err)
	}
	attrs["status"] = string(g.Status)

	res := okEvent("RevealSubmitted", attrs)
	appendResolvedEvent(res, g)
	return res
}

// combineReveal recomputes the plaintext card from the stored ciphertext and
// both shares.
func combineReveal(g *state.GameSession, r *state.Reveal) (uint8, error) {
	c1, err := jzcrypto.PointFromBytesCanonical(g.Deck[r.DeckIdx].C1)
	if err != nil {
		return 0, err
	}
	c2, err := jzcrypto.PointFromBytesCanonical(g.Deck[r.DeckIdx].C2)
	if err != nil {
		return 0, err
	}
	ds, err := jzcrypto.PointFromBytesCanonical(r.DealerShare)
	if err != nil {
		return 0, err
	}
	ps, err := jzcrypto.PointFromBytesCanonical(r.PlayerShare)
	if err != nil {
		return 0, err
	}
	ct := jzcrypto.ElGamalCiphertext{C1: c1, C2: c2}
	return jzreveal.Combine(ct, []jzcrypto.Point{ds, ps})
}

func (a *JZApp) handleClaimTimeout(st *state.State, env codec.TxEnvelope, nowUnix int64) *abci.ExecTxResult {
	var msg codec.BlackjackClaimTimeoutTx
	if err := json.Unmarshal(env.Value, &msg); err != nil {
		return rejectf(codeGeneric, "bad blackjack/claim_timeout value")
	}
	if msg.Claimer == "" {
		return rejectf(codeGeneric, "missing claimer")
	}
	if err := requireAccountAuth(st, env, msg.Claimer); err != nil {
		return reject(err)
	}
	cfg := st.Config

	g := st.Games[msg.GameID]
	if g == nil {
		return rejectf(codeGeneric, "game %d not found", msg.GameID)
	}
	if msg.Claimer != g.Dealer && msg.Claimer != g.Player {
		return reject(fmt.Errorf("%q is not a participant: %w", msg.Claimer, ErrIllegalAction))
	}
	switch g.Status {
	case state.GameJoined, state.GameInProgress, state.GameAwaitingReveal:
	default:
		return reject(fmt.Errorf("game is %s, nothing to claim: %w", g.Status, ErrIllegalAction))
	}
	expired, err := timedOut(g, cfg, nowUnix)
	if err != nil {
		return reject(err)
	}
	if !expired {
		return reject(fmt.Errorf("timeout not reached: %w", ErrIllegalAction))
	}

	lagging, err := laggingParty(g)
	if err != nil {
		return reject(err)
	}
	if lagging == msg.Claimer {
		return reject(fmt.Errorf("claimer is the lagging party: %w", ErrIllegalAction))
	}

	if err := settleTimeout(st, g, lagging, nowUnix); err != nil {
		return reject(err)
	}

	res := okEvent("TimeoutClaimed", map[string]string{
		"gameId":  fmt.Sprintf("%d", g.ID),
		"claimer": msg.Claimer,
		"lagging": lagging,
	})
	appendResolvedEvent(res, g)
	return res
}

// laggingParty identifies who the game is waiting on: the party with an
// outstanding reveal share, or the player when it is their turn to act.
func laggingParty(g *state.GameSession) (string, error) {
	dealerLags, playerLags := false, false
	for i := range g.Reveals {
		r := &g.Reveals[i]
		if r.Done {
			continue
		}
		if len(r.DealerShare) == 0 {
			dealerLags = true
		}
		if len(r.PlayerShare) == 0 {
			playerLags = true
		}
	}
	switch {
	case dealerLags && playerLags:
		return "", fmt.Errorf("both parties have outstanding shares: %w", ErrIllegalAction)
	case dealerLags:
		return g.Dealer, nil
	case playerLags:
		return g.Player, nil
	}
	if g.Status == state.GameInProgress && g.ActiveHand < len(g.Hands) {
		return g.Player, nil
	}
	return "", fmt.Errorf("no party is lagging: %w", ErrIllegalAction)
}

func (a *JZApp) handleCancelGame(st *state.State, env codec.TxEnvelope, nowUnix int64) *abci.ExecTxResult {
	var msg codec.BlackjackCancelGameTx
	if err := json.Unmarshal(env.Value, &msg); err != nil {
		return rejectf(codeGeneric, "bad blackjack/cancel_game value")
	}
	if msg.Dealer == "" {
		return rejectf(codeGeneric, "missing dealer")
	}
	if err := requireAccountAuth(st, env, msg.Dealer); err != nil {
		return reject(err)
	}

	g := st.Games[msg.GameID]
	if g == nil {
		return rejectf(codeGeneric, "game %d not found", msg.GameID)
	}
	if msg.Dealer != g.Dealer {
		return reject(fmt.Errorf("only the dealer may cancel: %w", ErrIllegalAction))
	}
	if g.Status != state.GameCreated {
		return reject(fmt.Errorf("game is %s, cannot cancel: %w", g.Status, ErrIllegalAction))
	}

	if err := st.Credit(g.Dealer, g.DealerEscrow); err != nil {
		return reject(err)
	}
	g.DealerEscrow = 0
	g.Status = state.GameResolved
	g.Outcome = "cancelled"
	g.ResolvedAt = nowUnix
	touch(g, nowUnix)

	res := okEvent("GameCancelled", map[string]string{
		"gameId": fmt.Sprintf("%d", g.ID),
	})
	appendResolvedEvent(res, g)
	return res
}

func (a *JZApp) handleSweepSettled(st *state.State, env codec.TxEnvelope, nowUnix int64) *abci.ExecTxResult {
	// Permissionless storage reclamation; no auth by design.
	var msg codec.BlackjackSweepSettledTx
	if err := json.Unmarshal(env.Value, &msg); err != nil {
		return rejectf(codeGeneric, "bad blackjack/sweep_settled value")
	}
	if len(msg.GameIDs) == 0 {
		return rejectf(codeGeneric, "no game ids")
	}
	if len(msg.GameIDs) > sweepMaxIDs {
		return rejectf(codeGeneric, "too many game ids: %d > %d", len(msg.GameIDs), sweepMaxIDs)
	}

	swept := 0
	for _, id := range msg.GameIDs {
		g, ok := st.Games[id]
		if !ok || !sweepable(g, st.Config, nowUnix) {
			continue // unknown, live, or too fresh: a no-op, not an error
		}
		delete(st.Games, id)
		swept++
	}

	return okEvent("GamesSwept", map[string]string{
		"requested": fmt.Sprintf("%d", len(msg.GameIDs)),
		"swept":     fmt.Sprintf("%d", swept),
	})
}

// ---- game progression ----

// dealTo assigns the next undealt deck position to a hand and queues its
// reveal.
func dealTo(g *state.GameSession, h *state.Hand) error {
	idx, err := draw(g)
	if err != nil {
		return err
	}
	h.DeckIdxs = append(h.DeckIdxs, idx)
	requestReveal(g, idx)
	return nil
}

func draw(g *state.GameSession) (uint32, error) {
	if g.DeckCursor >= uint32(len(g.Deck)) {
		return 0, fmt.Errorf("deck exhausted")
	}
	idx := g.DeckCursor
	g.DeckCursor++
	return idx, nil
}

func requestReveal(g *state.GameSession, deckIdx uint32) {
	if g.FindReveal(deckIdx) == nil {
		g.Reveals = append(g.Reveals, state.Reveal{DeckIdx: deckIdx})
	}
}

// splitHand turns a pair into two hands, one new card queued for each.
func splitHand(g *state.GameSession, i int) error {
	h := &g.Hands[i]
	if len(h.Cards) != 2 || len(h.DeckIdxs) != 2 {
		return fmt.Errorf("split requires a settled two-card hand: %w", ErrIllegalAction)
	}

	second := state.Hand{
		DeckIdxs:  []uint32{h.DeckIdxs[1]},
		Cards:     []uint8{h.Cards[1]},
		Bet:       h.Bet,
		FromSplit: true,
	}
	h.DeckIdxs = h.DeckIdxs[:1]
	h.Cards = h.Cards[:1]
	h.FromSplit = true

	if err := dealTo(g, h); err != nil {
		return err
	}
	idx, err := draw(g)
	if err != nil {
		return err
	}
	second.DeckIdxs = append(second.DeckIdxs, idx)
	requestReveal(g, idx)

	g.Hands = append(g.Hands, state.Hand{})
	copy(g.Hands[i+2:], g.Hands[i+1:])
	g.Hands[i+1] = second
	g.Splits++
	return nil
}

// progressGame advances the session after any accepted mutation: applies
// completed reveals to hands, runs the dealer's forced play, and settles
// when terminal. It leaves the session either waiting on reveals, waiting on
// the player, or resolved.
func (a *JZApp) progressGame(st *state.State, g *state.GameSession, nowUnix int64) error {
	cfg := st.Config
	rules := cfg.Rules()

	for {
		applyReveals(g)

		if len(g.PendingReveals()) > 0 {
			if g.Status != state.GameJoined {
				g.Status = state.GameAwaitingReveal
			}
			return nil
		}

		// Initial deal complete: the dealer checks for its own natural when
		// the upcard calls for it.
		if g.Status == state.GameJoined {
			g.Status = state.GameInProgress
			if len(g.DealerCards) >= 1 && blackjack.DealerShouldPeek(g.DealerCards[0], rules) {
				if hole, ok := g.HoleIdx(); ok && g.FindReveal(hole) == nil {
					requestReveal(g, hole)
					continue
				}
			}
		}

		// A revealed dealer natural ends the game immediately.
		if len(g.DealerCards) >= 2 && blackjack.IsBlackjack(g.DealerCards[:2]) {
			return settle(st, g, cfg, nowUnix)
		}

		// Player turn: skip finished hands, auto-stand on 21.
		for g.ActiveHand < len(g.Hands) {
			h := &g.Hands[g.ActiveHand]
			if total, _ := blackjack.HandValue(h.Cards); total == blackjack.Blackjack && !h.Done() {
				h.Stood = true
			}
			if !h.Done() {
				break
			}
			g.ActiveHand++
		}
		if g.ActiveHand < len(g.Hands) {
			g.Status = state.GameInProgress
			return nil
		}

		// All hands closed. If none is live the dealer wins without playing.
		if !anyLiveHand(g) {
			return settle(st, g, cfg, nowUnix)
		}

		// Dealer play-out: open the hole card, then draw by forced rule.
		if len(g.DealerCards) < 2 {
			if hole, ok := g.HoleIdx(); ok {
				requestReveal(g, hole)
				continue
			}
			return fmt.Errorf("dealer hole card missing")
		}
		if blackjack.DealerMustHit(g.DealerCards, rules) {
			idx, err := draw(g)
			if err != nil {
				return err
			}
			g.DealerDeckIdxs = append(g.DealerDeckIdxs, idx)
			requestReveal(g, idx)
			continue
		}

		return settle(st, g, cfg, nowUnix)
	}
}

// applyReveals copies completed reveal values onto the hands, in deal order.
func applyReveals(g *state.GameSession) {
	for hi := range g.Hands {
		h := &g.Hands[hi]
		for i := len(h.Cards); i < len(h.DeckIdxs); i++ {
			r := g.FindReveal(h.DeckIdxs[i])
			if r == nil || !r.Done {
				break
			}
			h.Cards = append(h.Cards, r.Card)
		}
	}
	for i := len(g.DealerCards); i < len(g.DealerDeckIdxs); i++ {
		r := g.FindReveal(g.DealerDeckIdxs[i])
		if r == nil || !r.Done {
			break
		}
		g.DealerCards = append(g.DealerCards, r.Card)
	}
}

// anyLiveHand reports whether settlement still needs the dealer's cards:
// at least one hand neither busted nor surrendered.
func anyLiveHand(g *state.GameSession) bool {
	for i := range g.Hands {
		h := &g.Hands[i]
		if h.Surrendered || blackjack.IsBusted(h.Cards) {
			continue
		}
		return true
	}
	return false
}

// settle computes payouts per hand, returns the escrow remainder to the
// dealer, and closes the session. Every debited unit is credited exactly
// once: playerPayout + dealerPayout == escrow + totalBets.
func settle(st *state.State, g *state.GameSession, cfg state.Config, nowUnix int64) error {
	dealerNatural := len(g.DealerCards) >= 2 && blackjack.IsBlackjack(g.DealerCards[:2])
	dealerBusted := blackjack.IsBusted(g.DealerCards)
	dealerTotal, _ := blackjack.HandValue(g.DealerCards)

	var totalBets, playerPayout uint64
	for i := range g.Hands {
		h := &g.Hands[i]
		var err error
		totalBets, err = addU64Checked(totalBets, h.Bet, "total bets")
		if err != nil {
			return err
		}
		playerNatural := blackjack.IsBlackjack(h.Cards) && !h.FromSplit && !h.Doubled

		var win uint64
		switch {
		case h.Surrendered:
			win = h.Bet / 2
		case blackjack.IsBusted(h.Cards):
			win = 0
		case playerNatural && dealerNatural:
			win = h.Bet // push
		case playerNatural:
			bonus, err := mulU64Checked(h.Bet, cfg.BlackjackPayoutPermille, "blackjack payout")
			if err != nil {
				return err
			}
			win = h.Bet + bonus/1000
		case dealerNatural:
			win = 0
		case dealerBusted:
			win = 2 * h.Bet
		default:
			total, _ := blackjack.HandValue(h.Cards)
			switch {
			case total > dealerTotal:
				win = 2 * h.Bet
			case total == dealerTotal:
				win = h.Bet
			default:
				win = 0
			}
		}
		playerPayout, err = addU64Checked(playerPayout, win, "player payout")
		if err != nil {
			return err
		}
		h.Settled = true
	}

	pot, err := addU64Checked(g.DealerEscrow, totalBets, "pot")
	if err != nil {
		return err
	}
	if playerPayout > pot {
		return fmt.Errorf("payout %d exceeds pot %d", playerPayout, pot)
	}
	dealerPayout := pot - playerPayout

	if playerPayout > 0 {
		if err := st.Credit(g.Player, playerPayout); err != nil {
			return err
		}
	}
	if dealerPayout > 0 {
		if err := st.Credit(g.Dealer, dealerPayout); err != nil {
			return err
		}
	}

	switch {
	case playerPayout > totalBets:
		g.Outcome = "playerWin"
	case playerPayout < totalBets:
		g.Outcome = "dealerWin"
	default:
		g.Outcome = "push"
	}
	g.DealerEscrow = 0
	g.Status = state.GameResolved
	g.ResolvedAt = nowUnix
	touch(g, nowUnix)
	return nil
}

// settleTimeout force-resolves against the lagging party: the responsive
// party takes the pot at even money, the escrow remainder returns to the
// dealer.
func settleTimeout(st *state.State, g *state.GameSession, lagging string, nowUnix int64) error {
	var totalBets uint64
	for i := range g.Hands {
		var err error
		totalBets, err = addU64Checked(totalBets, g.Hands[i].Bet, "total bets")
		if err != nil {
			return err
		}
		g.Hands[i].Settled = true
	}
	pot, err := addU64Checked(g.DealerEscrow, totalBets, "pot")
	if err != nil {
		return err
	}

	var playerPayout uint64
	if lagging == g.Dealer {
		winnings, err := mulU64Checked(2, totalBets, "timeout payout")
		if err != nil {
			return err
		}
		playerPayout = winnings
		g.Outcome = "timeoutDealer"
	} else {
		playerPayout = 0
		g.Outcome = "timeoutPlayer"
	}
	if playerPayout > pot {
		return fmt.Errorf("timeout payout %d exceeds pot %d", playerPayout, pot)
	}
	if playerPayout > 0 {
		if err := st.Credit(g.Player, playerPayout); err != nil {
			return err
		}
	}
	if pot-playerPayout > 0 {
		if err := st.Credit(g.Dealer, pot-playerPayout); err != nil {
			return err
		}
	}

	g.DealerEscrow = 0
	g.Status = state.GameResolved
	g.ResolvedAt = nowUnix
	touch(g, nowUnix)
	return nil
}

func appendResolvedEvent(res *abci.ExecTxResult, g *state.GameSession) {
	if g.Status != state.GameResolved {
		return
	}
	res.Events = append(res.Events, abci.Event{
		Type: "GameResolved",
		Attributes: []abci.EventAttribute{
			{Key: "gameId", Value: fmt.Sprintf("%d", g.ID), Index: true},
			{Key: "outcome", Value: g.Outcome, Index: true},
		},
	})
}
