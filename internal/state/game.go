package state

import (
	"fmt"

	"github.com/reliqlabs/juodzekas/internal/blackjack"
)

// GameStatus is the session lifecycle. Swept sessions are deleted from the
// store rather than tombstoned.
type GameStatus string

const (
	GameCreated        GameStatus = "created"
	GameJoined         GameStatus = "joined"
	GameInProgress     GameStatus = "inProgress"
	GameAwaitingReveal GameStatus = "awaitingReveal"
	GameResolved       GameStatus = "resolved"
)

// Config is the chain-wide table configuration, set at genesis.
type Config struct {
	Denom string `json:"denom"`

	MinBet uint64 `json:"minBet"`
	MaxBet uint64 `json:"maxBet"`

	// Payout for a player natural, in permille of the bet (1500 = 3:2).
	BlackjackPayoutPermille uint64 `json:"blackjackPayoutPermille"`

	DealerHitsSoft17  bool                        `json:"dealerHitsSoft17"`
	DealerPeeks       bool                        `json:"dealerPeeks"`
	DoubleRestriction blackjack.DoubleRestriction `json:"doubleRestriction"`
	MaxSplits         uint8                       `json:"maxSplits"`
	SurrenderAllowed  bool                        `json:"surrenderAllowed"`

	// Verification key ids routed to the proof verifier.
	ShuffleVkID string `json:"shuffleVkId"`
	RevealVkID  string `json:"revealVkId"`

	// Liveness window for the party the game is waiting on, and how long a
	// resolved session is retained before it may be swept.
	TimeoutSeconds   uint64 `json:"timeoutSeconds"`
	RetentionSeconds uint64 `json:"retentionSeconds"`
}

func DefaultConfig() Config {
	return Config{
		Denom:                   "chip",
		MinBet:                  100,
		MaxBet:                  100_000,
		BlackjackPayoutPermille: 1500,
		DealerHitsSoft17:        false,
		DealerPeeks:             true,
		DoubleRestriction:       blackjack.DoubleAny,
		MaxSplits:               3,
		SurrenderAllowed:        true,
		ShuffleVkID:             "shuffle-v1",
		RevealVkID:              "reveal-v1",
		TimeoutSeconds:          600,
		RetentionSeconds:        86_400,
	}
}

func (c Config) Validate() error {
	if c.Denom == "" {
		return fmt.Errorf("config: empty denom")
	}
	if c.MinBet == 0 || c.MinBet > c.MaxBet {
		return fmt.Errorf("config: invalid bet range [%d, %d]", c.MinBet, c.MaxBet)
	}
	if c.BlackjackPayoutPermille < 1000 {
		return fmt.Errorf("config: blackjack payout %d permille pays worse than even money", c.BlackjackPayoutPermille)
	}
	if !blackjack.ValidDoubleRestriction(c.DoubleRestriction) {
		return fmt.Errorf("config: unknown double restriction %q", c.DoubleRestriction)
	}
	if c.ShuffleVkID == "" || c.RevealVkID == "" {
		return fmt.Errorf("config: missing verification key ids")
	}
	if c.ShuffleVkID == c.RevealVkID {
		return fmt.Errorf("config: shuffle and reveal verification keys must differ")
	}
	if c.TimeoutSeconds == 0 {
		return fmt.Errorf("config: zero timeout")
	}
	return nil
}

func (c Config) Rules() blackjack.Rules {
	return blackjack.Rules{
		DealerHitsSoft17: c.DealerHitsSoft17,
		DealerPeeks:      c.DealerPeeks,
		Double:           c.DoubleRestriction,
		MaxSplits:        c.MaxSplits,
		SurrenderAllowed: c.SurrenderAllowed,
	}
}

// Ciphertext is a stored ElGamal card ciphertext, two compressed curve
// points.
type Ciphertext struct {
	C1 []byte `json:"c1"`
	C2 []byte `json:"c2"`
}

// Hand is one player hand (splits create more than one).
type Hand struct {
	// Deck positions dealt to this hand, in deal order. Cards holds the
	// revealed values; it trails DeckIdxs until the pending reveals land.
	DeckIdxs []uint32 `json:"deckIdxs"`
	Cards    []uint8  `json:"cards"`

	Bet         uint64 `json:"bet"`
	Doubled     bool   `json:"doubled,omitempty"`
	Stood       bool   `json:"stood,omitempty"`
	Surrendered bool   `json:"surrendered,omitempty"`
	FromSplit   bool   `json:"fromSplit,omitempty"`
	Settled     bool   `json:"settled,omitempty"`
}

// Done reports whether the hand takes no further player actions.
func (h *Hand) Done() bool {
	if h.Stood || h.Surrendered || h.Doubled {
		return true
	}
	return len(h.Cards) == len(h.DeckIdxs) && blackjack.IsBusted(h.Cards)
}

// Reveal tracks one card position being opened: both parties must submit a
// decryption share before the card value is known.
type Reveal struct {
	DeckIdx     uint32 `json:"deckIdx"`
	DealerShare []byte `json:"dealerShare,omitempty"`
	PlayerShare []byte `json:"playerShare,omitempty"`
	Done        bool   `json:"done,omitempty"`
	Card        uint8  `json:"card,omitempty"`
}

// GameSession is one dealer-vs-player table resident in consensus state.
type GameSession struct {
	ID     uint64     `json:"id"`
	Status GameStatus `json:"status"`

	Dealer string `json:"dealer"`
	Player string `json:"player,omitempty"`
	Bet    uint64 `json:"bet,omitempty"`

	// Game public keys (compressed curve points) used by the reveal
	// statements. AggregatedPK = DealerPK + PlayerPK once joined.
	DealerPK     []byte `json:"dealerPk"`
	PlayerPK     []byte `json:"playerPk,omitempty"`
	AggregatedPK []byte `json:"aggregatedPk,omitempty"`

	// The encrypted deck after the latest verified shuffle, and the next
	// undealt position.
	Deck       []Ciphertext `json:"deck"`
	DeckCursor uint32       `json:"deckCursor"`

	Hands      []Hand `json:"hands,omitempty"`
	ActiveHand int    `json:"activeHand"`
	Splits     uint8  `json:"splits,omitempty"`

	DealerDeckIdxs []uint32 `json:"dealerDeckIdxs,omitempty"`
	DealerCards    []uint8  `json:"dealerCards,omitempty"`

	Reveals []Reveal `json:"reveals,omitempty"`

	// Dealer funds locked at creation; payouts come out of this, the
	// remainder returns to the dealer at settlement.
	DealerEscrow uint64 `json:"dealerEscrow"`

	CreatedAt    int64  `json:"createdAt"`
	LastActivity int64  `json:"lastActivity"`
	ResolvedAt   int64  `json:"resolvedAt,omitempty"`
	Outcome      string `json:"outcome,omitempty"`
}

// FindReveal returns the reveal entry for a deck position, or nil.
func (g *GameSession) FindReveal(deckIdx uint32) *Reveal {
	for i := range g.Reveals {
		if g.Reveals[i].DeckIdx == deckIdx {
			return &g.Reveals[i]
		}
	}
	return nil
}

// PendingReveals returns the deck positions still waiting on shares.
func (g *GameSession) PendingReveals() []uint32 {
	var out []uint32
	for i := range g.Reveals {
		if !g.Reveals[i].Done {
			out = append(out, g.Reveals[i].DeckIdx)
		}
	}
	return out
}

// HoleIdx returns the dealer's face-down position. Valid once dealt.
func (g *GameSession) HoleIdx() (uint32, bool) {
	if len(g.DealerDeckIdxs) < 2 {
		return 0, false
	}
	return g.DealerDeckIdxs[1], true
}
