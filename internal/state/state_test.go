package state

import (
	"bytes"
	"testing"
)

func TestAppHash_StableAcrossMapOrder(t *testing.T) {
	s1 := NewState()
	s1.Height = 7
	s1.Accounts["bob"] = 2
	s1.Accounts["alice"] = 1
	s1.NextGameID = 42

	s2 := NewState()
	s2.Height = 7
	s2.Accounts["alice"] = 1
	s2.Accounts["bob"] = 2
	s2.NextGameID = 42

	h1 := s1.AppHash()
	h2 := s2.AppHash()
	if !bytes.Equal(h1, h2) {
		t.Fatalf("expected stable app hash; h1=%x h2=%x", h1, h2)
	}

	// Any semantic change should change the hash.
	s2.Accounts["alice"] = 9
	h3 := s2.AppHash()
	if bytes.Equal(h1, h3) {
		t.Fatalf("expected hash to change after state mutation")
	}
}

func TestAppHash_CoversGames(t *testing.T) {
	s1 := NewState()
	s1.Games[3] = &GameSession{ID: 3, Status: GameCreated, Dealer: "d"}
	h1 := s1.AppHash()

	s1.Games[3].Status = GameJoined
	h2 := s1.AppHash()
	if bytes.Equal(h1, h2) {
		t.Fatalf("expected hash to change after game mutation")
	}
}

func TestClone_IsDeep(t *testing.T) {
	s := NewState()
	s.Accounts["alice"] = 5
	s.Games[1] = &GameSession{
		ID:     1,
		Status: GameInProgress,
		Dealer: "d",
		Player: "p",
		Hands:  []Hand{{DeckIdxs: []uint32{0, 1}, Cards: []uint8{4}, Bet: 100}},
	}

	c, err := s.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	c.Accounts["alice"] = 99
	c.Games[1].Hands[0].Cards = append(c.Games[1].Hands[0].Cards, 7)

	if s.Accounts["alice"] != 5 {
		t.Fatalf("clone mutated source accounts")
	}
	if len(s.Games[1].Hands[0].Cards) != 1 {
		t.Fatalf("clone mutated source game")
	}
}

func TestCreditDebit(t *testing.T) {
	s := NewState()
	if err := s.Credit("alice", 10); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if err := s.Debit("alice", 4); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if got := s.Balance("alice"); got != 6 {
		t.Fatalf("balance=%d want=6", got)
	}
	if err := s.Debit("alice", 7); err == nil {
		t.Fatalf("expected insufficient funds")
	}
	s.Accounts["bob"] = ^uint64(0)
	if err := s.Credit("bob", 1); err == nil {
		t.Fatalf("expected overflow error")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	c := DefaultConfig()
	c.MinBet = c.MaxBet + 1
	if err := c.Validate(); err == nil {
		t.Fatalf("expected bet range error")
	}

	c = DefaultConfig()
	c.DoubleRestriction = "whenever"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected double restriction error")
	}

	c = DefaultConfig()
	c.RevealVkID = c.ShuffleVkID
	if err := c.Validate(); err == nil {
		t.Fatalf("expected vk id collision error")
	}
}

func TestGameSessionHelpers(t *testing.T) {
	g := &GameSession{
		Reveals: []Reveal{
			{DeckIdx: 2, Done: true, Card: 9},
			{DeckIdx: 3},
		},
		DealerDeckIdxs: []uint32{2, 3},
	}

	if r := g.FindReveal(3); r == nil || r.Done {
		t.Fatalf("FindReveal(3)=%+v", r)
	}
	if r := g.FindReveal(10); r != nil {
		t.Fatalf("expected nil for unknown deck index")
	}
	pending := g.PendingReveals()
	if len(pending) != 1 || pending[0] != 3 {
		t.Fatalf("pending=%v", pending)
	}
	hole, ok := g.HoleIdx()
	if !ok || hole != 3 {
		t.Fatalf("hole=%d ok=%v", hole, ok)
	}
}

func TestHandDone(t *testing.T) {
	h := &Hand{DeckIdxs: []uint32{0, 1}, Cards: []uint8{5, 6}}
	if h.Done() {
		t.Fatalf("open hand reported done")
	}
	h.Stood = true
	if !h.Done() {
		t.Fatalf("stood hand not done")
	}

	// Busted hand is done once all dealt cards are revealed.
	busted := &Hand{
		DeckIdxs: []uint32{0, 1, 2},
		Cards:    []uint8{9, 10, 11}, // 10+10+10
	}
	if !busted.Done() {
		t.Fatalf("busted hand not done")
	}
}
