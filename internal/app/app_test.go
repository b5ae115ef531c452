package app

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"strconv"
	"testing"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/rs/zerolog"

	"github.com/reliqlabs/juodzekas/internal/jzcrypto"
	"github.com/reliqlabs/juodzekas/internal/jzreveal"
	"github.com/reliqlabs/juodzekas/internal/jzshuffle"
	"github.com/reliqlabs/juodzekas/internal/state"
)

const testNow = int64(1_700_000_000)

// stubVerifier accepts every proof except bytes equal to rejectProof, so
// tests can exercise handler logic without running groth16.
type stubVerifier struct {
	rejectProof string
}

func (v *stubVerifier) Verify(_ string, _ []string, proof []byte) (bool, error) {
	if v.rejectProof != "" && string(proof) == v.rejectProof {
		return false, nil
	}
	return true, nil
}

func newTestApp(t *testing.T) (*JZApp, *stubVerifier) {
	t.Helper()
	v := &stubVerifier{rejectProof: "bad"}
	a, err := New(t.TempDir(), zerolog.Nop(), v)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a, v
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

// account is a test signer with its own nonce counter.
type account struct {
	name  string
	priv  ed25519.PrivateKey
	nonce uint64
}

func newAccount(t *testing.T, name string) *account {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("ed25519 keygen: %v", err)
	}
	return &account{name: name, priv: priv}
}

func (ac *account) pubKey() []byte {
	return ac.priv.Public().(ed25519.PublicKey)
}

func txBytes(t *testing.T, typ string, value any) []byte {
	t.Helper()
	return mustMarshal(t, map[string]any{
		"type":  typ,
		"value": value,
	})
}

func signedTx(t *testing.T, ac *account, typ string, value any) []byte {
	t.Helper()
	vb := mustMarshal(t, value)
	ac.nonce++
	nonce := strconv.FormatUint(ac.nonce, 10)
	sig := ed25519.Sign(ac.priv, txAuthSignBytesV1(typ, vb, nonce, ac.name))
	return mustMarshal(t, map[string]any{
		"type":   typ,
		"value":  json.RawMessage(vb),
		"nonce":  nonce,
		"signer": ac.name,
		"sig":    sig,
	})
}

func registerAccount(t *testing.T, a *JZApp, ac *account) {
	t.Helper()
	mustOk(t, a.deliverTx(signedTx(t, ac, "auth/register_account", map[string]any{
		"account": ac.name,
		"pubKey":  ac.pubKey(),
	}), testNow))
}

func mint(t *testing.T, a *JZApp, to string, amount uint64) {
	t.Helper()
	mustOk(t, a.deliverTx(txBytes(t, "bank/mint", map[string]any{"to": to, "amount": amount}), testNow))
}

func mustOk(t *testing.T, res *abci.ExecTxResult) *abci.ExecTxResult {
	t.Helper()
	if res.Code != 0 {
		t.Fatalf("expected ok, got code=%d log=%q", res.Code, res.Log)
	}
	return res
}

func mustCode(t *testing.T, res *abci.ExecTxResult, code uint32) *abci.ExecTxResult {
	t.Helper()
	if res.Code != code {
		t.Fatalf("expected code=%d, got code=%d log=%q", code, res.Code, res.Log)
	}
	return res
}

func findEvent(events []abci.Event, typ string) *abci.Event {
	for i := range events {
		if events[i].Type == typ {
			return &events[i]
		}
	}
	return nil
}

func attr(ev *abci.Event, key string) string {
	if ev == nil {
		return ""
	}
	for _, a := range ev.Attributes {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

func parseU64(t *testing.T, s string) uint64 {
	t.Helper()
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		t.Fatalf("parse uint64 %q: %v", s, err)
	}
	return n
}

// fullOrder builds a 52-card ordering that starts with prefix and fills the
// remaining positions with the unused indexes in ascending order. Tests use
// it to script exactly which cards come off the top of the deck.
func fullOrder(t *testing.T, prefix ...uint8) []uint8 {
	t.Helper()
	used := make(map[uint8]bool, len(prefix))
	order := make([]uint8, 0, 52)
	for _, c := range prefix {
		if c > 51 || used[c] {
			t.Fatalf("bad prefix card %d", c)
		}
		used[c] = true
		order = append(order, c)
	}
	for c := uint8(0); c < 52; c++ {
		if !used[c] {
			order = append(order, c)
		}
	}
	return order
}

// deckUnder encrypts the ordering under pk with fixed randomness. The proof
// verifier is stubbed in tests, so handlers accept it as a shuffle output.
func deckUnder(t *testing.T, pk jzcrypto.Point, order []uint8) (jzshuffle.Deck, [][]byte) {
	t.Helper()
	if len(order) != jzshuffle.DeckSize {
		t.Fatalf("order has %d cards", len(order))
	}
	d := make(jzshuffle.Deck, jzshuffle.DeckSize)
	for i, c := range order {
		m, err := jzcrypto.EncodeCard(c)
		if err != nil {
			t.Fatalf("encode card %d: %v", c, err)
		}
		ct, err := jzcrypto.ElGamalEncrypt(pk, m, jzcrypto.ScalarFromUint64(uint64(1000+i)))
		if err != nil {
			t.Fatalf("encrypt card %d: %v", c, err)
		}
		d[i] = ct
	}
	blobs, err := jzshuffle.EncodeDeck(d)
	if err != nil {
		t.Fatalf("encode deck: %v", err)
	}
	return d, blobs
}

type gameFixture struct {
	a *JZApp
	v *stubVerifier

	dealer, player     *account
	dealerKP, playerKP jzcrypto.KeyPair

	// deck is the post-join deck, encrypted under the aggregated key.
	deck   jzshuffle.Deck
	gameID uint64
}

// setupCreated funds and registers both parties and opens a game with the
// scripted card order. Default config: min_bet 100, max_bet 100,000, escrow
// 10x max_bet = 1,000,000.
func setupCreated(t *testing.T, order []uint8) *gameFixture {
	t.Helper()
	a, v := newTestApp(t)

	f := &gameFixture{
		a:      a,
		v:      v,
		dealer: newAccount(t, "dealer"),
		player: newAccount(t, "player"),
	}
	registerAccount(t, a, f.dealer)
	registerAccount(t, a, f.player)
	mint(t, a, f.dealer.name, 1_000_000)
	mint(t, a, f.player.name, 200_000)

	var err error
	f.dealerKP, err = jzcrypto.GenerateKeyPair(rand.Reader)
	if err != nil {
		t.Fatalf("dealer keygen: %v", err)
	}
	f.playerKP, err = jzcrypto.GenerateKeyPair(rand.Reader)
	if err != nil {
		t.Fatalf("player keygen: %v", err)
	}

	_, blobs := deckUnder(t, f.dealerKP.Public, order)
	res := mustOk(t, a.deliverTx(signedTx(t, f.dealer, "blackjack/create_game", map[string]any{
		"dealer":       f.dealer.name,
		"publicKey":    f.dealerKP.Public.Bytes(),
		"shuffledDeck": blobs,
		"proof":        []byte("p"),
	}), testNow))
	f.gameID = parseU64(t, attr(findEvent(res.Events, "GameCreated"), "gameId"))
	return f
}

// setupJoined additionally seats the player with the given bet; the stored
// deck ends up under the aggregated key with the scripted order.
func setupJoined(t *testing.T, bet uint64, order []uint8) *gameFixture {
	t.Helper()
	f := setupCreated(t, order)

	aggPK, err := jzcrypto.AggregateKeys(f.dealerKP.Public, f.playerKP.Public)
	if err != nil {
		t.Fatalf("aggregate keys: %v", err)
	}
	deck, blobs := deckUnder(t, aggPK, order)
	f.deck = deck

	mustOk(t, f.a.deliverTx(signedTx(t, f.player, "blackjack/join_game", map[string]any{
		"gameId":       f.gameID,
		"player":       f.player.name,
		"bet":          bet,
		"publicKey":    f.playerKP.Public.Bytes(),
		"shuffledDeck": blobs,
		"proof":        []byte("p"),
	}), testNow))
	return f
}

func (f *gameFixture) game(t *testing.T) *state.GameSession {
	t.Helper()
	g := f.a.st.Games[f.gameID]
	if g == nil {
		t.Fatalf("game %d not in state", f.gameID)
	}
	return g
}

func (f *gameFixture) balance(name string) uint64 {
	return f.a.st.Balance(name)
}

func (f *gameFixture) submitShare(t *testing.T, ac *account, kp jzcrypto.KeyPair, idx uint32, now int64) *abci.ExecTxResult {
	t.Helper()
	share := jzreveal.Share(kp.Secret, f.deck[idx])
	return f.a.deliverTx(signedTx(t, ac, "blackjack/submit_reveal", map[string]any{
		"gameId":    f.gameID,
		"sender":    ac.name,
		"cardIndex": idx,
		"share":     share.Bytes(),
		"proof":     []byte("p"),
	}), now)
}

// revealBoth submits both parties' shares for one deck position.
func (f *gameFixture) revealBoth(t *testing.T, idx uint32) {
	t.Helper()
	mustOk(t, f.submitShare(t, f.dealer, f.dealerKP, idx, testNow))
	mustOk(t, f.submitShare(t, f.player, f.playerKP, idx, testNow))
}

// revealAllPending drains every outstanding reveal, including ones queued by
// the dealer's forced play while draining.
func (f *gameFixture) revealAllPending(t *testing.T) {
	t.Helper()
	for i := 0; i < jzshuffle.DeckSize; i++ {
		pending := f.game(t).PendingReveals()
		if len(pending) == 0 {
			return
		}
		f.revealBoth(t, pending[0])
	}
	t.Fatalf("reveals never drained")
}
