package codec

import (
	"encoding/json"
	"fmt"
)

// TxEnvelope is the v1 transaction container.
//
// CometBFT transactions are opaque bytes; we use JSON-encoded txs with a
// type/value split so handlers can route before decoding the payload.
type TxEnvelope struct {
	// Basic routing.
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`

	// Tx auth:
	// - Nonce: included in the signed message for replay protection (must increase per signer).
	// - Signer: account address the signature is checked against.
	// - Sig: Ed25519 signature over (type, nonce, signer, sha256(value)).
	Nonce  string `json:"nonce,omitempty"`
	Signer string `json:"signer,omitempty"`
	Sig    []byte `json:"sig,omitempty"`
}

func DecodeTxEnvelope(txBytes []byte) (TxEnvelope, error) {
	var env TxEnvelope
	if err := json.Unmarshal(txBytes, &env); err != nil {
		return TxEnvelope{}, fmt.Errorf("invalid tx json: %w", err)
	}
	if env.Type == "" {
		return TxEnvelope{}, fmt.Errorf("missing tx.type")
	}
	return env, nil
}

// ---- Bank ----

type BankMintTx struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type BankSendTx struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// ---- Auth ----

// Account pubkey registration for tx authentication.
type AuthRegisterAccountTx struct {
	Account string `json:"account"`
	PubKey  []byte `json:"pubKey"` // base64 (32 bytes)
}

// ---- Blackjack ----

// BlackjackCreateGameTx opens a table. The dealer submits the deck after its
// own shuffle over the base ordering, together with a shuffle proof whose
// remaining public inputs the chain derives itself.
type BlackjackCreateGameTx struct {
	Dealer    string   `json:"dealer"`
	PublicKey []byte   `json:"publicKey"`         // game curve point (32 bytes)
	Deck      [][]byte `json:"shuffledDeck"`      // 52 ciphertexts, 64 bytes each
	Proof     []byte   `json:"proof"`             // opaque proof bytes
	Escrow    uint64   `json:"escrow,omitempty"`  // optional extra escrow on top of the required minimum
}

// BlackjackJoinGameTx takes the player seat: places the bet and re-shuffles
// the stored deck onto the aggregated key (the proof's key-switch term binds
// the player secret to PublicKey).
type BlackjackJoinGameTx struct {
	GameID    uint64   `json:"gameId"`
	Player    string   `json:"player"`
	Bet       uint64   `json:"bet"`
	PublicKey []byte   `json:"publicKey"`
	Deck      [][]byte `json:"shuffledDeck"`
	Proof     []byte   `json:"proof"`
}

// BlackjackActionTx covers hit, stand, double_down, split and surrender; the
// envelope type selects the action.
type BlackjackActionTx struct {
	GameID uint64 `json:"gameId"`
	Player string `json:"player"`
}

// BlackjackSubmitRevealTx contributes one party's decryption share for one
// card position, with a reveal proof. The statement's public inputs are
// derived on-chain from the stored ciphertext, the submitted share and the
// sender's registered game key.
type BlackjackSubmitRevealTx struct {
	GameID    uint64 `json:"gameId"`
	Sender    string `json:"sender"`
	CardIndex uint32 `json:"cardIndex"`
	Share     []byte `json:"share"` // curve point (32 bytes)
	Proof     []byte `json:"proof"`
}

type BlackjackClaimTimeoutTx struct {
	GameID  uint64 `json:"gameId"`
	Claimer string `json:"claimer"`
}

type BlackjackCancelGameTx struct {
	GameID uint64 `json:"gameId"`
	Dealer string `json:"dealer"`
}

type BlackjackSweepSettledTx struct {
	GameIDs []uint64 `json:"gameIds"`
}
