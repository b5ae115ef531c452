// Package app is the ABCI application: a two-party blackjack ledger where
// every deck operation is backed by a verified zero-knowledge proof.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/rs/zerolog"

	"github.com/reliqlabs/juodzekas/internal/codec"
	"github.com/reliqlabs/juodzekas/internal/state"
	"github.com/reliqlabs/juodzekas/internal/zkproof"
)

const (
	AppVersion uint64 = 1
)

type JZApp struct {
	*abci.BaseApplication

	home     string
	log      zerolog.Logger
	verifier zkproof.Verifier

	mu       sync.Mutex
	st       *state.State
	lastHash []byte
}

func New(home string, log zerolog.Logger, verifier zkproof.Verifier) (*JZApp, error) {
	if verifier == nil {
		return nil, fmt.Errorf("nil proof verifier")
	}
	appHome := filepath.Join(home, "app")
	st, err := state.Load(appHome)
	if err != nil {
		return nil, err
	}
	a := &JZApp{
		BaseApplication: abci.NewBaseApplication(),
		home:            home,
		log:             log,
		verifier:        verifier,
		st:              st,
		lastHash:        st.AppHash(),
	}
	return a, nil
}

func (a *JZApp) Info(_ context.Context, _ *abci.InfoRequest) (*abci.InfoResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return &abci.InfoResponse{
		Data:             "juodzekas",
		Version:          "v1",
		AppVersion:       AppVersion,
		LastBlockHeight:  a.st.Height,
		LastBlockAppHash: a.lastHash,
	}, nil
}

func (a *JZApp) CheckTx(_ context.Context, req *abci.CheckTxRequest) (*abci.CheckTxResponse, error) {
	// Structural validation only; auth and semantics run at FinalizeBlock.
	_, err := codec.DecodeTxEnvelope(req.Tx)
	if err != nil {
		return &abci.CheckTxResponse{Code: codeGeneric, Log: err.Error()}, nil
	}
	return &abci.CheckTxResponse{Code: 0}, nil
}

// genesisAppState is the expected shape of the genesis app_state document.
type genesisAppState struct {
	Config   *state.Config     `json:"config,omitempty"`
	Accounts map[string]uint64 `json:"accounts,omitempty"`
}

func (a *JZApp) InitChain(_ context.Context, req *abci.InitChainRequest) (*abci.InitChainResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(req.AppStateBytes) > 0 {
		var gen genesisAppState
		if err := json.Unmarshal(req.AppStateBytes, &gen); err != nil {
			return nil, fmt.Errorf("invalid genesis app_state: %w", err)
		}
		if gen.Config != nil {
			if err := gen.Config.Validate(); err != nil {
				return nil, fmt.Errorf("genesis config: %w", err)
			}
			a.st.Config = *gen.Config
		}
		for addr, bal := range gen.Accounts {
			if err := a.st.Credit(addr, bal); err != nil {
				return nil, fmt.Errorf("genesis account %q: %w", addr, err)
			}
		}
	}

	a.lastHash = a.st.AppHash()
	a.log.Info().Str("denom", a.st.Config.Denom).Msg("chain initialized")
	return &abci.InitChainResponse{AppHash: a.lastHash}, nil
}

func (a *JZApp) FinalizeBlock(_ context.Context, req *abci.FinalizeBlockRequest) (*abci.FinalizeBlockResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.st.Height = req.Height
	nowUnix := req.Time.Unix()

	txResults := make([]*abci.ExecTxResult, 0, len(req.Txs))
	for _, txBytes := range req.Txs {
		res := a.deliverTx(txBytes, nowUnix)
		txResults = append(txResults, res)
	}

	a.lastHash = a.st.AppHash()

	return &abci.FinalizeBlockResponse{
		TxResults: txResults,
		AppHash:   a.lastHash,
	}, nil
}

func (a *JZApp) Commit(_ context.Context, _ *abci.CommitRequest) (*abci.CommitResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	appHome := filepath.Join(a.home, "app")
	if err := a.st.Save(appHome); err != nil {
		// CometBFT expects Commit to not crash; return error so node halts loudly.
		return nil, err
	}
	return &abci.CommitResponse{}, nil
}

func (a *JZApp) Query(_ context.Context, req *abci.QueryRequest) (*abci.QueryResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Paths:
	// - /config
	// - /game/<id>
	// - /games[?status=<status>]
	// - /account/<addr>
	path := strings.TrimSpace(req.Path)
	switch {
	case path == "/config":
		b, _ := json.Marshal(a.st.Config)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil

	case path == "/games" || strings.HasPrefix(path, "/games?"):
		var filter state.GameStatus
		if _, q, ok := strings.Cut(path, "?"); ok {
			v, err := parseStatusQuery(q)
			if err != nil {
				return &abci.QueryResponse{Code: codeGeneric, Log: err.Error(), Height: a.st.Height}, nil
			}
			filter = v
		}
		ids := make([]uint64, 0, len(a.st.Games))
		for id, g := range a.st.Games {
			if filter != "" && g.Status != filter {
				continue
			}
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		b, _ := json.Marshal(ids)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil

	case strings.HasPrefix(path, "/game/"):
		raw := strings.TrimPrefix(path, "/game/")
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return &abci.QueryResponse{Code: codeGeneric, Log: "invalid game id", Height: a.st.Height}, nil
		}
		g, ok := a.st.Games[id]
		if !ok {
			return &abci.QueryResponse{Code: codeGeneric, Log: "game not found", Height: a.st.Height}, nil
		}
		b, _ := json.Marshal(g)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil

	case strings.HasPrefix(path, "/account/"):
		addr := strings.TrimPrefix(path, "/account/")
		bal := a.st.Balance(addr)
		b, _ := json.Marshal(map[string]any{"addr": addr, "balance": bal, "denom": a.st.Config.Denom})
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil

	default:
		return &abci.QueryResponse{Code: codeGeneric, Log: "unknown query path", Height: a.st.Height}, nil
	}
}

func parseStatusQuery(q string) (state.GameStatus, error) {
	k, v, ok := strings.Cut(q, "=")
	if !ok || k != "status" {
		return "", fmt.Errorf("unknown query parameter %q", q)
	}
	s := state.GameStatus(v)
	switch s {
	case state.GameCreated, state.GameJoined, state.GameInProgress, state.GameAwaitingReveal, state.GameResolved:
		return s, nil
	}
	return "", fmt.Errorf("unknown status %q", v)
}

// deliverTx executes one transaction against a staged copy of state; the
// copy replaces live state only on success, so a rejected tx can never leave
// a partial mutation behind.
func (a *JZApp) deliverTx(txBytes []byte, nowUnix int64) *abci.ExecTxResult {
	env, err := codec.DecodeTxEnvelope(txBytes)
	if err != nil {
		return &abci.ExecTxResult{Code: codeGeneric, Log: err.Error()}
	}

	staged, err := a.st.Clone()
	if err != nil {
		return &abci.ExecTxResult{Code: codeGeneric, Log: err.Error()}
	}
	staged.Height = a.st.Height

	res := a.execute(staged, env, nowUnix)
	if res.Code == 0 {
		a.st = staged
	} else {
		a.log.Debug().Str("type", env.Type).Uint32("code", res.Code).Str("log", res.Log).Msg("tx rejected")
	}
	return res
}

func (a *JZApp) execute(st *state.State, env codec.TxEnvelope, nowUnix int64) *abci.ExecTxResult {
	switch env.Type {
	case "bank/mint":
		// Devnet faucet; unauthenticated on purpose.
		var msg codec.BankMintTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return rejectf(codeGeneric, "bad bank/mint value")
		}
		if msg.To == "" || msg.Amount == 0 {
			return rejectf(codeGeneric, "missing to/amount")
		}
		if err := st.Credit(msg.To, msg.Amount); err != nil {
			return reject(err)
		}
		return okEvent("BankMinted", map[string]string{
			"to":     msg.To,
			"amount": fmt.Sprintf("%d", msg.Amount),
		})

	case "bank/send":
		var msg codec.BankSendTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return rejectf(codeGeneric, "bad bank/send value")
		}
		if msg.From == "" || msg.To == "" || msg.Amount == 0 {
			return rejectf(codeGeneric, "missing from/to/amount")
		}
		if err := requireAccountAuth(st, env, msg.From); err != nil {
			return reject(err)
		}
		if err := st.Debit(msg.From, msg.Amount); err != nil {
			return reject(err)
		}
		if err := st.Credit(msg.To, msg.Amount); err != nil {
			return reject(err)
		}
		return okEvent("BankSent", map[string]string{
			"from":   msg.From,
			"to":     msg.To,
			"amount": fmt.Sprintf("%d", msg.Amount),
		})

	case "auth/register_account":
		var msg codec.AuthRegisterAccountTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return rejectf(codeGeneric, "bad auth/register_account value")
		}
		if err := requireRegisterAccountAuth(env, msg); err != nil {
			return reject(err)
		}
		if existing := st.AccountKeys[msg.Account]; len(existing) != 0 {
			return rejectf(codeGeneric, "account already registered")
		}
		st.AccountKeys[msg.Account] = msg.PubKey
		if err := bumpNonce(st, env); err != nil {
			return reject(err)
		}
		return okEvent("AccountRegistered", map[string]string{"account": msg.Account})

	case "blackjack/create_game":
		return a.handleCreateGame(st, env, nowUnix)
	case "blackjack/join_game":
		return a.handleJoinGame(st, env, nowUnix)
	case "blackjack/hit", "blackjack/stand", "blackjack/double_down", "blackjack/split", "blackjack/surrender":
		return a.handleAction(st, env, nowUnix)
	case "blackjack/submit_reveal":
		return a.handleSubmitReveal(st, env, nowUnix)
	case "blackjack/claim_timeout":
		return a.handleClaimTimeout(st, env, nowUnix)
	case "blackjack/cancel_game":
		return a.handleCancelGame(st, env, nowUnix)
	case "blackjack/sweep_settled":
		return a.handleSweepSettled(st, env, nowUnix)

	default:
		return rejectf(codeGeneric, "unknown tx type: %s", env.Type)
	}
}

func okEvent(typ string, attrs map[string]string) *abci.ExecTxResult {
	ev := abci.Event{Type: typ}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ev.Attributes = append(ev.Attributes, abci.EventAttribute{Key: k, Value: attrs[k], Index: true})
	}
	return &abci.ExecTxResult{
		Code:   0,
		Events: []abci.Event{ev},
	}
}

func reject(err error) *abci.ExecTxResult {
	return &abci.ExecTxResult{Code: codeFor(err), Log: err.Error()}
}

func rejectf(code uint32, format string, args ...any) *abci.ExecTxResult {
	return &abci.ExecTxResult{Code: code, Log: fmt.Sprintf(format, args...)}
}
