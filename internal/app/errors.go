package app

import (
	"errors"

	"github.com/reliqlabs/juodzekas/internal/jzcrypto"
	"github.com/reliqlabs/juodzekas/internal/jzreveal"
)

// Rejection sentinels surfaced through ABCI result codes. Input validation
// errors reject before any state mutation; protocol violations reject the
// message and leave the session unchanged.
var (
	ErrInsufficientBankroll = errors.New("insufficient bankroll")
	ErrOutOfRangeBet        = errors.New("bet out of range")
	ErrInvalidProof         = errors.New("invalid proof")
	ErrIllegalAction        = errors.New("illegal action")
	ErrOutOfTurn            = errors.New("out of turn")
)

// ABCI result codes. Stable across releases: clients match on these.
const (
	codeGeneric              uint32 = 1
	codeInsufficientBankroll uint32 = 2
	codeOutOfRangeBet        uint32 = 3
	codeInvalidCurvePoint    uint32 = 4
	codeInvalidProof         uint32 = 5
	codeIllegalAction        uint32 = 6
	codeOutOfTurn            uint32 = 7
	codeIncompleteReveal     uint32 = 8
	codeInconsistentShare    uint32 = 9
)

func codeFor(err error) uint32 {
	switch {
	case errors.Is(err, ErrInsufficientBankroll):
		return codeInsufficientBankroll
	case errors.Is(err, ErrOutOfRangeBet):
		return codeOutOfRangeBet
	case errors.Is(err, jzcrypto.ErrInvalidCurvePoint):
		return codeInvalidCurvePoint
	case errors.Is(err, ErrInvalidProof):
		return codeInvalidProof
	case errors.Is(err, ErrIllegalAction):
		return codeIllegalAction
	case errors.Is(err, ErrOutOfTurn):
		return codeOutOfTurn
	case errors.Is(err, jzreveal.ErrIncompleteReveal):
		return codeIncompleteReveal
	case errors.Is(err, jzreveal.ErrInconsistentShare):
		return codeInconsistentShare
	default:
		return codeGeneric
	}
}
