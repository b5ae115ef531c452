package zkproof

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/frontend"
)

type CircuitID string

const (
	CircuitShuffle CircuitID = "shuffle"
	CircuitReveal  CircuitID = "reveal"
)

var (
	// ErrWitnessComputationFailed: the assignment does not satisfy the
	// circuit (malformed or out-of-range inputs). Not retryable as-is.
	ErrWitnessComputationFailed = errors.New("witness computation failed")
	// ErrProvingBackendUnavailable: artifacts missing or unreadable.
	// Retryable once the backend is provisioned.
	ErrProvingBackendUnavailable = errors.New("proving backend unavailable")
)

type Proof []byte

// Backend is the opaque proving backend. Any concrete prover (in-process
// library, subprocess, remote service) can satisfy it.
type Backend interface {
	Generate(pc *ProverContext, id CircuitID, assignment frontend.Circuit) (Proof, error)
	Verify(id CircuitID, proof Proof, publicInputs []string) (bool, error)
}

// GnarkBackend proves and verifies with in-process Groth16 over artifacts
// from an ArtifactStore.
type GnarkBackend struct {
	store *ArtifactStore
}

func NewGnarkBackend(store *ArtifactStore) *GnarkBackend {
	return &GnarkBackend{store: store}
}

func (b *GnarkBackend) Generate(pc *ProverContext, id CircuitID, assignment frontend.Circuit) (Proof, error) {
	if err := pc.Err(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrWitnessComputationFailed)
	}
	art, err := b.store.circuit(id)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrProvingBackendUnavailable)
	}
	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrWitnessComputationFailed)
	}
	proof, err := groth16.Prove(art.ccs, art.pk, w)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrWitnessComputationFailed)
	}
	if err := pc.Err(); err != nil {
		// Abandoned mid-flight: the submission never happened, drop the proof.
		return nil, fmt.Errorf("%v: %w", err, ErrWitnessComputationFailed)
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode proof: %w", err)
	}
	return buf.Bytes(), nil
}

func (b *GnarkBackend) Verify(id CircuitID, proof Proof, publicInputs []string) (bool, error) {
	art, err := b.store.circuit(id)
	if err != nil {
		return false, fmt.Errorf("%v: %w", err, ErrProvingBackendUnavailable)
	}
	pw, err := publicWitness(publicInputs)
	if err != nil {
		return false, nil
	}
	p := groth16.NewProof(ecc.BN254)
	if _, err := p.ReadFrom(bytes.NewReader(proof)); err != nil {
		return false, nil
	}
	if err := groth16.Verify(p, art.vk, pw); err != nil {
		return false, nil
	}
	return true, nil
}

func publicWitness(publics []string) (witness.Witness, error) {
	w, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}
	vals := make(chan any, len(publics))
	for _, s := range publics {
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("public input %q is not a decimal field element", s)
		}
		vals <- v
	}
	close(vals)
	if err := w.Fill(len(publics), 0, vals); err != nil {
		return nil, err
	}
	return w, nil
}
