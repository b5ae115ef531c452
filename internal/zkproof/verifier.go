package zkproof

import "fmt"

// Verifier is the proof-verification collaborator the state machine
// delegates to. The chain holds verification-key identifiers in its config
// and never re-derives circuit constraints itself.
type Verifier interface {
	Verify(vkID string, publicInputs []string, proof []byte) (bool, error)
}

// BackendVerifier routes verification-key ids to circuits on a Backend.
type BackendVerifier struct {
	backend  Backend
	circuits map[string]CircuitID
}

func NewBackendVerifier(backend Backend, shuffleVkID, revealVkID string) (*BackendVerifier, error) {
	if backend == nil {
		return nil, fmt.Errorf("verifier: nil backend")
	}
	if shuffleVkID == "" || revealVkID == "" || shuffleVkID == revealVkID {
		return nil, fmt.Errorf("verifier: invalid verification key ids")
	}
	return &BackendVerifier{
		backend: backend,
		circuits: map[string]CircuitID{
			shuffleVkID: CircuitShuffle,
			revealVkID:  CircuitReveal,
		},
	}, nil
}

func (v *BackendVerifier) Verify(vkID string, publicInputs []string, proof []byte) (bool, error) {
	id, ok := v.circuits[vkID]
	if !ok {
		return false, fmt.Errorf("unknown verification key %q", vkID)
	}
	return v.backend.Verify(id, proof, publicInputs)
}
