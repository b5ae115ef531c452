package zkproof

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/rs/zerolog"
	"golang.org/x/exp/mmap"
)

// ArtifactStore holds the per-circuit constraint system, proving key and
// verification key. Artifacts load once per process and are never mutated
// afterwards; the proving key is memory-mapped since it is by far the
// largest file.
type ArtifactStore struct {
	dir string
	log zerolog.Logger

	mu       sync.Mutex
	circuits map[CircuitID]*artifact
}

type artifact struct {
	once sync.Once
	ccs  constraint.ConstraintSystem
	pk   groth16.ProvingKey
	vk   groth16.VerifyingKey
	err  error
}

func NewArtifactStore(dir string, log zerolog.Logger) *ArtifactStore {
	return &ArtifactStore{
		dir: dir,
		log: log,
		circuits: map[CircuitID]*artifact{
			CircuitShuffle: {},
			CircuitReveal:  {},
		},
	}
}

func (s *ArtifactStore) path(id CircuitID, ext string) string {
	return filepath.Join(s.dir, string(id)+ext)
}

func newCircuit(id CircuitID) (frontend.Circuit, error) {
	switch id {
	case CircuitShuffle:
		return NewShuffleCircuit(DeckSize), nil
	case CircuitReveal:
		return &RevealCircuit{}, nil
	default:
		return nil, fmt.Errorf("unknown circuit %q", id)
	}
}

// Setup compiles the named circuits and writes ccs/pk/vk files, skipping
// circuits whose artifacts already exist on disk. Intended for dev/test
// provisioning; production deployments ship ceremony output.
func (s *ArtifactStore) Setup(ids ...CircuitID) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir artifacts: %w", err)
	}
	for _, id := range ids {
		if _, err := os.Stat(s.path(id, ".vk")); err == nil {
			continue
		}
		circuit, err := newCircuit(id)
		if err != nil {
			return err
		}
		s.log.Info().Str("circuit", string(id)).Msg("compiling constraint system")
		ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuit)
		if err != nil {
			return fmt.Errorf("compile %s: %w", id, err)
		}
		s.log.Info().Str("circuit", string(id)).Int("constraints", ccs.GetNbConstraints()).Msg("running setup")
		pk, vk, err := groth16.Setup(ccs)
		if err != nil {
			return fmt.Errorf("setup %s: %w", id, err)
		}
		if err := writeArtifact(s.path(id, ".ccs"), ccs); err != nil {
			return err
		}
		if err := writeArtifact(s.path(id, ".pk"), pk); err != nil {
			return err
		}
		if err := writeArtifact(s.path(id, ".vk"), vk); err != nil {
			return err
		}
	}
	return nil
}

func writeArtifact(path string, src io.WriterTo) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if _, err := src.WriteTo(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// circuit returns the loaded artifact set for id, loading it on first use.
func (s *ArtifactStore) circuit(id CircuitID) (*artifact, error) {
	s.mu.Lock()
	a, ok := s.circuits[id]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown circuit %q", id)
	}
	a.once.Do(func() { a.err = s.load(id, a) })
	if a.err != nil {
		return nil, a.err
	}
	return a, nil
}

func (s *ArtifactStore) load(id CircuitID, a *artifact) error {
	ccs := groth16.NewCS(ecc.BN254)
	f, err := os.Open(s.path(id, ".ccs"))
	if err != nil {
		return fmt.Errorf("open constraint system: %w", err)
	}
	if _, err := ccs.ReadFrom(f); err != nil {
		f.Close()
		return fmt.Errorf("read constraint system: %w", err)
	}
	f.Close()

	vk := groth16.NewVerifyingKey(ecc.BN254)
	f, err = os.Open(s.path(id, ".vk"))
	if err != nil {
		return fmt.Errorf("open verification key: %w", err)
	}
	if _, err := vk.ReadFrom(f); err != nil {
		f.Close()
		return fmt.Errorf("read verification key: %w", err)
	}
	f.Close()

	// The proving key dominates artifact size; map it instead of buffering
	// the whole file.
	r, err := mmap.Open(s.path(id, ".pk"))
	if err != nil {
		return fmt.Errorf("mmap proving key: %w", err)
	}
	defer r.Close()
	pk := groth16.NewProvingKey(ecc.BN254)
	sr := io.NewSectionReader(r, 0, int64(r.Len()))
	if _, err := pk.UnsafeReadFrom(sr); err != nil {
		return fmt.Errorf("read proving key: %w", err)
	}

	s.log.Debug().Str("circuit", string(id)).Msg("artifacts loaded")
	a.ccs, a.pk, a.vk = ccs, pk, vk
	return nil
}
