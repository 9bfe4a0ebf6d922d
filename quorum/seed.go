package quorum

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/vrrb-io/vrrb-consensus/types"
)

// KeyPair is the narrow signing capability GenerateSeed needs: a node's
// public key bytes and the ability to sign an arbitrary message with its
// secret key. *signer.Signer satisfies it.
type KeyPair interface {
	PublicKey() []byte
	Sign(msg []byte) ([]byte, error)
}

// GenerateSeed derives the per-round election Seed from the previous block's
// height and hash, signed by kp. Grounded on
// original_source crates/consensus/quorum/src/lib.rs's generate_seed tests:
// it rejects blockHeight == 0 (no prior block to seed from) and is
// deterministic for identical (blockHeight, prevHash, kp).
func GenerateSeed(blockHeight uint64, prevHash []byte, kp KeyPair) (types.Seed, error) {
	if blockHeight == 0 {
		return 0, fmt.Errorf("quorum: %w: block_height must be >= 1", ErrInvalidSeed)
	}

	pubkeyHash := sha256.Sum256(kp.PublicKey())
	tagged := append(pubkeyHash[:], 0x01)
	doubled := sha256.Sum256(tagged[:])
	firstPass := sha256.Sum256(doubled[:])

	var heightBytes [8]byte
	binary.BigEndian.PutUint64(heightBytes[:], blockHeight)
	msg := append(heightBytes[:], prevHash...)

	sig, err := kp.Sign(msg)
	if err != nil {
		return 0, fmt.Errorf("quorum: sign seed payload: %w", err)
	}

	combined := sha256.New()
	combined.Write(firstPass[:])
	combined.Write(sig)
	sum := combined.Sum(nil)

	return types.Seed(binary.BigEndian.Uint64(sum[len(sum)-8:])), nil
}
