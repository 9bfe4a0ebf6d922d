package dkgengine

import "errors"

// DkgError sentinels, per spec.md §7's DkgError taxonomy. Any of them
// terminates the current DKG attempt; the engine does not reset itself, so
// a fresh attempt starts after a ClearState call.
var (
	ErrNotEnoughPeerPublicKeys   = errors.New("dkgengine: not enough peer public keys collected")
	ErrInvalidNode               = errors.New("dkgengine: local node is not a master/validator")
	ErrPartCommitmentNotGenerated = errors.New("dkgengine: local part has not been generated yet")
	ErrPartMsgAlreadyAcknowledge = errors.New("dkgengine: part already acknowledged")
	ErrPartMsgMissingForNode     = errors.New("dkgengine: no part stored for node")
	ErrInvalidPartMessage        = errors.New("dkgengine: part message failed verification")
	ErrInvalidAckMessage         = errors.New("dkgengine: ack message raised a complaint")
	ErrNotEnoughPartsCompleted   = errors.New("dkgengine: generator is not certified yet")
	ErrGeneratorNotCreated       = errors.New("dkgengine: sync keygen instance not created")
)
