package validation

import "errors"

// Validation error category (spec.md §7): all rejections here cause
// the caller to discard the block and its descendants and penalize
// the source peer.
var (
	ErrBadParentLink    = errors.New("validation: header parent link does not match expected ancestor")
	ErrBadSlotClaim     = errors.New("validation: VRF slot output fails threshold check")
	ErrBadSignature     = errors.New("validation: header not signed by the scheduled authority")
	ErrMalformedDigests = errors.New("validation: digest list is malformed or out of order")
)
