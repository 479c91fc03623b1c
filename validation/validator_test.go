package validation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polkadot-go/synccore/digest"
	"github.com/polkadot-go/synccore/types"
)

type fakeVerifier struct {
	slotOK, sigOK bool
	primary       bool
}

func (f fakeVerifier) VerifySlotClaim([32]byte, uint32, []byte) (bool, bool) {
	return f.primary, f.slotOK
}
func (f fakeVerifier) VerifyHeaderSignature(types.Hash, []byte, uint32) bool { return f.sigOK }
func (f fakeVerifier) VerifyJustification(types.Justification, digest.AuthoritySet) bool {
	return true
}

func newHeader(parent types.Hash, primary bool) types.Header {
	proofPayload := append([]byte{primarySlotTagForTest(primary), 0, 0, 0, 1}, []byte("proof")...)
	return types.Header{
		ParentHash: parent,
		Number:     1,
		Digests: []types.DigestItem{
			{Kind: types.DigestPreRuntime, Engine: types.EngineBABE, Payload: proofPayload},
			{Kind: types.DigestSeal, Payload: []byte("sig")},
		},
	}
}

func primarySlotTagForTest(primary bool) byte {
	if primary {
		return 1
	}
	return 0
}

func TestValidateStructureRejectsWrongParent(t *testing.T) {
	v := NewBlockValidator(fakeVerifier{}, nil, nil)
	h := newHeader(types.Hash{0x01}, true)
	require.ErrorIs(t, v.ValidateStructure(types.Hash{0x02}, h), ErrBadParentLink)
}

func TestValidateStructureRejectsDigestAfterSeal(t *testing.T) {
	v := NewBlockValidator(fakeVerifier{}, nil, nil)
	h := types.Header{
		Digests: []types.DigestItem{
			{Kind: types.DigestSeal},
			{Kind: types.DigestPreRuntime},
		},
	}
	require.ErrorIs(t, v.ValidateStructure(types.Hash{}, h), ErrMalformedDigests)
}

func TestObserveDigestsAndValidateHeaderCommitsOnSuccess(t *testing.T) {
	repo := digest.NewConfigRepository(digest.Config{})
	tracker := digest.NewDigestTracker(repo, nil)
	verifier := fakeVerifier{slotOK: true, sigOK: true, primary: true}
	v := NewBlockValidator(verifier, tracker, nil)

	h := newHeader(types.Hash{}, true)
	guard, err := v.ObserveDigestsAndValidateHeader(types.Hash{0x9}, h)
	require.NoError(t, err)
	guard.Commit()
}

func TestObserveDigestsAndValidateHeaderRollsBackOnBadSignature(t *testing.T) {
	repo := digest.NewConfigRepository(digest.Config{})
	tracker := digest.NewDigestTracker(repo, nil)
	verifier := fakeVerifier{slotOK: true, sigOK: false, primary: true}
	v := NewBlockValidator(verifier, tracker, nil)

	h := newHeader(types.Hash{}, true)
	_, err := v.ObserveDigestsAndValidateHeader(types.Hash{0xA}, h)
	require.ErrorIs(t, err, ErrBadSignature)
}
