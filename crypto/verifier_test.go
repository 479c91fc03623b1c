package crypto

import (
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/stretchr/testify/require"

	"github.com/polkadot-go/synccore/digest"
	"github.com/polkadot-go/synccore/types"
)

func newTestKey(t *testing.T) (*secp256k1.PrivateKey, []byte) {
	t.Helper()
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	return priv, priv.PubKey().SerializeCompressed()
}

func TestVerifyHeaderSignatureAccepted(t *testing.T) {
	priv, pub := newTestKey(t)
	reg, err := NewKeyRegistry(map[uint32][]byte{0: pub})
	require.NoError(t, err)
	v := NewVerifier(reg)

	headerHash := types.Hash{0x01, 0x02}
	sig := ecdsa.Sign(priv, headerHash[:])

	require.True(t, v.VerifyHeaderSignature(headerHash, sig.Serialize(), 0))
}

func TestVerifyHeaderSignatureRejectsWrongAuthority(t *testing.T) {
	priv, pub := newTestKey(t)
	reg, err := NewKeyRegistry(map[uint32][]byte{0: pub})
	require.NoError(t, err)
	v := NewVerifier(reg)

	headerHash := types.Hash{0x01}
	sig := ecdsa.Sign(priv, headerHash[:])

	require.False(t, v.VerifyHeaderSignature(headerHash, sig.Serialize(), 1))
}

func TestVerifySlotClaimAcceptsValidSignature(t *testing.T) {
	priv, pub := newTestKey(t)
	reg, err := NewKeyRegistry(map[uint32][]byte{3: pub})
	require.NoError(t, err)
	v := NewVerifier(reg)

	var randomness [32]byte
	copy(randomness[:], []byte("epoch-randomness-bytes-32-longg"))
	sig := ecdsa.Sign(priv, randomness[:])

	_, ok := v.VerifySlotClaim(randomness, 3, sig.Serialize())
	require.True(t, ok)
}

func TestVerifySlotClaimRejectsBadSignature(t *testing.T) {
	_, pub := newTestKey(t)
	reg, err := NewKeyRegistry(map[uint32][]byte{0: pub})
	require.NoError(t, err)
	v := NewVerifier(reg)

	var randomness [32]byte
	_, ok := v.VerifySlotClaim(randomness, 0, []byte("not-a-signature"))
	require.False(t, ok)
}

func TestVerifyJustificationRejectsUnknownAuthority(t *testing.T) {
	_, pub := newTestKey(t)
	reg, err := NewKeyRegistry(map[uint32][]byte{0: pub})
	require.NoError(t, err)
	v := NewVerifier(reg)

	set := digest.AuthoritySet{Authorities: []digest.Authority{{Index: 0, Weight: 1}}}
	just := types.Justification{
		Round: 1,
		PreCommits: []types.PreCommit{
			{TargetHash: types.Hash{0x01}, TargetNumber: 5, AuthorityIdx: 9, Signature: []byte("x")},
		},
	}
	require.False(t, v.VerifyJustification(just, set))
}

func TestVerifyJustificationAcceptsValidPreCommit(t *testing.T) {
	priv, pub := newTestKey(t)
	reg, err := NewKeyRegistry(map[uint32][]byte{0: pub})
	require.NoError(t, err)
	v := NewVerifier(reg)

	set := digest.AuthoritySet{Authorities: []digest.Authority{{Index: 0, Weight: 1}}}
	pc := types.PreCommit{TargetHash: types.Hash{0x02}, TargetNumber: 7, AuthorityIdx: 0}
	msg := preCommitSigningHash(1, pc)
	sig := ecdsa.Sign(priv, msg)
	pc.Signature = sig.Serialize()

	just := types.Justification{Round: 1, PreCommits: []types.PreCommit{pc}}
	require.True(t, v.VerifyJustification(just, set))
}
