// Package seal signs the state of a log index.
//
// A seal is a COSE Sign1 message over an IndexState. The root is removed from
// the payload after signing, so a verifier has to recompute it from the index
// at NextEntry before the signature will check.
package seal

import (
	"crypto/ecdsa"
	"crypto/rand"

	dtcbor "github.com/datatrails/go-datatrails-common/cbor"
	dtcose "github.com/datatrails/go-datatrails-common/cose"
	"github.com/forestrie/go-logindex/logindex"
	"github.com/veraison/go-cose"
)

// IndexState is the signed commitment to the head of a log index
type IndexState struct {
	// NextEntry is the number of index entries, padding included. The root
	// commits to it, so a root and its entry count can not be mismatched.
	NextEntry uint64 `cbor:"1,keyasint"`
	Root      []byte `cbor:"2,keyasint"`
	// Timestamp is the unix time (milliseconds) read when the root was
	// signed. It allows the same root to be re-signed.
	Timestamp int64 `cbor:"3,keyasint"`
	// Params is the CBOR encoding of the index dimensions, binding the state
	// to a tree layout
	Params []byte `cbor:"4,keyasint,omitempty"`
}

// NewIndexState reads the state to sign from the head of a log index. The
// params are encoded with codec, the codec the seal is encoded with.
func NewIndexState(codec dtcbor.CBORCodec, s *logindex.State, timestamp int64) (IndexState, error) {
	root, err := s.Root()
	if err != nil {
		return IndexState{}, err
	}
	params, err := codec.MarshalCBOR(s.Params())
	if err != nil {
		return IndexState{}, err
	}
	return IndexState{
		NextEntry: s.NextEntry(),
		Root:      root.Bytes(),
		Timestamp: timestamp,
		Params:    params,
	}, nil
}

// RootSigner produces a signature over a log index state. The signature
// commits to the state, and should only be published after checking the new
// state extends the last signed one.
type RootSigner struct {
	issuer    string
	cborCodec dtcbor.CBORCodec
}

func NewRootSigner(issuer string, cborCodec dtcbor.CBORCodec) RootSigner {
	return RootSigner{
		issuer:    issuer,
		cborCodec: cborCodec,
	}
}

// Sign1 signs the state and returns the encoded message with the root
// detached.
func (rs RootSigner) Sign1(coseSigner cose.Signer, keyIdentifier string, publicKey *ecdsa.PublicKey, subject string, state IndexState, external []byte) ([]byte, error) {
	payload, err := rs.cborCodec.MarshalCBOR(state)
	if err != nil {
		return nil, err
	}

	msg := cose.Sign1Message{
		Headers: cose.Headers{
			Protected: cose.ProtectedHeader{
				dtcose.HeaderLabelCWTClaims: dtcose.NewCNFClaim(
					rs.issuer, subject, keyIdentifier, coseSigner.Algorithm(), *publicKey),
			},
		},
		Payload: payload,
	}
	if err = msg.Sign(rand.Reader, external, coseSigner); err != nil {
		return nil, err
	}

	// verifiers must obtain the root from the index itself
	state.Root = nil
	if msg.Payload, err = rs.cborCodec.MarshalCBOR(state); err != nil {
		return nil, err
	}
	return msg.MarshalCBOR()
}

func NewRootSignerCodec() (dtcbor.CBORCodec, error) {
	codec, err := dtcbor.NewCBORCodec(
		dtcbor.NewDeterministicEncOpts(),
		dtcbor.NewDeterministicDecOpts(), // unsigned int decodes to uint64
	)
	if err != nil {
		return dtcbor.CBORCodec{}, err
	}
	return codec, nil
}

func newDecOptions() []dtcose.SignOption {
	return []dtcose.SignOption{dtcose.WithDecOptions(dtcbor.NewDeterministicDecOpts())}
}
