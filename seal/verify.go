package seal

import (
	"bytes"
	"crypto"
	"errors"
	"fmt"

	"github.com/datatrails/go-datatrails-common/cbor"
	dtcose "github.com/datatrails/go-datatrails-common/cose"
	"github.com/ethereum/go-ethereum/common"
	"github.com/forestrie/go-logindex/logindex"
	"github.com/ldclabs/cose/go/cwt"
	"github.com/veraison/go-cose"
)

var (
	ErrRootMismatch   = errors.New("seal: recomputed root does not verify")
	ErrParamsMismatch = errors.New("seal: signed state is for different index params")
	ErrIssuerMismatch = errors.New("seal: signed by an unexpected issuer or subject")
)

type publicKeyProvider interface {
	PublicKey() (crypto.PublicKey, cose.Algorithm, error)
}

// DecodeSignedRoot decodes the IndexState from a signed message. The state
// has no root and will not verify until one is supplied, see VerifySignedRoot.
func DecodeSignedRoot(codec cbor.CBORCodec, msg []byte) (*dtcose.CoseSign1Message, IndexState, error) {
	signed, err := dtcose.NewCoseSign1MessageFromCBOR(msg, newDecOptions()...)
	if err != nil {
		return nil, IndexState{}, err
	}

	var unverifiedState IndexState
	if err = codec.UnmarshalInto(signed.Payload, &unverifiedState); err != nil {
		return nil, IndexState{}, err
	}
	return signed, unverifiedState, nil
}

// VerifySignedRoot applies the state to the signed message and verifies the
// result.
//
// Verification takes three steps:
//  1. DecodeSignedRoot recovers the state, without its root.
//  2. The root of the index at state.NextEntry is recomputed, or read from a
//     trusted replica of the index.
//  3. The state, with that root set, is passed here.
func VerifySignedRoot(
	codec cbor.CBORCodec, keyProvider publicKeyProvider, signed *dtcose.CoseSign1Message, unverifiedState IndexState, external []byte) error {

	var err error
	signed.Payload, err = codec.MarshalCBOR(unverifiedState)
	if err != nil {
		return err
	}
	return signed.VerifyWithProvider(keyProvider, external)
}

// VerifyRoot is VerifySignedRoot for a root held as a hash, recomputed by an
// index with the given params. A state signed for other params, or for none,
// fails with ErrParamsMismatch.
func VerifyRoot(
	codec cbor.CBORCodec, keyProvider publicKeyProvider, signed *dtcose.CoseSign1Message, state IndexState,
	root common.Hash, params logindex.Params) error {

	want, err := codec.MarshalCBOR(params)
	if err != nil {
		return err
	}
	if !bytes.Equal(want, state.Params) {
		return ErrParamsMismatch
	}
	state.Root = root.Bytes()
	if err := VerifySignedRoot(codec, keyProvider, signed, state, nil); err != nil {
		return errors.Join(ErrRootMismatch, err)
	}
	return nil
}

// VerifyIssuer checks the CWT claims the seal was signed with name the
// expected issuer and subject. It says nothing about the signature, which is
// checked by VerifySignedRoot.
func VerifyIssuer(signed *dtcose.CoseSign1Message, issuer, subject string) error {
	raw, ok := signed.Headers.Protected[dtcose.HeaderLabelCWTClaims]
	if !ok {
		return fmt.Errorf("%w: no cwt claims", ErrIssuerMismatch)
	}
	claims, ok := raw.(map[any]any)
	if !ok {
		return fmt.Errorf("%w: cwt claims are a %T", ErrIssuerMismatch, raw)
	}
	if got, _ := claims[int64(cwt.KeyIss)].(string); got != issuer {
		return fmt.Errorf("%w: issuer %q", ErrIssuerMismatch, got)
	}
	if got, _ := claims[int64(cwt.KeySub)].(string); got != subject {
		return fmt.Errorf("%w: subject %q", ErrIssuerMismatch, got)
	}
	return nil
}
