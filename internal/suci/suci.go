// Package suci conceals subscription permanent identifiers into SUCIs
// using the ECIES protection schemes of 3GPP TS 33.501 Annex C.
package suci

import (
	"crypto/ecdh"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/curve25519"
)

// Scheme is a SUCI protection scheme identifier.
type Scheme int

// Supported protection schemes.
const (
	NullScheme Scheme = 0
	ProfileA   Scheme = 1
	ProfileB   Scheme = 2
)

// String implements fmt.Stringer.
func (s Scheme) String() string {
	switch s {
	case NullScheme:
		return "null"
	case ProfileA:
		return "profileA"
	case ProfileB:
		return "profileB"
	default:
		return "scheme(" + strconv.Itoa(int(s)) + ")"
	}
}

// Sentinel errors.
var (
	ErrUnsupportedScheme = errors.New("unsupported protection scheme")
	ErrInvalidKey        = errors.New("invalid home network key")
	ErrInvalidSUPI       = errors.New("invalid SUPI")
	ErrInvalidSUCI       = errors.New("invalid SUCI")
	ErrMACMismatch       = errors.New("SUCI MAC tag mismatch")
)

const suciPrefix = "suci"

// supiTypeIMSI is the SUPI type digit for IMSI based identifiers.
const supiTypeIMSI = "0"

// HomeNetworkKey is a home network key pair for one protection scheme.
// Keys are hex encoded. The private key is only needed to deconceal; when
// PublicKey is empty it is derived from PrivateKey.
type HomeNetworkKey struct {
	Scheme     Scheme
	KeyID      int
	PrivateKey string
	PublicKey  string
}

// PublicKeyBytes returns the decoded public key, deriving it from the
// private key if necessary. Profile B public keys are returned compressed.
func (k HomeNetworkKey) PublicKeyBytes() ([]byte, error) {
	if k.PublicKey != "" {
		b, err := hex.DecodeString(k.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("%w: public key: %v", ErrInvalidKey, err)
		}
		return b, nil
	}

	priv, err := k.privateKeyBytes()
	if err != nil {
		return nil, err
	}
	switch k.Scheme {
	case ProfileA:
		pub, err := curve25519.X25519(priv, curve25519.Basepoint)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return pub, nil
	case ProfileB:
		key, err := ecdh.P256().NewPrivateKey(priv)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return compressP256(key.PublicKey().Bytes()), nil
	default:
		return nil, fmt.Errorf("%w: %s has no key", ErrUnsupportedScheme, k.Scheme)
	}
}

// PublicKeyHex returns PublicKeyBytes hex encoded.
func (k HomeNetworkKey) PublicKeyHex() (string, error) {
	b, err := k.PublicKeyBytes()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (k HomeNetworkKey) privateKeyBytes() ([]byte, error) {
	if k.PrivateKey == "" {
		return nil, fmt.Errorf("%w: private key is empty", ErrInvalidKey)
	}
	b, err := hex.DecodeString(k.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: private key: %v", ErrInvalidKey, err)
	}
	return b, nil
}

// ConcealMSIN returns the scheme output for msin: the ephemeral public
// key, the cipher text and the MAC tag, each hex encoded and concatenated.
// The null scheme returns msin unchanged.
func ConcealMSIN(key HomeNetworkKey, msin string, rand io.Reader) (string, error) {
	if key.Scheme == NullScheme {
		return msin, nil
	}
	plain, err := encodeMSIN(msin)
	if err != nil {
		return "", err
	}
	pub, err := key.PublicKeyBytes()
	if err != nil {
		return "", err
	}
	s, err := seal(key.Scheme, pub, plain, rand)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(s.ephemeralPub) + hex.EncodeToString(s.cipherText) + hex.EncodeToString(s.mac), nil
}

// DeconcealMSIN reverses ConcealMSIN with the home network private key.
func DeconcealMSIN(key HomeNetworkKey, schemeOutput string) (string, error) {
	if key.Scheme == NullScheme {
		return schemeOutput, nil
	}
	raw, err := hex.DecodeString(schemeOutput)
	if err != nil {
		return "", fmt.Errorf("%w: scheme output: %v", ErrInvalidSUCI, err)
	}

	pubLen := x25519KeyLen
	if key.Scheme == ProfileB {
		pubLen = p256CompressedLen
	}
	if len(raw) <= pubLen+macLen {
		return "", fmt.Errorf("%w: scheme output too short", ErrInvalidSUCI)
	}
	s := &sealed{
		ephemeralPub: raw[:pubLen],
		cipherText:   raw[pubLen : len(raw)-macLen],
		mac:          raw[len(raw)-macLen:],
	}

	priv, err := key.privateKeyBytes()
	if err != nil {
		return "", err
	}
	plain, err := open(key.Scheme, priv, s)
	if err != nil {
		return "", err
	}
	return decodeMSIN(plain), nil
}

// FromSUPI builds the SUCI for an IMSI based supi of the given PLMN:
// suci-0-<mcc>-<mnc>-<routingIndicator>-<scheme>-<keyId>-<schemeOutput>.
// A supi that is already a SUCI is returned unchanged.
func FromSUPI(supi, mcc, mnc, routingIndicator string, key HomeNetworkKey, rand io.Reader) (string, error) {
	prefix, digits, ok := strings.Cut(supi, "-")
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidSUPI, supi)
	}
	switch prefix {
	case suciPrefix:
		return supi, nil
	case "imsi":
	default:
		return "", fmt.Errorf("%w: unsupported prefix %q", ErrInvalidSUPI, prefix)
	}
	if mcc == "" || mnc == "" {
		return "", fmt.Errorf("%w: missing PLMN", ErrInvalidSUPI)
	}
	if !strings.HasPrefix(digits, mcc+mnc) || len(digits) <= len(mcc)+len(mnc) {
		return "", fmt.Errorf("%w: %q does not start with PLMN %s%s", ErrInvalidSUPI, supi, mcc, mnc)
	}
	if routingIndicator == "" {
		routingIndicator = "0000"
	}

	out, err := ConcealMSIN(key, digits[len(mcc)+len(mnc):], rand)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{
		suciPrefix, supiTypeIMSI, mcc, mnc, routingIndicator,
		strconv.Itoa(int(key.Scheme)), strconv.Itoa(key.KeyID), out,
	}, "-"), nil
}

// Parts is a SUCI split into its fields.
type Parts struct {
	MCC              string
	MNC              string
	RoutingIndicator string
	Scheme           Scheme
	KeyID            int
	SchemeOutput     string
}

// Parse splits a SUCI string built by FromSUPI.
func Parse(s string) (*Parts, error) {
	fields := strings.Split(s, "-")
	if len(fields) != 8 || fields[0] != suciPrefix || fields[1] != supiTypeIMSI {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSUCI, s)
	}
	scheme, err := strconv.Atoi(fields[5])
	if err != nil {
		return nil, fmt.Errorf("%w: scheme %q", ErrInvalidSUCI, fields[5])
	}
	keyID, err := strconv.Atoi(fields[6])
	if err != nil {
		return nil, fmt.Errorf("%w: key id %q", ErrInvalidSUCI, fields[6])
	}
	return &Parts{
		MCC:              fields[2],
		MNC:              fields[3],
		RoutingIndicator: fields[4],
		Scheme:           Scheme(scheme),
		KeyID:            keyID,
		SchemeOutput:     fields[7],
	}, nil
}

// encodeMSIN packs MSIN digits two per byte, padding an odd length with F.
func encodeMSIN(msin string) ([]byte, error) {
	if msin == "" {
		return nil, fmt.Errorf("%w: empty MSIN", ErrInvalidSUPI)
	}
	for _, r := range msin {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("%w: MSIN %q is not numeric", ErrInvalidSUPI, msin)
		}
	}
	if len(msin)%2 == 1 {
		msin += "f"
	}
	return hex.DecodeString(msin)
}

func decodeMSIN(b []byte) string {
	return strings.TrimSuffix(hex.EncodeToString(b), "f")
}
