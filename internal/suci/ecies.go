package suci

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/elliptic"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"

	"golang.org/x/crypto/curve25519"
)

// ECIES parameters shared by profiles A and B.
const (
	encKeyLen = 16
	icbLen    = 16
	macKeyLen = 32
	macLen    = 8

	x25519KeyLen      = 32
	p256CompressedLen = 33
)

// sealed is the output of one ECIES encryption.
type sealed struct {
	ephemeralPub []byte
	cipherText   []byte
	mac          []byte
}

// seal encrypts plain for the home network public key hnPub.
func seal(scheme Scheme, hnPub, plain []byte, rand io.Reader) (*sealed, error) {
	var ephPub, shared []byte
	var err error

	switch scheme {
	case ProfileA:
		ephPub, shared, err = x25519Agree(hnPub, rand)
	case ProfileB:
		ephPub, shared, err = p256Agree(hnPub, rand)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedScheme, scheme)
	}
	if err != nil {
		return nil, err
	}

	key := kdf(shared, ephPub, encKeyLen+icbLen+macKeyLen)
	ct, err := aes128ctr(plain, key[:encKeyLen], key[encKeyLen:encKeyLen+icbLen])
	if err != nil {
		return nil, err
	}
	return &sealed{
		ephemeralPub: ephPub,
		cipherText:   ct,
		mac:          tag(ct, key[encKeyLen+icbLen:]),
	}, nil
}

// open reverses seal with the home network private key hnPriv.
func open(scheme Scheme, hnPriv []byte, s *sealed) ([]byte, error) {
	var shared []byte
	var err error

	switch scheme {
	case ProfileA:
		shared, err = curve25519.X25519(hnPriv, s.ephemeralPub)
	case ProfileB:
		shared, err = p256Shared(hnPriv, s.ephemeralPub)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedScheme, scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	key := kdf(shared, s.ephemeralPub, encKeyLen+icbLen+macKeyLen)
	if !hmac.Equal(tag(s.cipherText, key[encKeyLen+icbLen:]), s.mac) {
		return nil, ErrMACMismatch
	}
	return aes128ctr(s.cipherText, key[:encKeyLen], key[encKeyLen:encKeyLen+icbLen])
}

// kdf is the ANSI X9.63 key derivation function with SHA-256, using the
// ephemeral public key as shared info.
func kdf(shared, sharedInfo []byte, n int) []byte {
	out := make([]byte, 0, n+sha256.Size)
	var counter [4]byte
	for i := uint32(1); len(out) < n; i++ {
		binary.BigEndian.PutUint32(counter[:], i)
		h := sha256.New()
		h.Write(shared)
		h.Write(counter[:])
		h.Write(sharedInfo)
		out = h.Sum(out)
	}
	return out[:n]
}

func aes128ctr(in, key, icb []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes: %w", err)
	}
	out := make([]byte, len(in))
	cipher.NewCTR(block, icb).XORKeyStream(out, in)
	return out, nil
}

func tag(cipherText, macKey []byte) []byte {
	h := hmac.New(sha256.New, macKey)
	h.Write(cipherText)
	return h.Sum(nil)[:macLen]
}

func x25519Agree(hnPub []byte, rand io.Reader) (ephPub, shared []byte, err error) {
	if len(hnPub) != x25519KeyLen {
		return nil, nil, fmt.Errorf("%w: X25519 public key must be %d bytes", ErrInvalidKey, x25519KeyLen)
	}
	priv := make([]byte, x25519KeyLen)
	if _, err := io.ReadFull(rand, priv); err != nil {
		return nil, nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}
	ephPub, err = curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to derive ephemeral key: %w", err)
	}
	shared, err = curve25519.X25519(priv, hnPub)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return ephPub, shared, nil
}

func p256Agree(hnPub []byte, rand io.Reader) (ephPub, shared []byte, err error) {
	peer, err := p256PublicKey(hnPub)
	if err != nil {
		return nil, nil, err
	}
	priv, err := ecdh.P256().GenerateKey(rand)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}
	shared, err = priv.ECDH(peer)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return compressP256(priv.PublicKey().Bytes()), shared, nil
}

func p256Shared(hnPriv, ephPub []byte) ([]byte, error) {
	priv, err := ecdh.P256().NewPrivateKey(hnPriv)
	if err != nil {
		return nil, err
	}
	peer, err := p256PublicKey(ephPub)
	if err != nil {
		return nil, err
	}
	return priv.ECDH(peer)
}

// p256PublicKey accepts a compressed or uncompressed SEC1 point.
func p256PublicKey(b []byte) (*ecdh.PublicKey, error) {
	if len(b) == p256CompressedLen {
		x, y := elliptic.UnmarshalCompressed(elliptic.P256(), b)
		if x == nil {
			return nil, fmt.Errorf("%w: invalid compressed P-256 point", ErrInvalidKey)
		}
		b = uncompressedP256(x, y)
	}
	pub, err := ecdh.P256().NewPublicKey(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return pub, nil
}

func uncompressedP256(x, y *big.Int) []byte {
	out := make([]byte, 65)
	out[0] = 4
	x.FillBytes(out[1:33])
	y.FillBytes(out[33:])
	return out
}

// compressP256 converts an uncompressed SEC1 point to its 33 byte form.
func compressP256(uncompressed []byte) []byte {
	x := new(big.Int).SetBytes(uncompressed[1:33])
	y := new(big.Int).SetBytes(uncompressed[33:65])
	return elliptic.MarshalCompressed(elliptic.P256(), x, y)
}
