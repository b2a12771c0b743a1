// Package generator builds random UE profiles from a generation template.
package generator

import (
	"context"
	"crypto/md5"
	crand "crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jaydenhoang5291/ue-profile/internal/profile"
	"github.com/jaydenhoang5291/ue-profile/internal/suci"
)

// supiDigits is the number of digits in an IMSI based SUPI.
const supiDigits = 15

// maxSupiAttempts bounds retries when a random SUPI collides within a
// batch.
const maxSupiAttempts = 16

const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// ErrNoHomeNetworkKeys is returned when the operator has no key profile
// to conceal SUPIs with.
var ErrNoHomeNetworkKeys = errors.New("operator has no home network keys")

// Config holds the operator defaults applied to every generated profile.
type Config struct {
	Amf              string
	RoutingIndicator string
	Keys             []suci.HomeNetworkKey
	GnbSearchList    []string
	Sessions         []profile.Session
}

// Operator generates UE profiles. It is safe for concurrent use.
type Operator struct {
	cfg Config

	mu      sync.Mutex
	rng     *rand.Rand
	entropy io.Reader
	now     func() time.Time
}

// Option configures an Operator.
type Option func(*Operator)

// WithRand sets the source used for SUPIs, IMEIs and credentials.
func WithRand(r *rand.Rand) Option {
	return func(o *Operator) { o.rng = r }
}

// WithEntropy sets the reader used for ECIES ephemeral keys.
func WithEntropy(r io.Reader) Option {
	return func(o *Operator) { o.entropy = r }
}

// WithClock sets the clock used for createdAt.
func WithClock(now func() time.Time) Option {
	return func(o *Operator) { o.now = now }
}

// NewOperator validates cfg and returns an Operator. Missing public keys
// are derived from the private keys.
func NewOperator(cfg Config, opts ...Option) (*Operator, error) {
	if len(cfg.Keys) == 0 {
		return nil, ErrNoHomeNetworkKeys
	}
	if cfg.RoutingIndicator == "" {
		cfg.RoutingIndicator = "0000"
	}

	o := &Operator{
		cfg:     cfg,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		entropy: crand.Reader,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	o.cfg.Keys = cloneSlice(cfg.Keys)
	for i, k := range o.cfg.Keys {
		if k.Scheme != suci.ProfileA && k.Scheme != suci.ProfileB {
			return nil, fmt.Errorf("home network key %d: %w: %s", i, suci.ErrUnsupportedScheme, k.Scheme)
		}
		pub, err := k.PublicKeyHex()
		if err != nil {
			return nil, fmt.Errorf("home network key %d: %w", i, err)
		}
		o.cfg.Keys[i].PublicKey = pub
	}
	return o, nil
}

// Generate builds spec.NumUEs profiles with distinct SUPIs.
func (o *Operator) Generate(ctx context.Context, spec *profile.GeneratorSpec) ([]*profile.UeProfile, error) {
	if err := profile.ValidateGeneratorSpec(spec, 0); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, spec.NumUEs)
	out := make([]*profile.UeProfile, 0, spec.NumUEs)
	for len(out) < spec.NumUEs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ue, err := o.generateUnique(spec, seen)
		if err != nil {
			return nil, err
		}
		out = append(out, ue)
	}
	return out, nil
}

// GenerateUE builds a single profile.
func (o *Operator) GenerateUE(spec *profile.GeneratorSpec) (*profile.UeProfile, error) {
	if err := profile.ValidateGeneratorSpec(spec, 0); err != nil {
		return nil, err
	}
	return o.generateUnique(spec, nil)
}

func (o *Operator) generateUnique(spec *profile.GeneratorSpec, seen map[string]struct{}) (*profile.UeProfile, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var supi string
	for attempt := 0; ; attempt++ {
		if attempt == maxSupiAttempts {
			return nil, fmt.Errorf("failed to find a free SUPI after %d attempts", attempt)
		}
		supi = o.randSupi(spec.PlmnID)
		if _, dup := seen[supi]; !dup {
			break
		}
	}
	if seen != nil {
		seen[supi] = struct{}{}
	}

	key := o.cfg.Keys[o.rng.IntN(len(o.cfg.Keys))]
	suciStr, err := suci.FromSUPI(supi, spec.PlmnID.Mcc, spec.PlmnID.Mnc, o.cfg.RoutingIndicator, key, o.entropy)
	if err != nil {
		return nil, fmt.Errorf("failed to conceal %s: %w", supi, err)
	}

	opType := profile.OpTypeOP
	if o.rng.IntN(2) == 1 {
		opType = profile.OpTypeOPC
	}

	return &profile.UeProfile{
		Supi:                   supi,
		Suci:                   suciStr,
		PlmnID:                 spec.PlmnID,
		UeConfiguredNssai:      cloneSlice(spec.UeConfiguredNssai),
		UeDefaultNssai:         cloneSlice(spec.UeDefaultNssai),
		RoutingIndicator:       o.cfg.RoutingIndicator,
		HomeNetworkPrivateKey:  key.PrivateKey,
		HomeNetworkPublicKey:   key.PublicKey,
		HomeNetworkPublicKeyID: int(key.Scheme),
		ProtectionScheme:       int(key.Scheme),
		Key:                    o.randCredential(),
		Op:                     o.randCredential(),
		OpType:                 opType,
		Amf:                    o.cfg.Amf,
		Imei:                   o.randDigits(15),
		Imeisv:                 o.randDigits(16),
		GnbSearchList:          cloneSlice(o.cfg.GnbSearchList),
		Integrity:              spec.Integrity,
		Ciphering:              spec.Ciphering,
		UacAic:                 spec.UacAic,
		UacAcc:                 spec.UacAcc,
		Sessions:               cloneSlice(o.cfg.Sessions),
		IntegrityMaxRate:       spec.IntegrityMaxRate,
		CreatedAt:              o.now().UTC(),
	}, nil
}

func (o *Operator) randSupi(plmn profile.PlmnID) string {
	return "imsi-" + plmn.Mcc + plmn.Mnc + o.randDigits(supiDigits-len(plmn.Mcc)-len(plmn.Mnc))
}

// randCredential returns the MD5 of 16 random letters as 32 hex digits.
func (o *Operator) randCredential() string {
	b := make([]byte, 16)
	for i := range b {
		b[i] = letters[o.rng.IntN(len(letters))]
	}
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

func (o *Operator) randDigits(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('0' + o.rng.IntN(10))
	}
	return string(b)
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
