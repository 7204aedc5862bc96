// Package passwords hashes new passwords with argon2id and verifies both those
// digests and the legacy formats imported from the previous system.
package passwords

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Scheme tags how a stored password digest was produced.
type Scheme string

const (
	// SchemeV1 is a PHC-formatted argon2id digest; the only scheme used for new records.
	SchemeV1 Scheme = "HASH_V1"
	// SchemeLegacy covers digests imported from the previous system (bcrypt,
	// unsalted hex SHA-256 or plaintext). They are only ever verified, never written.
	SchemeLegacy Scheme = "HASH_LEGACY"
)

// Argon2idParams configures Argon2id hashing parameters
type Argon2idParams struct {
	Time        uint32 `yaml:"time"`
	MemoryKiB   uint32 `yaml:"memory_kib"`
	Parallelism uint8  `yaml:"parallelism"`
	KeyLen      uint32 `yaml:"key_len"`
	SaltLen     uint32 `yaml:"salt_len"`
}

// DefaultArgon2idParams returns the parameters used when none are configured.
func DefaultArgon2idParams() Argon2idParams {
	return Argon2idParams{Time: 1, MemoryKiB: 64 * 1024, Parallelism: 4, KeyLen: 32, SaltLen: 16}
}

func (p Argon2idParams) equal(o Argon2idParams) bool {
	return p.Time == o.Time && p.MemoryKiB == o.MemoryKiB && p.Parallelism == o.Parallelism &&
		p.KeyLen == o.KeyLen && p.SaltLen == o.SaltLen
}

// Hasher hashes and verifies passwords
type Hasher struct {
	params Argon2idParams
	dummy  string
}

// NewHasher creates a Hasher; zero params fall back to DefaultArgon2idParams.
func NewHasher(params Argon2idParams) (*Hasher, error) {
	if params.Time == 0 {
		params = DefaultArgon2idParams()
	}
	h := &Hasher{params: params}
	dummy, err := h.Hash("dummy-password-for-timing")
	if err != nil {
		return nil, err
	}
	h.dummy = dummy
	return h, nil
}

// Params returns the argon2id parameters new digests are created with
func (h *Hasher) Params() Argon2idParams {
	return h.params
}

// Hash returns a PHC-formatted argon2id hash string
// Format: $argon2id$v=19$m=65536,t=1,p=4$<saltB64>$<hashB64>
func (h *Hasher) Hash(password string) (string, error) {
	p := h.params
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.WithStack(err)
	}
	dk := argon2.IDKey([]byte(password), salt, p.Time, p.MemoryKiB, p.Parallelism, p.KeyLen)
	return fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s", p.MemoryKiB, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt), base64.RawStdEncoding.EncodeToString(dk),
	), nil
}

// Verify checks password against the encoded digest stored under scheme.
// needsRehash is true when the digest should be replaced by a fresh SchemeV1
// digest, either because it is legacy or because the argon2id parameters changed.
func (h *Hasher) Verify(scheme Scheme, encoded, password string) (ok, needsRehash bool, err error) {
	if scheme == "" {
		scheme = DetectScheme(encoded)
	}
	switch scheme {
	case SchemeV1:
		params, salt, hash, err := parseArgon2id(encoded)
		if err != nil {
			return false, false, err
		}
		dk := argon2.IDKey([]byte(password), salt, params.Time, params.MemoryKiB, params.Parallelism, uint32(len(hash)))
		if subtle.ConstantTimeCompare(dk, hash) != 1 {
			return false, false, nil
		}
		return true, !params.equal(h.params), nil
	case SchemeLegacy:
		return verifyLegacy(encoded, password), true, nil
	default:
		return false, false, errors.Errorf("unsupported password scheme '%s'", scheme)
	}
}

// VerifyDummy burns the same work as a real verification. It is used when the
// account does not exist so the response time does not reveal that.
func (h *Hasher) VerifyDummy(password string) {
	_, _, _ = h.Verify(SchemeV1, h.dummy, password)
}

// DetectScheme classifies a digest that was stored without a scheme tag
func DetectScheme(encoded string) Scheme {
	if strings.HasPrefix(encoded, "$argon2id$") {
		return SchemeV1
	}
	return SchemeLegacy
}

func verifyLegacy(encoded, password string) bool {
	if isBcrypt(encoded) {
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password)) == nil
	}
	if isHexSHA256(encoded) {
		sum := sha256.Sum256([]byte(password))
		return subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(strings.ToLower(encoded))) == 1
	}
	return subtle.ConstantTimeCompare([]byte(encoded), []byte(password)) == 1
}

func isBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

func isHexSHA256(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// parseArgon2id parses a PHC-formatted argon2id hash and returns parameters, salt and hash bytes.
func parseArgon2id(encoded string) (Argon2idParams, []byte, []byte, error) {
	var out Argon2idParams
	if !strings.HasPrefix(encoded, "$argon2id$") {
		return out, nil, nil, errors.Errorf("unsupported password hash format")
	}
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return out, nil, nil, errors.Errorf("invalid argon2id hash format")
	}
	if parts[2] != "v=19" {
		return out, nil, nil, errors.Errorf("unsupported argon2 version")
	}
	for _, kv := range strings.Split(parts[3], ",") {
		k, v, found := strings.Cut(kv, "=")
		if !found {
			continue
		}
		switch k {
		case "m":
			m, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return out, nil, nil, errors.WithStack(err)
			}
			out.MemoryKiB = uint32(m)
		case "t":
			t, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return out, nil, nil, errors.WithStack(err)
			}
			out.Time = uint32(t)
		case "p":
			p, err := strconv.ParseUint(v, 10, 8)
			if err != nil {
				return out, nil, nil, errors.WithStack(err)
			}
			out.Parallelism = uint8(p)
		}
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return out, nil, nil, errors.WithStack(err)
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return out, nil, nil, errors.WithStack(err)
	}
	out.SaltLen = uint32(len(salt))
	out.KeyLen = uint32(len(hash))
	return out, salt, hash, nil
}
