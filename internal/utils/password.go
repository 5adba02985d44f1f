package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const argon2Prefix = "$argon2id$"

var errMalformedHash = errors.New("hash argon2id mal formé")

// Argon2Params règle le coût du hash des mots de passe (mémoire en Kio)
type Argon2Params struct {
	Time     uint32
	MemoryKB uint32
	Threads  uint8
	KeyLen   uint32
	SaltLen  uint32
}

// DefaultArgon2Params vise ~20 ms par login sur un vCPU
var DefaultArgon2Params = Argon2Params{Time: 1, MemoryKB: 32 * 1024, Threads: 4, KeyLen: 32, SaltLen: 16}

// PasswordHasher hash et vérifie les mots de passe au format PHC
// $argon2id$v=19$m=<Kio>,t=<itérations>,p=<threads>$<sel>$<hash>.
// La vérification relit les paramètres du hash stocké: changer la config
// n'invalide pas les comptes existants.
type PasswordHasher struct {
	params Argon2Params
}

func NewPasswordHasher(p Argon2Params) *PasswordHasher {
	d := DefaultArgon2Params
	if p.Time == 0 {
		p.Time = d.Time
	}
	if p.MemoryKB == 0 {
		p.MemoryKB = d.MemoryKB
	}
	if p.Threads == 0 {
		p.Threads = d.Threads
	}
	if p.KeyLen == 0 {
		p.KeyLen = d.KeyLen
	}
	if p.SaltLen == 0 {
		p.SaltLen = d.SaltLen
	}
	return &PasswordHasher{params: p}
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("génération du sel: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.MemoryKB, h.params.Threads, h.params.KeyLen)

	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s", argon2Prefix, argon2.Version,
		h.params.MemoryKB, h.params.Time, h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt), base64.RawStdEncoding.EncodeToString(key)), nil
}

// Verify compare en temps constant; une erreur signale un hash illisible, pas un mauvais mot de passe
func (h *PasswordHasher) Verify(password, encoded string) (bool, error) {
	stored, err := parseArgon2(encoded)
	if err != nil {
		return false, err
	}
	key := argon2.IDKey([]byte(password), stored.salt, stored.params.Time, stored.params.MemoryKB,
		stored.params.Threads, uint32(len(stored.key)))
	return subtle.ConstantTimeCompare(stored.key, key) == 1, nil
}

type argon2Hash struct {
	params Argon2Params
	salt   []byte
	key    []byte
}

func parseArgon2(encoded string) (*argon2Hash, error) {
	if !IsArgon2Hash(encoded) {
		return nil, errMalformedHash
	}
	// "", "argon2id", "v=19", "m=..,t=..,p=..", sel, hash
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, errMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, fmt.Errorf("%w: version %q", errMalformedHash, parts[2])
	}
	var out argon2Hash
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &out.params.MemoryKB, &out.params.Time, &out.params.Threads); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedHash, err)
	}
	var err error
	if out.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, fmt.Errorf("%w: sel: %v", errMalformedHash, err)
	}
	if out.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(out.key) == 0 {
		return nil, fmt.Errorf("%w: clé", errMalformedHash)
	}
	return &out, nil
}

func IsArgon2Hash(hash string) bool {
	return strings.HasPrefix(hash, argon2Prefix)
}
