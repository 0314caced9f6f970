package keyring

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/bobinette/pressroom/errors"
)

// Keys serialize as hex strings inside sealed keyring blobs.
func (k Key) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(k[:]))
}

func (k *Key) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(raw) != KeySize {
		return errors.New("malformed key")
	}
	copy(k[:], raw)
	return nil
}

// hkdfInfo is the domain-separation string for keyring sealing keys.
// Changing it invalidates every persisted keyring.
var hkdfInfo = []byte("pressroom.keyring.v1")

// Keyring is a user's unlocked set of per-collection keys, keyed by
// collection id. It only ever lives in memory, tied to an authenticated
// session; the persisted form is Sealed.
type Keyring map[string]Key

// Get returns the key for a collection, if the keyring holds it.
func (k Keyring) Get(collectionID string) (Key, bool) {
	key, ok := k[collectionID]
	return key, ok
}

// Copy returns an independent copy, so cache entries and persisted state
// never alias each other.
func (k Keyring) Copy() Keyring {
	out := make(Keyring, len(k))
	for id, key := range k {
		out[id] = key
	}
	return out
}

// Sealed is the at-rest form of a keyring: the JSON-encoded key map
// sealed under a key derived from the user's keyring secret and a fresh
// salt.
type Sealed struct {
	Salt []byte `json:"salt"`
	Blob []byte `json:"blob"`
}

// Lock seals the keyring under the given secret.
func (k Keyring) Lock(secret []byte) (*Sealed, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.New("could not generate salt", errors.WithCause(err))
	}

	sealing, err := deriveKey(secret, salt)
	if err != nil {
		return nil, err
	}

	plain, err := json.Marshal(k)
	if err != nil {
		return nil, err
	}

	blob, err := NewCodec(sealing).Seal(plain)
	if err != nil {
		return nil, err
	}
	return &Sealed{Salt: salt, Blob: blob}, nil
}

// Unlock opens the sealed keyring with the given secret. A wrong secret
// is an unauthorized error, not a corruption.
func (s *Sealed) Unlock(secret []byte) (Keyring, error) {
	sealing, err := deriveKey(secret, s.Salt)
	if err != nil {
		return nil, err
	}

	plain, err := NewCodec(sealing).Open(s.Blob)
	if err != nil {
		return nil, errors.New("keyring locked", errors.Unauthorized(), errors.WithCause(err))
	}

	var k Keyring
	if err := json.Unmarshal(plain, &k); err != nil {
		return nil, err
	}
	if k == nil {
		k = make(Keyring)
	}
	return k, nil
}

// Store persists sealed keyrings per user.
type Store interface {
	// Get returns the user's sealed keyring, or nil when the user has
	// none yet.
	Get(email string) (*Sealed, error)
	Put(email string, sealed *Sealed) error
}

func deriveKey(secret, salt []byte) (Key, error) {
	var k Key
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, hkdfInfo), k[:]); err != nil {
		return Key{}, errors.New("could not derive sealing key", errors.WithCause(err))
	}
	return k, nil
}
