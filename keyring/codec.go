package keyring

import (
	"crypto/rand"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/bobinette/pressroom/errors"
)

// KeySize is the size in bytes of every symmetric key in the system:
// collection content keys and derived keyring sealing keys.
const KeySize = chacha20poly1305.KeySize

// Key is a collection's symmetric content key.
type Key [KeySize]byte

// GenerateKey draws a fresh random key.
func GenerateKey() (Key, error) {
	var k Key
	if _, err := rand.Read(k[:]); err != nil {
		return Key{}, errors.New("could not generate key", errors.WithCause(err))
	}
	return k, nil
}

// blobVersion is prepended to every sealed blob and authenticated as AAD,
// so tampering with it fails decryption.
const blobVersion byte = 0x01

// blobOverhead is the fixed byte overhead of a sealed blob:
// 1 (version) + 24 (XChaCha20-Poly1305 nonce) + 16 (Poly1305 tag).
const blobOverhead = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

// Codec seals and opens content blobs with XChaCha20-Poly1305. Blob
// layout: [version][nonce][ciphertext+tag]. One Codec per collection key;
// it satisfies content.Codec.
type Codec struct {
	key Key
}

func NewCodec(key Key) *Codec {
	return &Codec{key: key}
}

func (c *Codec) Seal(plain []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(c.key[:])
	if err != nil {
		return nil, err
	}

	blob := make([]byte, 1+chacha20poly1305.NonceSizeX, len(plain)+blobOverhead)
	blob[0] = blobVersion
	nonce := blob[1:]
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.New("could not generate nonce", errors.WithCause(err))
	}

	return aead.Seal(blob, nonce, plain, blob[:1]), nil
}

func (c *Codec) Open(blob []byte) ([]byte, error) {
	if len(blob) < blobOverhead || blob[0] != blobVersion {
		return nil, errors.New("malformed encrypted blob")
	}

	aead, err := chacha20poly1305.NewX(c.key[:])
	if err != nil {
		return nil, err
	}

	nonce := blob[1 : 1+chacha20poly1305.NonceSizeX]
	plain, err := aead.Open(nil, nonce, blob[1+chacha20poly1305.NonceSizeX:], blob[:1])
	if err != nil {
		return nil, errors.New("could not decrypt blob", errors.Unauthorized(), errors.WithCause(err))
	}
	return plain, nil
}
