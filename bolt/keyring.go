package bolt

import (
	"encoding/json"

	"github.com/boltdb/bolt"

	"github.com/bobinette/pressroom/keyring"
)

// KeyringStore persists sealed user keyrings in the keyrings bucket,
// keyed by email. The values are already encrypted; bolt only sees
// opaque blobs.
type KeyringStore struct {
	Driver *Driver
}

func (s *KeyringStore) Get(email string) (*keyring.Sealed, error) {
	var sealed *keyring.Sealed
	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(keyringBucket)

		data := bucket.Get([]byte(email))
		if data == nil {
			return nil
		}

		sealed = &keyring.Sealed{}
		return json.Unmarshal(data, sealed)
	})
	if err != nil {
		return nil, err
	}

	return sealed, nil
}

func (s *KeyringStore) Put(email string, sealed *keyring.Sealed) error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(keyringBucket)

		data, err := json.Marshal(sealed)
		if err != nil {
			return err
		}

		return bucket.Put([]byte(email), data)
	})
}
