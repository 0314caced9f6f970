package bolt

import (
	"encoding/json"

	"github.com/boltdb/bolt"

	"github.com/bobinette/pressroom"
)

// UserStore persists users in the users bucket, keyed by email.
type UserStore struct {
	Driver *Driver
}

func (s *UserStore) Get(email string) (*pressroom.User, error) {
	var user *pressroom.User
	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(userBucket)

		data := bucket.Get([]byte(email))
		if data == nil {
			return nil
		}

		user = &pressroom.User{}
		return json.Unmarshal(data, user)
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (s *UserStore) Upsert(user *pressroom.User) error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(userBucket)

		data, err := json.Marshal(user)
		if err != nil {
			return err
		}

		return bucket.Put([]byte(user.Email), data)
	})
}

func (s *UserStore) List() ([]*pressroom.User, error) {
	var users []*pressroom.User

	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(userBucket)

		c := bucket.Cursor()
		for email, data := c.First(); email != nil; email, data = c.Next() {
			var user pressroom.User
			if err := json.Unmarshal(data, &user); err != nil {
				return err
			}
			users = append(users, &user)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return users, nil
}
