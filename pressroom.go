package pressroom

import (
	"time"
)

// Session is an authenticated user session. Sessions are issued and expired
// by an external service; this package only consumes them.
type Session struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Start      time.Time `json:"start"`
	LastAccess time.Time `json:"lastAccess"`
}

// Sessions is the query surface of the session service.
type Sessions interface {
	// Get returns the session with the given id, or nil if there is none.
	Get(id string) (*Session, error)
	// Find returns the active session of the user with the given email,
	// or nil if the user is not logged in.
	Find(email string) (*Session, error)
}

// Permissions is the query surface of the team/permission service. Storage
// and administration of teams live elsewhere.
type Permissions interface {
	CanEdit(email string) (bool, error)
	CanView(email string, description *CollectionDescription) (bool, error)
	IsAdministrator(email string) (bool, error)
}

// Audit receives the editorial event trail. Implementations must never
// block and must swallow their own failures.
type Audit interface {
	Log(event string, params ...interface{})
}

type User struct {
	Email string `json:"email"`
	Name  string `json:"name"`

	// PasswordHash is a bcrypt hash, checked on login by the (external)
	// authentication layer and by the CLI.
	PasswordHash []byte `json:"passwordHash"`

	// KeyringSecret seals the user's persisted keyring. Generated once at
	// user creation, never rotated in place.
	KeyringSecret []byte `json:"keyringSecret"`
}

type UserStore interface {
	Get(email string) (*User, error)
	List() ([]*User, error)
	Upsert(*User) error
}
