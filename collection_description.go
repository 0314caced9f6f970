package pressroom

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
	"unicode"
)

// Stage is the staging lane a URI currently occupies inside a collection.
type Stage int

const (
	StageInProgress Stage = iota
	StageComplete
	StageReviewed
)

var stageFolders = map[Stage]string{
	StageInProgress: "inprogress",
	StageComplete:   "complete",
	StageReviewed:   "reviewed",
}

// Folder returns the fixed subfolder of the collection directory backing
// this stage.
func (s Stage) Folder() string {
	return stageFolders[s]
}

func (s Stage) String() string {
	switch s {
	case StageInProgress:
		return "in-progress"
	case StageComplete:
		return "complete"
	case StageReviewed:
		return "reviewed"
	}
	return "unknown"
}

type EventType string

const (
	EventCreated   EventType = "CREATED"
	EventEdited    EventType = "EDITED"
	EventCompleted EventType = "COMPLETED"
	EventReviewed  EventType = "REVIEWED"
	EventDeleted   EventType = "DELETED"
	EventApproved  EventType = "APPROVED"
	EventUnlocked  EventType = "UNLOCKED"
)

type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Email     string    `json:"email"`
}

// Equal compares events field by field. Timestamps are compared with
// time.Time.Equal so that serialization round-trips stay equal.
func (e Event) Equal(other Event) bool {
	return e.Timestamp.Equal(other.Timestamp) && e.Type == other.Type && e.Email == other.Email
}

// CollectionEvents is the key used in EventsByURI for events that concern
// the whole collection rather than a single URI (APPROVED, UNLOCKED).
const CollectionEvents = "/"

// CollectionDescription is the JSON sidecar persisted next to a
// collection's folder. ID is generated once at creation and never changes;
// IsEncrypted is immutable after creation. EventsByURI keys are always
// "/"-prefixed URIs.
type CollectionDescription struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	PublishDate    time.Time          `json:"publishDate"`
	ApprovedStatus bool               `json:"approvedStatus"`
	IsEncrypted    bool               `json:"isEncrypted"`
	EventsByURI    map[string][]Event `json:"eventsByUri"`
}

func NewCollectionDescription(name string, publishDate time.Time, encrypted bool) *CollectionDescription {
	return &CollectionDescription{
		ID:          Slug(name) + "-" + randomSuffix(),
		Name:        name,
		PublishDate: publishDate,
		IsEncrypted: encrypted,
		EventsByURI: make(map[string][]Event),
	}
}

// AddEvent appends an event to the given URI's history. Events are
// append-only; nothing ever rewrites past history.
func (d *CollectionDescription) AddEvent(uri string, e Event) {
	if d.EventsByURI == nil {
		d.EventsByURI = make(map[string][]Event)
	}
	if !strings.HasPrefix(uri, "/") {
		uri = "/" + uri
	}
	d.EventsByURI[uri] = append(d.EventsByURI[uri], e)
}

// LastEvent returns the most recent event of the given type for the URI,
// or false when there is none.
func (d *CollectionDescription) LastEvent(uri string, t EventType) (Event, bool) {
	events := d.EventsByURI[uri]
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == t {
			return events[i], true
		}
	}
	return Event{}, false
}

// Slug normalizes a collection name into its folder name: lower-cased, runs
// of non-alphanumeric characters collapsed into single dashes.
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
		} else if !dash && b.Len() > 0 {
			b.WriteRune('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func randomSuffix() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform is broken; ids must
		// still be unique-ish, so fall back to the clock.
		return hex.EncodeToString([]byte(time.Now().Format("150405.000")))[:16]
	}
	return hex.EncodeToString(buf)
}
