package mock

import (
	"sync"

	"github.com/bobinette/pressroom"
)

// Permissions is a map-backed permission service. Editors can edit and
// view everything; viewers only view; administrators administrate.
type Permissions struct {
	mu      sync.Mutex
	editors map[string]bool
	viewers map[string]bool
	admins  map[string]bool
}

func NewPermissions() *Permissions {
	return &Permissions{
		editors: make(map[string]bool),
		viewers: make(map[string]bool),
		admins:  make(map[string]bool),
	}
}

func (p *Permissions) AddEditor(email string) *Permissions {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.editors[email] = true
	return p
}

func (p *Permissions) AddViewer(email string) *Permissions {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.viewers[email] = true
	return p
}

func (p *Permissions) AddAdministrator(email string) *Permissions {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.admins[email] = true
	return p
}

func (p *Permissions) RemoveViewer(email string) *Permissions {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.viewers, email)
	return p
}

func (p *Permissions) CanEdit(email string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.editors[email], nil
}

func (p *Permissions) CanView(email string, _ *pressroom.CollectionDescription) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.editors[email] || p.viewers[email], nil
}

func (p *Permissions) IsAdministrator(email string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.admins[email], nil
}
