package location

import (
	"log"
	"sync"
)

// Permissions is the fine-location access gate. Request raises a prompt;
// the prompt's answer arrives later through Resolve.
type Permissions struct {
	mu      sync.Mutex
	granted bool
	pending bool
}

func NewPermissions(granted bool) *Permissions {
	return &Permissions{granted: granted}
}

func (p *Permissions) Granted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.granted
}

// Request marks a prompt as pending. Calling it again while a prompt is
// pending simply reissues it.
func (p *Permissions) Request() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = true
	log.Println("location: permission prompt issued")
}

func (p *Permissions) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// Resolve records the user's answer to the prompt.
func (p *Permissions) Resolve(granted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = false
	p.granted = granted
	log.Printf("location: permission granted=%t", granted)
}
