package log

import "fmt"

// Audit writes audit events through the service logger. Audit logging is
// fire and forget: nothing here can fail a business operation.
type Audit struct {
	logger Logger
}

func NewAudit(logger Logger) *Audit {
	return &Audit{logger: logger}
}

func (a *Audit) Log(event string, params ...interface{}) {
	a.logger.Printf("audit %s %s", event, fmt.Sprintln(params...))
}
