package events

// Custom is the catch-all variant for application-defined events.
type Custom struct {
	Payload any
	Name    Kind
}

// Kind implements Event.
func (c Custom) Kind() Kind { return c.Name }

// NewCustom creates a custom event.
func NewCustom(name Kind, payload any) Custom {
	return Custom{Name: name, Payload: payload}
}
