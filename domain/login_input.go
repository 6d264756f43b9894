package domain

// LoginInput is the identifier a user logs in with. It is a closed set:
// either an email address or a phone number. Orchestration dispatches on the
// concrete type, so a new variant cannot be added without the compiler
// pointing at every switch that has to handle it.
type LoginInput interface {
	loginInput()
	// Destination is where the confirmation code gets delivered.
	Destination() string
}

// EmailAddress selects the email login path.
type EmailAddress string

// PhoneNumber selects the SMS login path.
type PhoneNumber string

func (EmailAddress) loginInput() {}
func (PhoneNumber) loginInput()  {}

func (e EmailAddress) Destination() string { return string(e) }

func (p PhoneNumber) Destination() string { return string(p) }
