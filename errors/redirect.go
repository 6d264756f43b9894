package errors

// ErrorRedirect couples an OAuth2 error with the redirect the browser must
// be sent to. Once a flow's redirect URI has been validated, errors are
// delivered through it rather than as a direct response; transport layers
// detect this type with errors.As and issue a 302.
type ErrorRedirect struct {
	*OAuth2Error
	Location string
}

func (e *ErrorRedirect) Unwrap() error { return e.OAuth2Error }

// NewErrorRedirect encodes oerr into redirectURI. If the URI cannot be
// encoded the bare error is returned instead; a broken redirect target must
// not mask the original failure.
func NewErrorRedirect(oerr *OAuth2Error, redirectURI string) error {
	location, err := oerr.RedirectTo(redirectURI)
	if err != nil {
		return oerr
	}
	return &ErrorRedirect{OAuth2Error: oerr, Location: location}
}
