package provider

import "errors"

var (
	ErrInvalidCookie      = errors.New("provider rejected session cookie")
	ErrInvalidCredentials = errors.New("provider rejected credentials")
)

// ChallengeRequiredError indica que el proveedor exige completar una
// verificación fuera de banda antes de reintentar la vinculación.
type ChallengeRequiredError struct {
	ChallengeToken string
}

func (e *ChallengeRequiredError) Error() string {
	return "provider requires out-of-band challenge verification"
}

// UnavailableError indica un fallo transitorio de red o del proveedor.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return "provider unavailable: " + e.Err.Error()
	}
	return "provider unavailable"
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Retryable informa si el caller puede reintentar el mismo request tal cual
// (tras resolver el challenge, en ese caso).
func Retryable(err error) bool {
	var unavailable *UnavailableError
	var challenge *ChallengeRequiredError
	return errors.As(err, &unavailable) || errors.As(err, &challenge)
}
