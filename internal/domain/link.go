package domain

import (
	"errors"
	"strings"
)

// LinkMethod identifica el mecanismo de vinculación usado.
type LinkMethod string

const (
	LinkMethodCookie      LinkMethod = "cookie"
	LinkMethodCredentials LinkMethod = "credentials"
)

var (
	ErrLinkMethodInvalid = errors.New("link method invalid")
	ErrLinkSecretMissing = errors.New("link secret missing")
)

// LinkRequest es la variante etiquetada que describe un intento de vinculación.
// El secreto vive solo durante el request; nunca se persiste ni se loguea.
type LinkRequest struct {
	Method   LinkMethod
	Cookie   string
	Username string
	Password string
}

// CookieLink arma un request con el método cookie.
func CookieLink(cookie string) LinkRequest {
	return LinkRequest{Method: LinkMethodCookie, Cookie: strings.TrimSpace(cookie)}
}

// CredentialsLink arma un request con el método credenciales.
func CredentialsLink(username, password string) LinkRequest {
	return LinkRequest{
		Method:   LinkMethodCredentials,
		Username: strings.TrimSpace(username),
		Password: password,
	}
}

// Validate verifica el request antes de cualquier llamada externa.
func (r LinkRequest) Validate() error {
	switch r.Method {
	case LinkMethodCookie:
		if strings.TrimSpace(r.Cookie) == "" {
			return ErrLinkSecretMissing
		}
	case LinkMethodCredentials:
		if strings.TrimSpace(r.Username) == "" || r.Password == "" {
			return ErrLinkSecretMissing
		}
	default:
		return ErrLinkMethodInvalid
	}
	return nil
}
