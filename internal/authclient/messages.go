package authclient

import (
	"errors"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Provider error codes with a translated message.
const (
	CodeEmailExists       = "EMAIL_EXISTS"
	CodeEmailNotFound     = "EMAIL_NOT_FOUND"
	CodeInvalidPassword   = "INVALID_PASSWORD"
	CodeInvalidEmail      = "INVALID_EMAIL"
	CodeWeakPassword      = "WEAK_PASSWORD"
	CodeUserDisabled      = "USER_DISABLED"
	CodeTooManyAttempts   = "TOO_MANY_ATTEMPTS_TRY_LATER"
	CodeInvalidCredential = "INVALID_LOGIN_CREDENTIALS"
)

// genericKey is the message for codes outside the table.
const genericKey = "auth error: %s"

var supported = []language.Tag{language.Spanish, language.English}

var matcher = language.NewMatcher(supported)

var messages = map[string][2]string{
	CodeEmailExists:       {"Este correo ya está registrado", "This email is already registered"},
	CodeEmailNotFound:     {"No existe una cuenta con este correo", "No account exists for this email"},
	CodeInvalidPassword:   {"Contraseña incorrecta", "Incorrect password"},
	CodeInvalidEmail:      {"El correo no es válido", "The email address is not valid"},
	CodeWeakPassword:      {"La contraseña debe tener al menos 6 caracteres", "The password must be at least 6 characters"},
	CodeUserDisabled:      {"Esta cuenta ha sido deshabilitada", "This account has been disabled"},
	CodeTooManyAttempts:   {"Demasiados intentos. Intenta más tarde", "Too many attempts. Try again later"},
	CodeInvalidCredential: {"Correo o contraseña incorrectos", "Incorrect email or password"},
}

var catalogue = buildCatalog()

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.Spanish))
	for code, m := range messages {
		must(b.SetString(language.Spanish, code, m[0]))
		must(b.SetString(language.English, code, m[1]))
	}
	must(b.SetString(language.Spanish, genericKey, "Error de autenticación: %s"))
	must(b.SetString(language.English, genericKey, "Authentication error: %s"))
	return b
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Localized returns the user-facing message for the error in the language
// closest to tag.
func (e *ProviderError) Localized(tag language.Tag) string {
	_, i, _ := matcher.Match(tag)
	p := message.NewPrinter(supported[i], message.Catalog(catalogue))
	if _, ok := messages[e.Code]; ok {
		return p.Sprintf(message.Key(e.Code, e.Code))
	}
	return p.Sprintf(genericKey, e.Code)
}

// Message returns the user-facing text for err. Provider errors are
// translated; anything else is reported as is.
func Message(err error, tag language.Tag) string {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Localized(tag)
	}
	return err.Error()
}
