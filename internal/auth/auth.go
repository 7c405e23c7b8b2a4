package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/iurnickita/orderwatch/internal/auth/config"
	"github.com/iurnickita/orderwatch/internal/token"
)

type Auth interface {
	IssueToken(operator string) (string, error)
	Login(w http.ResponseWriter, r *http.Request)
	Middleware(h http.HandlerFunc) http.HandlerFunc
}

const (
	HeaderOperatorKey   = "X-Operator"
	cookieOperatorToken = "orderwatchOperatorToken"
)

var ErrNoToken = errors.New("no operator token")

type auth struct {
	cfg config.Config
}

func NewAuth(cfg config.Config) Auth {
	return &auth{cfg: cfg}
}

func (a *auth) IssueToken(operator string) (string, error) {
	return token.BuildJWTString(operator, a.cfg.Secret, a.cfg.TokenTTL)
}

// Login обменивает токен из заголовка Authorization на cookie для админ-панели.
func (a *auth) Login(w http.ResponseWriter, r *http.Request) {
	tokenString, err := bearerToken(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if _, err = token.GetOperator(tokenString, a.cfg.Secret); err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieOperatorToken,
		Value:    tokenString,
		Path:     "/",
		Expires:  time.Now().Add(a.cfg.TokenTTL),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	w.WriteHeader(http.StatusOK)
}

func (a *auth) Middleware(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// получение оператора
		operator, err := a.getOperator(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		// записываем
		r.Header.Set(HeaderOperatorKey, operator)

		// передаём управление хендлеру
		h.ServeHTTP(w, r)
	}
}

func (a *auth) getOperator(r *http.Request) (string, error) {
	// заголовок Authorization, затем cookie
	tokenString, err := bearerToken(r)
	if err != nil {
		tokenCookie, cookieErr := r.Cookie(cookieOperatorToken)
		if cookieErr != nil {
			return "", ErrNoToken
		}
		tokenString = tokenCookie.Value
	}
	return token.GetOperator(tokenString, a.cfg.Secret)
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenString == "" {
		return "", ErrNoToken
	}
	return tokenString, nil
}
