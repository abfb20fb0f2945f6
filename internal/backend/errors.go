// ABOUTME: Error kinds returned by the backend client and their user-facing messages
// ABOUTME: Extracts detail/message/error from failed responses the way the backend shapes them

package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// Error kinds, usable with errors.Is against any *Error.
var (
	ErrTimeout       = errors.New("backend timeout")
	ErrUnreachable   = errors.New("backend unreachable")
	ErrUnauthorized  = errors.New("backend unauthorized")
	ErrStatus        = errors.New("backend error status")
	ErrEmptyResponse = errors.New("backend empty response")
	ErrInvalidJSON   = errors.New("backend invalid json")
)

const (
	msgTimeout       = "A requisição demorou muito. Tente novamente."
	msgUnreachable   = "Não foi possível conectar à API."
	msgEmptyResponse = "Resposta vazia do servidor."
	msgInvalidJSON   = "Resposta inválida do servidor (não é JSON)."
	msgUnauthorized  = "Sessão expirada"

	hintLocal  = " Verifique se o backend está rodando e teste /health no navegador."
	hintRemote = " Confira backend.url na configuração do dashboard e se a API está acessível."
)

// Error is every failure the client reports. Message is safe to show to users.
type Error struct {
	Kind    error
	Status  int // HTTP status, zero for transport failures
	Message string
	Err     error // underlying cause, if any
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches the error's Kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the user-facing text of err. Errors that did not come from
// the client are returned verbatim.
func Message(err error) string {
	var be *Error
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// StatusCode returns the HTTP status carried by err, or zero.
func StatusCode(err error) int {
	var be *Error
	if errors.As(err, &be) {
		return be.Status
	}
	return 0
}

func statusError(status int, body []byte) *Error {
	if status == http.StatusUnauthorized {
		msg, found := bodyDetail(body)
		if !found {
			msg = msgUnauthorized
		}
		return &Error{Kind: ErrUnauthorized, Status: status, Message: msg}
	}
	return &Error{
		Kind:    ErrStatus,
		Status:  status,
		Message: extractDetail(status, body),
	}
}

// extractDetail turns a failed response body into one readable line.
// It looks at detail, then message, then error. A validation list yields its
// first item's msg.
func extractDetail(status int, body []byte) string {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		payload = map[string]any{"detail": http.StatusText(status)}
	}

	msg, found := detailOf(payload)
	if !found {
		msg = fmt.Sprint(status)
	}
	if strings.TrimSpace(msg) == "" {
		return fmt.Sprintf("Erro do servidor (%d)", status)
	}
	return msg
}

// bodyDetail reports the message the backend put in body, if any.
func bodyDetail(body []byte) (string, bool) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", false
	}
	msg, found := detailOf(payload)
	if !found || strings.TrimSpace(msg) == "" {
		return "", false
	}
	return msg, true
}

func detailOf(payload any) (string, bool) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return "", false
	}
	for _, key := range []string{"detail", "message", "error"} {
		v, ok := obj[key]
		if !ok || v == nil {
			continue
		}
		switch d := v.(type) {
		case string:
			return d, true
		case []any:
			if len(d) > 0 {
				return firstItemMessage(d[0]), true
			}
			return "", true
		default:
			return stringify(d), true
		}
	}
	return "", false
}

func firstItemMessage(item any) string {
	if obj, ok := item.(map[string]any); ok {
		for _, key := range []string{"msg", "message"} {
			if v, ok := obj[key]; ok && v != nil {
				return stringify(v)
			}
		}
	}
	return stringify(item)
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64, bool:
		return fmt.Sprint(t)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// unreachableHint points at the likely fix: a stopped local backend or a
// wrong backend.url.
func unreachableHint(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return hintRemote
	}
	switch u.Hostname() {
	case "127.0.0.1", "localhost", "::1":
		return hintLocal
	}
	return hintRemote
}
