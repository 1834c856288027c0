package server

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/jamesainslie/triage/pkg/session"
)

// signer authenticates session IDs stored in cookies as "<id>.<mac>".
type signer struct {
	secret []byte
}

func newSigner(secret string) (*signer, bool, error) {
	if secret != "" {
		return &signer{secret: []byte(secret)}, false, nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("generating session secret: %w", err)
	}
	return &signer{secret: key}, true, nil
}

func (s *signer) mac(id string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func (s *signer) sign(id string) string {
	return id + "." + s.mac(id)
}

// verify returns the session ID if value carries a valid signature.
func (s *signer) verify(value string) (string, bool) {
	i := strings.LastIndexByte(value, '.')
	if i <= 0 {
		return "", false
	}
	id, mac := value[:i], value[i+1:]
	if !hmac.Equal([]byte(mac), []byte(s.mac(id))) || !session.ValidID(id) {
		return "", false
	}
	return id, true
}

// sessionID returns the caller's session ID, issuing a new signed cookie
// when the request has none or carries a forged one.
func (srv *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(srv.cookieName); err == nil {
		if id, ok := srv.signer.verify(c.Value); ok {
			return id
		}
		srv.logger.Debug("rejected session cookie", "remote", r.RemoteAddr)
	}

	id := session.NewID()
	http.SetCookie(w, &http.Cookie{
		Name:     srv.cookieName,
		Value:    srv.signer.sign(id),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
