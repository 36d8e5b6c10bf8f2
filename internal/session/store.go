package session

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"schoolbridge/pkg/types"

	"github.com/gorilla/securecookie"
)

const (
	keyAuthToken = "authToken"
	keyUserRole  = "userRole"
	keyIsDemo    = "isDemo"
)

// Store persists the auth session between requests.
type Store interface {
	Load() (types.Session, bool)
	Save(types.Session) error
	Clear() error
}

func toValues(s types.Session) map[string]string {
	return map[string]string{
		keyAuthToken: s.Token,
		keyUserRole:  string(s.Role),
		keyIsDemo:    strconv.FormatBool(s.IsDemo),
	}
}

// fromValues treats the session as authenticated whenever a token and a
// role are present. The token is not validated.
func fromValues(values map[string]string) (types.Session, bool) {
	s := types.Session{
		Token: values[keyAuthToken],
		Role:  types.Role(values[keyUserRole]),
	}
	s.IsDemo, _ = strconv.ParseBool(values[keyIsDemo])

	if s.Token == "" || s.Role == "" {
		return types.Session{}, false
	}

	s.IsAuthenticated = true
	return s, true
}

// CookieCodec signs and encrypts the session into a single cookie.
type CookieCodec struct {
	name   string
	maxAge int
	secure bool
	sc     *securecookie.SecureCookie
}

func NewCookieCodec(name string, maxAge int, secure bool, hashKey, blockKey []byte) *CookieCodec {
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(maxAge)

	return &CookieCodec{name: name, maxAge: maxAge, secure: secure, sc: sc}
}

// Bind returns a Store reading from r and writing to w.
func (c *CookieCodec) Bind(w http.ResponseWriter, r *http.Request) *CookieStore {
	return &CookieStore{codec: c, w: w, r: r}
}

type CookieStore struct {
	codec *CookieCodec
	w     http.ResponseWriter
	r     *http.Request
}

func (s *CookieStore) Load() (types.Session, bool) {
	cookie, err := s.r.Cookie(s.codec.name)
	if err != nil {
		return types.Session{}, false
	}

	values := make(map[string]string)
	if err := s.codec.sc.Decode(s.codec.name, cookie.Value, &values); err != nil {
		return types.Session{}, false
	}

	return fromValues(values)
}

func (s *CookieStore) Save(session types.Session) error {
	encoded, err := s.codec.sc.Encode(s.codec.name, toValues(session))
	if err != nil {
		return fmt.Errorf("encode session cookie: %w", err)
	}

	http.SetCookie(s.w, &http.Cookie{
		Name:     s.codec.name,
		Value:    encoded,
		HttpOnly: true,
		Secure:   s.codec.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   s.codec.maxAge,
		Path:     "/",
	})

	return nil
}

func (s *CookieStore) Clear() error {
	http.SetCookie(s.w, &http.Cookie{
		Name:     s.codec.name,
		Value:    "",
		HttpOnly: true,
		Secure:   s.codec.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Path:     "/",
	})

	return nil
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Load() (types.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fromValues(m.values)
}

func (m *MemoryStore) Save(s types.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = toValues(s)
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = make(map[string]string)
	return nil
}
