// Package session holds the process-wide notion of who is logged in.
//
// A State is created once by the application and handed to every consumer
// through its constructor. Views receive it as a Reader; only the auth
// service mutates it via Replace.
package session

import (
	"sync"

	"github.com/dmitrijs2005/moneyxfer/internal/client/token"
)

// User is the identity projected from a token's claims.
type User struct {
	ID    string
	Email string
	Role  token.Role
	Name  string
}

// UserFromClaims projects the identity fields of c.
func UserFromClaims(c *token.Claims) User {
	return User{
		ID:    string(c.SubjectID),
		Email: c.Email,
		Role:  c.Role,
		Name:  c.Name,
	}
}

// Session is an immutable snapshot: either authenticated for one User or
// anonymous.
type Session struct {
	user *User
}

var anonymous = &Session{}

// Anonymous returns the shared anonymous session.
func Anonymous() *Session { return anonymous }

// Authenticated returns a session for u.
func Authenticated(u User) *Session {
	return &Session{user: &u}
}

func (s *Session) IsAuthenticated() bool {
	return s != nil && s.user != nil
}

// User returns the logged-in user, or false for an anonymous session.
func (s *Session) User() (User, bool) {
	if !s.IsAuthenticated() {
		return User{}, false
	}
	return *s.user, true
}

func (s *Session) String() string {
	if u, ok := s.User(); ok {
		return u.Email
	}
	return "anonymous"
}

// Reader is the read side of State handed to views.
type Reader interface {
	Current() *Session
	Subscribe(fn func(*Session)) (unsubscribe func())
}

// State is the single observable container of the current Session.
type State struct {
	mu      sync.RWMutex
	current *Session
	version uint64
	nextID  int
	subs    map[int]func(*Session)
	order   []int
}

// NewState returns a container holding the anonymous session.
func NewState() *State {
	return &State{
		current: anonymous,
		subs:    make(map[int]func(*Session)),
	}
}

// Current returns the shared current session. Every caller gets the same
// pointer until the next Replace.
func (st *State) Current() *Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.current
}

// Version increments on every Replace.
func (st *State) Version() uint64 {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.version
}

// Subscribe registers fn to be called after every Replace, in subscription
// order. The returned function removes the subscription.
func (st *State) Subscribe(fn func(*Session)) func() {
	st.mu.Lock()
	defer st.mu.Unlock()

	id := st.nextID
	st.nextID++
	st.subs[id] = fn
	st.order = append(st.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			st.mu.Lock()
			defer st.mu.Unlock()
			delete(st.subs, id)
			for i, v := range st.order {
				if v == id {
					st.order = append(st.order[:i], st.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Replace installs s (nil means anonymous) and notifies subscribers.
// Subscribers run on the caller's goroutine, outside the lock.
func (st *State) Replace(s *Session) {
	if s == nil {
		s = anonymous
	}

	st.mu.Lock()
	st.current = s
	st.version++
	fns := make([]func(*Session), 0, len(st.order))
	for _, id := range st.order {
		fns = append(fns, st.subs[id])
	}
	st.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
