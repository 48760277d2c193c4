package apitest

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// User is an account known to the test server.
type User struct {
	ID           int
	Email        string
	FirstName    string
	LastName     string
	TenantName   string
	PasswordHash string
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

type userRepo struct {
	mu     sync.RWMutex
	users  map[string]*User // lower-cased email -> user
	nextID int
}

func newUserRepo() *userRepo {
	return &userRepo{users: make(map[string]*User)}
}

func (r *userRepo) add(u User, password string) (*User, error) {
	if u.Email == "" {
		return nil, fmt.Errorf("email is required")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(u.Email)
	if _, exists := r.users[key]; exists {
		return nil, fmt.Errorf("user already exists")
	}
	r.nextID++
	u.ID = r.nextID
	u.PasswordHash = hash
	r.users[key] = &u
	return &u, nil
}

func (r *userRepo) byEmail(email string) (*User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[strings.ToLower(email)]
	return u, ok
}

func (r *userRepo) byID(id int) (*User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.ID == id {
			return u, true
		}
	}
	return nil, false
}
