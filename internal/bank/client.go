package bank

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	maxFailedAttempts = 3
	pinLength         = 4
)

// Client is a registered account holder. PINs are stored only as bcrypt
// hashes; three failed verifications lock the client until an operator
// intervenes.
type Client struct {
	id        string
	fullName  string
	birthDate time.Time
	createdAt time.Time

	mu             sync.Mutex
	pinHash        []byte
	accountIDs     []string
	failedAttempts int
	locked         bool
}

func newClient(fullName string, birthDate time.Time, pinHash []byte) *Client {
	return &Client{
		id:        uuid.NewString(),
		fullName:  fullName,
		birthDate: birthDate,
		createdAt: time.Now(),
		pinHash:   pinHash,
	}
}

func (c *Client) ID() string           { return c.id }
func (c *Client) FullName() string     { return c.fullName }
func (c *Client) BirthDate() time.Time { return c.birthDate }

func (c *Client) Locked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locked
}

// AccountIDs returns the client's accounts in the order they were opened.
func (c *Client) AccountIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.accountIDs))
	copy(out, c.accountIDs)
	return out
}

func (c *Client) appendAccount(accountID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accountIDs = append(c.accountIDs, accountID)
}

func (c *Client) verifyPIN(pin string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locked {
		return ErrClientLocked
	}
	if err := bcrypt.CompareHashAndPassword(c.pinHash, []byte(pin)); err != nil {
		c.failedAttempts++
		if c.failedAttempts >= maxFailedAttempts {
			c.locked = true
			return fmt.Errorf("%w: too many failed attempts", ErrClientLocked)
		}
		return ErrAuthFailed
	}
	c.failedAttempts = 0
	return nil
}

func (c *Client) unlock() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locked = false
	c.failedAttempts = 0
}

func generatePINAndHash() (string, []byte, error) {
	pin, err := generatePIN(pinLength)
	if err != nil {
		return "", nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}
	return pin, hash, nil
}

func generatePIN(n int) (string, error) {
	const digits = "0123456789"
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("could not generate random bytes: %w", err)
	}
	for i := range b {
		b[i] = digits[int(b[i])%len(digits)]
	}
	return string(b), nil
}
