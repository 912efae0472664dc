// handlers/api/auth.go
package api

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"threadmail/config"
	"threadmail/utils"
)

// Credentials carry the IMAP login of a session. They are stored in the
// session AES-GCM encrypted, never in plain text.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthHandler handles login and logout
type AuthHandler struct {
	store  *session.Store
	config *config.Reloader
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(store *session.Store, cfg *config.Reloader) *AuthHandler {
	return &AuthHandler{store: store, config: cfg}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin validates credentials against the IMAP server and stores them
// encrypted in the session.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request", err)
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return utils.BadRequestError("Email and password are required", nil)
	}

	cfg := h.config.Current()
	creds := &Credentials{Email: req.Email, Password: req.Password}

	// The IMAP server is the source of truth for authentication.
	client, err := createIMAPClientFromCredentials(creds, cfg)
	if err != nil {
		return utils.UnauthorizedError("Login failed", err)
	}
	client.Close()

	sess, err := h.store.Get(c)
	if err != nil {
		return utils.InternalServerError("Session error", err)
	}
	encrypted, err := encryptCredentials(creds, cfg.Encryption.Key)
	if err != nil {
		return utils.InternalServerError("Session error", err)
	}
	sess.Set("authenticated", true)
	sess.Set("credentials", encrypted)
	if err := sess.Save(); err != nil {
		return utils.InternalServerError("Session error", err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// HandleLogout destroys the session
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	sess, err := h.store.Get(c)
	if err == nil {
		sess.Destroy()
	}
	return c.JSON(fiber.Map{"success": true})
}

// SessionMiddleware rejects requests without an authenticated session
func SessionMiddleware(store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil || sess.Get("authenticated") != true {
			return utils.UnauthorizedError("Not authenticated", err)
		}
		return c.Next()
	}
}

// GetCredentials decrypts the IMAP credentials held by the session.
func GetCredentials(c *fiber.Ctx, store *session.Store, key string) (*Credentials, error) {
	sess, err := store.Get(c)
	if err != nil {
		return nil, fmt.Errorf("session error: %v", err)
	}
	encrypted, ok := sess.Get("credentials").(string)
	if !ok || encrypted == "" {
		return nil, fmt.Errorf("no credentials in session")
	}
	return decryptCredentials(encrypted, key)
}

func encryptCredentials(creds *Credentials, key string) (string, error) {
	plain, err := json.Marshal(creds)
	if err != nil {
		return "", err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, plain, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func decryptCredentials(encrypted, key string) (*Credentials, error) {
	sealed, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return nil, err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, fmt.Errorf("invalid credential blob")
	}
	plain, err := gcm.Open(nil, sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():], nil)
	if err != nil {
		return nil, err
	}
	var creds Credentials
	if err := json.Unmarshal(plain, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

func newGCM(key string) (cipher.AEAD, error) {
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
