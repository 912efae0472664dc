// handlers/api/helpers.go
package api

import (
	"fmt"
	"strings"

	"threadmail/config"
)

// createIMAPClientFromCredentials creates an IMAP client from credentials
func createIMAPClientFromCredentials(creds *Credentials, cfg *config.Config) (*Client, error) {
	if creds == nil {
		return nil, fmt.Errorf("credentials cannot be nil")
	}

	var username string
	if cfg.Server.UsernameIsEmail {
		username = creds.Email
	} else {
		username = GetUsernameFromEmail(creds.Email)
	}

	if username == "" {
		return nil, fmt.Errorf("invalid email format")
	}

	return NewClient(
		cfg.IMAP.Server,
		cfg.IMAP.Port,
		username,
		creds.Password,
	)
}

// GetUsernameFromEmail returns the local part of an email address
func GetUsernameFromEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return ""
	}
	return email[:at]
}
