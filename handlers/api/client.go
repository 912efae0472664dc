// handlers/api/client.go
package api

import (
	"fmt"

	"github.com/emersion/go-imap"
	sortthread "github.com/emersion/go-imap-sortthread"
	"github.com/emersion/go-imap/client"

	"threadmail/utils"
)

// Client represents an IMAP client wrapper
type Client struct {
	client   *client.Client
	username string
}

// NewClient creates a new IMAP client
func NewClient(server string, port int, email, password string) (*Client, error) {
	c, err := client.DialTLS(fmt.Sprintf("%s:%d", server, port), nil)
	if err != nil {
		utils.Log.Error("DialTLS %s:%d connection err: %v", server, port, err)
		return nil, fmt.Errorf("connection error: %v", err)
	}

	err = c.Login(email, password)
	if err != nil {
		c.Logout()
		utils.Log.Error("IMAP Login %s/xxx login err: %v", email, err)
		return nil, fmt.Errorf("login error: %v", err)
	}

	return &Client{client: c, username: email}, nil
}

// Close closes the IMAP connection
func (c *Client) Close() error {
	return c.client.Logout()
}

// FetchFolders retrieves all mailbox folders
func (c *Client) FetchFolders() ([]*MailboxInfo, error) {
	mailboxChan := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		done <- c.client.List("", "*", mailboxChan)
	}()

	var mailboxes []*MailboxInfo
	for mb := range mailboxChan {
		mailboxes = append(mailboxes, &MailboxInfo{
			Name:       mb.Name,
			Delimiter:  mb.Delimiter,
			Attributes: mb.Attributes,
		})
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("error fetching folders: %v", err)
	}

	return mailboxes, nil
}

// SelectFolder selects a mailbox/folder
func (c *Client) SelectFolder(folderName string, readOnly bool) (*imap.MailboxStatus, error) {
	return c.client.Select(folderName, readOnly)
}

type MailboxInfo struct {
	Attributes []string `json:"attributes"`
	Delimiter  string   `json:"delimiter"`
	Name       string   `json:"name"`
}

// ServerThread asks the server to thread the selected folder with the
// REFERENCES algorithm (UID THREAD). Callers are expected to fall back to
// the built-in threader when the server lacks the capability or the command
// fails.
func (c *Client) ServerThread(folderName string) ([]*sortthread.Thread, error) {
	if _, err := c.client.Select(folderName, true); err != nil {
		return nil, fmt.Errorf("error selecting folder %s: %v", folderName, err)
	}

	threadClient := sortthread.NewThreadClient(c.client)
	threads, err := threadClient.UidThread(sortthread.References, imap.NewSearchCriteria())
	if err != nil {
		return nil, fmt.Errorf("THREAD command failed: %v", err)
	}
	return threads, nil
}
