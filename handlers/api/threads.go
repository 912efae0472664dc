// handlers/api/threads.go
package api

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"threadmail/config"
	"threadmail/models"
	"threadmail/threading"
	"threadmail/utils"
)

// ThreadHandler serves mailbox listings as thread forests and conversations
type ThreadHandler struct {
	store        *session.Store
	config       *config.Reloader
	cache        *utils.HeaderCache
	fallbackWarn sync.Once
}

// NewThreadHandler creates a new thread handler
func NewThreadHandler(store *session.Store, cfg *config.Reloader, cache *utils.HeaderCache) *ThreadHandler {
	return &ThreadHandler{store: store, config: cfg, cache: cache}
}

// HandleFolders lists the account's mailboxes
func (h *ThreadHandler) HandleFolders(c *fiber.Ctx) error {
	_, _, client, err := h.connect(c)
	if err != nil {
		return err
	}
	defer client.Close()

	folders, err := client.FetchFolders()
	if err != nil {
		return utils.InternalServerError("Failed to fetch folders", err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"folders": folders,
	})
}

// HandleThreads returns the folder's fetch window threaded into a forest.
// The threading strategy (built-in JWZ or server-side THREAD=REFERENCES)
// follows the current configuration, re-read on every request.
func (h *ThreadHandler) HandleThreads(c *fiber.Ctx) error {
	creds, cfg, client, err := h.connect(c)
	if err != nil {
		return err
	}
	defer client.Close()

	folder := c.Params("name")
	records, err := h.headerWindow(client, creds.Email, cfg, folder)
	if err != nil {
		return utils.InternalServerError("Failed to fetch headers", err)
	}

	forest := h.threadForest(client, cfg, folder, records)
	return c.JSON(fiber.Map{
		"success":  true,
		"folder":   folder,
		"messages": len(records),
		"threads":  forest.Export(),
	})
}

// HandleThreadRefs returns the folder's threads in the THREAD=REFERENCES
// text form, e.g. "(1 2 3)(4)". A seqs query parameter filters the output
// to the listed sequence numbers, splicing out filtered-out ancestors.
func (h *ThreadHandler) HandleThreadRefs(c *fiber.Ctx) error {
	creds, cfg, client, err := h.connect(c)
	if err != nil {
		return err
	}
	defer client.Close()

	folder := c.Params("name")
	records, err := h.headerWindow(client, creds.Email, cfg, folder)
	if err != nil {
		return utils.InternalServerError("Failed to fetch headers", err)
	}

	var allowed map[int64]bool
	if seqs := c.Query("seqs"); seqs != "" {
		allowed = make(map[int64]bool)
		for _, s := range strings.Split(seqs, ",") {
			if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
				allowed[n] = true
			}
		}
	}

	forest := h.threadForest(client, cfg, folder, records)
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(forest.ThreadReferences(allowed))
}

// HandleConversations returns the folder's fetch window folded into flat
// conversations connected by shared Message-ID/Reference values.
func (h *ThreadHandler) HandleConversations(c *fiber.Ctx) error {
	creds, cfg, client, err := h.connect(c)
	if err != nil {
		return err
	}
	defer client.Close()

	folder := c.Params("name")
	records, err := h.headerWindow(client, creds.Email, cfg, folder)
	if err != nil {
		return utils.InternalServerError("Failed to fetch headers", err)
	}

	conversations := make([]*threading.Conversation, 0, len(records))
	for _, rec := range records {
		conversations = append(conversations, threading.NewConversation(rec))
	}
	folded := threading.Fold(conversations)

	return c.JSON(fiber.Map{
		"success":       true,
		"folder":        folder,
		"messages":      len(records),
		"conversations": folded,
	})
}

// connect resolves the session credentials and dials the IMAP server.
func (h *ThreadHandler) connect(c *fiber.Ctx) (*Credentials, *config.Config, *Client, error) {
	cfg := h.config.Current()
	creds, err := GetCredentials(c, h.store, cfg.Encryption.Key)
	if err != nil {
		return nil, nil, nil, utils.UnauthorizedError("Invalid session", err)
	}
	client, err := createIMAPClientFromCredentials(creds, cfg)
	if err != nil {
		return nil, nil, nil, utils.InternalServerError("Failed to connect to email server", err)
	}
	return creds, cfg, client, nil
}

// headerWindow returns the folder's fetch window, from cache when a live
// entry exists.
func (h *ThreadHandler) headerWindow(client *Client, email string, cfg *config.Config, folder string) ([]models.HeaderRecord, error) {
	direction := OldestFirst
	if cfg.Fetch.NewestFirst {
		direction = NewestFirst
	}

	key := fmt.Sprintf("%s|%s|%d|%d|%t", email, folder, cfg.Fetch.Window, direction, cfg.Fetch.UseEnvelope)
	if records, ok := h.cache.Get(key); ok {
		return records, nil
	}

	records, err := client.FetchHeaders(folder, cfg.Fetch.Window, direction, cfg.Fetch.UseEnvelope)
	if err != nil {
		return nil, err
	}
	h.cache.Set(key, records)
	return records, nil
}

// threadForest picks the threading strategy. With use_server_thread set it
// asks the server first; a failed or empty server response falls back to
// the built-in threader in the same request, with a warning logged once.
func (h *ThreadHandler) threadForest(client *Client, cfg *config.Config, folder string, records []models.HeaderRecord) *threading.Forest {
	if cfg.Threading.UseServerThread {
		if forest := h.serverForest(client, folder, records); forest != nil {
			return forest
		}
	}
	builder := threading.NewBuilder(threading.Options{GatherSubjects: cfg.Threading.GatherSubjects})
	return builder.Thread(records)
}

func (h *ThreadHandler) serverForest(client *Client, folder string, records []models.HeaderRecord) *threading.Forest {
	threads, err := client.ServerThread(folder)
	if err != nil || (len(threads) == 0 && len(records) > 0) {
		h.fallbackWarn.Do(func() {
			utils.Log.Warn("server-side THREAD unavailable, using built-in threader: %v", err)
		})
		return nil
	}
	byUID := make(map[int64]models.HeaderRecord, len(records))
	for _, rec := range records {
		if rec.UID > 0 {
			byUID[rec.UID] = rec
		}
	}
	return threading.FromServerThreads(threads, byUID)
}
