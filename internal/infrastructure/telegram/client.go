package telegram

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"sync"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/telegram/uploader"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Conte777/ChatSentinel/internal/domain"
	"github.com/Conte777/ChatSentinel/internal/domain/watch/entities"
)

// WatcherClient implements domain.WatcherClient using gotd/td library.
// One instance owns one MTProto session restored from stored credentials.
type WatcherClient struct {
	// Telegram client instance
	client *telegram.Client

	// API credentials
	apiID   int
	apiHash string

	// Session identity and storage
	userID  int64
	selfID  int64
	storage *CredentialSessionStorage

	// Update routing
	dispatcher tg.UpdateDispatcher
	sink       domain.EventSink

	// Connection state
	connected     bool
	disconnecting bool
	mu            sync.RWMutex
	cancelFunc    context.CancelFunc
	runDone       chan struct{} // Signals when client.Run() completes

	// Logger
	logger zerolog.Logger

	// API client for making requests
	api *tg.Client

	// Rate limiter for API calls
	rateLimiter *rate.Limiter
}

// WatcherClientConfig holds configuration for WatcherClient
type WatcherClientConfig struct {
	APIID   int
	APIHash string
	UserID  int64
	Store   domain.CredentialStore
	Logger  zerolog.Logger
}

// NewWatcherClient creates a new watcher client instance
func NewWatcherClient(cfg WatcherClientConfig) (*WatcherClient, error) {
	if cfg.APIID == 0 {
		return nil, fmt.Errorf("APIID is required")
	}
	if cfg.APIHash == "" {
		return nil, fmt.Errorf("APIHash is required")
	}
	if cfg.UserID == 0 {
		return nil, fmt.Errorf("UserID is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("credential store is required")
	}

	client := &WatcherClient{
		apiID:       cfg.APIID,
		apiHash:     cfg.APIHash,
		userID:      cfg.UserID,
		storage:     NewCredentialSessionStorage(cfg.Store, cfg.UserID),
		dispatcher:  tg.NewUpdateDispatcher(),
		logger:      cfg.Logger.With().Str("component", "watcher_client").Int64("user_id", cfg.UserID).Logger(),
		connected:   false,
		rateLimiter: rate.NewLimiter(rate.Every(time.Second), 10), // 10 requests per second
	}

	return client, nil
}

// UserID returns the identifier of the account the session belongs to
func (c *WatcherClient) UserID() int64 {
	return c.userID
}

// Attach registers the event sink and wires it to the update dispatcher.
// Must be called before Connect.
func (c *WatcherClient) Attach(sink domain.EventSink) {
	c.sink = sink

	c.dispatcher.OnNewMessage(func(ctx context.Context, e tg.Entities, update *tg.UpdateNewMessage) error {
		c.deliver(ctx, e, update.Message, false)
		return nil
	})
	c.dispatcher.OnEditMessage(func(ctx context.Context, e tg.Entities, update *tg.UpdateEditMessage) error {
		c.deliver(ctx, e, update.Message, true)
		return nil
	})
}

// deliver parses one update and hands it to the sink.
// Update handling must never take the session down.
func (c *WatcherClient) deliver(ctx context.Context, e tg.Entities, msg tg.MessageClass, edit bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Msg("update handler panicked")
		}
	}()

	message, ok := msg.(*tg.Message)
	if !ok {
		return
	}

	evt := parseMessage(message, e.Users, c.selfID)
	if evt == nil || c.sink == nil {
		return
	}

	if edit {
		c.sink.HandleEditMessage(ctx, evt)
	} else {
		c.sink.HandleNewMessage(ctx, evt)
	}
}

// Connect establishes the session from stored credentials.
// The caller should provide a context with timeout to prevent indefinite hanging.
// Unlike interactive logins, a missing or revoked authorization is terminal
// here and reported as domain.ErrAuthenticationFailed.
func (c *WatcherClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		c.logger.Debug().Msg("already connected")
		return nil
	}
	if c.disconnecting {
		c.mu.Unlock()
		return fmt.Errorf("disconnect in progress, cannot connect")
	}
	// Keep the lock to prevent concurrent connection attempts
	defer c.mu.Unlock()

	c.logger.Info().Msg("connecting to Telegram")

	// Create telegram client with session storage and update dispatcher
	c.client = telegram.NewClient(c.apiID, c.apiHash, telegram.Options{
		SessionStorage: c.storage,
		UpdateHandler:  c.dispatcher,
	})

	// Create cancellable context for client lifecycle.
	// Derived from Background so the session outlives the Connect call.
	clientCtx, cancel := context.WithCancel(context.Background())
	c.cancelFunc = cancel

	// Channel to signal when connection is ready
	readyChan := make(chan struct{})
	errChan := make(chan error, 1)
	started := make(chan struct{})
	c.runDone = make(chan struct{})

	// Start the client in a goroutine
	go func() {
		defer close(c.runDone) // Signal when Run() completes
		close(started)
		err := c.client.Run(clientCtx, func(ctx context.Context) error {
			// Get API client
			c.api = c.client.API()

			// Check authorization status
			status, err := c.client.Auth().Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to check auth status: %w", err)
			}

			if !status.Authorized {
				c.logger.Warn().Msg("stored session is not authorized")
				return domain.ErrAuthenticationFailed
			}

			// Resolve own identity for outgoing message attribution
			self, err := c.client.Self(ctx)
			if err != nil {
				return fmt.Errorf("failed to resolve self: %w", err)
			}
			c.selfID = self.ID

			// Set connected state
			c.connected = true
			c.logger.Info().Msg("successfully connected to Telegram")

			// Signal that connection is ready
			close(readyChan)

			// Keep connection alive
			<-ctx.Done()
			return ctx.Err()
		})
		// Always send error to channel, even if nil
		select {
		case errChan <- err:
		default:
		}
	}()

	// Ensure goroutine has started
	<-started

	// Wait for connection to be fully ready or error
	select {
	case <-readyChan:
		return nil
	case err := <-errChan:
		// Cancel to clean up goroutine
		cancel()
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		return nil
	case <-ctx.Done():
		// Cancel to clean up goroutine
		cancel()
		return ctx.Err()
	}
}

// Disconnect disconnects from Telegram with graceful shutdown.
// The session is saved by the underlying gotd/td client before shutdown.
// Multiple calls to Disconnect() are safe and will return nil if already
// disconnected. This method is safe for concurrent use.
func (c *WatcherClient) Disconnect(ctx context.Context) error {
	c.mu.Lock()

	// Check if already disconnecting
	if c.disconnecting {
		c.mu.Unlock()
		c.logger.Debug().Msg("disconnect already in progress")
		return nil
	}

	// Check if already disconnected
	if !c.connected {
		c.mu.Unlock()
		c.logger.Debug().Msg("already disconnected")
		return nil
	}

	c.logger.Info().Msg("disconnecting from Telegram")

	// Mark as disconnecting
	c.disconnecting = true
	cancelFunc := c.cancelFunc
	runDone := c.runDone
	c.mu.Unlock()

	// Cancel the client context to stop the goroutine
	if cancelFunc != nil {
		c.logger.Debug().Msg("cancelling client context")
		cancelFunc()

		// Wait for client.Run() goroutine to actually finish
		if runDone != nil {
			select {
			case <-runDone:
				c.logger.Debug().Msg("client stopped gracefully")
			case <-ctx.Done():
				c.logger.Warn().Msg("disconnect timeout reached while waiting for client shutdown")
				// Don't return error yet, still clean up state
			}
		}
	}

	// Clean up state
	c.mu.Lock()
	c.client = nil
	c.api = nil
	c.connected = false
	c.cancelFunc = nil
	c.runDone = nil
	c.disconnecting = false
	c.mu.Unlock()

	c.logger.Info().Msg("successfully disconnected from Telegram")
	return nil
}

// IsConnected checks if client is connected to Telegram
func (c *WatcherClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// apiClient returns the raw API client after a connectivity check
func (c *WatcherClient) apiClient() (*tg.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.connected || c.api == nil {
		return nil, domain.ErrNotConnected
	}
	return c.api, nil
}

// FetchMessages performs one batched messages.getMessages lookup.
// The backend answers with its empty sentinel for ids that no longer exist;
// those entries are reported as Absent.
func (c *WatcherClient) FetchMessages(ctx context.Context, chatID int64, ids []int) ([]domain.FetchedMessage, error) {
	api, err := c.apiClient()
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return nil, nil
	}

	// Apply rate limiting
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	inputIDs := make([]tg.InputMessageClass, 0, len(ids))
	for _, id := range ids {
		inputIDs = append(inputIDs, &tg.InputMessageID{ID: id})
	}

	result, err := api.MessagesGetMessages(ctx, inputIDs)
	if err != nil {
		c.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to fetch messages")
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	var (
		rawMessages []tg.MessageClass
		users       map[int64]*tg.User
	)
	switch messages := result.(type) {
	case *tg.MessagesMessages:
		rawMessages = messages.Messages
		users = usersFromClasses(messages.Users)
	case *tg.MessagesMessagesSlice:
		rawMessages = messages.Messages
		users = usersFromClasses(messages.Users)
	default:
		return nil, fmt.Errorf("unexpected messages response %T", result)
	}

	// Index the response; order is not guaranteed to match the request
	found := make(map[int]*tg.Message, len(rawMessages))
	for _, raw := range rawMessages {
		if message, ok := raw.(*tg.Message); ok {
			found[message.ID] = message
		}
	}

	fetched := make([]domain.FetchedMessage, 0, len(ids))
	for _, id := range ids {
		message, ok := found[id]
		if !ok {
			// MessageEmpty or missing from the response
			fetched = append(fetched, domain.FetchedMessage{ID: id, Absent: true})
			continue
		}
		fetched = append(fetched, domain.FetchedMessage{
			ID:    id,
			Event: parseMessage(message, users, c.selfID),
		})
	}

	c.logger.Debug().
		Int64("chat_id", chatID).
		Int("requested", len(ids)).
		Int("present", len(found)).
		Msg("fetched messages")
	return fetched, nil
}

// RefetchMessage re-reads a single message from the backend
func (c *WatcherClient) RefetchMessage(ctx context.Context, chatID int64, msgID int) (*entities.MessageEvent, error) {
	fetched, err := c.FetchMessages(ctx, chatID, []int{msgID})
	if err != nil {
		return nil, err
	}
	if len(fetched) == 0 || fetched[0].Absent || fetched[0].Event == nil {
		return nil, domain.ErrMessageNotFound
	}
	return fetched[0].Event, nil
}

// DownloadInMemory downloads the event media into memory
func (c *WatcherClient) DownloadInMemory(ctx context.Context, evt *entities.MessageEvent) ([]byte, error) {
	api, err := c.apiClient()
	if err != nil {
		return nil, err
	}

	location, size, err := mediaLocation(evt)
	if err != nil {
		return nil, err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	buf := bytes.NewBuffer(make([]byte, 0, size))
	if _, err := downloader.NewDownloader().Download(api, location).Stream(ctx, buf); err != nil {
		c.logger.Warn().Err(err).Int("msg_id", evt.MsgID).Msg("in-memory download failed")
		return nil, fmt.Errorf("in-memory download failed: %w", err)
	}
	return buf.Bytes(), nil
}

// DownloadToFile downloads the event media to the given path
func (c *WatcherClient) DownloadToFile(ctx context.Context, evt *entities.MessageEvent, path string) error {
	api, err := c.apiClient()
	if err != nil {
		return err
	}

	location, _, err := mediaLocation(evt)
	if err != nil {
		return err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	if _, err := downloader.NewDownloader().Download(api, location).ToPath(ctx, path); err != nil {
		c.logger.Warn().Err(err).Int("msg_id", evt.MsgID).Str("path", path).Msg("disk download failed")
		return fmt.Errorf("disk download failed: %w", err)
	}
	return nil
}

// SaveToSelfArchive uploads a local file to the account's saved messages
func (c *WatcherClient) SaveToSelfArchive(ctx context.Context, path string, caption string) error {
	api, err := c.apiClient()
	if err != nil {
		return err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	file, err := uploader.NewUploader(api).FromPath(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to upload artifact: %w", err)
	}

	_, err = api.MessagesSendMedia(ctx, &tg.MessagesSendMediaRequest{
		Peer: &tg.InputPeerSelf{},
		Media: &tg.InputMediaUploadedDocument{
			File:     file,
			MimeType: "application/octet-stream",
			Attributes: []tg.DocumentAttributeClass{
				&tg.DocumentAttributeFilename{FileName: filepath.Base(path)},
			},
		},
		Message:  caption,
		RandomID: rand.Int63(),
	})
	if err != nil {
		return fmt.Errorf("failed to save to self archive: %w", err)
	}

	c.logger.Info().Str("path", path).Msg("artifact saved to self archive")
	return nil
}

// mediaLocation resolves the download location of the event media
func mediaLocation(evt *entities.MessageEvent) (tg.InputFileLocationClass, int64, error) {
	if evt == nil || evt.Raw == nil || evt.Raw.Media == nil {
		return nil, 0, domain.ErrNoMedia
	}

	switch m := evt.Raw.Media.(type) {
	case *tg.MessageMediaPhoto:
		photo, ok := m.Photo.(*tg.Photo)
		if !ok {
			return nil, 0, domain.ErrNoMedia
		}

		// Pick the largest regular size
		var (
			sizeType string
			byteSize int64
			maxArea  int
		)
		for _, s := range photo.Sizes {
			switch ps := s.(type) {
			case *tg.PhotoSize:
				if area := ps.W * ps.H; area > maxArea {
					maxArea = area
					sizeType = ps.Type
					byteSize = int64(ps.Size)
				}
			case *tg.PhotoSizeProgressive:
				if area := ps.W * ps.H; area > maxArea {
					maxArea = area
					sizeType = ps.Type
					if len(ps.Sizes) > 0 {
						byteSize = int64(ps.Sizes[len(ps.Sizes)-1])
					}
				}
			}
		}
		if sizeType == "" {
			return nil, 0, domain.ErrNoMedia
		}

		return &tg.InputPhotoFileLocation{
			ID:            photo.ID,
			AccessHash:    photo.AccessHash,
			FileReference: photo.FileReference,
			ThumbSize:     sizeType,
		}, byteSize, nil

	case *tg.MessageMediaDocument:
		doc, ok := m.Document.(*tg.Document)
		if !ok {
			return nil, 0, domain.ErrNoMedia
		}
		return &tg.InputDocumentFileLocation{
			ID:            doc.ID,
			AccessHash:    doc.AccessHash,
			FileReference: doc.FileReference,
		}, doc.Size, nil

	default:
		return nil, 0, domain.ErrNoMedia
	}
}

// Ensure WatcherClient implements domain.WatcherClient interface
var _ domain.WatcherClient = (*WatcherClient)(nil)
