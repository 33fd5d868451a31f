// Package telegram implements the protocol session capability on gotd/td.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"tgsync/internal/domain"
	"tgsync/internal/utils"
)

const (
	dialogPageSize  = 100
	historyPageSize = 100

	// API request budget per session, mirrors the remote flood limits.
	requestsPerSecond = 10
)

// Factory implements domain.SessionFactory. Each opened session binds a
// fresh gotd client to the account's file session artifact.
type Factory struct {
	sessionDir string
	logger     zerolog.Logger
}

// NewFactory creates a session factory storing artifacts under sessionDir.
func NewFactory(sessionDir string, logger zerolog.Logger) *Factory {
	return &Factory{
		sessionDir: sessionDir,
		logger:     logger.With().Str("component", "telegram").Logger(),
	}
}

// flowAuth adapts a domain.Authenticator to the gotd auth flow. Sign-up of
// new Telegram identities is not supported here.
type flowAuth struct {
	phone string
	auth  domain.Authenticator
}

func (a flowAuth) Phone(ctx context.Context) (string, error) { return a.phone, nil }

func (a flowAuth) Password(ctx context.Context) (string, error) {
	return a.auth.Password(ctx)
}

func (a flowAuth) Code(ctx context.Context, _ *tg.AuthSentCode) (string, error) {
	return a.auth.Code(ctx)
}

func (a flowAuth) AcceptTermsOfService(ctx context.Context, tos tg.HelpTermsOfService) error {
	return nil
}

func (a flowAuth) SignUp(ctx context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, errors.New("sign up is not supported")
}

var _ auth.UserAuthenticator = flowAuth{}

// Open connects and authenticates a session for the account. The returned
// session is ready for API calls; the caller owns it and must Close it on
// every exit path.
func (f *Factory) Open(ctx context.Context, account *domain.Account, authenticator domain.Authenticator) (domain.Session, error) {
	if account.APIID == 0 || account.APIHash == "" {
		return nil, fmt.Errorf("account %d has no api credentials", account.ID)
	}

	storage, err := NewFileSessionStorage(f.sessionDir, account.Phone)
	if err != nil {
		return nil, err
	}

	logger := f.logger.With().Str("phone", utils.MaskPhone(account.Phone)).Logger()
	client := telegram.NewClient(account.APIID, account.APIHash, telegram.Options{
		SessionStorage: storage,
	})

	s := &gotdSession{
		client:  client,
		phone:   account.Phone,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(time.Second/requestsPerSecond), requestsPerSecond),
		peers:   make(map[int64]tg.InputPeerClass),
		runDone: make(chan struct{}),
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	ready := make(chan struct{})
	errCh := make(chan error, 1)

	go func() {
		defer close(s.runDone)
		err := client.Run(runCtx, func(cctx context.Context) error {
			status, err := client.Auth().Status(cctx)
			if err != nil {
				return fmt.Errorf("failed to check auth status: %w", err)
			}

			if !status.Authorized {
				logger.Info().Msg("no valid session artifact, starting authentication")
				flow := auth.NewFlow(flowAuth{phone: account.Phone, auth: authenticator}, auth.SendCodeOptions{})
				if err := client.Auth().IfNecessary(cctx, flow); err != nil {
					return fmt.Errorf("authentication failed: %w", err)
				}
			} else {
				logger.Info().Msg("session restored from artifact")
			}

			s.api = client.API()
			close(ready)

			// Keep the connection alive until the session is closed.
			<-cctx.Done()
			return cctx.Err()
		})
		select {
		case errCh <- err:
		default:
		}
	}()

	select {
	case <-ready:
		logger.Info().Msg("session opened")
		return s, nil
	case err := <-errCh:
		cancel()
		if err == nil {
			err = domain.ErrSessionClosed
		}
		return nil, err
	case <-ctx.Done():
		cancel()
		<-s.runDone
		return nil, ctx.Err()
	}
}

var _ domain.SessionFactory = (*Factory)(nil)

// peer is the opaque handle handed out by ResolvePeer.
type peer struct {
	id    int64
	input tg.InputPeerClass
}

func (p peer) PeerID() int64 { return p.id }

// gotdSession implements domain.Session over a running gotd client.
type gotdSession struct {
	client  *telegram.Client
	api     *tg.Client
	phone   string
	logger  zerolog.Logger
	limiter *rate.Limiter

	cancel  context.CancelFunc
	runDone chan struct{}

	mu     sync.Mutex
	closed bool
	peers  map[int64]tg.InputPeerClass
}

func (s *gotdSession) acquire(ctx context.Context) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return domain.ErrSessionClosed
	}
	return s.limiter.Wait(ctx)
}

// Profile fetches the authenticated account's own identity.
func (s *gotdSession) Profile(ctx context.Context) (*domain.Profile, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}

	self, err := s.client.Self(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch self: %w", err)
	}

	return &domain.Profile{
		TgID:      self.ID,
		Username:  self.Username,
		FirstName: self.FirstName,
		LastName:  self.LastName,
	}, nil
}

// Dialogs iterates all conversations visible to the account, paginating
// through the remote dialog list. Entities seen on the way are cached for
// later peer resolution.
func (s *gotdSession) Dialogs(ctx context.Context, fn func(domain.RemoteDialog) error) error {
	req := &tg.MessagesGetDialogsRequest{
		OffsetPeer: &tg.InputPeerEmpty{},
		Limit:      dialogPageSize,
	}

	for {
		if err := s.acquire(ctx); err != nil {
			return err
		}

		res, err := s.api.MessagesGetDialogs(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to get dialogs: %w", err)
		}

		var (
			dialogs  []tg.DialogClass
			messages []tg.MessageClass
			users    map[int64]*tg.User
			chats    map[int64]tg.ChatClass
			lastPage bool
		)

		switch d := res.(type) {
		case *tg.MessagesDialogs:
			dialogs, messages = d.Dialogs, d.Messages
			users, chats = s.cacheEntities(d.Users, d.Chats)
			lastPage = true
		case *tg.MessagesDialogsSlice:
			dialogs, messages = d.Dialogs, d.Messages
			users, chats = s.cacheEntities(d.Users, d.Chats)
			lastPage = len(dialogs) < dialogPageSize
		case *tg.MessagesDialogsNotModified:
			return nil
		default:
			return fmt.Errorf("unexpected dialogs response %T", res)
		}

		if len(dialogs) == 0 {
			return nil
		}
		for _, dc := range dialogs {
			d, ok := dc.(*tg.Dialog)
			if !ok {
				continue
			}

			remote, ok := remoteDialogForPeer(d.Peer, users, chats)
			if !ok {
				continue
			}

			if err := fn(remote); err != nil {
				if errors.Is(err, domain.ErrStopIteration) {
					return nil
				}
				return err
			}
		}

		if lastPage {
			return nil
		}

		last, ok := dialogs[len(dialogs)-1].(*tg.Dialog)
		if !ok {
			return nil
		}
		req.OffsetPeer = s.inputPeerFor(last.Peer)
		req.OffsetID = last.TopMessage
		req.OffsetDate = topMessageDate(messages, last.TopMessage)
	}
}

// ResolvePeer resolves a remote conversation id to an input peer. The
// entity cache is filled from the dialog list on first use.
func (s *gotdSession) ResolvePeer(ctx context.Context, tgID int64) (domain.Peer, error) {
	s.mu.Lock()
	input, ok := s.peers[tgID]
	empty := len(s.peers) == 0
	s.mu.Unlock()

	if !ok && empty {
		if err := s.Dialogs(ctx, func(domain.RemoteDialog) error { return nil }); err != nil {
			return nil, err
		}
		s.mu.Lock()
		input, ok = s.peers[tgID]
		s.mu.Unlock()
	}

	if !ok {
		return nil, fmt.Errorf("entity %d: %w", tgID, domain.ErrPeerNotFound)
	}
	return peer{id: tgID, input: input}, nil
}

// Messages iterates the conversation history. Default order is newest
// first; reversed walks the history oldest first the way the remote
// positional offsets allow.
func (s *gotdSession) Messages(ctx context.Context, p domain.Peer, reversed bool, fn func(domain.RemoteMessage) error) error {
	pr, ok := p.(peer)
	if !ok {
		return domain.ErrPeerNotFound
	}

	if reversed {
		return s.messagesAscending(ctx, pr, fn)
	}
	return s.messagesDescending(ctx, pr, fn)
}

func (s *gotdSession) messagesDescending(ctx context.Context, p peer, fn func(domain.RemoteMessage) error) error {
	offsetID := 0
	for {
		batch, err := s.historyBatch(ctx, &tg.MessagesGetHistoryRequest{
			Peer:     p.input,
			OffsetID: offsetID,
			Limit:    historyPageSize,
		})
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		minID := 0
		for _, msg := range batch {
			remote, ok := remoteMessage(msg)
			if !ok {
				continue
			}
			if minID == 0 || remote.ID < minID {
				minID = remote.ID
			}
			if err := fn(remote); err != nil {
				if errors.Is(err, domain.ErrStopIteration) {
					return nil
				}
				return err
			}
		}

		if len(batch) < historyPageSize || minID == 0 {
			return nil
		}
		offsetID = minID
	}
}

func (s *gotdSession) messagesAscending(ctx context.Context, p peer, fn func(domain.RemoteMessage) error) error {
	offsetID := 1
	for {
		batch, err := s.historyBatch(ctx, &tg.MessagesGetHistoryRequest{
			Peer:      p.input,
			OffsetID:  offsetID,
			AddOffset: -historyPageSize,
			Limit:     historyPageSize,
		})
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		// The remote returns each window newest first; walk it backwards.
		maxID := 0
		for i := len(batch) - 1; i >= 0; i-- {
			remote, ok := remoteMessage(batch[i])
			if !ok {
				continue
			}
			if remote.ID > maxID {
				maxID = remote.ID
			}
			if err := fn(remote); err != nil {
				if errors.Is(err, domain.ErrStopIteration) {
					return nil
				}
				return err
			}
		}

		if len(batch) < historyPageSize || maxID == 0 {
			return nil
		}
		offsetID = maxID + 1
	}
}

func (s *gotdSession) historyBatch(ctx context.Context, req *tg.MessagesGetHistoryRequest) ([]tg.MessageClass, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}

	res, err := s.api.MessagesGetHistory(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	switch m := res.(type) {
	case *tg.MessagesMessages:
		return m.Messages, nil
	case *tg.MessagesMessagesSlice:
		return m.Messages, nil
	case *tg.MessagesChannelMessages:
		return m.Messages, nil
	case *tg.MessagesMessagesNotModified:
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected history response %T", res)
	}
}

// SendMessage sends a text message to the conversation.
func (s *gotdSession) SendMessage(ctx context.Context, p domain.Peer, text string) error {
	pr, ok := p.(peer)
	if !ok {
		return domain.ErrPeerNotFound
	}

	if err := s.acquire(ctx); err != nil {
		return err
	}

	_, err := s.api.MessagesSendMessage(ctx, &tg.MessagesSendMessageRequest{
		Peer:     pr.input,
		Message:  text,
		RandomID: rand.Int63(),
	})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Close releases the underlying connection. Safe to call more than once.
func (s *gotdSession) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()

	select {
	case <-s.runDone:
		s.logger.Info().Msg("session closed")
	case <-ctx.Done():
		s.logger.Warn().Msg("timeout waiting for session shutdown")
	}
	return nil
}

var _ domain.Session = (*gotdSession)(nil)

// cacheEntities records input peers for resolution and returns the page's
// raw entities keyed by id for classification.
func (s *gotdSession) cacheEntities(userList []tg.UserClass, chatList []tg.ChatClass) (map[int64]*tg.User, map[int64]tg.ChatClass) {
	users := make(map[int64]*tg.User, len(userList))
	chats := make(map[int64]tg.ChatClass, len(chatList))

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, uc := range userList {
		if u, ok := uc.(*tg.User); ok {
			users[u.ID] = u
			s.peers[u.ID] = &tg.InputPeerUser{UserID: u.ID, AccessHash: u.AccessHash}
		}
	}
	for _, cc := range chatList {
		switch c := cc.(type) {
		case *tg.Chat:
			chats[c.ID] = c
			s.peers[c.ID] = &tg.InputPeerChat{ChatID: c.ID}
		case *tg.ChatForbidden:
			chats[c.ID] = c
		case *tg.Channel:
			chats[c.ID] = c
			s.peers[c.ID] = &tg.InputPeerChannel{ChannelID: c.ID, AccessHash: c.AccessHash}
		}
	}
	return users, chats
}

func (s *gotdSession) inputPeerFor(pc tg.PeerClass) tg.InputPeerClass {
	s.mu.Lock()
	defer s.mu.Unlock()

	if input, ok := s.peers[peerEntityID(pc)]; ok {
		return input
	}
	return &tg.InputPeerEmpty{}
}

func peerEntityID(pc tg.PeerClass) int64 {
	switch p := pc.(type) {
	case *tg.PeerUser:
		return p.UserID
	case *tg.PeerChat:
		return p.ChatID
	case *tg.PeerChannel:
		return p.ChannelID
	default:
		return 0
	}
}

func remoteDialogForPeer(pc tg.PeerClass, users map[int64]*tg.User, chats map[int64]tg.ChatClass) (domain.RemoteDialog, bool) {
	id := peerEntityID(pc)
	if _, isUser := pc.(*tg.PeerUser); isUser {
		if u, ok := users[id]; ok {
			return remoteDialogFromUser(u), true
		}
		return domain.RemoteDialog{}, false
	}
	if c, ok := chats[id]; ok {
		return remoteDialogFromChat(c), true
	}
	return domain.RemoteDialog{}, false
}

func remoteMessage(mc tg.MessageClass) (domain.RemoteMessage, bool) {
	switch m := mc.(type) {
	case *tg.Message:
		return domain.RemoteMessage{
			ID:   m.ID,
			Text: m.Message,
			Date: time.Unix(int64(m.Date), 0),
		}, true
	case *tg.MessageService:
		return domain.RemoteMessage{
			ID:      m.ID,
			Date:    time.Unix(int64(m.Date), 0),
			Service: true,
		}, true
	default:
		return domain.RemoteMessage{}, false
	}
}

func topMessageDate(messages []tg.MessageClass, topID int) int {
	for _, mc := range messages {
		if m, ok := mc.(*tg.Message); ok && m.ID == topID {
			return m.Date
		}
	}
	return 0
}
