package usecase

import (
	"context"
	"sync"
	"time"

	"tgsync/internal/domain"
)

// notifyCall records one emitted status event.
type notifyCall struct {
	Room    string
	Event   string
	Payload any
}

// mockNotifier records emitted events in order.
type mockNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (m *mockNotifier) Notify(room, event string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, notifyCall{Room: room, Event: event, Payload: payload})
}

func (m *mockNotifier) events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.calls))
	for i, c := range m.calls {
		names[i] = c.Event
	}
	return names
}

func (m *mockNotifier) lastEvent() (notifyCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return notifyCall{}, false
	}
	return m.calls[len(m.calls)-1], true
}

// mockAlarmSender records sent alarms.
type mockAlarmSender struct {
	mu     sync.Mutex
	alarms []domain.Alarm
}

func (m *mockAlarmSender) SendAlarm(ctx context.Context, alarm domain.Alarm) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alarms = append(m.alarms, alarm)
	return nil
}

func (m *mockAlarmSender) sent() []domain.Alarm {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Alarm(nil), m.alarms...)
}

// mockCodeSupplier is a mock implementation of CodeSupplier.
type mockCodeSupplier struct {
	mu        sync.Mutex
	awaited   int
	awaitFunc func(ctx context.Context, phone string, timeout time.Duration) (string, error)
}

func (m *mockCodeSupplier) AwaitCode(ctx context.Context, phone string, timeout time.Duration) (string, error) {
	m.mu.Lock()
	m.awaited++
	m.mu.Unlock()
	if m.awaitFunc != nil {
		return m.awaitFunc(ctx, phone, timeout)
	}
	return "", domain.ErrCodeTimeout
}

func (m *mockCodeSupplier) awaitCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.awaited
}

// mockSessionFactory is a mock implementation of domain.SessionFactory.
type mockSessionFactory struct {
	openFunc func(ctx context.Context, account *domain.Account, auth domain.Authenticator) (domain.Session, error)
}

func (m *mockSessionFactory) Open(ctx context.Context, account *domain.Account, auth domain.Authenticator) (domain.Session, error) {
	if m.openFunc != nil {
		return m.openFunc(ctx, account, auth)
	}
	return &mockSession{}, nil
}

// staticPeer is a trivial peer handle for tests.
type staticPeer int64

func (p staticPeer) PeerID() int64 { return int64(p) }

// mockSession is a mock implementation of domain.Session.
type mockSession struct {
	mu         sync.Mutex
	closeCalls int

	profileFunc  func(ctx context.Context) (*domain.Profile, error)
	dialogsFunc  func(ctx context.Context, fn func(domain.RemoteDialog) error) error
	resolveFunc  func(ctx context.Context, tgID int64) (domain.Peer, error)
	messagesFunc func(ctx context.Context, peer domain.Peer, reversed bool, fn func(domain.RemoteMessage) error) error
	sendFunc     func(ctx context.Context, peer domain.Peer, text string) error
}

func (m *mockSession) Profile(ctx context.Context) (*domain.Profile, error) {
	if m.profileFunc != nil {
		return m.profileFunc(ctx)
	}
	return &domain.Profile{TgID: 1}, nil
}

func (m *mockSession) Dialogs(ctx context.Context, fn func(domain.RemoteDialog) error) error {
	if m.dialogsFunc != nil {
		return m.dialogsFunc(ctx, fn)
	}
	return nil
}

func (m *mockSession) ResolvePeer(ctx context.Context, tgID int64) (domain.Peer, error) {
	if m.resolveFunc != nil {
		return m.resolveFunc(ctx, tgID)
	}
	return staticPeer(tgID), nil
}

func (m *mockSession) Messages(ctx context.Context, peer domain.Peer, reversed bool, fn func(domain.RemoteMessage) error) error {
	if m.messagesFunc != nil {
		return m.messagesFunc(ctx, peer, reversed, fn)
	}
	return nil
}

func (m *mockSession) SendMessage(ctx context.Context, peer domain.Peer, text string) error {
	if m.sendFunc != nil {
		return m.sendFunc(ctx, peer, text)
	}
	return nil
}

func (m *mockSession) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++
	return nil
}

func (m *mockSession) closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCalls > 0
}

// mockAccountRepo is a mock implementation of domain.AccountRepository.
type mockAccountRepo struct {
	getByPhoneFunc   func(ctx context.Context, phone string) (*domain.Account, error)
	listFunc         func(ctx context.Context) ([]domain.Account, error)
	listByStatusFunc func(ctx context.Context, status domain.AccountStatus) ([]domain.Account, error)
	saveProfileFunc  func(ctx context.Context, id uint, profile domain.Profile) error
	updateStatusFunc func(ctx context.Context, id uint, status domain.AccountStatus) error
}

func (m *mockAccountRepo) Create(ctx context.Context, account *domain.Account) error {
	return nil
}

func (m *mockAccountRepo) GetByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	if m.getByPhoneFunc != nil {
		return m.getByPhoneFunc(ctx, phone)
	}
	return nil, domain.ErrAccountNotFound
}

func (m *mockAccountRepo) List(ctx context.Context) ([]domain.Account, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, nil
}

func (m *mockAccountRepo) ListByStatus(ctx context.Context, status domain.AccountStatus) ([]domain.Account, error) {
	if m.listByStatusFunc != nil {
		return m.listByStatusFunc(ctx, status)
	}
	return nil, nil
}

func (m *mockAccountRepo) SaveProfile(ctx context.Context, id uint, profile domain.Profile) error {
	if m.saveProfileFunc != nil {
		return m.saveProfileFunc(ctx, id, profile)
	}
	return nil
}

func (m *mockAccountRepo) UpdateStatus(ctx context.Context, id uint, status domain.AccountStatus) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status)
	}
	return nil
}

// mockDialogRepo is a mock implementation of domain.DialogRepository.
type mockDialogRepo struct {
	mu         sync.Mutex
	upserted   []domain.Dialog
	upsertFunc func(ctx context.Context, dialog *domain.Dialog) (bool, error)
}

func (m *mockDialogRepo) Upsert(ctx context.Context, dialog *domain.Dialog) (bool, error) {
	m.mu.Lock()
	m.upserted = append(m.upserted, *dialog)
	m.mu.Unlock()
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, dialog)
	}
	return true, nil
}

func (m *mockDialogRepo) GetByID(ctx context.Context, id uint) (*domain.Dialog, error) {
	return nil, domain.ErrDialogNotFound
}

func (m *mockDialogRepo) ListByAccount(ctx context.Context, accountID uint) ([]domain.Dialog, error) {
	return nil, nil
}

func (m *mockDialogRepo) rows() []domain.Dialog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Dialog(nil), m.upserted...)
}

// mockRuleRepo is a mock implementation of domain.DialogSyncRepository.
type mockRuleRepo struct {
	listEnabledFunc func(ctx context.Context) ([]domain.DialogSync, error)
}

func (m *mockRuleRepo) ListEnabled(ctx context.Context) ([]domain.DialogSync, error) {
	if m.listEnabledFunc != nil {
		return m.listEnabledFunc(ctx)
	}
	return nil, nil
}
