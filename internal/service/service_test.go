package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"classroomhub/internal/authz"
	"classroomhub/internal/database"
	"classroomhub/internal/metrics"
	"classroomhub/internal/models"
	"classroomhub/internal/security"
)

type testEnv struct {
	db        *database.DB
	auth      *AuthService
	registry  *RegistryService
	guardians *GuardianService
	calendar  *CalendarService
	messages  *MessageService
	dashboard *DashboardService
	notifier  *recordingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.RunMigrations(context.Background())
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	auth := NewAuthService(db, security.NewTokenIssuer("test-secret", time.Hour), 24*time.Hour)
	calendar := NewCalendarService(db)
	messages := NewMessageService(db, notifier, metrics.New(), zap.NewNop())
	t.Cleanup(messages.Wait)

	return &testEnv{
		db:        db,
		auth:      auth,
		registry:  NewRegistryService(db),
		guardians: NewGuardianService(db),
		calendar:  calendar,
		messages:  messages,
		dashboard: NewDashboardService(auth, calendar, messages),
		notifier:  notifier,
	}
}

// register creates a user and returns it with its actor
func (e *testEnv) register(t *testing.T, email, name string) (*models.User, authz.Actor) {
	t.Helper()
	user, err := e.auth.Register(context.Background(), email, name, "password123")
	require.NoError(t, err)
	return user, authz.Actor{UserID: user.ID}
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

type notifyCall struct {
	messageID  int64
	senderID   int64
	recipients int
}

func (n *recordingNotifier) NotifyBroadcast(_ context.Context, msg *models.Message, sender *models.User, recipients []models.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{messageID: msg.ID, senderID: sender.ID, recipients: len(recipients)})
	return nil
}

func (n *recordingNotifier) Calls() []notifyCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifyCall(nil), n.calls...)
}
