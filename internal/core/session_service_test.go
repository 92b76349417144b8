package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"rentshare-backend-go/internal/models"
)

func newSessionFixture() (*fakeStore, *sessionService) {
	store := newFakeStore()
	svc := NewSessionService(store, &fakeSessionRepo{s: store}, 0, testLogger).(*sessionService)
	clock := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return store, svc
}

var testDevice = models.DeviceInfo{Platform: "android", Model: "Pixel 8"}

func TestLoginWithoutConflict(t *testing.T) {
	store, svc := newSessionFixture()
	res, err := svc.Login(context.Background(), "u1", testDevice, models.ResolutionNone)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !res.Session.IsActive || res.Session.UserID != "u1" || len(res.TerminatedSessions) != 0 {
		t.Errorf("result = %+v", res)
	}
	if got := store.activeSessions("u1"); len(got) != 1 || got[0].SessionID != res.Session.SessionID {
		t.Errorf("active = %+v", got)
	}
}

func TestLoginConflict(t *testing.T) {
	ctx := context.Background()
	store, svc := newSessionFixture()
	first, err := svc.Login(ctx, "u1", testDevice, models.ResolutionNone)
	if err != nil {
		t.Fatalf("first Login: %v", err)
	}

	_, err = svc.Login(ctx, "u1", testDevice, models.ResolutionNone)
	var conflict *SessionConflictError
	if !errors.As(err, &conflict) || !errors.Is(err, ErrSessionConflict) {
		t.Fatalf("err = %v, want SessionConflictError", err)
	}
	if len(conflict.Active) != 1 || conflict.Active[0].SessionID != first.Session.SessionID {
		t.Errorf("conflict = %+v", conflict.Active)
	}
	if n := len(store.activeSessions("u1")); n != 1 {
		t.Errorf("active sessions = %d, want 1", n)
	}

	if _, err := svc.Login(ctx, "u1", testDevice, models.ResolutionAbort); !errors.Is(err, ErrLoginAborted) {
		t.Errorf("abort err = %v, want ErrLoginAborted", err)
	}
}

func TestLoginTerminateOthers(t *testing.T) {
	ctx := context.Background()
	store, svc := newSessionFixture()
	first, _ := svc.Login(ctx, "u1", testDevice, models.ResolutionNone)

	res, err := svc.Login(ctx, "u1", models.DeviceInfo{Platform: "ios"}, models.ResolutionTerminateOthers)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if len(res.TerminatedSessions) != 1 || res.TerminatedSessions[0] != first.Session.SessionID {
		t.Errorf("terminated = %v", res.TerminatedSessions)
	}
	if res.RemainingConflicts != 0 {
		t.Errorf("remaining = %d, want 0", res.RemainingConflicts)
	}
	old := store.session(first.Session.SessionID)
	if old.IsActive || old.TerminationReason != models.TerminationConflictResolution || old.TerminatedAt == nil {
		t.Errorf("old session = %+v", old)
	}
	if got := store.activeSessions("u1"); len(got) != 1 || got[0].SessionID != res.Session.SessionID {
		t.Errorf("active = %+v", got)
	}
}

func TestLoginSettleTerminatesLateSessions(t *testing.T) {
	ctx := context.Background()
	store, svc := newSessionFixture()
	first, _ := svc.Login(ctx, "u1", testDevice, models.ResolutionNone)

	// A plain login that started earlier but only landed before re-verification.
	repo := &fakeSessionRepo{s: store}
	late := &models.Session{SessionID: "u1_late", UserID: "u1", IsActive: true, CreatedAt: first.Session.CreatedAt}
	svc.sessionRepo = &createOnListRepo{fakeSessionRepo: repo, late: late}

	res, err := svc.Login(ctx, "u1", testDevice, models.ResolutionTerminateOthers)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.RemainingConflicts != 1 {
		t.Errorf("remaining = %d, want 1", res.RemainingConflicts)
	}
	if s := store.session("u1_late"); s.IsActive {
		t.Error("late session still active")
	}
	if s := store.session(first.Session.SessionID); s.IsActive {
		t.Error("first session still active")
	}
	if got := store.activeSessions("u1"); len(got) != 1 || got[0].SessionID != res.Session.SessionID {
		t.Errorf("active = %+v", got)
	}
}

// createOnListRepo inserts late the first time active sessions are listed.
type createOnListRepo struct {
	*fakeSessionRepo
	late  *models.Session
	added bool
}

func (r *createOnListRepo) ListActive(ctx context.Context, userID string) ([]*models.Session, error) {
	if !r.added {
		r.added = true
		_ = r.fakeSessionRepo.Create(ctx, r.late)
	}
	return r.fakeSessionRepo.ListActive(ctx, userID)
}

// loginOnListRepo runs another device's login the first time active sessions are listed.
type loginOnListRepo struct {
	*fakeSessionRepo
	login func()
	done  bool
}

func (r *loginOnListRepo) ListActive(ctx context.Context, userID string) ([]*models.Session, error) {
	if !r.done {
		r.done = true
		r.login()
	}
	return r.fakeSessionRepo.ListActive(ctx, userID)
}

func TestConcurrentTerminateOthersLeavesNewestSession(t *testing.T) {
	ctx := context.Background()
	store, deviceA := newSessionFixture()
	if _, err := deviceA.Login(ctx, "u1", testDevice, models.ResolutionNone); err != nil {
		t.Fatalf("initial Login: %v", err)
	}

	deviceB := NewSessionService(store, &fakeSessionRepo{s: store}, 0, testLogger).(*sessionService)
	deviceB.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	var second *models.LoginResult
	deviceA.sessionRepo = &loginOnListRepo{
		fakeSessionRepo: &fakeSessionRepo{s: store},
		login: func() {
			var err error
			if second, err = deviceB.Login(ctx, "u1", models.DeviceInfo{Platform: "ios"}, models.ResolutionTerminateOthers); err != nil {
				t.Errorf("device B Login: %v", err)
			}
		},
	}

	first, err := deviceA.Login(ctx, "u1", testDevice, models.ResolutionTerminateOthers)
	if err != nil {
		t.Fatalf("device A Login: %v", err)
	}
	if second == nil {
		t.Fatal("device B never logged in")
	}
	if first.RemainingConflicts != 0 {
		t.Errorf("device A remaining = %d, want 0", first.RemainingConflicts)
	}
	active := store.activeSessions("u1")
	if len(active) != 1 || active[0].SessionID != second.Session.SessionID {
		t.Fatalf("active = %+v, want only device B's session", active)
	}
	if s := store.session(first.Session.SessionID); s.IsActive {
		t.Error("device A session still active")
	}
}

func TestCreateUserSession(t *testing.T) {
	ctx := context.Background()
	store, svc := newSessionFixture()

	session, err := svc.CreateUserSession(ctx, "u1", testDevice)
	if err != nil {
		t.Fatalf("CreateUserSession: %v", err)
	}
	if want := models.NewSessionID("u1", session.CreatedAt); session.SessionID != want || !session.IsActive {
		t.Errorf("session = %+v, want id %s", session, want)
	}
	if got := store.session(session.SessionID); got == nil || got.DeviceInfo.Model != "Pixel 8" {
		t.Errorf("stored = %+v", got)
	}
	sessions, err := svc.CheckActiveSession(ctx, "u1")
	if err != nil || len(sessions) != 1 {
		t.Errorf("active = %d, err = %v", len(sessions), err)
	}
}

func TestLoginSettleHonoursContext(t *testing.T) {
	store := newFakeStore()
	svc := NewSessionService(store, &fakeSessionRepo{s: store}, time.Hour, testLogger).(*sessionService)
	ctx := context.Background()
	if _, err := svc.Login(ctx, "u1", testDevice, models.ResolutionNone); err != nil {
		t.Fatalf("Login: %v", err)
	}
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) }

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := svc.Login(cctx, "u1", testDevice, models.ResolutionTerminateOthers); err != nil {
			t.Errorf("Login: %v", err)
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Login blocked on settle delay after cancellation")
	}
}

func TestLoginStoreFailure(t *testing.T) {
	store, svc := newSessionFixture()
	store.txErr = errBoom
	if _, err := svc.Login(context.Background(), "u1", testDevice, models.ResolutionNone); !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("err = %v, want ErrLoginFailed", err)
	}
}

func TestForceTerminateSession(t *testing.T) {
	ctx := context.Background()
	store, svc := newSessionFixture()
	first, _ := svc.Login(ctx, "u1", testDevice, models.ResolutionNone)
	id := first.Session.SessionID

	if _, err := svc.ForceTerminateSession(ctx, "u2", id); !errors.Is(err, ErrNotSessionOwner) {
		t.Fatalf("other user err = %v, want ErrNotSessionOwner", err)
	}

	res, err := svc.ForceTerminateSession(ctx, "u1", id)
	if err != nil {
		t.Fatalf("ForceTerminateSession: %v", err)
	}
	if !res.Success || res.Reason != models.TerminationForced {
		t.Errorf("result = %+v", res)
	}
	if s := store.session(id); s.IsActive || s.TerminationReason != models.TerminationForced {
		t.Errorf("session = %+v", s)
	}

	again, err := svc.ForceTerminateSession(ctx, "u1", id)
	if err != nil {
		t.Fatalf("repeat: %v", err)
	}
	if again.Success || again.Reason != "already_inactive" {
		t.Errorf("repeat result = %+v", again)
	}

	missing, err := svc.ForceTerminateSession(ctx, "u1", "u1_0")
	if err != nil {
		t.Fatalf("missing: %v", err)
	}
	if missing.Success || missing.Reason != "not_found" {
		t.Errorf("missing result = %+v", missing)
	}
}

func TestTerminateCurrentSessionIsLogout(t *testing.T) {
	ctx := context.Background()
	store, svc := newSessionFixture()
	first, _ := svc.Login(ctx, "u1", testDevice, models.ResolutionNone)

	res, err := svc.TerminateCurrentSession(ctx, "u1", first.Session.SessionID)
	if err != nil || !res.Success {
		t.Fatalf("result = %+v, err = %v", res, err)
	}
	if s := store.session(first.Session.SessionID); s.TerminationReason != models.TerminationLogout {
		t.Errorf("reason = %q", s.TerminationReason)
	}
	// Logging out frees the user to log in again without a conflict.
	if _, err := svc.Login(ctx, "u1", testDevice, models.ResolutionNone); err != nil {
		t.Errorf("Login after logout: %v", err)
	}
}

func TestValidateSession(t *testing.T) {
	ctx := context.Background()
	store, svc := newSessionFixture()
	first, _ := svc.Login(ctx, "u1", testDevice, models.ResolutionNone)
	id := first.Session.SessionID
	before := store.session(id).LastActive

	if err := svc.ValidateSession(ctx, "u1", id); err != nil {
		t.Fatalf("ValidateSession: %v", err)
	}
	if after := store.session(id).LastActive; !after.After(before) {
		t.Errorf("lastActive not bumped: %v -> %v", before, after)
	}
	if err := svc.ValidateSession(ctx, "u2", id); !errors.Is(err, ErrNotSessionOwner) {
		t.Errorf("other user err = %v, want ErrNotSessionOwner", err)
	}
	if err := svc.ValidateSession(ctx, "u1", "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("missing err = %v, want ErrSessionNotFound", err)
	}

	if _, err := svc.TerminateCurrentSession(ctx, "u1", id); err != nil {
		t.Fatalf("TerminateCurrentSession: %v", err)
	}
	if err := svc.ValidateSession(ctx, "u1", id); !errors.Is(err, ErrSessionTerminated) {
		t.Errorf("terminated err = %v, want ErrSessionTerminated", err)
	}
}
