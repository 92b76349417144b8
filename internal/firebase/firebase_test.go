package firebase

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/messaging"
)

type fakeAuth struct {
	created *auth.UserToCreate
	err     error
}

func (f *fakeAuth) CreateUser(_ context.Context, u *auth.UserToCreate) (*auth.UserRecord, error) {
	f.created = u
	if f.err != nil {
		return nil, f.err
	}
	return &auth.UserRecord{UserInfo: &auth.UserInfo{UID: "uid-1", Email: "ana@example.com", DisplayName: "Ana"}}, nil
}

func (f *fakeAuth) GetUser(_ context.Context, uid string) (*auth.UserRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &auth.UserRecord{UserInfo: &auth.UserInfo{UID: uid, Email: "ana@example.com"}, EmailVerified: true}, nil
}

func (f *fakeAuth) PasswordResetLink(_ context.Context, email string) (string, error) {
	return "https://auth.test/reset?email=" + email, f.err
}

func (f *fakeAuth) EmailVerificationLink(_ context.Context, email string) (string, error) {
	return "https://auth.test/verify?email=" + email, f.err
}

func (f *fakeAuth) VerifyIDToken(_ context.Context, tok string) (*auth.Token, error) {
	if tok != "good" {
		return nil, errors.New("invalid token")
	}
	return &auth.Token{UID: "uid-1", Claims: map[string]interface{}{"email": "ana@example.com", "name": "Ana", "email_verified": true}}, nil
}

func TestIdentityAdapter(t *testing.T) {
	ctx := context.Background()
	fake := &fakeAuth{}
	id := &Identity{client: fake}

	u, err := id.CreateUser(ctx, "ana@example.com", "pw", "Ana")
	if err != nil || u.UID != "uid-1" || u.DisplayName != "Ana" {
		t.Fatalf("CreateUser = %+v, %v", u, err)
	}
	got, err := id.GetUser(ctx, "uid-1")
	if err != nil || !got.EmailVerified {
		t.Errorf("GetUser = %+v, %v", got, err)
	}
	if link, _ := id.PasswordResetLink(ctx, "ana@example.com"); link != "https://auth.test/reset?email=ana@example.com" {
		t.Errorf("link = %q", link)
	}

	fake.err = errors.New("quota exceeded")
	if _, err := id.GetUser(ctx, "uid-1"); err == nil || !errors.Is(err, fake.err) {
		t.Errorf("err = %v", err)
	}
}

func TestVerifyIDToken(t *testing.T) {
	id := &Identity{client: &fakeAuth{}}
	u, err := id.VerifyIDToken(context.Background(), "good")
	if err != nil {
		t.Fatalf("VerifyIDToken: %v", err)
	}
	if u.UID != "uid-1" || u.Email != "ana@example.com" || u.DisplayName != "Ana" || !u.EmailVerified {
		t.Errorf("user = %+v", u)
	}
	if _, err := id.VerifyIDToken(context.Background(), "bad"); err == nil {
		t.Error("bad token accepted")
	}
}

type fakeFCM struct {
	msg *messaging.Message
	err error
}

func (f *fakeFCM) Send(_ context.Context, m *messaging.Message) (string, error) {
	f.msg = m
	return "projects/p/messages/1", f.err
}

func TestPusher(t *testing.T) {
	fake := &fakeFCM{}
	p := &Pusher{client: fake}
	if err := p.Push(context.Background(), "device-1", "Request accepted", "Your tent is reserved.", map[string]string{"requestId": "r1"}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if fake.msg.Token != "device-1" || fake.msg.Notification.Title != "Request accepted" || fake.msg.Data["requestId"] != "r1" {
		t.Errorf("message = %+v", fake.msg)
	}
	fake.err = errors.New("unavailable")
	if err := p.Push(context.Background(), "device-1", "t", "b", nil); err == nil {
		t.Error("send error swallowed")
	}
}
