package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"rentshare-backend-go/internal/db"
	"rentshare-backend-go/internal/models"
)

var testLogger = zap.NewNop()

// fakeStore is an in-memory document store. Transactions run on a copy of the data
// that replaces the committed state only when fn succeeds.
type fakeStore struct {
	mu    sync.Mutex
	data  *fakeData
	clock time.Time
	seq   int

	// txErr, when set, fails every transaction before fn runs.
	txErr error
}

type fakeData struct {
	users     map[string]*models.User
	plans     map[string]*models.Plan
	items     map[string]*models.Item
	requests  map[string]*models.RentRequest
	guards    map[string]*models.ActiveRequestGuard
	chats     map[string]*models.Chat
	messages  map[string]map[string]*models.Message
	sessions  map[string]*models.Session
	payments  map[string]*models.Payment
	subs      map[string]*models.Subscription
	txns      map[string]*models.Transaction
	notifs    map[string][]*models.Notification
	outbox    map[string]*models.OutboxEntry
	pushToken map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		clock: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		data: &fakeData{
			users:     map[string]*models.User{},
			plans:     map[string]*models.Plan{},
			items:     map[string]*models.Item{},
			requests:  map[string]*models.RentRequest{},
			guards:    map[string]*models.ActiveRequestGuard{},
			chats:     map[string]*models.Chat{},
			messages:  map[string]map[string]*models.Message{},
			sessions:  map[string]*models.Session{},
			payments:  map[string]*models.Payment{},
			subs:      map[string]*models.Subscription{},
			txns:      map[string]*models.Transaction{},
			notifs:    map[string][]*models.Notification{},
			outbox:    map[string]*models.OutboxEntry{},
			pushToken: map[string]string{},
		},
	}
}

func copyMap[T any](in map[string]*T) map[string]*T {
	out := make(map[string]*T, len(in))
	for k, v := range in {
		c := *v
		out[k] = &c
	}
	return out
}

func (d *fakeData) clone() *fakeData {
	c := &fakeData{
		users:     copyMap(d.users),
		plans:     copyMap(d.plans),
		items:     copyMap(d.items),
		requests:  copyMap(d.requests),
		guards:    copyMap(d.guards),
		chats:     copyMap(d.chats),
		messages:  map[string]map[string]*models.Message{},
		sessions:  copyMap(d.sessions),
		payments:  copyMap(d.payments),
		subs:      copyMap(d.subs),
		txns:      copyMap(d.txns),
		notifs:    map[string][]*models.Notification{},
		outbox:    copyMap(d.outbox),
		pushToken: map[string]string{},
	}
	for id, u := range c.users {
		if u.CurrentPlan != nil {
			p := *u.CurrentPlan
			c.users[id].CurrentPlan = &p
		}
	}
	for chatID, msgs := range d.messages {
		c.messages[chatID] = copyMap(msgs)
	}
	for uid, list := range d.notifs {
		c.notifs[uid] = append([]*models.Notification{}, list...)
	}
	for k, v := range d.pushToken {
		c.pushToken[k] = v
	}
	return c
}

func (s *fakeStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *fakeStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s%d", prefix, s.seq)
}

func (s *fakeStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx db.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.txErr != nil {
		return s.txErr
	}
	work := s.data.clone()
	if err := fn(ctx, &fakeTx{store: s, d: work}); err != nil {
		return err
	}
	s.data = work
	return nil
}

// seed helpers

func (s *fakeStore) addUser(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.users[u.ID] = u
}

func (s *fakeStore) addPlan(p *models.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.plans[p.ID] = p
}

func (s *fakeStore) addItem(it *models.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.items[it.ID] = it
}

func (s *fakeStore) user(id string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.users[id]
}

func (s *fakeStore) item(id string) *models.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.items[id]
}

func (s *fakeStore) request(id string) *models.RentRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.requests[id]
}

func (s *fakeStore) guard(requesterID, itemID string) *models.ActiveRequestGuard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.guards[models.ActiveRequestGuardID(requesterID, itemID)]
}

func (s *fakeStore) chat(id string) *models.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.chats[id]
}

func (s *fakeStore) message(chatID, msgID string) *models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.messages[chatID][msgID]
}

// sortedMessages returns a chat's messages oldest first.
func (s *fakeStore) sortedMessages(chatID string) []*models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortMessages(s.data.messages[chatID])
}

func sortMessages(in map[string]*models.Message) []*models.Message {
	list := make([]*models.Message, 0, len(in))
	for _, m := range in {
		c := *m
		list = append(list, &c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list
}

func (s *fakeStore) session(id string) *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.sessions[id]
}

func (s *fakeStore) activeSessions(userID string) []*models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return activeSessionsOf(s.data, userID)
}

func activeSessionsOf(d *fakeData, userID string) []*models.Session {
	var list []*models.Session
	for _, sess := range d.sessions {
		if sess.UserID == userID && sess.IsActive {
			c := *sess
			list = append(list, &c)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].SessionID < list[j].SessionID })
	return list
}

func (s *fakeStore) counts() (payments, subs, txns int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.payments), len(s.data.subs), len(s.data.txns)
}

// fakeTx works on a private copy of the data.
type fakeTx struct {
	store *fakeStore
	d     *fakeData
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s '%s': %w", kind, id, db.ErrNotFound)
}

func (t *fakeTx) GetUser(userID string) (*models.User, error) {
	u, ok := t.d.users[userID]
	if !ok {
		return nil, notFound("user", userID)
	}
	c := *u
	if u.CurrentPlan != nil {
		p := *u.CurrentPlan
		c.CurrentPlan = &p
	}
	return &c, nil
}

func (t *fakeTx) SetCurrentPlan(userID string, plan *models.CurrentPlan) error {
	u, ok := t.d.users[userID]
	if !ok {
		return notFound("user", userID)
	}
	p := *plan
	u.CurrentPlan = &p
	return nil
}

func (t *fakeTx) GetItem(itemID string) (*models.Item, error) {
	it, ok := t.d.items[itemID]
	if !ok {
		return nil, notFound("item", itemID)
	}
	c := *it
	return &c, nil
}

func (t *fakeTx) CreateItem(item *models.Item) error {
	if item.ID == "" {
		item.ID = t.store.nextID("item")
	}
	item.CreatedAt = t.store.tick()
	c := *item
	t.d.items[item.ID] = &c
	return nil
}

func (t *fakeTx) SetItemReservation(itemID, status, reservedBy string, reservedAt *time.Time) error {
	it, ok := t.d.items[itemID]
	if !ok {
		return notFound("item", itemID)
	}
	it.ItemStatus = status
	it.ReservedBy = reservedBy
	it.ReservedAt = reservedAt
	return nil
}

func (t *fakeTx) DeleteItem(itemID string) error {
	delete(t.d.items, itemID)
	return nil
}

func (t *fakeTx) CountItemsByOwner(ownerID string) (int, error) {
	n := 0
	for _, it := range t.d.items {
		if it.Owner.ID == ownerID {
			n++
		}
	}
	return n, nil
}

func (t *fakeTx) GetRentRequest(requestID string) (*models.RentRequest, error) {
	r, ok := t.d.requests[requestID]
	if !ok {
		return nil, notFound("rent request", requestID)
	}
	c := *r
	c.Status = c.Status.Normalize()
	return &c, nil
}

func (t *fakeTx) NewRentRequestID() string { return t.store.nextID("req") }

func (t *fakeTx) CreateRentRequest(req *models.RentRequest) error {
	if _, ok := t.d.requests[req.ID]; ok {
		return db.ErrAlreadyExists
	}
	now := t.store.tick()
	req.CreatedAt, req.UpdatedAt = now, now
	c := *req
	t.d.requests[req.ID] = &c
	return nil
}

func (t *fakeTx) SetRentRequestStatus(requestID string, status models.RentRequestStatus) error {
	r, ok := t.d.requests[requestID]
	if !ok {
		return notFound("rent request", requestID)
	}
	r.Status = status
	r.UpdatedAt = t.store.tick()
	return nil
}

func (t *fakeTx) UpdateRentRequestDetails(requestID string, edit models.RentRequestEdit) error {
	r, ok := t.d.requests[requestID]
	if !ok {
		return notFound("rent request", requestID)
	}
	r.StartDate, r.EndDate = edit.StartDate, edit.EndDate
	r.PickupTime, r.Message, r.TotalPrice = edit.PickupTime, edit.Message, edit.TotalPrice
	return nil
}

func (t *fakeTx) DeleteRentRequest(requestID string) error {
	delete(t.d.requests, requestID)
	return nil
}

func (t *fakeTx) CountActiveRentRequests(requesterID string) (int, error) {
	n := 0
	for _, r := range t.d.requests {
		if r.RequesterID == requesterID && r.Status.IsActive() {
			n++
		}
	}
	return n, nil
}

func (t *fakeTx) ListActiveRentRequestsInChat(chatID string) ([]*models.RentRequest, error) {
	var out []*models.RentRequest
	for _, r := range t.d.requests {
		if r.ChatID == chatID && r.Status.IsActive() {
			c := *r
			c.Status = c.Status.Normalize()
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *fakeTx) GetActiveRequestGuard(requesterID, itemID string) (*models.ActiveRequestGuard, error) {
	id := models.ActiveRequestGuardID(requesterID, itemID)
	g, ok := t.d.guards[id]
	if !ok {
		return nil, notFound("guard", id)
	}
	c := *g
	return &c, nil
}

func (t *fakeTx) CreateActiveRequestGuard(guard *models.ActiveRequestGuard) error {
	id := models.ActiveRequestGuardID(guard.RequesterID, guard.ItemID)
	if _, ok := t.d.guards[id]; ok {
		return db.ErrAlreadyExists
	}
	c := *guard
	t.d.guards[id] = &c
	return nil
}

func (t *fakeTx) DeleteActiveRequestGuard(requesterID, itemID string) error {
	delete(t.d.guards, models.ActiveRequestGuardID(requesterID, itemID))
	return nil
}

func (t *fakeTx) GetChat(chatID string) (*models.Chat, error) {
	c, ok := t.d.chats[chatID]
	if !ok {
		return nil, notFound("chat", chatID)
	}
	cp := *c
	return &cp, nil
}

func (t *fakeTx) GetMessage(chatID, messageID string) (*models.Message, error) {
	m, ok := t.d.messages[chatID][messageID]
	if !ok {
		return nil, notFound("message", messageID)
	}
	c := *m
	return &c, nil
}

func (t *fakeTx) AppendMessage(chat *models.Chat, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = t.store.nextID("msg")
	}
	if t.d.messages[chat.ID] == nil {
		t.d.messages[chat.ID] = map[string]*models.Message{}
	}
	if _, ok := t.d.messages[chat.ID][msg.ID]; ok {
		return db.ErrAlreadyExists
	}
	now := t.store.tick()
	stored := *msg
	stored.CreatedAt = now
	t.d.messages[chat.ID][msg.ID] = &stored

	c, ok := t.d.chats[chat.ID]
	if !ok {
		c = &models.Chat{ID: chat.ID}
		t.d.chats[chat.ID] = c
	}
	c.Participants = chat.Participants
	c.LastMessage = msg.Text
	c.LastMessageTime = now
	c.LastSender = msg.SenderID
	c.UnreadCount++
	if chat.ItemID != "" {
		c.ItemID = chat.ItemID
	}
	if chat.RentRequestID != "" {
		c.RentRequestID = chat.RentRequestID
	}
	if chat.Status != "" {
		c.Status = chat.Status
	}
	return nil
}

func (t *fakeTx) SetCardStatus(chatID, messageID string, status models.RentRequestStatus) error {
	m, ok := t.d.messages[chatID][messageID]
	if !ok || m.RentRequest == nil {
		return notFound("message", messageID)
	}
	card := *m.RentRequest
	card.Status = status
	m.RentRequest = &card
	return nil
}

func (t *fakeTx) UpdateCardTerms(chatID, messageID string, card *models.RentRequestCard) error {
	m, ok := t.d.messages[chatID][messageID]
	if !ok || m.RentRequest == nil {
		return notFound("message", messageID)
	}
	c := *m.RentRequest
	c.StartDate, c.EndDate = card.StartDate, card.EndDate
	c.PickupTime, c.TotalPrice = card.PickupTime, card.TotalPrice
	m.RentRequest = &c
	return nil
}

func (t *fakeTx) SubmitAssessment(chatID, messageID string, assessment *models.Assessment) error {
	m, ok := t.d.messages[chatID][messageID]
	if !ok {
		return notFound("message", messageID)
	}
	a := *assessment
	m.Assessment = &a
	return nil
}

func (t *fakeTx) GetSession(sessionID string) (*models.Session, error) {
	s, ok := t.d.sessions[sessionID]
	if !ok {
		return nil, notFound("session", sessionID)
	}
	c := *s
	return &c, nil
}

func (t *fakeTx) ListActiveSessions(userID string) ([]*models.Session, error) {
	return activeSessionsOf(t.d, userID), nil
}

func (t *fakeTx) CreateSession(session *models.Session) error {
	if _, ok := t.d.sessions[session.SessionID]; ok {
		return db.ErrAlreadyExists
	}
	c := *session
	t.d.sessions[session.SessionID] = &c
	return nil
}

func (t *fakeTx) TerminateSession(sessionID, reason string, at time.Time) error {
	s, ok := t.d.sessions[sessionID]
	if !ok {
		return notFound("session", sessionID)
	}
	s.IsActive = false
	s.TerminationReason = reason
	s.TerminatedAt = &at
	return nil
}

func (t *fakeTx) GetPayment(orderID string) (*models.Payment, error) {
	p, ok := t.d.payments[orderID]
	if !ok {
		return nil, notFound("payment", orderID)
	}
	c := *p
	return &c, nil
}

func (t *fakeTx) CreatePayment(payment *models.Payment) error {
	if _, ok := t.d.payments[payment.OrderID]; ok {
		return db.ErrAlreadyExists
	}
	c := *payment
	t.d.payments[payment.OrderID] = &c
	return nil
}

func (t *fakeTx) CreateSubscription(sub *models.Subscription) error {
	if sub.ID == "" {
		sub.ID = t.store.nextID("sub")
	}
	c := *sub
	t.d.subs[sub.ID] = &c
	return nil
}

func (t *fakeTx) CreateTransaction(txn *models.Transaction) error {
	c := *txn
	t.d.txns[txn.TransactionID] = &c
	return nil
}

// Repositories backed by the same fakeStore.

type fakeUserRepo struct {
	s *fakeStore
	// updateErr, when set, is returned by Update.
	updateErr error
}

func (r *fakeUserRepo) GetByID(ctx context.Context, userID string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.data.users[userID]
	if !ok {
		return nil, notFound("user", userID)
	}
	c := *u
	c.PushToken = r.s.data.pushToken[userID]
	return &c, nil
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.users[user.ID]; ok {
		return db.ErrAlreadyExists
	}
	c := *user
	r.s.data.users[user.ID] = &c
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.data.users[user.ID]
	if !ok {
		return notFound("user", user.ID)
	}
	plan := u.CurrentPlan
	c := *user
	c.CurrentPlan = plan
	r.s.data.users[user.ID] = &c
	return nil
}

func (r *fakeUserRepo) SetPushToken(ctx context.Context, userID, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.users[userID]; !ok {
		return notFound("user", userID)
	}
	if token == "" {
		delete(r.s.data.pushToken, userID)
		return nil
	}
	r.s.data.pushToken[userID] = token
	return nil
}

type fakePlanRepo struct{ s *fakeStore }

func (r *fakePlanRepo) GetByID(ctx context.Context, planID string) (*models.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.data.plans[planID]
	if !ok {
		return nil, notFound("plan", planID)
	}
	c := *p
	return &c, nil
}

func (r *fakePlanRepo) ListByType(ctx context.Context, planType string) ([]*models.Plan, error) {
	all, _ := r.List(ctx)
	var out []*models.Plan
	for _, p := range all {
		if p.PlanType == planType {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePlanRepo) List(ctx context.Context) ([]*models.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Plan{}
	for _, p := range r.s.data.plans {
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out, nil
}

func (r *fakePlanRepo) Upsert(ctx context.Context, plan *models.Plan) error {
	r.s.addPlan(plan)
	return nil
}

type fakeItemRepo struct{ s *fakeStore }

func (r *fakeItemRepo) GetByID(ctx context.Context, itemID string) (*models.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.data.items[itemID]
	if !ok {
		return nil, notFound("item", itemID)
	}
	c := *it
	return &c, nil
}

func (r *fakeItemRepo) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*models.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Item{}
	for _, it := range r.s.data.items {
		if it.Owner.ID == ownerID {
			c := *it
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeItemRepo) Search(ctx context.Context, search models.ItemSearch) ([]*models.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Item{}
	kw := strings.ToLower(search.Keyword)
	for _, it := range r.s.data.items {
		if it.ItemStatus != models.ItemStatusAvailable {
			continue
		}
		if search.Category != "" && it.Category != search.Category {
			continue
		}
		if kw != "" && !strings.Contains(strings.ToLower(it.ItemName), kw) {
			continue
		}
		c := *it
		out = append(out, &c)
	}
	return out, nil
}

func (r *fakeItemRepo) AppendImage(ctx context.Context, itemID, url string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.data.items[itemID]
	if !ok {
		return notFound("item", itemID)
	}
	it.Images = append(append([]string{}, it.Images...), url)
	return nil
}

type fakeRentRequestRepo struct{ s *fakeStore }

func (r *fakeRentRequestRepo) GetByID(ctx context.Context, requestID string) (*models.RentRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.data.requests[requestID]
	if !ok {
		return nil, notFound("rent request", requestID)
	}
	c := *req
	c.Status = c.Status.Normalize()
	return &c, nil
}

func (r *fakeRentRequestRepo) list(match func(*models.RentRequest) bool, statuses []models.RentRequestStatus) []*models.RentRequest {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.RentRequest{}
	for _, req := range r.s.data.requests {
		if !match(req) {
			continue
		}
		if len(statuses) > 0 {
			ok := false
			for _, st := range statuses {
				if req.Status.Normalize() == st.Normalize() {
					ok = true
				}
			}
			if !ok {
				continue
			}
		}
		c := *req
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *fakeRentRequestRepo) ListByRequester(ctx context.Context, requesterID string, statuses []models.RentRequestStatus, limit int) ([]*models.RentRequest, error) {
	return r.list(func(req *models.RentRequest) bool { return req.RequesterID == requesterID }, statuses), nil
}

func (r *fakeRentRequestRepo) ListByOwner(ctx context.Context, ownerID string, statuses []models.RentRequestStatus, limit int) ([]*models.RentRequest, error) {
	return r.list(func(req *models.RentRequest) bool { return req.OwnerID == ownerID }, statuses), nil
}

func (r *fakeRentRequestRepo) GetActiveGuard(ctx context.Context, requesterID, itemID string) (*models.ActiveRequestGuard, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id := models.ActiveRequestGuardID(requesterID, itemID)
	g, ok := r.s.data.guards[id]
	if !ok {
		return nil, notFound("guard", id)
	}
	c := *g
	return &c, nil
}

type fakeChatRepo struct {
	s *fakeStore
	// updates is replayed by WatchRecentMessages before it returns.
	updates int
}

func (r *fakeChatRepo) GetByID(ctx context.Context, chatID string) (*models.Chat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.data.chats[chatID]
	if !ok {
		return nil, notFound("chat", chatID)
	}
	cp := *c
	return &cp, nil
}

func (r *fakeChatRepo) ListByParticipant(ctx context.Context, userID string, limit int) ([]*models.Chat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Chat{}
	for _, c := range r.s.data.chats {
		if c.HasParticipant(userID) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageTime.After(out[j].LastMessageTime) })
	return out, nil
}

func (r *fakeChatRepo) ListRecentMessages(ctx context.Context, chatID string, limit int) ([]*models.Message, error) {
	asc := r.s.sortedMessages(chatID)
	newest := make([]*models.Message, 0, len(asc))
	for i := len(asc) - 1; i >= 0 && len(newest) < limit; i-- {
		newest = append(newest, asc[i])
	}
	return newest, nil
}

func (r *fakeChatRepo) WatchRecentMessages(ctx context.Context, chatID string, limit int, fn func([]*models.Message) error) error {
	for i := 0; i <= r.updates; i++ {
		newest, _ := r.ListRecentMessages(ctx, chatID, limit)
		if err := fn(newest); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeChatRepo) MarkRead(ctx context.Context, chatID, readerID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	at := r.s.tick()
	for _, m := range r.s.data.messages[chatID] {
		if m.SenderID == readerID || m.Read {
			continue
		}
		m.Read = true
		m.ReadAt = &at
		n++
	}
	if c, ok := r.s.data.chats[chatID]; ok {
		c.UnreadCount = 0
	}
	return n, nil
}

type fakeSessionRepo struct{ s *fakeStore }

func (r *fakeSessionRepo) GetByID(ctx context.Context, sessionID string) (*models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	s, ok := r.s.data.sessions[sessionID]
	if !ok {
		return nil, notFound("session", sessionID)
	}
	c := *s
	return &c, nil
}

func (r *fakeSessionRepo) ListActive(ctx context.Context, userID string) ([]*models.Session, error) {
	return r.s.activeSessions(userID), nil
}

func (r *fakeSessionRepo) Create(ctx context.Context, session *models.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *session
	r.s.data.sessions[session.SessionID] = &c
	return nil
}

func (r *fakeSessionRepo) Touch(ctx context.Context, sessionID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if s, ok := r.s.data.sessions[sessionID]; ok {
		s.LastActive = at
	}
	return nil
}

func (r *fakeSessionRepo) Terminate(ctx context.Context, sessionID, reason string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if s, ok := r.s.data.sessions[sessionID]; ok {
		s.IsActive = false
		s.TerminationReason = reason
		s.TerminatedAt = &at
	}
	return nil
}

type fakePaymentRepo struct{ s *fakeStore }

func (r *fakePaymentRepo) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.data.txns[transactionID]
	if !ok {
		return nil, notFound("transaction", transactionID)
	}
	c := *t
	return &c, nil
}

func (r *fakePaymentRepo) GetSubscription(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	s, ok := r.s.data.subs[subscriptionID]
	if !ok {
		return nil, notFound("subscription", subscriptionID)
	}
	c := *s
	return &c, nil
}

type fakeNotificationRepo struct {
	s         *fakeStore
	createErr error
}

func (r *fakeNotificationRepo) Create(ctx context.Context, userID string, n *models.Notification) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.notifs[userID] {
		if existing.ID == n.ID {
			return nil
		}
	}
	c := *n
	r.s.data.notifs[userID] = append(r.s.data.notifs[userID], &c)
	return nil
}

func (r *fakeNotificationRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]*models.Notification{}, r.s.data.notifs[userID]...), nil
}

type fakeOutboxRepo struct{ s *fakeStore }

func (r *fakeOutboxRepo) Enqueue(ctx context.Context, entry *models.OutboxEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry.ID = r.s.nextID("out")
	c := *entry
	r.s.data.outbox[entry.ID] = &c
	return nil
}

func (r *fakeOutboxRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.OutboxEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.OutboxEntry{}
	for _, e := range r.s.data.outbox {
		if e.Status == models.OutboxPending && !e.NextAttemptAt.After(now) {
			c := *e
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeOutboxRepo) MarkDelivered(ctx context.Context, entryID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.outbox[entryID].Status = models.OutboxDelivered
	return nil
}

func (r *fakeOutboxRepo) MarkAttemptFailed(ctx context.Context, entryID string, attempts int, lastErr string, next time.Time, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e := r.s.data.outbox[entryID]
	e.Attempts, e.LastError, e.NextAttemptAt, e.Status = attempts, lastErr, next, status
	return nil
}

func (r *fakeOutboxRepo) entry(id string) *models.OutboxEntry {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.data.outbox[id]
}

// Collaborator fakes.

type notifyCall struct {
	UserID string
	Kind   string
	Data   map[string]string
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
	err   error
}

func (n *recordingNotifier) Notify(ctx context.Context, userID, kind, title, body string, data map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{UserID: userID, Kind: kind, Data: data})
	return n.err
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, c := range n.calls {
		out = append(out, c.Kind)
	}
	return out
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
	deleted []string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (o *fakeObjects) Upload(ctx context.Context, path, contentType string, data []byte) (string, error) {
	if o.err != nil {
		return "", o.err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[path] = data
	return "https://files.test/" + path, nil
}

func (o *fakeObjects) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for p := range o.objects {
		if strings.HasPrefix(p, prefix) {
			delete(o.objects, p)
			n++
		}
	}
	o.deleted = append(o.deleted, prefix)
	return n, nil
}

func (o *fakeObjects) paths() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []string
	for p := range o.objects {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

type fakeIdentity struct {
	users     map[string]*IdentityUser
	createErr error
	linkErr   error
	links     int
}

func (f *fakeIdentity) CreateUser(ctx context.Context, email, password, displayName string) (*IdentityUser, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, u := range f.users {
		if u.Email == email {
			return nil, ErrEmailTaken
		}
	}
	u := &IdentityUser{UID: "uid-" + email, Email: email, DisplayName: displayName}
	f.users[u.UID] = u
	return u, nil
}

func (f *fakeIdentity) GetUser(ctx context.Context, uid string) (*IdentityUser, error) {
	u, ok := f.users[uid]
	if !ok {
		return nil, ErrIdentityNotFound
	}
	return u, nil
}

func (f *fakeIdentity) PasswordResetLink(ctx context.Context, email string) (string, error) {
	if f.linkErr != nil {
		return "", f.linkErr
	}
	for _, u := range f.users {
		if u.Email == email {
			f.links++
			return "https://auth.test/reset?email=" + email, nil
		}
	}
	return "", ErrIdentityNotFound
}

func (f *fakeIdentity) EmailVerificationLink(ctx context.Context, email string) (string, error) {
	if f.linkErr != nil {
		return "", f.linkErr
	}
	f.links++
	return "https://auth.test/verify?email=" + email, nil
}

type sentMail struct {
	To, Subject, Body string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

// fakeCooldown keeps expiry times against a settable clock.
type fakeCooldown struct {
	now     time.Time
	expires map[string]time.Time
}

func newFakeCooldown() *fakeCooldown {
	return &fakeCooldown{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), expires: map[string]time.Time{}}
}

func (c *fakeCooldown) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, time.Duration, error) {
	if exp, ok := c.expires[key]; ok && exp.After(c.now) {
		return false, exp.Sub(c.now), nil
	}
	c.expires[key] = c.now.Add(ttl)
	return true, 0, nil
}

func (c *fakeCooldown) Release(ctx context.Context, key string) error {
	delete(c.expires, key)
	return nil
}

type fakePending struct {
	orders map[string]*models.PendingOrder
}

func (p *fakePending) SavePendingOrder(ctx context.Context, order *models.PendingOrder, ttl time.Duration) error {
	c := *order
	p.orders[order.OrderID] = &c
	return nil
}

func (p *fakePending) GetPendingOrder(ctx context.Context, orderID string) (*models.PendingOrder, error) {
	o, ok := p.orders[orderID]
	if !ok {
		return nil, nil
	}
	c := *o
	return &c, nil
}

func (p *fakePending) DeletePendingOrder(ctx context.Context, orderID string) error {
	delete(p.orders, orderID)
	return nil
}

type fakeGateway struct {
	created      []OrderRequest
	captures     int
	captureState string
	createErr    error
	captureErr   error
}

func (g *fakeGateway) CreateOrder(ctx context.Context, req OrderRequest) (*CreatedOrder, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created = append(g.created, req)
	id := fmt.Sprintf("ORDER-%d", len(g.created))
	return &CreatedOrder{ID: id, Status: "CREATED", ApprovalURL: "https://paypal.test/checkoutnow?token=" + id}, nil
}

func (g *fakeGateway) CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error) {
	if g.captureErr != nil {
		return nil, g.captureErr
	}
	g.captures++
	status := g.captureState
	if status == "" {
		status = "COMPLETED"
	}
	return &CaptureResult{OrderID: orderID, Status: status, CaptureID: "CAP-" + orderID}, nil
}

type fixedRate float64

func (r fixedRate) Rate(ctx context.Context) float64 { return float64(r) }

type fakeClassifier struct {
	predictions []models.ItemPrediction
	err         error
	got         string
}

func (c *fakeClassifier) Classify(ctx context.Context, filename string, r io.Reader) ([]models.ItemPrediction, error) {
	if c.err != nil {
		return nil, c.err
	}
	b, _ := io.ReadAll(r)
	c.got = filename + ":" + string(b)
	return c.predictions, nil
}

type fakePusher struct {
	pushed []string
	err    error
}

func (p *fakePusher) Push(ctx context.Context, token, title, body string, data map[string]string) error {
	if p.err != nil {
		return p.err
	}
	p.pushed = append(p.pushed, token+":"+title)
	return nil
}

type fakeEvents struct {
	keys   []string
	bodies [][]byte
	err    error
}

func (f *fakeEvents) Publish(ctx context.Context, routingKey string, body []byte) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, routingKey)
	f.bodies = append(f.bodies, body)
	return nil
}

type reverseSealer struct{}

func (reverseSealer) Seal(plaintext []byte) ([]byte, error) {
	out := make([]byte, len(plaintext))
	for i, b := range plaintext {
		out[len(plaintext)-1-i] = b
	}
	return out, nil
}

var errBoom = errors.New("boom")

// activePlan is a plan with room left on both counters.
func activePlan(listLimit, rentLimit int) *models.CurrentPlan {
	return &models.CurrentPlan{
		PlanID:    "free",
		PlanType:  models.PlanTypeFree,
		ListLimit: listLimit,
		RentLimit: rentLimit,
		Status:    models.PlanStatusActive,
	}
}
