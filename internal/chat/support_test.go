package chat_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sailchat/internal/chat"
	"github.com/sailchat/internal/model"
	"github.com/sailchat/internal/presence"
	"github.com/sailchat/internal/repository"
	"github.com/sailchat/internal/ws"
)

// memStore backs every collaborator interface of the service with maps,
// mirroring the repository semantics (ErrNotFound sentinel, value copies,
// patch updates).
type memStore struct {
	mu sync.Mutex

	chatRows      map[string]*model.Chat
	messageRows   []*model.ChatMessage
	userRows      map[string]*model.User
	sailRows      map[string]*model.SailRecord
	propertyRows  map[string]*model.Property
	addressRows   map[string]*model.Address
	agreementRows map[string]*model.AgentAgreement
	documentRows  map[string]*model.Document
	imageRows     map[string]*model.Image

	insertMessageErr error
	markReadCalls    int
}

func newMemStore() *memStore {
	return &memStore{
		chatRows:      map[string]*model.Chat{},
		userRows:      map[string]*model.User{},
		sailRows:      map[string]*model.SailRecord{},
		propertyRows:  map[string]*model.Property{},
		addressRows:   map[string]*model.Address{},
		agreementRows: map[string]*model.AgentAgreement{},
		documentRows:  map[string]*model.Document{},
		imageRows:     map[string]*model.Image{},
	}
}

func (s *memStore) GetChat(_ context.Context, chatID string) (*model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chatRows[chatID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) FindChatBetween(_ context.Context, userA, userB string) (*model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.chatRows {
		if c.SailID != nil {
			continue
		}
		if (c.User1 == userA && c.User2 == userB) || (c.User1 == userB && c.User2 == userA) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) ChatsBySail(_ context.Context, sailID string) ([]model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Chat
	for _, c := range s.chatRows {
		if c.SailID != nil && *c.SailID == sailID {
			out = append(out, *c)
		}
	}
	sortChats(out)
	return out, nil
}

func (s *memStore) ChatsByUser(_ context.Context, user string) ([]model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Chat
	for _, c := range s.chatRows {
		if c.HasParticipant(user) {
			out = append(out, *c)
		}
	}
	sortChats(out)
	return out, nil
}

func (s *memStore) ChatsByOwner(_ context.Context, owner string) ([]model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Chat
	for _, c := range s.chatRows {
		if c.SailID == nil || c.HasParticipant(owner) {
			continue
		}
		sail, ok := s.sailRows[*c.SailID]
		if !ok {
			continue
		}
		property, ok := s.propertyRows[sail.Property]
		if !ok || property.Owner != owner {
			continue
		}
		out = append(out, *c)
	}
	sortChats(out)
	return out, nil
}

func (s *memStore) InsertChat(_ context.Context, c *model.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.chatRows[c.ChatID] = &cp
	return nil
}

func (s *memStore) UpdateChat(_ context.Context, p model.ChatPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chatRows[p.ChatID]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.SailID != nil {
		c.SailID = p.SailID
	}
	if p.MailThreadID != nil {
		c.MailThreadID = p.MailThreadID
	}
	if p.LastMessageTime != nil {
		c.LastMessageTime = *p.LastMessageTime
	}
	return nil
}

func (s *memStore) CountUnread(_ context.Context, chatID, user string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.messageRows {
		if m.ChatID == chatID && m.To == user && !m.ReadFlag {
			n++
		}
	}
	return n, nil
}

func (s *memStore) CountChatsWithUnread(_ context.Context, user string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	for _, m := range s.messageRows {
		if m.To == user && !m.ReadFlag {
			seen[m.ChatID] = struct{}{}
		}
	}
	return len(seen), nil
}

func (s *memStore) InsertMessage(_ context.Context, m *model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertMessageErr != nil {
		return s.insertMessageErr
	}
	cp := *m
	s.messageRows = append(s.messageRows, &cp)
	return nil
}

func (s *memStore) MarkMessageRead(_ context.Context, chatMessageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markReadCalls++
	for _, m := range s.messageRows {
		if m.ChatMessageID == chatMessageID {
			m.ReadFlag = true
			return nil
		}
	}
	return nil
}

func (s *memStore) MarkChatRead(_ context.Context, chatID, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messageRows {
		if m.ChatID == chatID && m.To == user {
			m.ReadFlag = true
		}
	}
	return nil
}

func (s *memStore) MessagesByChat(_ context.Context, chatID string) ([]model.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ChatMessage
	for _, m := range s.messageRows {
		if m.ChatID == chatID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *memStore) GetUser(_ context.Context, userName string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.userRows[userName]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) GetSail(_ context.Context, sailID string) (*model.SailRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.sailRows[sailID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) GetProperty(_ context.Context, propertyID string) (*model.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.propertyRows[propertyID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) PropertyByOwner(_ context.Context, owner string) (*model.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.propertyRows {
		if p.Owner == owner {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) PropertyByAgent(_ context.Context, agent string) (*model.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.propertyRows {
		if (p.Agent1 != nil && *p.Agent1 == agent) || (p.Agent2 != nil && *p.Agent2 == agent) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) GetAddress(_ context.Context, addressID string) (*model.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.addressRows[addressID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *memStore) OpenSailByPropertyBuyer(_ context.Context, propertyID, buyer string) (*model.SailRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.sailRows {
		if r.Property != propertyID || r.Buyer != buyer {
			continue
		}
		switch r.SailStatus {
		case model.SailNotified, model.SailContacted, model.SailInProgress:
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) InsertSail(_ context.Context, r *model.SailRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.sailRows[r.SailID] = &cp
	return nil
}

func (s *memStore) UpdateSail(_ context.Context, sailID string, agent, agreementID *string, status model.SailStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.sailRows[sailID]
	if !ok {
		return repository.ErrNotFound
	}
	r.Agent = agent
	r.AgentAgreementID = agreementID
	r.SailStatus = status
	return nil
}

func (s *memStore) GetAgreement(_ context.Context, id string) (*model.AgentAgreement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agreementRows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *memStore) InsertAgreement(_ context.Context, a *model.AgentAgreement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.agreementRows[a.AgentAgreementID] = &cp
	return nil
}

func (s *memStore) ResolveAgreement(_ context.Context, id string, status model.AgreementStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agreementRows[id]
	if !ok || a.Status != model.AgreementStatusSent {
		return repository.ErrNotFound
	}
	a.Status = status
	a.ResolutionTime = &at
	return nil
}

func (s *memStore) AgreementsBySail(_ context.Context, sailID string) ([]model.AgentAgreement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AgentAgreement
	for _, a := range s.agreementRows {
		if a.SailID == sailID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *memStore) GetDocument(_ context.Context, id string) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documentRows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *memStore) GetImage(_ context.Context, id string) (*model.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.imageRows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *img
	return &cp, nil
}

func sortChats(chats []model.Chat) {
	sort.Slice(chats, func(i, j int) bool { return chats[i].ChatID < chats[j].ChatID })
}

// pushedFrame is one recorded Push call.
type pushedFrame struct {
	User   string
	ConnID string
	Msg    ws.Outgoing
}

type recordPusher struct {
	mu     sync.Mutex
	frames []pushedFrame
}

func (p *recordPusher) Push(user, connID string, msg ws.Outgoing) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, pushedFrame{User: user, ConnID: connID, Msg: msg})
}

func (p *recordPusher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = nil
}

func (p *recordPusher) framesOf(user string, eventType ws.EventType) []pushedFrame {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []pushedFrame
	for _, f := range p.frames {
		if f.User == user && f.Msg.Type == eventType {
			out = append(out, f)
		}
	}
	return out
}

type sentMail struct {
	DisplayName string
	To          []string
	Subject     string
	Body        string
	ThreadID    string
}

type fakeMailer struct {
	mu    sync.Mutex
	sends []sentMail
	err   error
}

func (m *fakeMailer) SendWithDisplayName(_ context.Context, displayName string, to []string, subject, body, threadID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.sends = append(m.sends, sentMail{DisplayName: displayName, To: to, Subject: subject, Body: body, ThreadID: threadID})
	if threadID != "" {
		return threadID, nil
	}
	return "thread-1", nil
}

// fixture is the standard world: a buyer, two agents sharing a listing that
// the owner holds, and the wiring the service runs on.
type fixture struct {
	store    *memStore
	registry *presence.Registry
	pusher   *recordPusher
	mailer   *fakeMailer
	svc      *chat.Service
}

const (
	buyer  = "bella"
	agent1 = "amir"
	agent2 = "ada"
	owner  = "omar"
)

func newFixture() *fixture {
	store := newMemStore()
	registry := presence.NewRegistry()
	pusher := &recordPusher{}
	mailer := &fakeMailer{}
	svc := chat.NewService(
		chat.Config{
			MailFromAddress: "no-reply@sailmarket.example",
			MailFromName:    "SailMarket admin",
			AppName:         "SailMarket",
		},
		store, store, store, store, store, store,
		registry, pusher, mailer,
	)
	f := &fixture{store: store, registry: registry, pusher: pusher, mailer: mailer, svc: svc}
	f.seedWorld()
	return f
}

func (f *fixture) seedWorld() {
	a1, a2 := agent1, agent2
	f.store.userRows[buyer] = &model.User{UserName: buyer, FirstName: "Bella", LastName: "Brook", EMail: "bella@example.com", Role: model.RoleBuyer}
	f.store.userRows[agent1] = &model.User{UserName: agent1, FirstName: "Amir", LastName: "Khan", EMail: "amir@example.com", Role: model.RoleAgent}
	f.store.userRows[agent2] = &model.User{UserName: agent2, FirstName: "Ada", LastName: "Lane", EMail: "ada@example.com", Role: model.RoleAgent}
	f.store.userRows[owner] = &model.User{UserName: owner, FirstName: "Omar", LastName: "Reed", EMail: "omar@example.com", Role: model.RoleOwner}
	f.store.addressRows["addr-1"] = &model.Address{AddressID: "addr-1", AddressLine1: "1 Harbour Way", AddressLine2: "Docklands"}
	f.store.propertyRows["prop-1"] = &model.Property{
		PropertyID: "prop-1", PropertyName: "Seaside Villa",
		Owner: owner, Address: "addr-1", Agent1: &a1, Agent2: &a2,
	}
}

// addSail stores a sail for the buyer on prop-1.
func (f *fixture) addSail(sailID string, status model.SailStatus) {
	f.store.sailRows[sailID] = &model.SailRecord{SailID: sailID, Property: "prop-1", Buyer: buyer, SailStatus: status}
}

// addChat stores a chat row directly, bypassing the save path.
func (f *fixture) addChat(chatID, user1, user2 string, status model.ChatStatus, sailID *string) *model.Chat {
	c := &model.Chat{
		ChatID: chatID, User1: user1, User2: user2,
		Status: status, SailID: sailID,
		LastMessageTime: time.Now().UTC(),
	}
	f.store.chatRows[chatID] = c
	return c
}

func (f *fixture) addAgreement(id, agent, chatSail string, status model.AgreementStatus) *model.AgentAgreement {
	a := &model.AgentAgreement{
		AgentAgreementID: id, AgreementText: "standard terms",
		Agent: agent, Buyer: buyer, SailID: chatSail,
		Status: status, SentTime: time.Now().UTC(),
	}
	f.store.agreementRows[id] = a
	return a
}

func strPtr(s string) *string { return &s }
