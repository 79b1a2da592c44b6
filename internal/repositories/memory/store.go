// Package memory provides an in-memory repositories.Store used by service
// tests. Every map mutation happens under one mutex, mirroring the atomicity
// the single-threaded original relied on.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tradebridge/backend/internal/models"
	"github.com/tradebridge/backend/internal/repositories"
)

type Store struct {
	mu sync.Mutex

	users        map[uuid.UUID]models.User
	chats        map[uuid.UUID]models.Chat
	participants []models.ChatParticipant
	messages     []storedMessage
	escrows      map[uuid.UUID]models.Escrow
	disputes     map[uuid.UUID]models.Dispute
	transactions []models.Transaction
	balances     map[balanceKey]models.WalletBalance
	notifs       []models.Notification
	audit        []models.AuditLog

	seq int64
}

type storedMessage struct {
	models.ChatMessage
	seq int64
}

type balanceKey struct {
	userID   uuid.UUID
	currency string
}

func NewStore() *Store {
	return &Store{
		users:    make(map[uuid.UUID]models.User),
		chats:    make(map[uuid.UUID]models.Chat),
		escrows:  make(map[uuid.UUID]models.Escrow),
		disputes: make(map[uuid.UUID]models.Dispute),
		balances: make(map[balanceKey]models.WalletBalance),
	}
}

func (s *Store) Users() repositories.UserRepository                 { return (*userRepo)(s) }
func (s *Store) Chats() repositories.ChatRepository                 { return (*chatRepo)(s) }
func (s *Store) Escrows() repositories.EscrowRepository             { return (*escrowRepo)(s) }
func (s *Store) Disputes() repositories.DisputeRepository           { return (*disputeRepo)(s) }
func (s *Store) Transactions() repositories.TransactionRepository   { return (*transactionRepo)(s) }
func (s *Store) Wallets() repositories.WalletRepository             { return (*walletRepo)(s) }
func (s *Store) Notifications() repositories.NotificationRepository { return (*notificationRepo)(s) }
func (s *Store) Audit() repositories.AuditRepository                { return (*auditRepo)(s) }

// WithTx has no rollback here: tests exercise the service sequencing, not
// crash recovery. fn runs against the same store.
func (s *Store) WithTx(ctx context.Context, fn func(repositories.Store) error) error {
	return fn(s)
}

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

// ---- users ----

type userRepo Store

func (r *userRepo) Create(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.LastActiveAt = u.CreatedAt
	r.users[u.ID] = *u
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *userRepo) UpdateLastActive(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.LastActiveAt = time.Now()
		r.users[id] = u
	}
	return nil
}

// ---- chats ----

type chatRepo Store

func (r *chatRepo) CreateChat(ctx context.Context, c *models.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	r.chats[c.ID] = *c
	return nil
}

func (r *chatRepo) GetChat(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &c, nil
}

func (r *chatRepo) ListChatsForUser(ctx context.Context, userID uuid.UUID) ([]models.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var chats []models.Chat
	for _, p := range r.participants {
		if p.UserID == userID {
			if c, ok := r.chats[p.ChatID]; ok {
				chats = append(chats, c)
			}
		}
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i].UpdatedAt.After(chats[j].UpdatedAt) })
	return chats, nil
}

func (r *chatRepo) TouchChat(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.chats[id]; ok {
		c.UpdatedAt = at
		r.chats[id] = c
	}
	return nil
}

func (r *chatRepo) AddParticipant(ctx context.Context, p *models.ChatParticipant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = uuid.New()
	p.JoinedAt = time.Now()
	r.participants = append(r.participants, *p)
	return nil
}

func (r *chatRepo) GetParticipant(ctx context.Context, chatID, userID uuid.UUID) (*models.ChatParticipant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.participants {
		if p.ChatID == chatID && p.UserID == userID {
			out := p
			return &out, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *chatRepo) ListParticipants(ctx context.Context, chatID uuid.UUID) ([]models.ChatParticipant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var parts []models.ChatParticipant
	for _, p := range r.participants {
		if p.ChatID == chatID {
			parts = append(parts, p)
		}
	}
	return parts, nil
}

func (r *chatRepo) FindParticipantByRole(ctx context.Context, chatID uuid.UUID, role string) (*models.ChatParticipant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.participants {
		if p.ChatID == chatID && p.Role == role {
			out := p
			return &out, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *chatRepo) SetLastRead(ctx context.Context, chatID, userID, messageID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.participants {
		if p.ChatID == chatID && p.UserID == userID {
			id := messageID
			r.participants[i].LastReadMessageID = &id
		}
	}
	return nil
}

func (r *chatRepo) CreateMessage(ctx context.Context, m *models.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	r.messages = append(r.messages, storedMessage{ChatMessage: *m, seq: (*Store)(r).nextSeq()})
	return nil
}

func (r *chatRepo) GetMessage(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			out := m.ChatMessage
			return &out, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *chatRepo) UpdateMessageContent(ctx context.Context, id uuid.UUID, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.messages {
		if m.ID == id {
			r.messages[i].Content = content
			r.messages[i].IsEdited = true
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (r *chatRepo) ListMessages(ctx context.Context, chatID uuid.UUID, limit int, before *time.Time) ([]models.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var page []storedMessage
	for _, m := range r.messages {
		if m.ChatID != chatID {
			continue
		}
		if before != nil && !m.CreatedAt.Before(*before) {
			continue
		}
		page = append(page, m)
	}
	sort.Slice(page, func(i, j int) bool {
		if page[i].CreatedAt.Equal(page[j].CreatedAt) {
			return page[i].seq < page[j].seq
		}
		return page[i].CreatedAt.Before(page[j].CreatedAt)
	})
	if limit > 0 && len(page) > limit {
		page = page[len(page)-limit:]
	}
	out := make([]models.ChatMessage, 0, len(page))
	for _, m := range page {
		out = append(out, m.ChatMessage)
	}
	return out, nil
}

// ---- escrows ----

type escrowRepo Store

func (r *escrowRepo) Create(ctx context.Context, e *models.Escrow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	r.escrows[e.ID] = *e
	return nil
}

func (r *escrowRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.escrows[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &e, nil
}

func (r *escrowRepo) ListByChat(ctx context.Context, chatID uuid.UUID) ([]models.Escrow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var escrows []models.Escrow
	for _, e := range r.escrows {
		if e.ChatID == chatID {
			escrows = append(escrows, e)
		}
	}
	sort.Slice(escrows, func(i, j int) bool { return escrows[i].CreatedAt.After(escrows[j].CreatedAt) })
	return escrows, nil
}

func (r *escrowRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.escrows[id]
	if !ok || e.Status != from {
		return false, nil
	}
	e.Status = to
	e.UpdatedAt = time.Now()
	r.escrows[id] = e
	return true, nil
}

func (r *escrowRepo) MarkDisputed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.escrows[id]
	if !ok || e.Status != models.EscrowStatusFunded {
		return false, nil
	}
	e.Status = models.EscrowStatusDisputed
	e.DisputeReason = &reason
	e.UpdatedAt = time.Now()
	r.escrows[id] = e
	return true, nil
}

func (r *escrowRepo) SetResolution(ctx context.Context, id uuid.UUID, to, notes string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.escrows[id]
	if !ok || e.Status != models.EscrowStatusDisputed {
		return false, nil
	}
	e.Status = to
	e.ResolutionNotes = &notes
	e.UpdatedAt = time.Now()
	r.escrows[id] = e
	return true, nil
}

func (r *escrowRepo) SetTransactionID(ctx context.Context, id, transactionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.escrows[id]
	if !ok {
		return repositories.ErrNotFound
	}
	tid := transactionID
	e.TransactionID = &tid
	e.UpdatedAt = time.Now()
	r.escrows[id] = e
	return nil
}

// ---- disputes ----

type disputeRepo Store

func (r *disputeRepo) Create(ctx context.Context, d *models.Dispute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	r.disputes[d.ID] = *d
	return nil
}

func (r *disputeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.disputes[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &d, nil
}

func (r *disputeRepo) ListByEscrow(ctx context.Context, escrowID uuid.UUID) ([]models.Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var disputes []models.Dispute
	for _, d := range r.disputes {
		if d.EscrowID == escrowID {
			disputes = append(disputes, d)
		}
	}
	sort.Slice(disputes, func(i, j int) bool { return disputes[i].CreatedAt.After(disputes[j].CreatedAt) })
	return disputes, nil
}

func (r *disputeRepo) StartReview(ctx context.Context, id, moderatorID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.disputes[id]
	if !ok || d.Status != models.DisputeStatusOpen {
		return false, nil
	}
	mod := moderatorID
	d.Status = models.DisputeStatusUnderReview
	d.ModeratorID = &mod
	d.UpdatedAt = time.Now()
	r.disputes[id] = d
	return true, nil
}

func (r *disputeRepo) Resolve(ctx context.Context, id uuid.UUID, to, resolution string, moderatorID uuid.UUID, notes string, resolvedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.disputes[id]
	if !ok || (d.Status != models.DisputeStatusOpen && d.Status != models.DisputeStatusUnderReview) {
		return false, nil
	}
	mod := moderatorID
	res := resolution
	nts := notes
	at := resolvedAt
	d.Status = to
	d.Resolution = &res
	d.ModeratorID = &mod
	d.ModeratorNotes = &nts
	d.ResolvedAt = &at
	d.UpdatedAt = time.Now()
	r.disputes[id] = d
	return true, nil
}

// ---- transactions ----

type transactionRepo Store

func (r *transactionRepo) Create(ctx context.Context, t *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	r.transactions = append(r.transactions, *t)
	return nil
}

func (r *transactionRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var txs []models.Transaction
	for _, t := range r.transactions {
		if t.UserID == userID {
			txs = append(txs, t)
		}
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].CreatedAt.After(txs[j].CreatedAt) })
	if offset >= len(txs) {
		return nil, nil
	}
	txs = txs[offset:]
	if len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

// ---- wallets ----

type walletRepo Store

func (r *walletRepo) Adjust(ctx context.Context, userID uuid.UUID, currency, availableDelta, inEscrowDelta string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := balanceKey{userID: userID, currency: currency}
	b, ok := r.balances[key]
	if !ok {
		b = models.WalletBalance{UserID: userID, Currency: currency, Available: "0", InEscrow: "0"}
	}
	b.Available = addNumeric(b.Available, availableDelta)
	b.InEscrow = addNumeric(b.InEscrow, inEscrowDelta)
	b.UpdatedAt = time.Now()
	r.balances[key] = b
	return nil
}

func (r *walletRepo) Balances(ctx context.Context, userID uuid.UUID) ([]models.WalletBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var balances []models.WalletBalance
	for _, b := range r.balances {
		if b.UserID == userID {
			balances = append(balances, b)
		}
	}
	sort.Slice(balances, func(i, j int) bool { return balances[i].Currency < balances[j].Currency })
	return balances, nil
}

func addNumeric(a, b string) string {
	fa, _ := strconv.ParseFloat(a, 64)
	fb, _ := strconv.ParseFloat(b, 64)
	return strconv.FormatFloat(fa+fb, 'f', -1, 64)
}

// ---- notifications ----

type notificationRepo Store

func (r *notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	r.notifs = append(r.notifs, *n)
	return nil
}

func (r *notificationRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var items []models.Notification
	for _, n := range r.notifs {
		if n.UserID == userID {
			items = append(items, n)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Read != items[j].Read {
			return !items[i].Read
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if offset >= len(items) {
		return nil, nil
	}
	items = items[offset:]
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.notifs {
		if n.ID == id && n.UserID == userID {
			r.notifs[i].Read = true
			return true, nil
		}
	}
	return false, nil
}

// ---- audit ----

type auditRepo Store

func (r *auditRepo) Log(ctx context.Context, entry models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	r.audit = append(r.audit, entry)
	return nil
}

func (r *auditRepo) GetByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit, offset int) ([]models.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	var entries []models.AuditLog
	for _, e := range r.audit {
		if e.EntityType == entityType && e.EntityID != nil && *e.EntityID == entityID {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	if offset >= len(entries) {
		return nil, nil
	}
	entries = entries[offset:]
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
