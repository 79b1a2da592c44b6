package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tradebridge/backend/internal/apperr"
	"github.com/tradebridge/backend/internal/config"
	"github.com/tradebridge/backend/internal/events"
	"github.com/tradebridge/backend/internal/models"
	"github.com/tradebridge/backend/internal/rbac"
	"github.com/tradebridge/backend/internal/repositories"
	"go.uber.org/zap"
)

// EscrowService owns the escrow state machine. Every transition is validated
// against models.ValidEscrowTransitions before anything is persisted, and the
// repository update itself is guarded by the expected current status, so a
// concurrent writer loses the race instead of corrupting the lifecycle.
type EscrowService struct {
	store     repositories.Store
	chats     *ChatService
	publisher events.Publisher
	cfg       *config.Config
	log       *zap.Logger
}

func NewEscrowService(store repositories.Store, chats *ChatService, publisher events.Publisher, cfg *config.Config, log *zap.Logger) *EscrowService {
	return &EscrowService{store: store, chats: chats, publisher: publisher, cfg: cfg, log: log}
}

type CreateEscrowInput struct {
	ChatID            uuid.UUID
	Amount            string
	Currency          string
	TradeDescription  string
	ReleaseConditions *string
	ReleaseDate       *time.Time
	ExporterID        *uuid.UUID
}

func (s *EscrowService) Create(ctx context.Context, actorID uuid.UUID, input CreateEscrowInput) (*models.Escrow, error) {
	// ParseFloat accepts "NaN" and "Inf", and NaN compares false against
	// everything, so both checks are needed.
	amount, err := strconv.ParseFloat(input.Amount, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return nil, apperr.Validation("amount must be a positive number")
	}
	if strings.TrimSpace(input.TradeDescription) == "" {
		return nil, apperr.Validation("trade_description is required")
	}
	if !s.cfg.IsSupportedCurrency(input.Currency) {
		return nil, apperr.Validation("unsupported currency: " + input.Currency)
	}

	if _, err := s.store.Chats().GetChat(ctx, input.ChatID); err != nil {
		if err == repositories.ErrNotFound {
			return nil, apperr.NotFound("chat")
		}
		return nil, err
	}

	actor, err := s.store.Chats().GetParticipant(ctx, input.ChatID, actorID)
	if err != nil {
		if err == repositories.ErrNotFound {
			return nil, apperr.Forbidden("user is not a participant of this chat")
		}
		return nil, err
	}
	if !rbac.HasPermission(actor.Role, rbac.PermCreateEscrow) {
		return nil, apperr.Forbidden("only the importer can create an escrow")
	}

	// Resolve the counterparty before anything is written: an escrow is never
	// created without an exporter on the other side.
	var exporterID uuid.UUID
	if input.ExporterID != nil {
		p, err := s.store.Chats().GetParticipant(ctx, input.ChatID, *input.ExporterID)
		if err != nil || p.Role != models.RoleExporter {
			return nil, apperr.PreconditionFailed("exporter_id is not an exporter participant of this chat")
		}
		exporterID = p.UserID
	} else {
		p, err := s.store.Chats().FindParticipantByRole(ctx, input.ChatID, models.RoleExporter)
		if err != nil {
			if err == repositories.ErrNotFound {
				return nil, apperr.PreconditionFailed("no exporter found in this chat")
			}
			return nil, err
		}
		exporterID = p.UserID
	}

	escrow := &models.Escrow{
		ChatID:            input.ChatID,
		ImporterID:        actorID,
		ExporterID:        exporterID,
		Amount:            input.Amount,
		Currency:          input.Currency,
		Status:            models.EscrowStatusPending,
		TradeDescription:  input.TradeDescription,
		ReleaseConditions: input.ReleaseConditions,
		ReleaseDate:       input.ReleaseDate,
	}
	if err := s.store.Escrows().Create(ctx, escrow); err != nil {
		return nil, err
	}

	s.audit(ctx, s.store, actorID, "escrow_created", escrow.ID, map[string]any{
		"amount": escrow.Amount, "currency": escrow.Currency,
	})
	s.publishStatus(ctx, escrow, "", models.EscrowStatusPending)
	s.chats.PostSystemMessage(ctx, escrow.ChatID, actorID,
		fmt.Sprintf("Escrow created: %s %s for %q", escrow.Amount, escrow.Currency, escrow.TradeDescription),
		models.MessageTypeEscrow, map[string]any{"escrow_id": escrow.ID.String(), "status": escrow.Status})

	s.log.Info("escrow created",
		zap.String("escrow_id", escrow.ID.String()),
		zap.String("chat_id", escrow.ChatID.String()),
		zap.String("amount", escrow.Amount),
		zap.String("currency", escrow.Currency))

	return escrow, nil
}

func (s *EscrowService) GetByID(ctx context.Context, id, actorID uuid.UUID) (*models.Escrow, error) {
	escrow, err := s.store.Escrows().GetByID(ctx, id)
	if err != nil {
		if err == repositories.ErrNotFound {
			return nil, apperr.NotFound("escrow")
		}
		return nil, err
	}
	if err := s.requireAccess(ctx, escrow, actorID); err != nil {
		return nil, err
	}
	return escrow, nil
}

func (s *EscrowService) ListByChat(ctx context.Context, chatID, actorID uuid.UUID) ([]models.Escrow, error) {
	if _, err := s.store.Chats().GetParticipant(ctx, chatID, actorID); err != nil {
		if err == repositories.ErrNotFound {
			return nil, apperr.Forbidden("user is not a participant of this chat")
		}
		return nil, err
	}
	return s.store.Escrows().ListByChat(ctx, chatID)
}

// Fund moves pending -> funded and records the notional ledger hold: the
// importer's available balance goes down, in_escrow goes up, atomically with
// the status flip.
func (s *EscrowService) Fund(ctx context.Context, escrowID, actorID uuid.UUID) (*models.Escrow, error) {
	escrow, err := s.store.Escrows().GetByID(ctx, escrowID)
	if err != nil {
		if err == repositories.ErrNotFound {
			return nil, apperr.NotFound("escrow")
		}
		return nil, err
	}
	if escrow.ImporterID != actorID {
		return nil, apperr.Forbidden("only the importer can fund the escrow")
	}

	from := escrow.Status
	err = s.store.WithTx(ctx, func(tx repositories.Store) error {
		if err := s.transition(ctx, tx, escrow, models.EscrowStatusFunded, actorID); err != nil {
			return err
		}

		txn := &models.Transaction{
			UserID:      escrow.ImporterID,
			EscrowID:    &escrow.ID,
			Kind:        models.TransactionKindEscrowFund,
			Direction:   models.DirectionDebit,
			Amount:      escrow.Amount,
			Currency:    escrow.Currency,
			Description: "Escrow funded: " + escrow.TradeDescription,
		}
		if err := tx.Transactions().Create(ctx, txn); err != nil {
			return err
		}
		if err := tx.Escrows().SetTransactionID(ctx, escrow.ID, txn.ID); err != nil {
			return err
		}
		escrow.TransactionID = &txn.ID

		return tx.Wallets().Adjust(ctx, escrow.ImporterID, escrow.Currency, negate(escrow.Amount), escrow.Amount)
	})
	if err != nil {
		return nil, err
	}

	s.publishStatus(ctx, escrow, from, escrow.Status)
	s.chats.PostSystemMessage(ctx, escrow.ChatID, actorID,
		fmt.Sprintf("Escrow funded: %s %s held in escrow", escrow.Amount, escrow.Currency),
		models.MessageTypeEscrow, map[string]any{"escrow_id": escrow.ID.String(), "status": escrow.Status})

	return escrow, nil
}

// Release moves funded -> released and credits the exporter. Releasing a
// disputed escrow goes through dispute resolution, not here.
func (s *EscrowService) Release(ctx context.Context, escrowID, actorID uuid.UUID) (*models.Escrow, error) {
	escrow, err := s.store.Escrows().GetByID(ctx, escrowID)
	if err != nil {
		if err == repositories.ErrNotFound {
			return nil, apperr.NotFound("escrow")
		}
		return nil, err
	}
	if escrow.ImporterID != actorID {
		return nil, apperr.Forbidden("only the importer can release the escrow")
	}
	if escrow.Status == models.EscrowStatusDisputed {
		return nil, apperr.InvalidTransition("escrow", escrow.Status, models.EscrowStatusReleased)
	}

	from := escrow.Status
	err = s.store.WithTx(ctx, func(tx repositories.Store) error {
		if err := s.transition(ctx, tx, escrow, models.EscrowStatusReleased, actorID); err != nil {
			return err
		}
		return s.settleLedger(ctx, tx, escrow, models.EscrowStatusReleased, models.TransactionKindEscrowRelease)
	})
	if err != nil {
		return nil, err
	}

	s.publishStatus(ctx, escrow, from, escrow.Status)
	s.chats.PostSystemMessage(ctx, escrow.ChatID, actorID,
		fmt.Sprintf("Escrow released: %s %s paid to exporter", escrow.Amount, escrow.Currency),
		models.MessageTypeEscrow, map[string]any{"escrow_id": escrow.ID.String(), "status": escrow.Status})

	return escrow, nil
}

// Settle closes a disputed escrow per a moderator decision. It runs inside the
// dispute resolution transaction, so tx is the caller's transactional store.
func (s *EscrowService) Settle(ctx context.Context, tx repositories.Store, escrowID uuid.UUID, outcome, notes string, moderatorID uuid.UUID) (*models.Escrow, error) {
	target, ok := models.StatusForOutcome(outcome)
	if !ok {
		return nil, apperr.Validation("outcome must be release or refund")
	}

	escrow, err := tx.Escrows().GetByID(ctx, escrowID)
	if err != nil {
		if err == repositories.ErrNotFound {
			return nil, apperr.NotFound("escrow")
		}
		return nil, err
	}
	if !models.IsValidEscrowTransition(escrow.Status, target) {
		return nil, apperr.InvalidTransition("escrow", escrow.Status, target)
	}

	changed, err := tx.Escrows().SetResolution(ctx, escrow.ID, target, notes)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, apperr.InvalidTransition("escrow", escrow.Status, target)
	}
	from := escrow.Status
	escrow.Status = target
	escrow.ResolutionNotes = &notes

	kind := models.TransactionKindEscrowRelease
	if target == models.EscrowStatusRefunded {
		kind = models.TransactionKindEscrowRefund
	}
	if err := s.settleLedger(ctx, tx, escrow, target, kind); err != nil {
		return nil, err
	}

	s.audit(ctx, tx, moderatorID, "escrow_"+target, escrow.ID, map[string]any{
		"from": from, "to": target, "outcome": outcome,
	})
	s.publishStatus(ctx, escrow, from, target)

	return escrow, nil
}

// settleLedger records the payout leg of a closing escrow: the importer's hold
// is always returned, then either the exporter (release) or the importer
// (refund) is credited.
func (s *EscrowService) settleLedger(ctx context.Context, tx repositories.Store, escrow *models.Escrow, target, kind string) error {
	if err := tx.Wallets().Adjust(ctx, escrow.ImporterID, escrow.Currency, "0", negate(escrow.Amount)); err != nil {
		return err
	}

	beneficiary := escrow.ExporterID
	description := "Escrow released: " + escrow.TradeDescription
	if target == models.EscrowStatusRefunded {
		beneficiary = escrow.ImporterID
		description = "Escrow refunded: " + escrow.TradeDescription
	}
	if err := tx.Wallets().Adjust(ctx, beneficiary, escrow.Currency, escrow.Amount, "0"); err != nil {
		return err
	}

	txn := &models.Transaction{
		UserID:      beneficiary,
		EscrowID:    &escrow.ID,
		Kind:        kind,
		Direction:   models.DirectionCredit,
		Amount:      escrow.Amount,
		Currency:    escrow.Currency,
		Description: description,
	}
	if err := tx.Transactions().Create(ctx, txn); err != nil {
		return err
	}
	if err := tx.Escrows().SetTransactionID(ctx, escrow.ID, txn.ID); err != nil {
		return err
	}
	escrow.TransactionID = &txn.ID
	return nil
}

func (s *EscrowService) transition(ctx context.Context, tx repositories.Store, escrow *models.Escrow, to string, actorID uuid.UUID) error {
	if !models.IsValidEscrowTransition(escrow.Status, to) {
		return apperr.InvalidTransition("escrow", escrow.Status, to)
	}
	changed, err := tx.Escrows().UpdateStatus(ctx, escrow.ID, escrow.Status, to)
	if err != nil {
		return err
	}
	if !changed {
		return apperr.InvalidTransition("escrow", escrow.Status, to)
	}

	from := escrow.Status
	escrow.Status = to
	s.audit(ctx, tx, actorID, "escrow_"+to, escrow.ID, map[string]any{"from": from, "to": to})
	return nil
}

func (s *EscrowService) requireAccess(ctx context.Context, escrow *models.Escrow, actorID uuid.UUID) error {
	if escrow.ImporterID == actorID || escrow.ExporterID == actorID {
		return nil
	}
	if s.cfg.IsModerator(actorID.String()) {
		return nil
	}
	p, err := s.store.Chats().GetParticipant(ctx, escrow.ChatID, actorID)
	if err == nil && (p.Role == models.RoleModerator || p.Role == models.RoleAdmin) {
		return nil
	}
	return apperr.Forbidden("user has no access to this escrow")
}

func (s *EscrowService) audit(ctx context.Context, tx repositories.Store, actorID uuid.UUID, action string, escrowID uuid.UUID, meta map[string]any) {
	if err := tx.Audit().Log(ctx, models.AuditLog{
		ActorUserID: &actorID,
		ActorType:   "user",
		Action:      action,
		EntityType:  "escrow",
		EntityID:    &escrowID,
		Meta:        meta,
	}); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}

func (s *EscrowService) publishStatus(ctx context.Context, escrow *models.Escrow, from, to string) {
	if err := s.publisher.Publish(ctx, events.ChannelEscrow, events.Event{
		Type: events.EventEscrowStatusChanged,
		Payload: map[string]any{
			"escrow_id":   escrow.ID.String(),
			"chat_id":     escrow.ChatID.String(),
			"importer_id": escrow.ImporterID.String(),
			"exporter_id": escrow.ExporterID.String(),
			"old_status":  from,
			"new_status":  to,
			"amount":      escrow.Amount,
			"currency":    escrow.Currency,
		},
	}); err != nil {
		s.log.Warn("failed to publish escrow event", zap.Error(err))
	}
}

// negate flips the sign of a numeric string without parsing it into a float.
func negate(amount string) string {
	if strings.HasPrefix(amount, "-") {
		return amount[1:]
	}
	return "-" + amount
}
