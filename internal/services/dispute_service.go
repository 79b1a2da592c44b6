package services

import (
	"context"
	"fmt"
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

// DisputeService runs the dispute lifecycle. Filing freezes the escrow
// (funded -> disputed) in the same transaction as the dispute insert;
// resolution settles the escrow in the same transaction as the dispute close.
type DisputeService struct {
	store     repositories.Store
	escrows   *EscrowService
	chats     *ChatService
	publisher events.Publisher
	cfg       *config.Config
	log       *zap.Logger
}

func NewDisputeService(store repositories.Store, escrows *EscrowService, chats *ChatService, publisher events.Publisher, cfg *config.Config, log *zap.Logger) *DisputeService {
	return &DisputeService{store: store, escrows: escrows, chats: chats, publisher: publisher, cfg: cfg, log: log}
}

type FileDisputeInput struct {
	EscrowID     uuid.UUID
	Reason       string
	Details      string
	EvidenceURLs []string
}

func (s *DisputeService) File(ctx context.Context, actorID uuid.UUID, input FileDisputeInput) (*models.Dispute, error) {
	if strings.TrimSpace(input.Reason) == "" {
		return nil, apperr.Validation("reason is required")
	}
	if !s.isKnownReason(input.Reason) {
		return nil, apperr.Validation("unknown dispute reason: " + input.Reason)
	}
	if input.EvidenceURLs == nil {
		// A nil slice binds as SQL NULL, not as an empty TEXT[].
		input.EvidenceURLs = []string{}
	}

	escrow, err := s.store.Escrows().GetByID(ctx, input.EscrowID)
	if err != nil {
		if err == repositories.ErrNotFound {
			return nil, apperr.NotFound("escrow")
		}
		return nil, err
	}

	if actorID != escrow.ImporterID && actorID != escrow.ExporterID {
		return nil, apperr.Forbidden("only a party to the escrow can file a dispute")
	}
	if !models.IsValidEscrowTransition(escrow.Status, models.EscrowStatusDisputed) {
		return nil, apperr.InvalidTransition("escrow", escrow.Status, models.EscrowStatusDisputed)
	}

	respondentID := escrow.ImporterID
	if actorID == escrow.ImporterID {
		// The importer disputes against whoever ships the goods; resolve the
		// exporter through the chat roster rather than trusting the caller.
		p, err := s.store.Chats().FindParticipantByRole(ctx, escrow.ChatID, models.RoleExporter)
		if err != nil {
			if err == repositories.ErrNotFound {
				return nil, apperr.PreconditionFailed("no exporter found in this chat")
			}
			return nil, err
		}
		respondentID = p.UserID
	}

	dispute := &models.Dispute{
		EscrowID:     escrow.ID,
		ChatID:       escrow.ChatID,
		InitiatorID:  actorID,
		RespondentID: respondentID,
		Status:       models.DisputeStatusOpen,
		Reason:       input.Reason,
		Details:      input.Details,
		EvidenceURLs: input.EvidenceURLs,
	}

	err = s.store.WithTx(ctx, func(tx repositories.Store) error {
		frozen, err := tx.Escrows().MarkDisputed(ctx, escrow.ID, input.Reason)
		if err != nil {
			return err
		}
		if !frozen {
			return apperr.InvalidTransition("escrow", escrow.Status, models.EscrowStatusDisputed)
		}
		if err := tx.Disputes().Create(ctx, dispute); err != nil {
			return err
		}
		s.audit(ctx, tx, actorID, "dispute_filed", dispute.ID, map[string]any{
			"escrow_id": escrow.ID.String(), "reason": input.Reason,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	from := escrow.Status
	escrow.Status = models.EscrowStatusDisputed
	escrow.DisputeReason = &input.Reason

	s.escrows.publishStatus(ctx, escrow, from, models.EscrowStatusDisputed)
	s.publishStatus(ctx, dispute, "", models.DisputeStatusOpen)
	s.chats.PostSystemMessage(ctx, escrow.ChatID, actorID,
		fmt.Sprintf("Dispute filed on escrow (%s %s): %s", escrow.Amount, escrow.Currency, input.Reason),
		models.MessageTypeDispute, map[string]any{"dispute_id": dispute.ID.String(), "escrow_id": escrow.ID.String()})

	s.log.Info("dispute filed",
		zap.String("dispute_id", dispute.ID.String()),
		zap.String("escrow_id", escrow.ID.String()),
		zap.String("reason", input.Reason))

	return dispute, nil
}

func (s *DisputeService) GetByID(ctx context.Context, id, actorID uuid.UUID) (*models.Dispute, error) {
	dispute, err := s.store.Disputes().GetByID(ctx, id)
	if err != nil {
		if err == repositories.ErrNotFound {
			return nil, apperr.NotFound("dispute")
		}
		return nil, err
	}
	if dispute.InitiatorID != actorID && dispute.RespondentID != actorID && !s.isModerator(ctx, dispute, actorID) {
		return nil, apperr.Forbidden("user has no access to this dispute")
	}
	return dispute, nil
}

func (s *DisputeService) ListByEscrow(ctx context.Context, escrowID, actorID uuid.UUID) ([]models.Dispute, error) {
	escrow, err := s.store.Escrows().GetByID(ctx, escrowID)
	if err != nil {
		if err == repositories.ErrNotFound {
			return nil, apperr.NotFound("escrow")
		}
		return nil, err
	}
	if err := s.escrows.requireAccess(ctx, escrow, actorID); err != nil {
		return nil, err
	}
	return s.store.Disputes().ListByEscrow(ctx, escrowID)
}

// StartReview moves open -> under_review and pins the moderator on the case.
func (s *DisputeService) StartReview(ctx context.Context, disputeID, actorID uuid.UUID) (*models.Dispute, error) {
	dispute, err := s.store.Disputes().GetByID(ctx, disputeID)
	if err != nil {
		if err == repositories.ErrNotFound {
			return nil, apperr.NotFound("dispute")
		}
		return nil, err
	}
	if !s.isModerator(ctx, dispute, actorID) {
		return nil, apperr.Forbidden("only a moderator can review a dispute")
	}
	if models.IsDisputeResolved(dispute.Status) {
		return nil, apperr.AlreadyResolved(dispute.Status)
	}
	if !models.IsValidDisputeTransition(dispute.Status, models.DisputeStatusUnderReview) {
		return nil, apperr.InvalidTransition("dispute", dispute.Status, models.DisputeStatusUnderReview)
	}

	changed, err := s.store.Disputes().StartReview(ctx, disputeID, actorID)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, apperr.InvalidTransition("dispute", dispute.Status, models.DisputeStatusUnderReview)
	}
	from := dispute.Status
	dispute.Status = models.DisputeStatusUnderReview
	dispute.ModeratorID = &actorID

	s.audit(ctx, s.store, actorID, "dispute_review_started", dispute.ID, map[string]any{"from": from})
	s.publishStatus(ctx, dispute, from, dispute.Status)

	return dispute, nil
}

type ResolveDisputeInput struct {
	Outcome string // release or refund
	Notes   string
}

// Resolve closes the dispute and settles the escrow atomically. Resolving an
// already resolved dispute is reported as such, not as a generic conflict.
func (s *DisputeService) Resolve(ctx context.Context, disputeID, actorID uuid.UUID, input ResolveDisputeInput) (*models.Dispute, error) {
	target, ok := models.DisputeStatusForOutcome(input.Outcome)
	if !ok {
		return nil, apperr.Validation("outcome must be release or refund")
	}

	dispute, err := s.store.Disputes().GetByID(ctx, disputeID)
	if err != nil {
		if err == repositories.ErrNotFound {
			return nil, apperr.NotFound("dispute")
		}
		return nil, err
	}
	if !s.isModerator(ctx, dispute, actorID) {
		return nil, apperr.Forbidden("only a moderator can resolve a dispute")
	}
	if models.IsDisputeResolved(dispute.Status) {
		return nil, apperr.AlreadyResolved(dispute.Status)
	}

	resolution := "funds released to exporter"
	if input.Outcome == models.ResolutionOutcomeRefund {
		resolution = "funds refunded to importer"
	}

	var escrow *models.Escrow
	now := time.Now().UTC()
	err = s.store.WithTx(ctx, func(tx repositories.Store) error {
		changed, err := tx.Disputes().Resolve(ctx, disputeID, target, resolution, actorID, input.Notes, now)
		if err != nil {
			return err
		}
		if !changed {
			return apperr.AlreadyResolved(dispute.Status)
		}

		escrow, err = s.escrows.Settle(ctx, tx, dispute.EscrowID, input.Outcome, input.Notes, actorID)
		if err != nil {
			return err
		}

		s.audit(ctx, tx, actorID, "dispute_resolved", dispute.ID, map[string]any{
			"outcome": input.Outcome, "escrow_id": dispute.EscrowID.String(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	from := dispute.Status
	dispute.Status = target
	dispute.ModeratorID = &actorID
	dispute.ModeratorNotes = &input.Notes
	dispute.Resolution = &resolution
	dispute.ResolvedAt = &now

	s.publishStatus(ctx, dispute, from, target)
	s.chats.PostSystemMessage(ctx, dispute.ChatID, actorID,
		fmt.Sprintf("Dispute resolved: %s (%s %s)", resolution, escrow.Amount, escrow.Currency),
		models.MessageTypeDispute, map[string]any{"dispute_id": dispute.ID.String(), "outcome": input.Outcome})

	s.log.Info("dispute resolved",
		zap.String("dispute_id", dispute.ID.String()),
		zap.String("outcome", input.Outcome),
		zap.String("moderator_id", actorID.String()))

	return dispute, nil
}

// isModerator accepts platform moderators from config and chat participants
// holding the moderator role in the dispute's chat.
func (s *DisputeService) isModerator(ctx context.Context, dispute *models.Dispute, actorID uuid.UUID) bool {
	if s.cfg.IsModerator(actorID.String()) {
		return true
	}
	p, err := s.store.Chats().GetParticipant(ctx, dispute.ChatID, actorID)
	return err == nil && rbac.HasPermission(p.Role, rbac.PermResolveDispute)
}

func (s *DisputeService) isKnownReason(reason string) bool {
	if len(s.cfg.DisputeReasons) == 0 {
		return true
	}
	for _, r := range s.cfg.DisputeReasons {
		if r == reason {
			return true
		}
	}
	return false
}

func (s *DisputeService) audit(ctx context.Context, tx repositories.Store, actorID uuid.UUID, action string, disputeID uuid.UUID, meta map[string]any) {
	if err := tx.Audit().Log(ctx, models.AuditLog{
		ActorUserID: &actorID,
		ActorType:   "user",
		Action:      action,
		EntityType:  "dispute",
		EntityID:    &disputeID,
		Meta:        meta,
	}); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}

func (s *DisputeService) publishStatus(ctx context.Context, dispute *models.Dispute, from, to string) {
	if err := s.publisher.Publish(ctx, events.ChannelDispute, events.Event{
		Type: events.EventDisputeStatusChanged,
		Payload: map[string]any{
			"dispute_id":    dispute.ID.String(),
			"escrow_id":     dispute.EscrowID.String(),
			"chat_id":       dispute.ChatID.String(),
			"initiator_id":  dispute.InitiatorID.String(),
			"respondent_id": dispute.RespondentID.String(),
			"old_status":    from,
			"new_status":    to,
		},
	}); err != nil {
		s.log.Warn("failed to publish dispute event", zap.Error(err))
	}
}
