package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/tradebridge/backend/internal/apperr"
	"github.com/tradebridge/backend/internal/models"
)

// fundedEscrow sets up importer/exporter, a trade chat and a funded escrow.
func fundedEscrow(t *testing.T, env *testEnv, amount string) (escrow *models.Escrow, importer, exporter uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	importer = env.newUser(t, "importer@example.com")
	exporter = env.newUser(t, "exporter@example.com")
	chatID := env.newTradeChat(t, importer, exporter)
	escrow = env.newEscrow(t, chatID, importer, amount)

	var err error
	escrow, err = env.escrows.Fund(ctx, escrow.ID, importer)
	if err != nil {
		t.Fatalf("fund: %v", err)
	}
	return escrow, importer, exporter
}

func TestFileDisputeFreezesEscrow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	escrow, importer, exporter := fundedEscrow(t, env, "1000")

	dispute, err := env.disputes.File(ctx, exporter, FileDisputeInput{
		EscrowID: escrow.ID,
		Reason:   "quality_issue",
		Details:  "half the coils are rusted",
	})
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	if dispute.Status != models.DisputeStatusOpen {
		t.Fatalf("dispute status = %s, want open", dispute.Status)
	}
	if dispute.InitiatorID != exporter || dispute.RespondentID != importer {
		t.Fatal("exporter-filed dispute must name the importer as respondent")
	}

	frozen, err := env.store.Escrows().GetByID(ctx, escrow.ID)
	if err != nil {
		t.Fatalf("get escrow: %v", err)
	}
	if frozen.Status != models.EscrowStatusDisputed {
		t.Fatalf("escrow status = %s, want disputed", frozen.Status)
	}
	if frozen.DisputeReason == nil || *frozen.DisputeReason != "quality_issue" {
		t.Fatal("dispute reason not recorded on escrow")
	}
}

// Evidence is optional; the stored row must still carry an empty list, never
// nil, because the postgres column is NOT NULL and a nil slice binds as NULL.
func TestFileDisputeWithoutEvidence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	escrow, importer, _ := fundedEscrow(t, env, "100")

	dispute, err := env.disputes.File(ctx, importer, FileDisputeInput{
		EscrowID: escrow.ID, Reason: "non_delivery", Details: "nothing arrived",
	})
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	if dispute.EvidenceURLs == nil {
		t.Fatal("evidence urls must be an empty list, not nil")
	}
	if len(dispute.EvidenceURLs) != 0 {
		t.Fatalf("evidence urls = %v, want empty", dispute.EvidenceURLs)
	}

	stored, err := env.store.Disputes().GetByID(ctx, dispute.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.EvidenceURLs == nil {
		t.Fatal("stored evidence urls must be an empty list, not nil")
	}
}

func TestFileDisputePreconditions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	importer := env.newUser(t, "importer@example.com")
	exporter := env.newUser(t, "exporter@example.com")
	outsider := env.newUser(t, "outsider@example.com")
	chatID := env.newTradeChat(t, importer, exporter)
	escrow := env.newEscrow(t, chatID, importer, "100")

	// Unfunded escrow cannot be disputed.
	_, err := env.disputes.File(ctx, importer, FileDisputeInput{EscrowID: escrow.ID, Reason: "other"})
	if !apperr.Is(err, apperr.CodeInvalidTransition) {
		t.Fatalf("dispute pending: got %v, want INVALID_TRANSITION", err)
	}

	if _, err := env.escrows.Fund(ctx, escrow.ID, importer); err != nil {
		t.Fatalf("fund: %v", err)
	}

	_, err = env.disputes.File(ctx, outsider, FileDisputeInput{EscrowID: escrow.ID, Reason: "other"})
	if !apperr.Is(err, apperr.CodeForbidden) {
		t.Fatalf("outsider files: got %v, want FORBIDDEN", err)
	}

	_, err = env.disputes.File(ctx, importer, FileDisputeInput{EscrowID: escrow.ID, Reason: ""})
	if !apperr.Is(err, apperr.CodeValidation) {
		t.Fatalf("empty reason: got %v, want VALIDATION_ERROR", err)
	}

	_, err = env.disputes.File(ctx, importer, FileDisputeInput{EscrowID: escrow.ID, Reason: "made_up"})
	if !apperr.Is(err, apperr.CodeValidation) {
		t.Fatalf("unknown reason: got %v, want VALIDATION_ERROR", err)
	}
}

func TestResolveDisputeRefund(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	escrow, importer, exporter := fundedEscrow(t, env, "1000")

	moderator := env.newUser(t, "mod@example.com")
	env.cfg.ModeratorUserIDs = []string{moderator.String()}

	dispute, err := env.disputes.File(ctx, importer, FileDisputeInput{
		EscrowID: escrow.ID, Reason: "non_delivery", Details: "nothing arrived",
	})
	if err != nil {
		t.Fatalf("file: %v", err)
	}

	dispute, err = env.disputes.StartReview(ctx, dispute.ID, moderator)
	if err != nil {
		t.Fatalf("start review: %v", err)
	}
	if dispute.Status != models.DisputeStatusUnderReview {
		t.Fatalf("dispute status = %s, want under_review", dispute.Status)
	}

	dispute, err = env.disputes.Resolve(ctx, dispute.ID, moderator, ResolveDisputeInput{
		Outcome: "refund", Notes: "seller never shipped",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if dispute.Status != models.DisputeStatusResolvedRefund {
		t.Fatalf("dispute status = %s, want resolved_refund", dispute.Status)
	}
	if dispute.ResolvedAt == nil || dispute.ModeratorID == nil || *dispute.ModeratorID != moderator {
		t.Fatal("resolution metadata missing")
	}

	settled, err := env.store.Escrows().GetByID(ctx, escrow.ID)
	if err != nil {
		t.Fatalf("get escrow: %v", err)
	}
	if settled.Status != models.EscrowStatusRefunded {
		t.Fatalf("escrow status = %s, want refunded", settled.Status)
	}

	// Refund returns the hold to the importer; the exporter gets nothing.
	available, inEscrow := env.balance(t, importer, "USD")
	if available != "0" || inEscrow != "0" {
		t.Fatalf("importer balance = %s/%s, want 0/0", available, inEscrow)
	}
	available, _ = env.balance(t, exporter, "USD")
	if available != "0" {
		t.Fatalf("exporter available = %s, want 0", available)
	}
}

func TestResolveDisputeReleaseFromOpen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	escrow, _, exporter := fundedEscrow(t, env, "300")

	moderator := env.newUser(t, "mod@example.com")
	env.cfg.ModeratorUserIDs = []string{moderator.String()}

	dispute, err := env.disputes.File(ctx, exporter, FileDisputeInput{
		EscrowID: escrow.ID, Reason: "other", Details: "buyer refuses to release",
	})
	if err != nil {
		t.Fatalf("file: %v", err)
	}

	// under_review is optional: resolving straight from open is allowed.
	dispute, err = env.disputes.Resolve(ctx, dispute.ID, moderator, ResolveDisputeInput{Outcome: "release"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if dispute.Status != models.DisputeStatusResolvedRelease {
		t.Fatalf("dispute status = %s, want resolved_release", dispute.Status)
	}

	settled, _ := env.store.Escrows().GetByID(ctx, escrow.ID)
	if settled.Status != models.EscrowStatusReleased {
		t.Fatalf("escrow status = %s, want released", settled.Status)
	}
	available, _ := env.balance(t, exporter, "USD")
	if available != "300" {
		t.Fatalf("exporter available = %s, want 300", available)
	}
}

func TestResolveDisputeTwice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	escrow, importer, _ := fundedEscrow(t, env, "100")

	moderator := env.newUser(t, "mod@example.com")
	env.cfg.ModeratorUserIDs = []string{moderator.String()}

	dispute, err := env.disputes.File(ctx, importer, FileDisputeInput{EscrowID: escrow.ID, Reason: "other"})
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	if _, err := env.disputes.Resolve(ctx, dispute.ID, moderator, ResolveDisputeInput{Outcome: "release"}); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	_, err = env.disputes.Resolve(ctx, dispute.ID, moderator, ResolveDisputeInput{Outcome: "refund"})
	if !apperr.Is(err, apperr.CodeAlreadyResolved) {
		t.Fatalf("second resolve: got %v, want ALREADY_RESOLVED", err)
	}

	_, err = env.disputes.StartReview(ctx, dispute.ID, moderator)
	if !apperr.Is(err, apperr.CodeAlreadyResolved) {
		t.Fatalf("review resolved: got %v, want ALREADY_RESOLVED", err)
	}
}

func TestDisputeModerationAuthz(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	escrow, importer, exporter := fundedEscrow(t, env, "100")

	dispute, err := env.disputes.File(ctx, importer, FileDisputeInput{EscrowID: escrow.ID, Reason: "other"})
	if err != nil {
		t.Fatalf("file: %v", err)
	}

	// Neither party may moderate their own dispute.
	for _, actor := range []uuid.UUID{importer, exporter} {
		if _, err := env.disputes.Resolve(ctx, dispute.ID, actor, ResolveDisputeInput{Outcome: "release"}); !apperr.Is(err, apperr.CodeForbidden) {
			t.Fatalf("party resolves: got %v, want FORBIDDEN", err)
		}
		if _, err := env.disputes.StartReview(ctx, dispute.ID, actor); !apperr.Is(err, apperr.CodeForbidden) {
			t.Fatalf("party reviews: got %v, want FORBIDDEN", err)
		}
	}

	// A chat participant with the moderator role qualifies.
	chatMod := env.newUser(t, "chatmod@example.com")
	if _, err := env.chats.AddParticipant(ctx, escrow.ChatID, importer, chatMod, models.RoleModerator); err != nil {
		t.Fatalf("add moderator: %v", err)
	}
	if _, err := env.disputes.Resolve(ctx, dispute.ID, chatMod, ResolveDisputeInput{Outcome: "release"}); err != nil {
		t.Fatalf("chat moderator resolve: %v", err)
	}
}

func TestResolveDisputeBadOutcome(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	escrow, importer, _ := fundedEscrow(t, env, "100")

	moderator := env.newUser(t, "mod@example.com")
	env.cfg.ModeratorUserIDs = []string{moderator.String()}

	dispute, err := env.disputes.File(ctx, importer, FileDisputeInput{EscrowID: escrow.ID, Reason: "other"})
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	_, err = env.disputes.Resolve(ctx, dispute.ID, moderator, ResolveDisputeInput{Outcome: "split"})
	if !apperr.Is(err, apperr.CodeValidation) {
		t.Fatalf("bad outcome: got %v, want VALIDATION_ERROR", err)
	}
}
