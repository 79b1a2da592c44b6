package rbac

// Permission constants
const (
	PermCreateEscrow       = "create_escrow"
	PermFundEscrow         = "fund_escrow"
	PermReleaseEscrow      = "release_escrow"
	PermFileDispute        = "file_dispute"
	PermReviewDispute      = "review_dispute"
	PermResolveDispute     = "resolve_dispute"
	PermManageParticipants = "manage_participants"
)

// RolePermissions maps a chat participant role to the lifecycle actions it may take.
// Importers hold the purse strings: only they fund and release. Either counterparty
// can file a dispute; only moderators may review or resolve one.
var RolePermissions = map[string][]string{
	"importer":  {PermCreateEscrow, PermFundEscrow, PermReleaseEscrow, PermFileDispute},
	"exporter":  {PermFileDispute},
	"moderator": {PermReviewDispute, PermResolveDispute},
	"admin":     {PermManageParticipants},
	"member":    {},
}

// HasPermission checks if a participant role grants a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// IsModerationAction reports whether the permission is moderation-only.
func IsModerationAction(permission string) bool {
	return permission == PermReviewDispute || permission == PermResolveDispute
}
