// Package authz answers the one access-control question flatradar
// needs: is this chat id one of the configured bot operators? It
// simplifies the teacher's internal/acl (role/role_acl/user_role RBAC
// over a per-tenant database) down to a static admin-chat-id allow-list,
// since flatradar has one bot identity and no per-tenant roles (spec.md
// §1 non-goals: "no user authentication"). Keeps acl's
// context.Context-first, bool-return call shape even though there is no
// longer a database round-trip behind it.
package authz

import "context"

// IsAdmin reports whether chatID is one of the bot's configured
// administrators (internal/config.Bot.AdminChatIDs).
func IsAdmin(_ context.Context, chatID int64, adminChatIDs []int64) bool {
	for _, id := range adminChatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}
