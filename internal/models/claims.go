package models

import "github.com/golang-jwt/jwt/v5"

// Application permissions
const (
	PermissionTransactionRead  = "transaction:read"
	PermissionTransactionWrite = "transaction:write"
	PermissionCaseReport       = "case:report"
	PermissionCaseReview       = "case:review"
	PermissionFundingWrite     = "funding:write"
)

// Token types
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

type UserClaims struct {
	jwt.RegisteredClaims
	AccountID    uint     `json:"account_id"`
	Email        string   `json:"email"`
	Role         string   `json:"role"`
	Permissions  []string `json:"permissions,omitempty"`
	TokenVersion int      `json:"token_version"`
	TokenType    string   `json:"typ"`
}

// HasPermission checks if the claims include a specific permission
func (c *UserClaims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// IsReviewer reports whether the claims may work the review queue.
func (c *UserClaims) IsReviewer() bool {
	return c.HasPermission(PermissionCaseReview)
}

// GetDefaultPermissions returns default permissions based on role
func GetDefaultPermissions(role string) []string {
	switch role {
	case RoleAdmin, RoleReviewer:
		return []string{
			PermissionTransactionRead,
			PermissionTransactionWrite,
			PermissionCaseReport,
			PermissionCaseReview,
			PermissionFundingWrite,
		}
	case RoleUser:
		return []string{
			PermissionTransactionRead,
			PermissionTransactionWrite,
			PermissionCaseReport,
			PermissionFundingWrite,
		}
	default:
		return []string{}
	}
}
