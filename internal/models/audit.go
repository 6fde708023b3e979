package models

import "time"

const (
	AuditActionLogin          = "LOGIN"
	AuditActionLoginFailed    = "LOGIN_FAILED"
	AuditActionPaymentApprove = "PAYMENT_APPROVE"
	AuditActionPaymentReject  = "PAYMENT_REJECT"
	AuditActionProofAccess    = "PROOF_ACCESS"
	AuditActionCacheFlush     = "CATALOG_CACHE_FLUSH"
	AuditActionExport         = "REGISTRATION_EXPORT"
)

// Audited resource names.
const (
	AuditResourceAuth    = "auth"
	AuditResourcePayment = "payment"
	AuditResourceProof   = "payment_proof"
)

// AuditLog is one row of the staff activity trail.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AuditEntry is an AuditLog joined with the acting staff member's name.
type AuditEntry struct {
	AuditLog
	ActorName *string `db:"actor_name" json:"actor_name,omitempty"`
}
