package shared

// Quotation-facing view of the fields the policy needs. Defined here so the
// policy does not import the quotations package.
type QuotationRef struct {
	CreatedBy int64
	Approved  bool
}

// CanEditQuotation reports whether the actor may modify the quotation.
// Editing requires authorship or administrative privilege, and once a
// quotation is approved only an administrator may touch it.
func CanEditQuotation(actor Actor, q QuotationRef) bool {
	if q.Approved {
		return actor.IsAdmin()
	}
	return actor.IsAdmin() || actor.ID == q.CreatedBy
}

// CanApproveQuotation reports whether the actor may approve the quotation.
// The original author or an administrator may approve.
func CanApproveQuotation(actor Actor, q QuotationRef) bool {
	return actor.IsAdmin() || actor.ID == q.CreatedBy
}

// CanDeleteQuotation reports whether the actor may delete a quotation.
func CanDeleteQuotation(actor Actor) bool {
	return actor.IsAdmin()
}

// CanManageMaterials reports whether the actor may create or change
// catalog materials.
func CanManageMaterials(actor Actor) bool {
	return actor.IsAdmin() || actor.Role == RoleStorekeeper
}

// CanManageUsers reports whether the actor may administer user accounts.
func CanManageUsers(actor Actor) bool {
	return actor.IsAdmin()
}
