// Package authz centralizes role-to-capability mapping. Call sites check
// capabilities, never role strings, so the mapping lives in exactly one
// table.
package authz

import "strings"

// Roles known to the service.
const (
	RoleAdministrator  = "administrator"
	RoleSachbearbeiter = "sachbearbeiter"
	RoleNurLesen       = "nur_lesen"
)

// Capability is one named permission.
type Capability string

// Capabilities of the document service.
const (
	CapDocumentsCreate  Capability = "documents_create"
	CapDocumentsEdit    Capability = "documents_edit"
	CapTemplatesCreate  Capability = "templates_create"
	CapTemplatesEdit    Capability = "templates_edit"
	CapTextblocksManage Capability = "textblocks_manage"
	CapCatalogManage    Capability = "catalog_manage"
	CapOriginalsUpload  Capability = "originals_upload"
	CapUsersManage      Capability = "users_manage"
)

var roleCapabilities = map[string]map[Capability]struct{}{
	RoleAdministrator: capSet(
		CapDocumentsCreate, CapDocumentsEdit,
		CapTemplatesCreate, CapTemplatesEdit,
		CapTextblocksManage, CapCatalogManage,
		CapOriginalsUpload, CapUsersManage,
	),
	RoleSachbearbeiter: capSet(
		CapDocumentsCreate, CapDocumentsEdit, CapOriginalsUpload,
	),
	RoleNurLesen: capSet(),
}

func capSet(caps ...Capability) map[Capability]struct{} {
	set := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// HasCapability reports whether role grants capability. Unknown roles grant
// nothing.
func HasCapability(role string, capability Capability) bool {
	caps, ok := roleCapabilities[NormalizeRole(role)]
	if !ok {
		return false
	}
	_, granted := caps[capability]
	return granted
}

// NormalizeRole lowercases and trims a role name.
func NormalizeRole(role string) string {
	return strings.TrimSpace(strings.ToLower(role))
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	_, ok := roleCapabilities[NormalizeRole(role)]
	return ok
}
