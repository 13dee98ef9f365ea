package config

type SecurityLevel int

const (
	SecurityPublic        SecurityLevel = iota // No authentication
	SecurityAccess                             // Access token required
	SecurityPlatformAdmin                      // Access token of a platform admin
)

func (l SecurityLevel) String() string {
	switch l {
	case SecurityPublic:
		return "public"
	case SecurityAccess:
		return "access"
	case SecurityPlatformAdmin:
		return "platform_admin"
	}
	return "unknown"
}

// EndpointSecurityConfig maps methods to their required security level.
// Guards inside the services still run; this is the coarse gate.
var EndpointSecurityConfig = map[string]SecurityLevel{
	"/grpc.health.v1.Health/Check": SecurityPublic,

	"/medequip.api.v1.ServiceRequestService/CreateServiceRequest": SecurityAccess,
	"/medequip.api.v1.ServiceRequestService/GetServiceRequest":    SecurityAccess,
	"/medequip.api.v1.ServiceRequestService/TransitionStatus":     SecurityAccess,
	"/medequip.api.v1.ServiceRequestService/ListForOrganization":  SecurityAccess,
	"/medequip.api.v1.ServiceRequestService/ListForProvider":      SecurityAccess,

	"/medequip.api.v1.QuoteService/SubmitQuote":           SecurityAccess,
	"/medequip.api.v1.QuoteService/UpdateQuote":           SecurityAccess,
	"/medequip.api.v1.QuoteService/AcceptQuote":           SecurityAccess,
	"/medequip.api.v1.QuoteService/DeclineServiceRequest": SecurityAccess,
	"/medequip.api.v1.QuoteService/GetQuote":              SecurityAccess,
	"/medequip.api.v1.QuoteService/ListForServiceRequest": SecurityAccess,
	"/medequip.api.v1.QuoteService/ListForProvider":       SecurityAccess,
	"/medequip.api.v1.QuoteService/GetQuoteStats":         SecurityAccess,

	"/medequip.api.v1.DisputeService/OpenDispute":         SecurityAccess,
	"/medequip.api.v1.DisputeService/AddMessage":          SecurityAccess,
	"/medequip.api.v1.DisputeService/EscalateDispute":     SecurityAccess,
	"/medequip.api.v1.DisputeService/GetDispute":          SecurityAccess,
	"/medequip.api.v1.DisputeService/ListForOrganization": SecurityAccess,
	"/medequip.api.v1.DisputeService/ListForProvider":     SecurityAccess,
	"/medequip.api.v1.DisputeService/ListMessages":        SecurityAccess,

	"/medequip.api.v1.OrganizationService/ListMembers":      SecurityAccess,
	"/medequip.api.v1.OrganizationService/UpdateMemberRole": SecurityAccess,
	"/medequip.api.v1.OrganizationService/RemoveMember":     SecurityAccess,

	"/medequip.api.v1.AuditService/ListForOrganization": SecurityAccess,
	"/medequip.api.v1.AuditService/ListForResource":     SecurityPlatformAdmin,
	"/medequip.api.v1.AuditService/ListAll":             SecurityPlatformAdmin,

	// ListDisputes and GetProvider are also open to platform support, so the
	// service guard decides.
	"/medequip.api.v1.AdminService/ListDisputes":      SecurityAccess,
	"/medequip.api.v1.AdminService/GetProvider":       SecurityAccess,
	"/medequip.api.v1.AdminService/ListProviders":     SecurityAccess,
	"/medequip.api.v1.AdminService/ResolveDispute":    SecurityPlatformAdmin,
	"/medequip.api.v1.AdminService/ReassignProvider":  SecurityPlatformAdmin,
	"/medequip.api.v1.AdminService/ApproveProvider":   SecurityPlatformAdmin,
	"/medequip.api.v1.AdminService/RejectProvider":    SecurityPlatformAdmin,
	"/medequip.api.v1.AdminService/SuspendProvider":   SecurityPlatformAdmin,
	"/medequip.api.v1.AdminService/ReinstateProvider": SecurityPlatformAdmin,
	"/medequip.api.v1.AdminService/GetOverview":       SecurityPlatformAdmin,
	"/medequip.api.v1.AdminService/GetGrowth":         SecurityPlatformAdmin,
	"/medequip.api.v1.AdminService/GetServiceMetrics": SecurityPlatformAdmin,
	"/medequip.api.v1.AdminService/GetRevenue":        SecurityPlatformAdmin,
	"/medequip.api.v1.AdminService/GetTopPerformers":  SecurityPlatformAdmin,
	"/medequip.api.v1.AdminService/GetPlatformHealth": SecurityPlatformAdmin,
	"/medequip.api.v1.AdminService/ListBottlenecks":   SecurityPlatformAdmin,
}

// GetSecurityLevel returns the security level for a given method
func GetSecurityLevel(method string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[method]; exists {
		return level
	}
	// Default to access for unknown endpoints
	return SecurityAccess
}
