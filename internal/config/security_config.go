// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
)

// EndpointSecurityConfig maps methods to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Health - Public
	"/grpc.health.v1.Health/Check": SecurityPublic,
	"/grpc.health.v1.Health/Watch": SecurityPublic,

	// Reflection - Public
	"/grpc.reflection.v1.ServerReflection/ServerReflectionInfo":      SecurityPublic,
	"/grpc.reflection.v1alpha.ServerReflection/ServerReflectionInfo": SecurityPublic,

	// LedgerService - read methods, Access Protected
	"/siterent.ledger.v1.LedgerService/GetOrder":             SecurityAccess,
	"/siterent.ledger.v1.LedgerService/GetOrderHistory":      SecurityAccess,
	"/siterent.ledger.v1.LedgerService/GetSiteBalance":       SecurityAccess,
	"/siterent.ledger.v1.LedgerService/GetSiteHistory":       SecurityAccess,
	"/siterent.ledger.v1.LedgerService/ListStock":            SecurityAccess,
	"/siterent.ledger.v1.LedgerService/ListOrdersByCustomer": SecurityAccess,
	"/siterent.ledger.v1.LedgerService/ListRentedItems":      SecurityAccess,
	"/siterent.ledger.v1.LedgerService/ListReturnedItems":    SecurityAccess,

	// LedgerService - write methods, Access Protected
	"/siterent.ledger.v1.LedgerService/CreateOrder":   SecurityAccess,
	"/siterent.ledger.v1.LedgerService/EditOrder":     SecurityAccess,
	"/siterent.ledger.v1.LedgerService/ReturnItems":   SecurityAccess,
	"/siterent.ledger.v1.LedgerService/RecordLoss":    SecurityAccess,
	"/siterent.ledger.v1.LedgerService/DeleteOrder":   SecurityAccess,
	"/siterent.ledger.v1.LedgerService/AddPayment":    SecurityAccess,
	"/siterent.ledger.v1.LedgerService/EditPayment":   SecurityAccess,
	"/siterent.ledger.v1.LedgerService/DeletePayment": SecurityAccess,
	"/siterent.ledger.v1.LedgerService/AddStock":      SecurityAccess,
	"/siterent.ledger.v1.LedgerService/EditStock":     SecurityAccess,
	"/siterent.ledger.v1.LedgerService/DeleteStock":   SecurityAccess,

	// LedgerService - maintenance, Access Protected
	"/siterent.ledger.v1.LedgerService/RecomputeSiteBalance": SecurityAccess,
	"/siterent.ledger.v1.LedgerService/RebuildHistory":       SecurityAccess,
}

// GetSecurityLevel returns the security level for a given method
func GetSecurityLevel(method string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[method]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAccess
}
