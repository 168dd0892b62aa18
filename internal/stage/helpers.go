package stage

import (
	"strings"

	"clipto/internal/services"
)

// ContractVersion extracts the contract generation from a backend request id
// of the form <prefix>-<version>-<rest>. "v0" and "0" select the legacy
// contract; every other version selects the current one.
func ContractVersion(requestID string) (int, error) {
	parts := strings.Split(strings.TrimSpace(requestID), "-")
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		return 0, services.Wrap(services.ErrValidation, "stage", "contract version",
			"request id "+requestID+" carries no version", nil)
	}
	switch strings.ToLower(strings.TrimSpace(parts[1])) {
	case "v0", "0":
		return 0, nil
	default:
		return 1, nil
	}
}
