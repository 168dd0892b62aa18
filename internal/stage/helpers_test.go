package stage

import (
	"errors"
	"testing"

	"clipto/internal/services"
)

func TestContractVersion(t *testing.T) {
	tests := []struct {
		id   string
		want int
	}{
		{"req-v0-123", 0},
		{"req-0-123", 0},
		{"req-v1-123", 1},
		{"req-V0-9", 0},
		{"abc-v2", 1},
	}
	for _, tt := range tests {
		got, err := ContractVersion(tt.id)
		if err != nil {
			t.Fatalf("ContractVersion(%q) error: %v", tt.id, err)
		}
		if got != tt.want {
			t.Fatalf("ContractVersion(%q) = %d, want %d", tt.id, got, tt.want)
		}
	}
}

func TestContractVersion_Missing(t *testing.T) {
	for _, id := range []string{"", "plain", "req-"} {
		if _, err := ContractVersion(id); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("ContractVersion(%q) expected validation error, got %v", id, err)
		}
	}
}
