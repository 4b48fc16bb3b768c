package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://u:p@localhost:5432/shop?sslmode=disable", "pgx5://u:p@localhost:5432/shop?sslmode=disable"},
		{"postgresql://localhost/shop", "pgx5://localhost/shop"},
		{"pgx5://localhost/shop", "pgx5://localhost/shop"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, migrateURL(tt.in))
	}
}

func TestRollback_RejectsNonPositiveSteps(t *testing.T) {
	assert.Error(t, Rollback("postgres://localhost/none", 0))
}
