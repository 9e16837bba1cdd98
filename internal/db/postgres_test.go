package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrateURL(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@db:5432/reminders":   "pgx5://u:p@db:5432/reminders",
		"postgresql://u:p@db:5432/reminders": "pgx5://u:p@db:5432/reminders",
		"pgx5://u@db/reminders":              "pgx5://u@db/reminders",
		"u@db/reminders":                     "pgx5://u@db/reminders",
	}
	for in, want := range tests {
		assert.Equal(t, want, migrateURL(in), in)
	}
}
