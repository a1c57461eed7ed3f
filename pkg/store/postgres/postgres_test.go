package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGormConfigTranslatesErrors(t *testing.T) {
	cfg := gormConfig()
	// Duplicate-key detection in AddTeamMember and CreateUser relies on the
	// driver translating SQLSTATE 23505 into gorm.ErrDuplicatedKey.
	assert.True(t, cfg.TranslateError)
}
