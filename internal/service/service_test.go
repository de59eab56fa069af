package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"hunter-web/internal/repository/sqlstore"
)

func newTestDB(t *testing.T) *sqlstore.DB {
	t.Helper()
	db, err := sqlstore.Open(string(sqlstore.SQLite), filepath.Join(t.TempDir(), "svc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func newTestUserService(t *testing.T) UserService {
	t.Helper()
	svc := NewUserService(sqlstore.NewUserRepository(newTestDB(t)))
	svc.(*userService).cost = bcrypt.MinCost
	return svc
}
