package shared

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/unilife/core"
	"github.com/trezcool/unilife/core/identity"
	"github.com/trezcool/unilife/core/record"
	logsvc "github.com/trezcool/unilife/services/logger"
	"github.com/trezcool/unilife/storage/localstate"
	"github.com/trezcool/unilife/tests"
)

func TestOpenRecordStore(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		db   core.DatabaseConfig
	}{
		{name: "memory", db: core.DatabaseConfig{Engine: core.EngineMemory}},
		{name: "sqlite", db: core.DatabaseConfig{Engine: core.EngineSQLite, Path: filepath.Join(t.TempDir(), "unilife.db")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote, closer, err := OpenRecordStore(&core.Config{Database: tt.db}, logsvc.NewDiscardLogger())
			require.NoError(t, err)
			defer func() { assert.NoError(t, closer()) }()

			task := record.NewTask{Title: "Essay", DueDate: "2024-03-12", Priority: "low", Status: "todo"}.Finalize()
			row, err := remote.Insert(ctx, record.TableTasks, record.TaskSchema.InsertPayload(task, uuid.NewString()))
			require.NoError(t, err)
			rows, err := remote.Select(ctx, record.TableTasks, record.Filter{}, nil)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, row.ID(), rows[0].ID())
		})
	}

	_, _, err := OpenRecordStore(&core.Config{Database: core.DatabaseConfig{Engine: core.EngineSQLite}}, logsvc.NewDiscardLogger())
	assert.Error(t, err, "missing sqlite path")
}

func TestNewIdentity(t *testing.T) {
	ctx := context.Background()
	secret := "s3cret"
	owner := uuid.NewString()
	token, err := identity.GenerateToken([]byte(secret), owner, time.Hour)
	require.NoError(t, err)

	t.Run("no secret key", func(t *testing.T) {
		ident := NewIdentity(&core.Config{}, testutil.OpenState(t))
		first, err := ident.OwnerID(ctx)
		require.NoError(t, err)
		second, err := ident.OwnerID(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("configured token", func(t *testing.T) {
		conf := &core.Config{Session: core.SessionConfig{SecretKey: secret, Token: token}}
		id, err := NewIdentity(conf, testutil.OpenState(t)).OwnerID(ctx)
		require.NoError(t, err)
		assert.Equal(t, owner, id)
	})

	t.Run("saved token", func(t *testing.T) {
		state := testutil.OpenState(t)
		conf := &core.Config{Session: core.SessionConfig{SecretKey: secret}}
		ident := NewIdentity(conf, state)

		_, err := ident.OwnerID(ctx)
		assert.Equal(t, identity.ErrNoSession, errors.Cause(err))

		require.NoError(t, state.Put(ctx, localstate.KeySessionToken, token))
		id, err := ident.OwnerID(ctx)
		require.NoError(t, err)
		assert.Equal(t, owner, id)
	})
}
