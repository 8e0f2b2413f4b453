package db

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestOpen_SQLiteMemory(t *testing.T) {
	db, err := Open(context.Background(), DriverSQLite, "file:dbtest?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	assert.NoError(t, Ping(context.Background(), db))
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(context.Background(), DriverSQLite, "")
	assert.Error(t, err)

	_, err = Open(context.Background(), "mysql", "dsn")
	assert.ErrorContains(t, err, "unknown DB_DRIVER")
}

func TestGormLogger_QuietOnMissesAndHidesValues(t *testing.T) {
	var buf bytes.Buffer
	gdb, err := gorm.Open(sqlite.Open("file:dblogtest?mode=memory&cache=shared"), &gorm.Config{
		Logger: newGormLogger(log.New(&buf, "", 0)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(gdb) })

	type account struct {
		ID    uint
		Email string
	}
	require.NoError(t, gdb.AutoMigrate(&account{}))

	var a account
	err = gdb.Where("email = ?", "a@x.com").First(&a).Error
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	assert.Empty(t, buf.String())

	err = gdb.Raw("SELECT * FROM missing_table WHERE email = ?", "a@x.com").Scan(&a).Error
	require.Error(t, err)
	assert.Contains(t, buf.String(), "missing_table")
	assert.NotContains(t, buf.String(), "a@x.com")
}
