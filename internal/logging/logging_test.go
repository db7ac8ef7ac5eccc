package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingHandler struct{ slog.Handler }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("sink down")
}

func TestMultiHandlerKeepsGoingAfterFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewMultiHandler(failingHandler{}, NewJSONHandler(&buf, "info")))

	logger.Info("hello", "k", "v")

	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"k":"v"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestPGHandlerPersistsErrorsOnStop(t *testing.T) {
	db := testutil.NewDB(t)
	h := NewPGHandler(db, time.Hour)
	logger := slog.New(h).With("request_id", "req-1")

	logger.Info("ignored")
	logger.Error("payment failed", "action", "stripe_webhook", "error", "boom", "promotion_id", "p1")
	h.Stop()

	var logs []models.SystemLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "payment failed", logs[0].Message)
	assert.Equal(t, "req-1", logs[0].RequestID)
	assert.Equal(t, "stripe_webhook", logs[0].Action)
	assert.Equal(t, "boom", logs[0].Error)
	assert.Contains(t, string(logs[0].Extra), "promotion_id")
}

func TestRetentionTaskDeletesOldRows(t *testing.T) {
	db := testutil.NewDB(t)
	old := models.SystemLog{Timestamp: time.Now().UTC().AddDate(0, 0, -40), Level: "ERROR", Message: "old"}
	fresh := models.SystemLog{Timestamp: time.Now().UTC(), Level: "ERROR", Message: "fresh"}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Create(&fresh).Error)

	n, err := RetentionTask(db, 30)(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var count int64
	db.Model(&models.SystemLog{}).Count(&count)
	assert.EqualValues(t, 1, count)
}
