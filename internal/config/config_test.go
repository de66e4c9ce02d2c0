package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "https://trello.com/1", cfg.TrelloBaseURL)
	assert.Equal(t, []string{"Done"}, cfg.DoneLists)
	assert.Equal(t, 24*time.Hour, cfg.Interval())
	assert.Equal(t, "Asia/Tokyo", cfg.ReportTZ)
	assert.False(t, cfg.FirstDateTime.IsZero(), "window start falls back to now-30d")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BOARD_FIRST_DATETIME", "2024/03/01 10:00")
	t.Setenv("BOARD_INTERVAL_HOUR", "12")
	t.Setenv("BOARD_EXCEPT_LISTS", "Icebox, Archive")
	t.Setenv("BOARD_DONE_LISTS", "Done,Released")
	t.Setenv("TELEGRAM_CHAT_IDS", "42, -100123")

	cfg := Load()
	assert.Equal(t, 12*time.Hour, cfg.Interval())
	assert.Equal(t, []string{"Icebox", "Archive"}, cfg.ExceptLists)
	assert.Equal(t, []string{"Done", "Released"}, cfg.DoneLists)
	assert.Equal(t, []int64{42, -100123}, cfg.TelegramChatIDs)

	loc := cfg.ReportLocation()
	want, err := time.ParseInLocation("2006/01/02 15:04", "2024/03/01 10:00", loc)
	require.NoError(t, err)
	assert.True(t, cfg.FirstDateTime.Equal(want))
}

func TestLoadBadFirstDateTime(t *testing.T) {
	t.Setenv("BOARD_FIRST_DATETIME", "yesterday-ish")
	cfg := Load()
	assert.False(t, cfg.FirstDateTime.IsZero(), "bad input falls back to now-30d")
	assert.WithinDuration(t, time.Now().Add(-30*24*time.Hour), cfg.FirstDateTime, time.Minute)
}
