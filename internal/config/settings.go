package config

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/spf13/viper"

	"github.com/Veraticus/the-fees-must-flow/internal/common"
	"github.com/Veraticus/the-fees-must-flow/internal/model"
)

// Configuration keys.
const (
	KeyDatabasePath      = "database.path"
	KeyLogLevel          = "logging.level"
	KeyLogFormat         = "logging.format"
	KeyPreservePostponed = "plans.preserve_postponed"
	KeyPostponeDays      = "plans.postpone_days"
	KeyCurrency          = "notifications.currency"
	KeyTrack             = "notifications.track"
	KeyWatchSchedule     = "watch.schedule"
)

// Default values for every key.
const (
	DefaultDatabasePath  = "$HOME/.local/share/fees/fees.db"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultPostponeDays  = 7
	DefaultCurrency      = money.BRL
	DefaultTrack         = model.TrackPrincipal
	DefaultWatchSchedule = "@every 1m"
)

// Settings is the typed view of the configuration.
type Settings struct {
	DatabasePath      string
	LogLevel          string
	LogFormat         string
	Currency          string
	Track             model.Track
	WatchSchedule     string
	PostponeDays      int
	PreservePostponed bool
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDatabasePath, DefaultDatabasePath)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFormat, DefaultLogFormat)
	v.SetDefault(KeyPreservePostponed, false)
	v.SetDefault(KeyPostponeDays, DefaultPostponeDays)
	v.SetDefault(KeyCurrency, DefaultCurrency)
	v.SetDefault(KeyTrack, string(DefaultTrack))
	v.SetDefault(KeyWatchSchedule, DefaultWatchSchedule)
}

// Load reads and validates the settings held by v.
func Load(v *viper.Viper) (Settings, error) {
	s := Settings{
		DatabasePath:      ExpandPath(v.GetString(KeyDatabasePath)),
		LogLevel:          v.GetString(KeyLogLevel),
		LogFormat:         v.GetString(KeyLogFormat),
		PreservePostponed: v.GetBool(KeyPreservePostponed),
		PostponeDays:      v.GetInt(KeyPostponeDays),
		Currency:          strings.ToUpper(strings.TrimSpace(v.GetString(KeyCurrency))),
		WatchSchedule:     strings.TrimSpace(v.GetString(KeyWatchSchedule)),
	}

	if s.DatabasePath == "" {
		return Settings{}, fmt.Errorf("%w: %s", common.ErrMissingConfig, KeyDatabasePath)
	}
	if s.PostponeDays < 1 {
		return Settings{}, fmt.Errorf("%w: %s must be at least 1, got %d", common.ErrInvalidConfig, KeyPostponeDays, s.PostponeDays)
	}
	if money.GetCurrency(s.Currency) == nil {
		return Settings{}, fmt.Errorf("%w: unknown currency %q", common.ErrInvalidConfig, s.Currency)
	}
	if s.WatchSchedule == "" {
		return Settings{}, fmt.Errorf("%w: %s", common.ErrMissingConfig, KeyWatchSchedule)
	}

	track, err := model.ParseTrack(v.GetString(KeyTrack))
	if err != nil {
		return Settings{}, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	s.Track = track

	return s, nil
}
