package cli

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"villaledger/internal/config"
	"villaledger/internal/ledger"
)

func TestReportOptions(t *testing.T) {
	tests := []struct {
		name   string
		legacy bool
		want   ledger.MatchMode
	}{
		{"default matches year and month", false, ledger.MatchYearMonth},
		{"legacy matches month number only", true, ledger.MatchMonthOnly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				LegacyMonthMatching: tt.legacy,
				ReportCacheSize:     16,
				ReloadInterval:      time.Minute,
			}
			opts := ReportOptions(cfg, nil, nil)
			if opts.MatchMode != tt.want {
				t.Errorf("MatchMode = %v, want %v", opts.MatchMode, tt.want)
			}
			if opts.CacheSize != 16 || opts.CacheTTL != time.Minute {
				t.Errorf("cache options = %d/%v", opts.CacheSize, opts.CacheTTL)
			}
		})
	}
}

func TestSetupLoggerHonoursEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	logger := SetupLogger()
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug level should be enabled")
	}
}
