// Command ledger-report loads one snapshot from the configured backend and
// prints a report as JSON. It is meant for board members reconciling the
// ledger from a terminal or a cron job.
//
//	ledger-report -report dues -villa 12
//	ledger-report -report month -month 2025-03
//	ledger-report -report summary -year 2025 -board
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"villaledger/internal/cli"
	"villaledger/internal/config"
	"villaledger/internal/core"
	applog "villaledger/internal/log"
	"villaledger/internal/report"
	"villaledger/internal/snapshot"
)

func main() {
	var (
		kind  = flag.String("report", "summary", "report to print: dues, month, summary or status")
		villa = flag.String("villa", "", "villa id for the dues report")
		month = flag.String("month", "", "YYYY-MM for the month report (default: current month)")
		year  = flag.Int("year", time.Now().Year(), "year for the summary report")
		board = flag.Bool("board", false, "include board-only sections (duplicates, record issues)")
	)
	flag.Parse()

	cli.LoadEnvFile()
	logCfg := applog.ConfigFromEnv()
	logCfg.Output = os.Stderr // stdout carries the report
	logger := applog.New(logCfg)
	// only the backend settings matter here, InitBackend validates them
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store := cli.InitBackend(ctx, logger, cfg)
	defer store.Close()

	facade := report.New(snapshot.NewLoader(store.Store, logger), cli.ReportOptions(cfg, nil, logger))
	if err := facade.Reload(ctx); err != nil {
		logger.Error("Snapshot load failed", applog.FieldError, err.Error())
		os.Exit(1)
	}

	session := core.Session{Email: "ledger-report", IsBoardMember: *board}

	var out any
	switch *kind {
	case "dues":
		if *villa == "" {
			fail("-villa is required for the dues report")
		}
		out = facade.DuesReport(session, *villa)
	case "month":
		m := core.MonthOfTime(time.Now())
		if *month != "" {
			parsed, err := core.ParseMonth(*month)
			if err != nil {
				fail(err.Error())
			}
			m = parsed
		}
		out = facade.MonthDetail(session, m)
	case "summary":
		out = facade.FinancialSummary(session, *year)
	case "status":
		out = facade.Status()
	default:
		fail(fmt.Sprintf("unknown report %q", *kind))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Error("Failed to write report", applog.FieldError, err.Error())
		os.Exit(1)
	}
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, "ledger-report:", msg)
	flag.Usage()
	os.Exit(2)
}
