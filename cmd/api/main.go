package main

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	httpadp "loandesk/internal/adapter/http"
	"loandesk/internal/adapter/middleware"
	localpool "loandesk/internal/adapter/pool"
	"loandesk/internal/adapter/repository/mysql"
	"loandesk/internal/config"
	"loandesk/internal/domain/access"
	"loandesk/internal/infrastructure/cache"
	"loandesk/internal/infrastructure/db"
	"loandesk/internal/ledger"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	gdb, err := openJournalDB(cfg)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	journal := mysql.NewEventJournal(gdb)
	if err := journal.Migrate(); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}

	roles := &access.Static{
		Managers:   toSet(cfg.ManagerIDs),
		Governance: toSet(cfg.GovernanceIDs),
		AllUsers:   true,
	}
	liquidity := localpool.NewLocal(cfg.PoolLiquidity, cfg.PoolManagerReserve)

	led, err := ledger.New(nil, liquidity, roles, ledger.WithRecorder(journal))
	if err != nil {
		log.Fatalf("ledger: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(echomw.Logger(), echomw.Recover())

	idemp := middleware.IdempotencyMiddleware(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second)
	httpadp.Register(e, led, idemp)

	addr := ":" + cfg.AppPort
	log.Printf("listening on %s", addr)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

func openJournalDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.SQLitePath != "" {
		return db.OpenSQLite(cfg.SQLitePath)
	}
	return db.OpenGorm(cfg.MySQLDSN())
}

func toSet(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}
