package config

import (
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string
	// SQLitePath switches the event journal to a local file (or :memory:)
	// instead of MySQL.
	SQLitePath string

	RedisAddr string
	RedisPass string
	RedisDB   int

	IdempTTLSecs int

	// PoolLiquidity / PoolManagerReserve seed the in-process liquidity pool.
	PoolLiquidity      *big.Int
	PoolManagerReserve *big.Int

	// ManagerIDs / GovernanceIDs are 32-hex caller ids, comma-separated in
	// the environment.
	ManagerIDs    []string
	GovernanceIDs []string
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func getenvBig(k, d string) *big.Int {
	raw := getenv(k, d)
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok || n.Sign() < 0 {
		n, _ = new(big.Int).SetString(d, 10)
	}
	return n
}

func getenvList(k string) []string {
	raw := os.Getenv(k)
	if raw == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func Load() *Config {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	return &Config{
		AppPort:    getenv("APP_PORT", "8080"),
		MySQLHost:  getenv("MYSQL_HOST", "mysql"),
		MySQLPort:  getenv("MYSQL_PORT", "3306"),
		MySQLDB:    getenv("MYSQL_DB", "loandesk"),
		MySQLUser:  getenv("MYSQL_USER", "loandesk"),
		MySQLPass:  getenv("MYSQL_PASS", "loandesk"),
		SQLitePath: os.Getenv("SQLITE_PATH"),

		RedisAddr:    getenv("REDIS_ADDR", "redis:6379"),
		RedisPass:    os.Getenv("REDIS_PASS"),
		RedisDB:      getenvInt("REDIS_DB", 0),
		IdempTTLSecs: getenvInt("IDEMPOTENCY_TTL_SECONDS", 300),

		PoolLiquidity:      getenvBig("POOL_LIQUIDITY", "1000000000"),
		PoolManagerReserve: getenvBig("POOL_MANAGER_RESERVE", "0"),

		ManagerIDs:    getenvList("MANAGER_IDS"),
		GovernanceIDs: getenvList("GOVERNANCE_IDS"),
	}
}

func (c *Config) Validate() error {
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if c.SQLitePath == "" {
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	}
	if len(c.ManagerIDs) == 0 {
		return errors.New("missing MANAGER_IDS")
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME columns
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}
