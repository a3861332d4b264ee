package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	AutoMigrate bool

	RedisAddr string
	RedisDB   int

	IdempTTLSecs int

	NATSURL           string
	NATSSubjectPrefix string

	DefaultSLAHours      int
	DefaultReminderHours int

	EscalationSweepInterval time.Duration
	ReminderSweepInterval   time.Duration
	SweepBatchSize          int

	EscalationThreshold decimal.Decimal
	AutoApproveBelow    decimal.Decimal
	FinanceManagerRole  string
	AdminRole           string

	malformed []string
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getint(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func getbool(k string, d bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return d
}

func getduration(k string, d time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if n, err := time.ParseDuration(v); err == nil {
			return n
		}
	}
	return d
}

// getdecimal keeps the raw value on parse failure so Validate can report it.
func getdecimal(k string, d decimal.Decimal, bad *[]string) decimal.Decimal {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	n, err := decimal.NewFromString(v)
	if err != nil {
		*bad = append(*bad, k)
		return d
	}
	return n
}

func Load() *Config {
	c := &Config{
		AppPort:   getenv("APP_PORT", "8080"),
		AppEnv:    getenv("APP_ENV", "development"),
		LogLevel:  getenv("LOG_LEVEL", "info"),
		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "approvals"),
		MySQLUser: getenv("MYSQL_USER", "approvals"),
		MySQLPass: getenv("MYSQL_PASS", "approvals"),

		RedisAddr:    getenv("REDIS_ADDR", "redis:6379"),
		RedisDB:      getint("REDIS_DB", 0),
		IdempTTLSecs: getint("IDEMPOTENCY_TTL_SECONDS", 300),

		NATSURL:           os.Getenv("NATS_URL"),
		NATSSubjectPrefix: getenv("NATS_SUBJECT_PREFIX", "approvals.notifications"),

		DefaultSLAHours:      getint("DEFAULT_SLA_HOURS", 48),
		DefaultReminderHours: getint("DEFAULT_REMINDER_HOURS", 12),

		EscalationSweepInterval: getduration("ESCALATION_SWEEP_INTERVAL", 5*time.Minute),
		ReminderSweepInterval:   getduration("REMINDER_SWEEP_INTERVAL", time.Minute),
		SweepBatchSize:          getint("SWEEP_BATCH_SIZE", 200),

		FinanceManagerRole: getenv("FINANCE_MANAGER_ROLE", "FINANCIAL_MANAGER"),
		AdminRole:          getenv("ADMIN_ROLE", "ADMIN"),
	}
	c.AutoMigrate = getbool("AUTO_MIGRATE", c.IsDevelopment())

	var bad []string
	c.EscalationThreshold = getdecimal("ESCALATION_THRESHOLD", decimal.NewFromInt(200000), &bad)
	c.AutoApproveBelow = getdecimal("AUTO_APPROVE_BELOW", decimal.Zero, &bad)
	c.malformed = bad
	return c
}

func (c *Config) IsDevelopment() bool { return strings.EqualFold(c.AppEnv, "development") }

func (c *Config) Validate() error {
	if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
		return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
	}
	if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
		return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if len(c.malformed) > 0 {
		return fmt.Errorf("invalid decimal in %s", strings.Join(c.malformed, ", "))
	}
	if c.DefaultSLAHours <= 0 || c.DefaultReminderHours <= 0 {
		return errors.New("DEFAULT_SLA_HOURS and DEFAULT_REMINDER_HOURS must be positive")
	}
	if c.EscalationSweepInterval <= 0 || c.ReminderSweepInterval <= 0 {
		return errors.New("sweep intervals must be positive")
	}
	if c.SweepBatchSize <= 0 {
		return errors.New("SWEEP_BATCH_SIZE must be positive")
	}
	if c.EscalationThreshold.IsNegative() || c.AutoApproveBelow.IsNegative() {
		return errors.New("ESCALATION_THRESHOLD and AUTO_APPROVE_BELOW must not be negative")
	}
	if c.FinanceManagerRole == "" || c.AdminRole == "" {
		return errors.New("missing FINANCE_MANAGER_ROLE or ADMIN_ROLE")
	}
	return nil
}

func (c *Config) DefaultSLA() time.Duration { return time.Duration(c.DefaultSLAHours) * time.Hour }

func (c *Config) DefaultReminder() time.Duration {
	return time.Duration(c.DefaultReminderHours) * time.Hour
}

func (c *Config) IdempotencyTTL() time.Duration { return time.Duration(c.IdempTTLSecs) * time.Second }

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&loc=UTC&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}
