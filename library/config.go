package library

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the single source of truth for the circulation constants. It is
// loaded once at startup and handed to the handlers; nothing in the core
// reads these values from package state.
type Config struct {
	// DueDateOffsetDays is how many days after the rental date a rental
	// falls due.
	DueDateOffsetDays int
	// DueDateHour pins the time-of-day of every due date (0-23).
	DueDateHour int
	// LateFeePerDay is the fee accrued per started day overdue.
	LateFeePerDay float64
	// DueDateGrace is subtracted from "now" when recomputing a due date;
	// anything earlier than that floor is rejected.
	DueDateGrace time.Duration
	// DBPath is where the SQLite database lives.
	DBPath string
}

func DefaultConfig() Config {
	return Config{
		DueDateOffsetDays: 7,
		DueDateHour:       20,
		LateFeePerDay:     0.50,
		DueDateGrace:      0,
		DBPath:            "librarydesk.db",
	}
}

// LoadConfig layers a .env file (if present) and environment overrides on
// top of the defaults.
func LoadConfig() Config {
	godotenv.Load()

	cfg := DefaultConfig()
	cfg.DueDateOffsetDays = envInt("LIBRARYDESK_DUE_DATE_OFFSET_DAYS", cfg.DueDateOffsetDays)
	cfg.DueDateHour = envInt("LIBRARYDESK_DUE_DATE_HOUR", cfg.DueDateHour)
	cfg.LateFeePerDay = envFloat("LIBRARYDESK_LATE_FEE_PER_DAY", cfg.LateFeePerDay)
	cfg.DBPath = envStr("LIBRARYDESK_DB", cfg.DBPath)
	return cfg
}

// DueDateFrom derives the due date for a rental taken out at rentalDate:
// the configured day offset ahead, pinned to the configured hour.
func (c Config) DueDateFrom(rentalDate time.Time) time.Time {
	d := rentalDate.AddDate(0, 0, c.DueDateOffsetDays)
	return time.Date(d.Year(), d.Month(), d.Day(), c.DueDateHour, 0, 0, 0, d.Location())
}

// PinDueHour normalizes an arbitrary due date to the configured hour.
func (c Config) PinDueHour(due time.Time) time.Time {
	return time.Date(due.Year(), due.Month(), due.Day(), c.DueDateHour, 0, 0, 0, due.Location())
}

func envStr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
