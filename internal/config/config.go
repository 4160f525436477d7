package config

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Options struct {
	dataDir      string
	dataArchive  string
	dbDriver     string
	dataBaseDSN  string
	logLevel     string
	sampleRows   int
	queryTimeout time.Duration
	joinCSV      string
}

func NewOptions() *Options {
	return new(Options)
}

// ParseFlags handles command line arguments
// and stores their values in the corresponding variables.
func (o *Options) ParseFlags() {
	o.Parse(flag.CommandLine, os.Args[1:])
}

// Parse registers the options on fs and parses args. Environment variables
// (optionally from a .env file) provide the defaults, flags override them.
func (o *Options) Parse(fs *flag.FlagSet, args []string) {
	loadEnvFile()

	fs.StringVar(&o.dataDir, "i", getEnvOrDefault("DATA_DIR", "."), "directory with receipts.json, brands.json and users.json")
	fs.StringVar(&o.dataArchive, "z", getEnvOrDefault("DATA_ARCHIVE", ""), "zip or tar archive with the JSON exports (overrides -i)")
	fs.StringVar(&o.dbDriver, "s", getEnvOrDefault("DB_DRIVER", "sqlite3"), "database driver: sqlite3, sqlite or pgx")
	fs.StringVar(&o.dataBaseDSN, "d", getEnvOrDefault("DATABASE_URI", "data.db"), "database file or connection string")
	fs.StringVar(&o.logLevel, "l", getEnvOrDefault("LOG_LEVEL", "info"), "log level")
	fs.IntVar(&o.sampleRows, "n", getEnvIntOrDefault("SAMPLE_ROWS", 5), "rows printed per table sample")
	fs.DurationVar(&o.queryTimeout, "t", getEnvDurationOrDefault("QUERY_TIMEOUT", 30*time.Second), "timeout for a single database statement")
	fs.StringVar(&o.joinCSV, "o", getEnvOrDefault("JOIN_CSV", ""), "optional CSV file for the receipt/brand join result")

	// flag.CommandLine exits on a bad flag by itself
	_ = fs.Parse(args)
}

func (o *Options) DataDir() string {
	return o.dataDir
}

func (o *Options) DataArchive() string {
	return o.dataArchive
}

func (o *Options) DBDriver() string {
	return o.dbDriver
}

func (o *Options) DataBaseDSN() string {
	return o.dataBaseDSN
}

func (o *Options) LogLevel() string {
	return o.logLevel
}

func (o *Options) SampleRows() int {
	return o.sampleRows
}

func (o *Options) QueryTimeout() time.Duration {
	return o.queryTimeout
}

func (o *Options) JoinCSV() string {
	return o.joinCSV
}

// getEnvOrDefault reads an environment variable or returns a default value if the variable is not set or is empty.
func getEnvOrDefault(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := getEnvOrDefault(key, "")
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("invalid integer %q for %s, using %d", value, key, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := getEnvOrDefault(key, "")
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("invalid duration %q for %s, using %s", value, key, defaultValue)
		return defaultValue
	}
	return d
}

// loadEnvFile loads environment variables from a .env file in the working directory
func loadEnvFile() {
	cwd, err := os.Getwd()
	if err != nil {
		log.Printf("cannot resolve working directory: %v", err)
		return
	}
	envPath := filepath.Join(cwd, ".env")

	// variables already present in the environment win over the file
	if err := godotenv.Load(envPath); err == nil {
		log.Printf(".env file loaded from %s", envPath)
	}
}
