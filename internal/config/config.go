// Package config reads server settings from flags, the environment, an
// optional YAML file and a .env file. Flags win over the environment, which
// wins over the YAML file, which wins over defaults.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables.
const (
	EnvConfig        = "SHARECYCLE_CONFIG"
	EnvDB            = "SHARECYCLE_DB"
	EnvAddr          = "SHARECYCLE_ADDR"
	EnvAdmin         = "SHARECYCLE_ADMIN"
	EnvLog           = "SHARECYCLE_LOG"
	EnvNATSURL       = "SHARECYCLE_NATS_URL"
	EnvRedisAddr     = "SHARECYCLE_REDIS_ADDR"
	EnvRedisPassword = "SHARECYCLE_REDIS_PASSWORD"
)

// Config holds the server settings.
type Config struct {
	DBPath        string
	Addr          string
	AdminUser     string
	LogPath       string
	NATSURL       string
	RedisAddr     string
	RedisPassword string
}

// File is the layout of the YAML config file.
type File struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Admin struct {
		User string `yaml:"user"`
	} `yaml:"admin"`
	Logging struct {
		Path string `yaml:"path"`
	} `yaml:"logging"`
	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
	} `yaml:"redis"`
}

// Usage is printed for -h.
const Usage = `Usage: sharecycle [flags]

Flags:
  -c, -config <path>      YAML config file (env SHARECYCLE_CONFIG)
  -d, -db <path>          SQLite database path (default: sharecycle.sqlite3, env SHARECYCLE_DB)
  -a, -addr <host:port>   listen address (default: :8080, env SHARECYCLE_ADDR)
  -u, -user <name>        admin username on first run (default: admin, env SHARECYCLE_ADMIN)
  -l, -log <path>         log file path (default: stdout/stderr only, env SHARECYCLE_LOG)
  -nats <url>             publish notifications to NATS (env SHARECYCLE_NATS_URL)
  -redis <host:port>      publish notifications to Redis (env SHARECYCLE_REDIS_ADDR,
                          password from SHARECYCLE_REDIS_PASSWORD)
  -h, -help               show this help and exit
`

// LoadDotEnv loads variables from path into the process environment without
// overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// LoadFile reads a YAML config file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return &f, nil
}

// Parse builds a Config from command line arguments (without the program
// name), falling back to getenv, then to the YAML file, for unset flags.
func Parse(args []string, getenv func(string) string, output io.Writer) (*Config, error) {
	var (
		cfg        Config
		configPath string
	)

	fset := flag.NewFlagSet("sharecycle", flag.ContinueOnError)
	fset.SetOutput(output)
	fset.Usage = func() { fmt.Fprint(output, Usage) }

	stringFlag := func(p *string, names ...string) {
		for _, n := range names {
			fset.StringVar(p, n, "", "")
		}
	}
	stringFlag(&configPath, "config", "c")
	stringFlag(&cfg.DBPath, "db", "d")
	stringFlag(&cfg.Addr, "addr", "a")
	stringFlag(&cfg.AdminUser, "user", "u")
	stringFlag(&cfg.LogPath, "log", "l")
	stringFlag(&cfg.NATSURL, "nats")
	stringFlag(&cfg.RedisAddr, "redis")

	if err := fset.Parse(args); err != nil {
		return nil, err
	}
	if fset.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", fset.Arg(0))
	}

	set := map[string]bool{}
	fset.Visit(func(f *flag.Flag) { set[f.Name] = true })
	given := func(names ...string) bool {
		for _, n := range names {
			if set[n] {
				return true
			}
		}
		return false
	}

	if configPath == "" {
		configPath = getenv(EnvConfig)
	}
	file := &File{}
	if configPath != "" {
		var err error
		if file, err = LoadFile(configPath); err != nil {
			return nil, err
		}
	}

	resolve := func(p *string, flagged bool, env, fromFile, def string) {
		if flagged {
			return
		}
		switch {
		case getenv(env) != "":
			*p = getenv(env)
		case fromFile != "":
			*p = fromFile
		default:
			*p = def
		}
	}
	resolve(&cfg.DBPath, given("db", "d"), EnvDB, file.Database.Path, "sharecycle.sqlite3")
	resolve(&cfg.Addr, given("addr", "a"), EnvAddr, file.Server.Addr, ":8080")
	resolve(&cfg.AdminUser, given("user", "u"), EnvAdmin, file.Admin.User, "admin")
	resolve(&cfg.LogPath, given("log", "l"), EnvLog, file.Logging.Path, "")
	resolve(&cfg.NATSURL, given("nats"), EnvNATSURL, file.NATS.URL, "")
	resolve(&cfg.RedisAddr, given("redis"), EnvRedisAddr, file.Redis.Addr, "")
	resolve(&cfg.RedisPassword, false, EnvRedisPassword, file.Redis.Password, "")

	if cfg.DBPath == "" {
		return nil, errors.New("database path must not be empty")
	}
	return &cfg, nil
}
