package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendCSV    = "csv"
	BackendMySQL  = "mysql"
	BackendSQLite = "sqlite"
	BackendSheets = "sheets"
	BackendMemory = "memory"
)

type AppConfig struct {
	API     APIConfig     `mapstructure:"api"`
	Storage StorageConfig `mapstructure:"storage"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

type APIConfig struct {
	Environment string `mapstructure:"environment"`
	HTTPPort    string `mapstructure:"http_port"`
	GRPCPort    string `mapstructure:"grpc_port"`
}

type StorageConfig struct {
	Backend        string       `mapstructure:"backend"`
	CSVDir         string       `mapstructure:"csv_dir"`
	MySQLDSN       string       `mapstructure:"mysql_dsn"`
	SQLitePath     string       `mapstructure:"sqlite_path"`
	Sheets         SheetsConfig `mapstructure:"sheets"`
	InventoryTable string       `mapstructure:"inventory_table"`
	SalesTable     string       `mapstructure:"sales_table"`
}

type SheetsConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// RedisConfig is optional: with an empty Addr, request ids are tracked in
// process memory only.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Load reads the YAML file at path when it exists and applies SALES_*
// environment overrides, e.g. SALES_STORAGE_BACKEND=mysql.
func Load(path string) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("sales")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("v.ReadInConfig -> %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config: %w", err)
		}
	}

	var conf AppConfig
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("v.Unmarshal -> %w", err)
	}
	if err := conf.validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.environment", "development")
	v.SetDefault("api.http_port", "8080")
	v.SetDefault("api.grpc_port", "50051")
	v.SetDefault("storage.backend", BackendCSV)
	v.SetDefault("storage.csv_dir", "./data")
	v.SetDefault("storage.mysql_dsn", "root:root@tcp(localhost:3306)/sales?parseTime=true")
	v.SetDefault("storage.sqlite_path", "./data/sales.db")
	v.SetDefault("storage.sheets.spreadsheet_id", "")
	v.SetDefault("storage.sheets.credentials_file", "")
	v.SetDefault("storage.inventory_table", "Inventory")
	v.SetDefault("storage.sales_table", "Sales")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "24h")
}

func (c *AppConfig) validate() error {
	switch c.Storage.Backend {
	case BackendCSV, BackendMySQL, BackendSQLite, BackendMemory:
	case BackendSheets:
		if c.Storage.Sheets.SpreadsheetID == "" {
			return errors.New("storage.sheets.spreadsheet_id is required for the sheets backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.InventoryTable == "" || c.Storage.SalesTable == "" {
		return errors.New("storage.inventory_table and storage.sales_table must be set")
	}
	return nil
}
