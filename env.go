package bqtools

import (
	"fmt"
	"net"
	"os"
	"strings"
)

// Environment variables holding database connection parameters.
const (
	EnvDBName = "DB_NAME"
	EnvDBUser = "DB_USER"
	EnvDBPass = "DB_PASS"
	EnvDBHost = "DB_HOST"

	DefaultDBHost = "127.0.0.1"
)

// ConfigError indicates a required setting is missing.
type ConfigError struct {
	Name string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("set the %s env variable", e.Name)
}

// EnvSetting returns the value of the environment variable name. When it is
// unset, def is returned, or *ConfigError if def is empty.
func EnvSetting(name, def string) (string, error) {
	if v, ok := os.LookupEnv(name); ok {
		return v, nil
	}
	if def != "" {
		return def, nil
	}
	return "", &ConfigError{Name: name}
}

// DBConfig holds connection parameters of the source database.
type DBConfig struct {
	Name     string
	User     string
	Password string
	Host     string
}

// DBConfigFromEnv reads DB_NAME, DB_USER, DB_PASS and DB_HOST.
func DBConfigFromEnv() (*DBConfig, error) {
	var (
		cfg DBConfig
		err error
	)

	if cfg.Name, err = EnvSetting(EnvDBName, ""); err != nil {
		return nil, err
	}
	if cfg.User, err = EnvSetting(EnvDBUser, ""); err != nil {
		return nil, err
	}
	if cfg.Password, err = EnvSetting(EnvDBPass, ""); err != nil {
		return nil, err
	}
	if cfg.Host, err = EnvSetting(EnvDBHost, DefaultDBHost); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ConnString returns a keyword/value connection string for the config. Host
// may be a name, an address, host:port, or a Unix socket directory.
func (c *DBConfig) ConnString() string {
	host, port := splitHostPort(c.Host)

	kv := []string{"host=" + quoteConnValue(host)}
	if port != "" {
		kv = append(kv, "port="+quoteConnValue(port))
	}
	kv = append(kv,
		"user="+quoteConnValue(c.User),
		"password="+quoteConnValue(c.Password),
		"dbname="+quoteConnValue(c.Name),
	)

	return strings.Join(kv, " ")
}

func splitHostPort(h string) (string, string) {
	if strings.HasPrefix(h, "/") {
		return h, ""
	}
	host, port, err := net.SplitHostPort(h)
	if err != nil {
		// No port, or a bare IPv6 address.
		return h, ""
	}
	return host, port
}

var connValueEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func quoteConnValue(v string) string {
	return "'" + connValueEscaper.Replace(v) + "'"
}
