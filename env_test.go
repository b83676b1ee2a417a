package bqtools

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvSetting(t *testing.T) {
	t.Setenv("BQTOOLS_TEST_SET", "value")

	v, err := EnvSetting("BQTOOLS_TEST_SET", "default")
	require.NoError(t, err)
	assert.Equal(t, "value", v)

	v, err = EnvSetting("FROB1234", "foo")
	require.NoError(t, err)
	assert.Equal(t, "foo", v)

	_, err = EnvSetting("FROB1234", "")
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "FROB1234", cerr.Name)
	assert.Equal(t, "set the FROB1234 env variable", err.Error())
}

func setDBEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvDBName, "prescribing")
	t.Setenv(EnvDBUser, "etl")
	t.Setenv(EnvDBPass, "p@ss word")
}

func TestDBConfigFromEnv(t *testing.T) {
	setDBEnv(t)

	cfg, err := DBConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, &DBConfig{Name: "prescribing", User: "etl", Password: "p@ss word", Host: DefaultDBHost}, cfg)

	t.Setenv(EnvDBHost, "db.internal:5433")
	cfg, err = DBConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "db.internal:5433", cfg.Host)

	t.Setenv(EnvDBHost, "/var/run/postgresql")
	cfg, err = DBConfigFromEnv()
	require.NoError(t, err)

	pc, err := pgx.ParseConfig(cfg.ConnString())
	require.NoError(t, err)
	assert.Equal(t, "/var/run/postgresql", pc.Host)
	assert.Equal(t, "p@ss word", pc.Password)
	assert.Equal(t, "prescribing", pc.Database)
}

func TestDBConfig_ConnString(t *testing.T) {
	t.Parallel()

	cases := []struct {
		host       string
		expectHost string
		expectPort uint16
	}{
		{host: "127.0.0.1", expectHost: "127.0.0.1", expectPort: 5432},
		{host: "db.internal", expectHost: "db.internal", expectPort: 5432},
		{host: "db.internal:5433", expectHost: "db.internal", expectPort: 5433},
		{host: "/var/run/postgresql", expectHost: "/var/run/postgresql", expectPort: 5432},
		{host: "::1", expectHost: "::1", expectPort: 5432},
		{host: "[::1]:5433", expectHost: "::1", expectPort: 5433},
	}

	for _, c := range cases {
		c := c
		t.Run(c.host, func(t *testing.T) {
			t.Parallel()

			cfg := &DBConfig{Name: "prescribing", User: "etl", Password: `it's a \ p@ss word`, Host: c.host}

			pc, err := pgx.ParseConfig(cfg.ConnString())
			require.NoError(t, err)

			assert.Equal(t, c.expectHost, pc.Host)
			assert.Equal(t, c.expectPort, pc.Port)
			assert.Equal(t, "etl", pc.User)
			assert.Equal(t, `it's a \ p@ss word`, pc.Password)
			assert.Equal(t, "prescribing", pc.Database)
		})
	}
}

func TestDBConfigFromEnv_missing(t *testing.T) {
	for _, name := range []string{EnvDBName, EnvDBUser, EnvDBPass} {
		name := name
		t.Run(name, func(t *testing.T) {
			setDBEnv(t)
			unsetenv(t, name)

			_, err := DBConfigFromEnv()
			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, name, cerr.Name)
		})
	}
}
