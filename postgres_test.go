package bqtools

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetenv removes name for the rest of the test.
func unsetenv(t *testing.T, name string) {
	t.Helper()
	t.Setenv(name, "")
	require.NoError(t, os.Unsetenv(name))
}

func TestCopySQL(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		`COPY "frontend_presentation"("bnf_code","name") TO STDOUT (FORMAT CSV, NULL '')`,
		copySQL("frontend_presentation", []string{"bnf_code", "name"}))

	assert.Equal(t,
		`COPY "public"."frontend_presentation"("bnf_code") TO STDOUT (FORMAT CSV, NULL '')`,
		copySQL("public.frontend_presentation", []string{"bnf_code"}))
}

func TestLoadFromPostgres(t *testing.T) {
	setDBEnv(t)

	dir := t.TempDir()
	w := &fakeWarehouse{}
	u := &fakeUnloader{body: "A1,foo,1\nB2,,2\n"}
	c := newTestClient(t, w, WithStagingDir(dir))
	c.unloader = u

	res, err := c.LoadFromPostgres(context.Background(), &PostgresLoadRequest{
		Dataset:     "hscic",
		Table:       "codes",
		Schema:      testSchema,
		SourceTable: "frontend_codes",
		Transform:   upper,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, 1, u.calls)
	assert.Equal(t, DefaultDBHost, u.cfg.Host)
	assert.Equal(t, `COPY "frontend_codes"("code","name","items") TO STDOUT (FORMAT CSV, NULL '')`, u.sql)
	assert.Equal(t, [][]string{{"A1", "FOO", "1"}, {"B2", "", "2"}}, w.loaded)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoadFromPostgres_columns(t *testing.T) {
	setDBEnv(t)

	u := &fakeUnloader{body: "A1,foo,1\n"}
	c := newTestClient(t, &fakeWarehouse{})
	c.unloader = u

	_, err := c.LoadFromPostgres(context.Background(), &PostgresLoadRequest{
		Dataset:     "d",
		Table:       "t",
		Schema:      testSchema,
		SourceTable: "src",
		Columns:     []string{"id", "name", "n"},
	})
	require.NoError(t, err)
	assert.Equal(t, `COPY "src"("id","name","n") TO STDOUT (FORMAT CSV, NULL '')`, u.sql)
}

func TestLoadFromPostgres_missingEnv(t *testing.T) {
	setDBEnv(t)
	unsetenv(t, EnvDBPass)

	w := &fakeWarehouse{}
	u := &fakeUnloader{}
	c := newTestClient(t, w)
	c.unloader = u

	_, err := c.LoadFromPostgres(context.Background(), &PostgresLoadRequest{
		Dataset: "d", Table: "t", Schema: testSchema, SourceTable: "src",
	})

	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, EnvDBPass, cerr.Name)
	assert.Zero(t, u.calls, "must not connect without configuration")
	assert.Empty(t, w.ensured)
}

func TestLoadFromPostgres_unloadError(t *testing.T) {
	setDBEnv(t)

	boom := errors.New("connection refused")
	dir := t.TempDir()
	w := &fakeWarehouse{}
	c := newTestClient(t, w, WithStagingDir(dir))
	c.unloader = &fakeUnloader{err: boom}

	_, err := c.LoadFromPostgres(context.Background(), &PostgresLoadRequest{
		Dataset: "d", Table: "t", Schema: testSchema, SourceTable: "src",
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, w.loadCalls)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
