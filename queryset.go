package bqtools

import (
	"bytes"
	"os"
	"text/template"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

// QuerySet is a set of named query templates, usually kept in a YAML file:
//
//	queries:
//	  - name: practice_items
//	    table: practice_items_{{.month}}
//	    sql: |
//	      SELECT practice, SUM(items) AS items
//	      FROM [ebmdatalab:hscic.prescribing]
//	      WHERE month = TIMESTAMP('{{.month}}')
//	      GROUP BY practice
type QuerySet struct {
	Queries []*NamedQuery `yaml:"queries"`

	byName map[string]*NamedQuery
}

// NamedQuery is one query template. Table and SQL are text/template sources.
type NamedQuery struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Table       string `yaml:"table"`
	Legacy      bool   `yaml:"legacy"`
	SQL         string `yaml:"sql"`

	table *template.Template
	sql   *template.Template
}

// LoadQuerySet reads a query set from a YAML file.
func LoadQuerySet(path string) (*QuerySet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("failed to read %s: %w", path, err)
	}

	s, err := ParseQuerySet(b)
	if err != nil {
		return nil, xerrors.Errorf("failed to parse %s: %w", path, err)
	}

	return s, nil
}

// ParseQuerySet parses a YAML query set.
func ParseQuerySet(b []byte) (*QuerySet, error) {
	var s QuerySet
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, xerrors.Errorf("failed to unmarshal yaml: %w", err)
	}

	s.byName = make(map[string]*NamedQuery, len(s.Queries))
	for i, q := range s.Queries {
		if q == nil || q.Name == "" {
			return nil, xerrors.Errorf("query %d has no name", i)
		}
		if _, ok := s.byName[q.Name]; ok {
			return nil, xerrors.Errorf("duplicated query %q", q.Name)
		}
		if q.Table == "" || q.SQL == "" {
			return nil, xerrors.Errorf("query %q needs both table and sql", q.Name)
		}

		var err error
		if q.table, err = template.New(q.Name + ".table").Option("missingkey=error").Parse(q.Table); err != nil {
			return nil, xerrors.Errorf("invalid table template of %q: %w", q.Name, err)
		}
		if q.sql, err = template.New(q.Name + ".sql").Option("missingkey=error").Parse(q.SQL); err != nil {
			return nil, xerrors.Errorf("invalid sql template of %q: %w", q.Name, err)
		}

		s.byName[q.Name] = q
	}

	return &s, nil
}

// Request renders the named query with params.
func (s *QuerySet) Request(name, project string, params map[string]string) (*QueryRequest, error) {
	q, ok := s.byName[name]
	if !ok {
		return nil, xerrors.Errorf("query %q not found", name)
	}

	table, err := render(q.table, params)
	if err != nil {
		return nil, xerrors.Errorf("failed to render table of %q: %w", name, err)
	}

	sql, err := render(q.sql, params)
	if err != nil {
		return nil, xerrors.Errorf("failed to render sql of %q: %w", name, err)
	}

	return &QueryRequest{Project: project, Table: table, SQL: sql, Legacy: q.Legacy}, nil
}

func render(t *template.Template, params map[string]string) (string, error) {
	if params == nil {
		params = map[string]string{}
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, params); err != nil {
		return "", err
	}
	return buf.String(), nil
}
