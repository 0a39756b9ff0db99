package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaStatements(t *testing.T) {
	stmts := statements(schema)
	assert.Len(t, stmts, 8)
	for _, s := range stmts {
		assert.True(t, strings.HasPrefix(s, "CREATE TABLE IF NOT EXISTS"), s)
	}
}

func TestDSN(t *testing.T) {
	p := Params{User: "app", Pass: "secret", Host: "db", Port: "3306", Name: "cinema"}
	assert.Equal(t, "app:secret@tcp(db:3306)/cinema?charset=utf8mb4&parseTime=true&loc=UTC", p.DSN())

	p.Pass = ""
	assert.Equal(t, "app@tcp(db:3306)/cinema?charset=utf8mb4&parseTime=true&loc=UTC", p.DSN())
}
