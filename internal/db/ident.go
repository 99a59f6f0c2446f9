package db

import (
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

var identPart = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Identifier splits "schema.table" into a pgx.Identifier, rejecting names
// that are not plain SQL identifiers.
func Identifier(table string) (pgx.Identifier, error) {
	parts := strings.SplitN(table, ".", 2)
	for _, p := range parts {
		if !identPart.MatchString(p) {
			return nil, eris.Errorf("db: invalid table name %q", table)
		}
	}
	return pgx.Identifier(parts), nil
}

// SanitizeTable returns the quoted form of a possibly schema-qualified table name.
func SanitizeTable(table string) (string, error) {
	ident, err := Identifier(table)
	if err != nil {
		return "", err
	}
	return ident.Sanitize(), nil
}
