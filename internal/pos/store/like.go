package store

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a lower-cased LIKE pattern matching fragment literally anywhere in a value.
// The pattern must be used with ESCAPE '\'.
func containsPattern(fragment string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(fragment)) + "%"
}
