package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fbz-tec/pgxquery/core/sqltext"
)

// Allowed SQL commands for read-only operations
var allowedCommands = map[string]bool{
	"SELECT": true,
	"WITH":   true, // CTE (Common Table Expression) - read-only
	"VALUES": true,
	"TABLE":  true,
}

// Forbidden SQL commands that modify data or schema
var forbiddenCommands = []string{
	"DELETE",
	"DROP",
	"TRUNCATE",
	"INSERT",
	"UPDATE",
	"ALTER",
	"CREATE",
	"GRANT",
	"REVOKE",
	"EXECUTE",
	"EXEC",
	"CALL",
	"MERGE",
	"COPY",
}

var (
	whitespace        = regexp.MustCompile(`\s+`)
	forbiddenPatterns = compileForbidden(forbiddenCommands)
)

func compileForbidden(commands []string) map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(commands))
	for _, c := range commands {
		patterns[c] = regexp.MustCompile(`\b` + regexp.QuoteMeta(c) + `\b`)
	}
	return patterns
}

// ValidateQuery checks that query is a single read-only statement.
// Comments, string literals, quoted identifiers and dollar-quoted bodies are
// ignored while looking for commands.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("query cannot be empty")
	}

	statements := splitStatements(sqltext.CodeOnly(query))

	if len(statements) == 0 {
		return fmt.Errorf("query cannot be empty")
	}
	if len(statements) > 1 {
		return fmt.Errorf("only a single SQL statement is allowed")
	}

	normalized := normalizeSQL(statements[0])
	firstCommand := extractFirstCommand(normalized)

	if firstCommand == "" {
		return fmt.Errorf("unable to identify SQL command (security: unknown command)")
	}

	if !allowedCommands[firstCommand] {
		for _, forbidden := range forbiddenCommands {
			if firstCommand == forbidden {
				return fmt.Errorf("forbidden SQL command detected: %s (read-only mode)", forbidden)
			}
		}
		return fmt.Errorf("unsupported SQL command: %s (only SELECT, WITH, VALUES and TABLE are allowed)", firstCommand)
	}

	// data-modifying CTEs and subqueries
	return scanForForbiddenCommands(normalized)
}

// splitStatements splits literal-free code on semicolons and drops empty statements.
func splitStatements(code string) []string {
	var statements []string
	for _, part := range strings.Split(code, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}

func normalizeSQL(query string) string {
	normalized := strings.ToUpper(strings.TrimSpace(query))
	return whitespace.ReplaceAllString(normalized, " ")
}

// extractFirstCommand returns the leading keyword of a normalized statement.
func extractFirstCommand(normalized string) string {
	normalized = strings.TrimLeft(normalized, "( ")
	parts := strings.Fields(normalized)
	if len(parts) == 0 {
		return ""
	}
	return strings.TrimRight(parts[0], ";,()")
}

func scanForForbiddenCommands(normalized string) error {
	for _, forbidden := range forbiddenCommands {
		if forbiddenPatterns[forbidden].MatchString(normalized) {
			return fmt.Errorf("forbidden SQL command detected: %s (security: command found in query)", forbidden)
		}
	}
	return nil
}
