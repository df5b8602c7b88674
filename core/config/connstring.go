package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fbz-tec/pgxquery/internal/logger"
)

// ADO.NET style keys mapped to libpq keywords.
var adoKeywords = map[string]string{
	"host":                      "host",
	"server":                    "host",
	"port":                      "port",
	"database":                  "dbname",
	"db":                        "dbname",
	"username":                  "user",
	"user name":                 "user",
	"user id":                   "user",
	"userid":                    "user",
	"user":                      "user",
	"password":                  "password",
	"pwd":                       "password",
	"passfile":                  "passfile",
	"ssl mode":                  "sslmode",
	"sslmode":                   "sslmode",
	"root certificate":          "sslrootcert",
	"ssl certificate":           "sslcert",
	"ssl key":                   "sslkey",
	"ssl password":              "sslpassword",
	"timeout":                   "connect_timeout",
	"connect timeout":           "connect_timeout",
	"connection timeout":        "connect_timeout",
	"tcp keepalive time":        "keepalives_idle",
	"tcp keepalive interval":    "keepalives_interval",
	"target session attributes": "target_session_attrs",
	"application name":          "application_name",
	"search path":               "search_path",
	"options":                   "options",
	"client encoding":           "client_encoding",
	"kerberos service name":     "krbsrvname",
}

// Npgsql keys without a libpq counterpart. They are logged and dropped.
var npgsqlOnlyKeys = map[string]bool{
	"pooling":                     true,
	"minimum pool size":           true,
	"min pool size":               true,
	"maximum pool size":           true,
	"max pool size":               true,
	"connection idle lifetime":    true,
	"connection pruning interval": true,
	"connection lifetime":         true,
	"load balance timeout":        true,
	"load balance hosts":          true,
	"trust server certificate":    true,
	"keepalive":                   true,
	"tcp keepalive":               true,
	"include error detail":        true,
	"include realm":               true,
	"persist security info":       true,
	"enlist":                      true,
	"no reset on close":           true,
	"multiplexing":                true,
	"max auto prepare":            true,
	"auto prepare min usages":     true,
	"read buffer size":            true,
	"write buffer size":           true,
	"socket receive buffer size":  true,
	"socket send buffer size":     true,
	"internal command timeout":    true,
	"log parameters":              true,
	"server compatibility mode":   true,
}

const commandTimeoutKey = "command timeout"

// Npgsql SSL Mode spellings that differ from libpq.
var sslModes = map[string]string{
	"verifyca":   "verify-ca",
	"verifyfull": "verify-full",
}

type connPair struct {
	key   string // lower case, inner spaces collapsed
	value string
}

// NormalizeConnString accepts postgres:// URLs, libpq keyword/value strings
// and semicolon separated ADO.NET style strings such as
// "Host=db;Port=5432;Database=app;User Id=me;Password=secret", and returns
// something pgx can parse. ADO.NET values may be quoted with " or ', a
// doubled quote standing for itself. Npgsql keys libpq has no use for are
// skipped; other unknown keys are rejected.
func NormalizeConnString(conn string) (string, error) {
	pairs, ado, err := adoPairs(conn)
	if err != nil {
		return "", err
	}
	if !ado {
		return strings.TrimSpace(conn), nil
	}

	var parts []string
	for _, p := range pairs {
		if p.key == commandTimeoutKey {
			if _, err := strconv.Atoi(p.value); err != nil {
				return "", fmt.Errorf("invalid Command Timeout %q", p.value)
			}
			continue
		}
		if npgsqlOnlyKeys[p.key] {
			logger.Debug("Ignoring connection string keyword %q", p.key)
			continue
		}
		keyword, known := adoKeywords[p.key]
		if !known {
			return "", fmt.Errorf("unsupported connection string keyword %q", p.key)
		}
		value := p.value
		if keyword == "sslmode" {
			value = strings.ToLower(value)
			if mode, ok := sslModes[value]; ok {
				value = mode
			}
		}
		parts = append(parts, keyword+"="+quoteKeywordValue(value))
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("connection string cannot be empty")
	}
	return strings.Join(parts, " "), nil
}

// commandTimeout returns the Command Timeout of an ADO.NET string in
// seconds, or zero when it is absent or not a positive number.
func commandTimeout(conn string) int {
	pairs, ado, err := adoPairs(conn)
	if err != nil || !ado {
		return 0
	}
	for _, p := range pairs {
		if p.key == commandTimeoutKey {
			if n, err := strconv.Atoi(p.value); err == nil && n > 0 {
				return n
			}
		}
	}
	return 0
}

// adoPairs splits conn when it is ADO.NET style; ado is false for URLs and
// libpq keyword/value strings.
func adoPairs(conn string) (pairs []connPair, ado bool, err error) {
	conn = strings.TrimSpace(conn)
	if strings.HasPrefix(conn, "postgres://") || strings.HasPrefix(conn, "postgresql://") {
		return nil, false, nil
	}
	if !strings.Contains(conn, ";") && !strings.Contains(strings.ToLower(conn), "user id") {
		return nil, false, nil
	}
	pairs, err = splitADO(conn)
	return pairs, true, err
}

// splitADO tokenizes key=value pairs separated by ';'. "==" inside a key is
// a literal '='.
func splitADO(conn string) ([]connPair, error) {
	var pairs []connPair
	i := 0
	for {
		for i < len(conn) && (conn[i] == ';' || isSpace(conn[i])) {
			i++
		}
		if i >= len(conn) {
			return pairs, nil
		}

		var key strings.Builder
		for {
			if i >= len(conn) || conn[i] == ';' {
				return nil, fmt.Errorf("invalid connection string element %q", strings.TrimSpace(key.String()))
			}
			if conn[i] == '=' {
				if i+1 < len(conn) && conn[i+1] == '=' {
					key.WriteByte('=')
					i += 2
					continue
				}
				i++
				break
			}
			key.WriteByte(conn[i])
			i++
		}
		name := strings.ToLower(strings.Join(strings.Fields(key.String()), " "))
		if name == "" {
			return nil, fmt.Errorf("connection string element without a keyword")
		}

		for i < len(conn) && isSpace(conn[i]) {
			i++
		}
		var value string
		if i < len(conn) && (conn[i] == '"' || conn[i] == '\'') {
			var err error
			value, i, err = quotedValue(conn, i)
			if err != nil {
				return nil, fmt.Errorf("value of %q: %w", name, err)
			}
		} else {
			end := strings.IndexByte(conn[i:], ';')
			if end < 0 {
				end = len(conn) - i
			}
			value = strings.TrimSpace(conn[i : i+end])
			i += end
		}
		pairs = append(pairs, connPair{key: name, value: value})
	}
}

// quotedValue reads the quoted value starting at conn[i] and returns it with
// the offset of the following separator.
func quotedValue(conn string, i int) (string, int, error) {
	q := conn[i]
	i++
	var b strings.Builder
	for {
		if i >= len(conn) {
			return "", i, fmt.Errorf("unterminated quote")
		}
		if conn[i] == q {
			if i+1 < len(conn) && conn[i+1] == q {
				b.WriteByte(q)
				i += 2
				continue
			}
			i++
			break
		}
		b.WriteByte(conn[i])
		i++
	}
	for i < len(conn) && isSpace(conn[i]) {
		i++
	}
	if i < len(conn) && conn[i] != ';' {
		return "", i, fmt.Errorf("unexpected text after closing quote")
	}
	return b.String(), i, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// quoteKeywordValue quotes a libpq value when it is empty or contains
// spaces, quotes or backslashes.
func quoteKeywordValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " '\\") {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
