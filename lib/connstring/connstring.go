// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package connstring

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

const (
	// BridgeHost is the loopback address every translated URL targets.
	BridgeHost = "127.0.0.1"

	// DocumentScheme is the scheme of translated URLs.
	DocumentScheme = "mongodb"

	// AuthMechanism is the authentication mechanism the bridge accepts
	// for credentials forwarded to the relational engine.
	AuthMechanism = "PLAIN"
)

// acceptedSchemes lists the relational URL schemes Parse understands.
// libpq treats both spellings identically.
var acceptedSchemes = map[string]bool{
	"postgresql": true,
	"postgres":   true,
}

// ErrMalformed is matched (via errors.Is) by every error Parse and
// Translate return for input that does not fit the grammar.
var ErrMalformed = errors.New("malformed connection string")

// MalformedError describes why a connection string was rejected.
type MalformedError struct {
	// Reason is a human-readable description of the first violation
	// found. It never includes credential material.
	Reason string
}

func (e *MalformedError) Error() string {
	return "connstring: malformed connection string: " + e.Reason
}

// Is reports whether target is ErrMalformed.
func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}

func malformed(format string, args ...any) error {
	return &MalformedError{Reason: fmt.Sprintf(format, args...)}
}

// Descriptor is a parsed relational connection string. User, Password
// and Database are always non-empty on a Descriptor returned by Parse.
type Descriptor struct {
	Scheme   string
	User     string
	Password string
	Host     string
	// Port is the decimal port from the URL, or empty when omitted.
	Port     string
	Database string
	// ExtraParams holds the query string parameters, values verbatim.
	// Nil when the URL has no query string.
	ExtraParams map[string]string
}

// Parse scans raw into a Descriptor. See the package documentation for
// the boundary precedence rules.
func Parse(raw string) (*Descriptor, error) {
	if strings.ContainsAny(raw, "\r\n") {
		return nil, malformed("contains a line break")
	}

	scheme, rest, found := strings.Cut(raw, "://")
	if !found {
		return nil, malformed("missing scheme separator \"://\"")
	}
	if !acceptedSchemes[scheme] {
		return nil, malformed("unsupported scheme %q, want postgresql", scheme)
	}

	if !strings.Contains(rest, "@") {
		return nil, malformed("missing \"@\" between credentials and host")
	}

	var (
		credentials string
		tail        hostTail
		valid       bool
	)
	for index := strings.LastIndexByte(rest, '@'); index >= 0; index = strings.LastIndexByte(rest[:index], '@') {
		if tail, valid = scanTail(rest[index+1:]); valid {
			credentials = rest[:index]
			break
		}
	}
	if !valid {
		return nil, malformed("missing host or \"/database\" after \"@\"")
	}

	user, password, err := splitCredentials(credentials)
	if err != nil {
		return nil, err
	}

	return &Descriptor{
		Scheme:      scheme,
		User:        user,
		Password:    password,
		Host:        tail.host,
		Port:        tail.port,
		Database:    tail.database,
		ExtraParams: parseQuery(tail.query, tail.hasQuery),
	}, nil
}

// Translate converts a relational connection string into the document
// connection string for the loopback bridge. It is pure and
// deterministic: the result depends only on user, password and
// database.
func Translate(raw string) (string, error) {
	descriptor, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return descriptor.DocumentURL(), nil
}

// DocumentURL returns
// mongodb://<user>:<password>@127.0.0.1/<database>?authMechanism=PLAIN.
func (d *Descriptor) DocumentURL() string {
	return fmt.Sprintf("%s://%s:%s@%s/%s?authMechanism=%s",
		DocumentScheme, d.User, d.Password, BridgeHost, d.Database, AuthMechanism)
}

// Redacted returns the relational URL with the password masked and the
// query string omitted, suitable for log output.
func (d *Descriptor) Redacted() string {
	hostPort := d.Host
	if d.Port != "" {
		hostPort += ":" + d.Port
	}
	return fmt.Sprintf("%s://%s:xxxxx@%s/%s", d.Scheme, d.User, hostPort, d.Database)
}

// String returns Redacted so a Descriptor printed by accident does not
// leak the password.
func (d *Descriptor) String() string {
	return d.Redacted()
}

// LogValue implements slog.LogValuer.
func (d *Descriptor) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("user", d.User),
		slog.String("host", d.Host),
		slog.String("port", d.Port),
		slog.String("database", d.Database),
	)
}

// hostTail is the part of a connection string after the credential
// boundary.
type hostTail struct {
	host     string
	port     string
	database string
	query    string
	hasQuery bool
}

// scanTail splits host[:port]/database[?query]. It reports false when
// the host segment or database is empty or the "/" is missing.
func scanTail(tail string) (hostTail, bool) {
	slash := strings.IndexByte(tail, '/')
	if slash <= 0 {
		return hostTail{}, false
	}

	host, port := splitHostPort(tail[:slash])
	if host == "" {
		// ":5432" names no host; keep the whole segment as the host.
		host, port = tail[:slash], ""
	}

	database, query, hasQuery := strings.Cut(tail[slash+1:], "?")
	if database == "" {
		return hostTail{}, false
	}

	return hostTail{
		host:     host,
		port:     port,
		database: database,
		query:    query,
		hasQuery: hasQuery,
	}, true
}

// splitHostPort separates a trailing ":digits" port from the host.
// Bracketed IPv6 literals keep their brackets. A suffix that is not all
// digits stays part of the host, since the host is discarded anyway.
func splitHostPort(segment string) (host, port string) {
	if strings.HasPrefix(segment, "[") {
		closing := strings.IndexByte(segment, ']')
		if closing < 0 {
			return segment, ""
		}
		host, rest := segment[:closing+1], segment[closing+1:]
		if digits, found := strings.CutPrefix(rest, ":"); found && isDigits(digits) {
			return host, digits
		}
		return segment, ""
	}

	colon := strings.LastIndexByte(segment, ':')
	if colon < 0 || !isDigits(segment[colon+1:]) {
		return segment, ""
	}
	return segment[:colon], segment[colon+1:]
}

// splitCredentials splits at the last ":" that leaves a non-empty
// password.
func splitCredentials(credentials string) (user, password string, err error) {
	for index := strings.LastIndexByte(credentials, ':'); index >= 0; index = strings.LastIndexByte(credentials[:index], ':') {
		if index == len(credentials)-1 {
			continue
		}
		user, password = credentials[:index], credentials[index+1:]
		if user == "" {
			return "", "", malformed("empty user name")
		}
		return user, password, nil
	}
	if credentials == "" {
		return "", "", malformed("empty credentials before \"@\"")
	}
	return "", "", malformed("credentials must be user:password with a non-empty password")
}

func parseQuery(query string, present bool) map[string]string {
	if !present {
		return nil
	}
	params := make(map[string]string)
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		params[key] = value
	}
	return params
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
