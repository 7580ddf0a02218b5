// Package redact strips well-known credential shapes from session
// text before it leaves the pipeline. It is a pure transform:
// idempotent, and the identity on text containing no recognized
// secret shape.
//
// Redaction runs as a fixed, ordered pipeline of independent
// scanners. The order is a correctness invariant, not a style
// choice: a later scanner must never re-redact or mangle the
// placeholder text an earlier one produced. PEM blocks go first
// because their base64 bodies would otherwise feed the JWT and
// assignment scanners; JWTs go before bearer tokens because a JWT
// after "Bearer " must keep its eyJ prefix; connection strings go
// before keyword assignments because their userinfo would otherwise
// be half-eaten by the password scanner. Every scanner advances
// its cursor on every iteration, so truncated or adversarial input
// cannot stall the scan.
package redact

import "strings"

const placeholder = "[REDACTED]"

// Redact applies every scanner in pipeline order.
func Redact(text string) string {
	text = redactPrivateKeyBlocks(text)
	text = redactJWTs(text)
	text = redactProviderKeys(text)
	text = redactCloudAccessKeys(text)
	text = redactBearerTokens(text)
	text = redactConnectionStrings(text)
	text = redactAssignments(text)
	return text
}

const (
	pemBegin = "-----BEGIN "
	pemEnd   = "-----END "
	pemClose = "-----"
)

// redactPrivateKeyBlocks replaces the body of PEM blocks whose
// label is a private-key type. Public blocks (certificates, public
// keys) pass through untouched.
func redactPrivateKeyBlocks(text string) string {
	var out strings.Builder
	i := 0
	for i < len(text) {
		start := strings.Index(text[i:], pemBegin)
		if start < 0 {
			out.WriteString(text[i:])
			break
		}
		start += i
		out.WriteString(text[i:start])

		labelStart := start + len(pemBegin)
		labelEnd := strings.Index(text[labelStart:], pemClose)
		if labelEnd < 0 {
			out.WriteString(text[start:])
			break
		}
		labelEnd += labelStart
		label := text[labelStart:labelEnd]
		header := text[start : labelEnd+len(pemClose)]

		if !strings.HasSuffix(label, "PRIVATE KEY") {
			out.WriteString(header)
			i = labelEnd + len(pemClose)
			continue
		}

		footer := pemEnd + label + pemClose
		bodyStart := labelEnd + len(pemClose)
		end := strings.Index(text[bodyStart:], footer)
		if end < 0 {
			// Truncated block: everything after the header is
			// potentially key material.
			out.WriteString(header + "\n" + placeholder)
			i = len(text)
			break
		}
		out.WriteString(header + "\n" + placeholder + "\n" + footer)
		i = bodyStart + end + len(footer)
	}
	return out.String()
}

const (
	jwtHeaderPrefix = "eyJ"
	jwtMinSegment   = 8
)

func isBase64URLByte(c byte) bool {
	return isAlnumByte(c) || c == '-' || c == '_'
}

// redactJWTs replaces three-segment base64url tokens whose first
// segment starts with the standard JSON Web Token header prefix.
func redactJWTs(text string) string {
	var out strings.Builder
	i := 0
	for i < len(text) {
		start := strings.Index(text[i:], jwtHeaderPrefix)
		if start < 0 {
			out.WriteString(text[i:])
			break
		}
		start += i
		out.WriteString(text[i:start])

		end, ok := matchJWT(text, start)
		if !ok {
			out.WriteString(jwtHeaderPrefix)
			i = start + len(jwtHeaderPrefix)
			continue
		}
		out.WriteString(jwtHeaderPrefix + placeholder)
		i = end
	}
	return out.String()
}

// matchJWT reports whether a full header.payload.signature token
// begins at start, each segment at least jwtMinSegment long.
func matchJWT(text string, start int) (end int, ok bool) {
	j := start
	for seg := 0; seg < 3; seg++ {
		segStart := j
		for j < len(text) && isBase64URLByte(text[j]) {
			j++
		}
		if j-segStart < jwtMinSegment {
			return 0, false
		}
		if seg < 2 {
			if j >= len(text) || text[j] != '.' {
				return 0, false
			}
			j++
		}
	}
	return j, true
}

// providerKeyPrefixes lists literal API-key prefixes and the
// minimum trailing run required before redaction kicks in. Longer
// prefixes are not needed separately: the body run may itself
// contain dashes and underscores.
var providerKeyPrefixes = []struct {
	prefix  string
	minBody int
}{
	{"github_pat_", 20},
	{"glpat-", 20},
	{"xoxb-", 20},
	{"xoxp-", 20},
	{"ghp_", 20},
	{"gho_", 20},
	{"ghs_", 20},
	{"ghr_", 20},
	{"AIza", 20},
	{"sk-", 20},
}

// redactProviderKeys replaces provider API keys, keeping the
// prefix visible so the provider remains identifiable.
func redactProviderKeys(text string) string {
	var out strings.Builder
	i := 0
	for i < len(text) {
		matched := false
		for _, pk := range providerKeyPrefixes {
			if !strings.HasPrefix(text[i:], pk.prefix) {
				continue
			}
			j := i + len(pk.prefix)
			bodyStart := j
			for j < len(text) && (isAlnumByte(text[j]) || text[j] == '-' || text[j] == '_') {
				j++
			}
			if j-bodyStart < pk.minBody {
				break
			}
			out.WriteString(pk.prefix + placeholder)
			i = j
			matched = true
			break
		}
		if !matched {
			out.WriteByte(text[i])
			i++
		}
	}
	return out.String()
}

// cloudKeyPrefixes are AWS-style access key ID prefixes: a fixed
// literal followed by exactly 16 uppercase letters or digits.
var cloudKeyPrefixes = []string{"AKIA", "ASIA"}

const cloudKeyRun = 16

func redactCloudAccessKeys(text string) string {
	var out strings.Builder
	i := 0
	for i < len(text) {
		matched := false
		for _, prefix := range cloudKeyPrefixes {
			if !strings.HasPrefix(text[i:], prefix) {
				continue
			}
			j := i + len(prefix)
			if j+cloudKeyRun > len(text) {
				continue
			}
			valid := true
			for k := j; k < j+cloudKeyRun; k++ {
				c := text[k]
				if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
					valid = false
					break
				}
			}
			if !valid {
				continue
			}
			out.WriteString(prefix + placeholder)
			i = j + cloudKeyRun
			matched = true
			break
		}
		if !matched {
			out.WriteByte(text[i])
			i++
		}
	}
	return out.String()
}

const bearerKeyword = "bearer "

const bearerMinToken = 10

// redactBearerTokens replaces the token following a
// case-insensitive "Bearer " keyword. Tokens shorter than
// bearerMinToken are left alone to avoid eating prose like
// "bearer of".
func redactBearerTokens(text string) string {
	var out strings.Builder
	lower := asciiLower(text)
	i := 0
	for i < len(text) {
		start := strings.Index(lower[i:], bearerKeyword)
		if start < 0 {
			out.WriteString(text[i:])
			break
		}
		start += i
		tokenStart := start + len(bearerKeyword)
		j := tokenStart
		for j < len(text) {
			c := text[j]
			if isAlnumByte(c) || c == '.' || c == '_' || c == '-' {
				j++
				continue
			}
			break
		}
		if j-tokenStart < bearerMinToken {
			out.WriteString(text[i:tokenStart])
			i = tokenStart
			continue
		}
		out.WriteString(text[i:start])
		out.WriteString("Bearer " + placeholder)
		i = j
	}
	return out.String()
}

// connectionSchemes lists URL schemes whose remainder routinely
// carries credentials. Longer schemes sort first so e.g.
// "postgresql://" is not consumed as "postgres" + "ql://".
var connectionSchemes = []string{
	"mongodb+srv://",
	"postgresql://",
	"postgres://",
	"mongodb://",
	"rediss://",
	"redis://",
	"amqps://",
	"amqp://",
	"mysql://",
}

const connectionMinBody = 8

// redactConnectionStrings blanks everything after a known scheme
// up to the next whitespace or quote.
func redactConnectionStrings(text string) string {
	var out strings.Builder
	lower := asciiLower(text)
	i := 0
	for i < len(text) {
		matched := false
		for _, scheme := range connectionSchemes {
			if !strings.HasPrefix(lower[i:], scheme) {
				continue
			}
			j := i + len(scheme)
			bodyStart := j
			for j < len(text) && !isConnectionDelim(text[j]) {
				j++
			}
			if j-bodyStart < connectionMinBody {
				out.WriteString(text[i : i+len(scheme)])
				i += len(scheme)
				matched = true
				break
			}
			out.WriteString(text[i:i+len(scheme)] + placeholder)
			i = j
			matched = true
			break
		}
		if !matched {
			out.WriteByte(text[i])
			i++
		}
	}
	return out.String()
}

func isConnectionDelim(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '"', '\'', '`':
		return true
	}
	return false
}

// assignmentKeywords drive the generic key=value / key: value
// scanner. "token" also covers access_token, auth_token, etc.
// since matching is by substring.
var assignmentKeywords = []string{
	"api_key",
	"apikey",
	"token",
	"secret",
	"password",
}

func redactAssignments(text string) string {
	for _, keyword := range assignmentKeywords {
		text = redactAssignmentsFor(text, keyword)
	}
	return text
}

// redactAssignmentsFor replaces the value of every
// "<keyword> [:=] value" occurrence, handling quoted and unquoted
// values. Unquoted values end at whitespace, ',' or ';'.
func redactAssignmentsFor(text, keyword string) string {
	var out strings.Builder
	lower := asciiLower(text)
	i := 0
	for i < len(text) {
		start := strings.Index(lower[i:], keyword)
		if start < 0 {
			out.WriteString(text[i:])
			break
		}
		start += i

		j := start + len(keyword)
		for j < len(text) && (text[j] == ' ' || text[j] == '\t') {
			j++
		}
		if j >= len(text) || (text[j] != ':' && text[j] != '=') {
			out.WriteString(text[i : start+len(keyword)])
			i = start + len(keyword)
			continue
		}
		j++
		for j < len(text) && (text[j] == ' ' || text[j] == '\t') {
			j++
		}
		if j >= len(text) {
			out.WriteString(text[i:])
			break
		}

		quote := byte(0)
		if text[j] == '"' || text[j] == '\'' {
			quote = text[j]
			j++
		}

		valueStart := j
		for j < len(text) {
			c := text[j]
			if quote != 0 {
				if c == quote {
					break
				}
			} else if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == ',' || c == ';' {
				break
			}
			j++
		}

		if j == valueStart {
			out.WriteString(text[i:j])
			i = j
			continue
		}
		out.WriteString(text[i:valueStart] + placeholder)
		i = j
	}
	return out.String()
}

func isAlnumByte(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

// asciiLower lowercases ASCII letters only. Unlike strings.ToLower
// it is length-preserving (Unicode case folding is not: U+212A
// KELVIN SIGN lowers from 3 bytes to 1), so every index into the
// lowered string is a valid index into the original.
func asciiLower(text string) string {
	var b []byte
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c >= 'A' && c <= 'Z' {
			if b == nil {
				b = []byte(text)
			}
			b[i] = c + ('a' - 'A')
		}
	}
	if b == nil {
		return text
	}
	return string(b)
}
