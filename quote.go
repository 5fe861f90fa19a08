package sudo

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// hashSalt is mixed into every identifier so workspaces never collide with other tools.
const hashSalt = "electron-sudo"

const hashLength = 32

// Hash derives a stable 32-character hex identifier from name and an optional payload.
func Hash(name string, payload []byte) string {
	h := sha256.New()
	h.Write([]byte(hashSalt))
	h.Write([]byte(name))
	h.Write(payload)

	sum := hex.EncodeToString(h.Sum(nil))

	return sum[len(sum)-hashLength:]
}

var envEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"`", "\\`",
	`$`, `\$`,
)

// EscapeEnv backslash-escapes the shell metacharacters \ " ` and $.
func EscapeEnv(s string) string {
	return envEscaper.Replace(s)
}

// JoinEnv serializes env into KEY=VALUE tokens, sorted by key, with keys and values escaped.
func JoinEnv(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	tokens := make([]string, 0, len(keys))
	for _, k := range keys {
		tokens = append(tokens, EscapeEnv(k)+"="+EscapeEnv(env[k]))
	}

	return tokens
}

// EscapeDoubleQuotes escapes every double quote with a backslash.
func EscapeDoubleQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

// EncloseDoubleQuotes wraps s in double quotes, escaping the ones it contains.
func EncloseDoubleQuotes(s string) string {
	return `"` + EscapeDoubleQuotes(s) + `"`
}

// joinLine joins the non-empty parts of a command line with single spaces.
func joinLine(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}

	return strings.Join(kept, " ")
}
