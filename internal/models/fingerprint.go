package models

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// CanonicalKwargs renders the keyword args in canonical form: keys and string
// values lowercased, entries sorted by key. Two requests that differ only in
// kwarg casing canonicalize identically.
func CanonicalKwargs(k Kwargs) string {
	keys := make([]string, 0, len(k.JSONKeys))
	for _, key := range k.JSONKeys {
		keys = append(keys, strings.ToLower(key))
	}

	entries := map[string]string{
		"device":        strconv.Quote(strings.ToLower(k.Device)),
		"upload_to_aws": strconv.FormatBool(k.UploadToAWS),
		"json_keys":     strconv.Quote(strings.Join(keys, ",")),
		"llm_query":     strconv.Quote(strings.ToLower(k.LLMQuery)),
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(entries[name])
	}
	b.WriteByte('}')
	return b.String()
}

// Fingerprint computes the deterministic SHA-256 hex digest of
// (params, id, function_name, canonical kwargs). It keys the result cache
// and the in-flight gate: equal fingerprints mean the same job. Args are
// quoted element-wise so ["a,b"] and ["a","b"] hash differently.
func Fingerprint(m *Message) string {
	var b strings.Builder
	for i, arg := range m.Params.Args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(arg))
	}
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(m.ID, 'f', -1, 64))
	b.WriteByte('|')
	b.WriteString(m.FunctionName)
	b.WriteByte('|')
	b.WriteString(CanonicalKwargs(m.Params.Kwargs))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
