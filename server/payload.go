// Copyright (c) 2024-2025 BeeAI Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package server

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/xeipuuv/gojsonschema"
)

// Field aliases accepted in request payloads. Agents are sloppy about the
// exact field names, so well-known variants map onto the canonical ones.
var fieldAliases = map[string]string{
	"code":            "source_code",
	"timeout_seconds": "timeout",
	"limit_downloads": "limit",
	"file":            "files",
	"hash":            "file_hash",
}

// parsePayload decodes a request body into a normalized key/value map. The
// body is parsed strictly first; if that fails, a repair pass fixes up the
// almost-JSON that LLM agents tend to produce (single quotes, trailing
// commas, unquoted keys). Bodies that do not yield a JSON object even after
// repair are rejected.
func parsePayload(body []byte) (map[string]interface{}, error) {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		repaired, rerr := jsonrepair.RepairJSON(string(body))
		if rerr != nil {
			return nil, fmt.Errorf("parse payload: %s", err)
		}
		if err := json.Unmarshal([]byte(repaired), &v); err != nil {
			return nil, fmt.Errorf("parse repaired payload: %s", err)
		}
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("payload is not an object")
	}
	return canonicalize(unwrapEnvelope(m)), nil
}

// unwrapEnvelope strips the requestBody wrapper some agent frameworks put
// around the actual payload.
func unwrapEnvelope(m map[string]interface{}) map[string]interface{} {
	for _, key := range []string{"requestBody", "request_body"} {
		if inner, ok := m[key].(map[string]interface{}); ok && len(m) == 1 {
			return inner
		}
	}
	return m
}

// canonicalize rewrites all object keys to snake_case and resolves field
// aliases, recursively. Canonical keys always win over aliased duplicates.
func canonicalize(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	aliased := make(map[string]interface{})
	for k, v := range m {
		key := snakeCase(k)
		if canonical, ok := fieldAliases[key]; ok {
			aliased[canonical] = canonicalizeValue(v)
			continue
		}
		out[key] = canonicalizeValue(v)
	}
	for k, v := range aliased {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out
}

func canonicalizeValue(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		return canonicalize(v)
	case []interface{}:
		s := make([]interface{}, len(v))
		for i, e := range v {
			s[i] = canonicalizeValue(e)
		}
		return s
	default:
		return v
	}
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 && s[i-1] != '_' {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// validateSchema checks payload against the JSON schema at path. A schema
// load failure is a server-side error, a validation failure is the
// caller's.
func validateSchema(path string, payload map[string]interface{}) error {
	if path == "" {
		return nil
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewReferenceLoader("file://"+path),
		gojsonschema.NewGoLoader(payload))
	if err != nil {
		return fmt.Errorf("load schema: %s", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return &schemaError{strings.Join(msgs, "; ")}
	}
	return nil
}

type schemaError struct {
	msg string
}

func (e *schemaError) Error() string { return e.msg }

// decodeInto round-trips the normalized payload through JSON into a typed
// struct, coercing compatible types along the way.
func decodeInto(payload map[string]interface{}, v interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
