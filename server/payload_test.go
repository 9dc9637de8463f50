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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePayloadStrictJSON(t *testing.T) {
	require := require.New(t)

	payload, err := parsePayload([]byte(`{"source_code": "print(1)", "chat_id": "c1"}`))
	require.NoError(err)
	require.Equal("print(1)", payload["source_code"])
	require.Equal("c1", payload["chat_id"])
}

func TestParsePayloadRepairsAlmostJSON(t *testing.T) {
	require := require.New(t)

	// Single quotes and a trailing comma, as produced by careless agents.
	payload, err := parsePayload([]byte(`{'source_code': 'print(1)', 'chat_id': 'c1',}`))
	require.NoError(err)
	require.Equal("print(1)", payload["source_code"])
}

func TestParsePayloadRejectsNonObject(t *testing.T) {
	_, err := parsePayload([]byte(`[1, 2, 3]`))
	require.Error(t, err)
}

func TestParsePayloadUnwrapsEnvelope(t *testing.T) {
	require := require.New(t)

	payload, err := parsePayload([]byte(`{"requestBody": {"source_code": "x = 1"}}`))
	require.NoError(err)
	require.Equal("x = 1", payload["source_code"])
}

func TestParsePayloadEnvelopeKeyWithSiblingsIsKept(t *testing.T) {
	require := require.New(t)

	payload, err := parsePayload([]byte(`{"requestBody": {"a": 1}, "source_code": "y"}`))
	require.NoError(err)
	require.Equal("y", payload["source_code"])
	require.Contains(payload, "request_body")
}

func TestCanonicalizeAliases(t *testing.T) {
	tests := []struct {
		desc string
		body string
		key  string
		want interface{}
	}{
		{"code alias", `{"code": "a"}`, "source_code", "a"},
		{"camelCase sourceCode", `{"sourceCode": "b"}`, "source_code", "b"},
		{"timeoutSeconds alias", `{"timeoutSeconds": 5}`, "timeout", float64(5)},
		{"limitDownloads alias", `{"limitDownloads": 2}`, "limit", float64(2)},
		{"camelCase chatId", `{"chatId": "c"}`, "chat_id", "c"},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			payload, err := parsePayload([]byte(test.body))
			require.NoError(t, err)
			require.Equal(t, test.want, payload[test.key])
		})
	}
}

func TestCanonicalizeCanonicalKeyWins(t *testing.T) {
	require := require.New(t)

	payload, err := parsePayload(
		[]byte(`{"code": "alias", "source_code": "canonical"}`))
	require.NoError(err)
	require.Equal("canonical", payload["source_code"])
}

func TestCanonicalizeRecursesIntoNestedObjects(t *testing.T) {
	require := require.New(t)

	payload, err := parsePayload(
		[]byte(`{"options": [{"fileHash": "abc", "filename": "f.txt"}]}`))
	require.NoError(err)
	options, ok := payload["options"].([]interface{})
	require.True(ok)
	o, ok := options[0].(map[string]interface{})
	require.True(ok)
	require.Equal("abc", o["file_hash"])
}

func TestCanonicalizeLeavesWorkspacePathKeysAlone(t *testing.T) {
	require := require.New(t)

	payload, err := parsePayload(
		[]byte(`{"files": {"/workspace/input.py": "somehandle"}}`))
	require.NoError(err)
	files, ok := payload["files"].(map[string]interface{})
	require.True(ok)
	require.Equal("somehandle", files["/workspace/input.py"])
}

func TestCanonicalizeIdempotent(t *testing.T) {
	require := require.New(t)

	m := map[string]interface{}{
		"source_code": "x",
		"files":       map[string]interface{}{"/workspace/f.txt": "h"},
	}
	require.Equal(m, canonicalize(canonicalize(m)))
}

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"sourceCode":  "source_code",
		"source_code": "source_code",
		"chatId":      "chat_id",
		"ChatID":      "chat_i_d",
		"env":         "env",
	}
	for in, want := range tests {
		require.Equal(t, want, snakeCase(in), in)
	}
}
