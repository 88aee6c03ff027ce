package core

// ids.go — identifier allocation and the canonical result-hash helper,
// grounded on the teacher's uuid.New().String() ID minting in
// core/escrow.go and core/governance_reputation_voting.go.

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/google/uuid"
)

// NewID mints a random identifier for escrows, disputes, proposals, votes,
// tasks and node registrations alike.
func NewID() string {
	return uuid.New().String()
}

// ResultHash computes the deterministic hash a task result is identified and
// deduplicated by (spec §6 "Result hash"): the fields map is marshaled with
// its keys sorted before hashing, so two equal result sets always hash the
// same regardless of map iteration order.
func ResultHash(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]struct {
		Key   string `json:"key"`
		Value any    `json:"value"`
	}, 0, len(keys))
	for _, k := range keys {
		ordered = append(ordered, struct {
			Key   string `json:"key"`
			Value any    `json:"value"`
		}{Key: k, Value: fields[k]})
	}

	data, err := json.Marshal(ordered)
	if err != nil {
		// fields came from internal callers with JSON-safe values only; a
		// marshal failure here means a caller bug, not a runtime condition.
		panic("core: ResultHash: " + err.Error())
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// canonicalJSON marshals payload as JSON with its top-level keys sorted, the
// wire form §6 specifies for signed messages: HMAC is computed over this
// byte string.
func canonicalJSON(payload map[string]any) []byte {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]struct {
		Key   string `json:"key"`
		Value any    `json:"value"`
	}, 0, len(keys))
	for _, k := range keys {
		ordered = append(ordered, struct {
			Key   string `json:"key"`
			Value any    `json:"value"`
		}{Key: k, Value: payload[k]})
	}

	data, err := json.Marshal(ordered)
	if err != nil {
		panic("core: canonicalJSON: " + err.Error())
	}
	return data
}
