package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content digests. The version suffix leaves room for
// changing the attribute set without colliding with older rows.
const (
	DomainTrack = "playscript/track/v1"
	DomainEvent = "playscript/event/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest returns the content digest of an attribute object under a domain.
// Equal objects always produce equal digests regardless of map order.
func Digest(domain string, obj IRObject) (string, error) {
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	return hashWithDomain(domain, canonical), nil
}

// EventID derives the stable id of a trace event from its run, sequence
// number and payload.
func EventID(runID string, seq int64, payload IRObject) (string, error) {
	return Digest(DomainEvent, IRObject{
		"run_id":  IRString(runID),
		"seq":     IRInt(seq),
		"payload": payload,
	})
}
