// Package audit provides the tamper-evidence signer and the optional Kafka
// mirror for the audit trail. The durable sink itself is the relational
// audit partition in gormstore.
package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"

	"github.com/edusight/edusight/internal/domain/models"
)

// Signer computes HMAC-SHA256 signatures over audit records so later
// tampering with the stored trail is detectable.
type Signer struct {
	secret []byte
}

// NewSigner creates a signer; an empty secret disables signing.
func NewSigner(secret string) *Signer {
	if secret == "" {
		return nil
	}
	return &Signer{secret: []byte(secret)}
}

// Sign returns the base64 HMAC over the record's canonical JSON form,
// excluding the signature field itself.
func (s *Signer) Sign(record *models.AuditRecord) (string, error) {
	unsigned := *record
	unsigned.Signature = ""

	payload, err := json.Marshal(&unsigned)
	if err != nil {
		return "", err
	}

	h := hmac.New(sha256.New, s.secret)
	h.Write(payload)
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

// Verify recomputes the signature and compares in constant time.
func (s *Signer) Verify(record *models.AuditRecord) (bool, error) {
	expected, err := s.Sign(record)
	if err != nil {
		return false, err
	}
	return hmac.Equal([]byte(expected), []byte(record.Signature)), nil
}
