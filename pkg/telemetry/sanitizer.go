package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"unicode/utf8"
)

// PIILevel defines how much user text reaches logs and spans.
type PIILevel string

const (
	// PIILevelNone redacts all user text
	PIILevelNone PIILevel = "none"
	// PIILevelHashed replaces detected PII with salted hashes
	PIILevelHashed PIILevel = "hashed"
	// PIILevelFull logs user text as-is
	PIILevelFull PIILevel = "full"
)

// Sanitizer scrubs free text typed by users (chat edits, titles) before it is logged.
type Sanitizer struct {
	level PIILevel
	salt  string

	emailPattern *regexp.Regexp
	phonePattern *regexp.Regexp
	ibanPattern  *regexp.Regexp
	cardPattern  *regexp.Regexp
	nationalID   *regexp.Regexp
	ipv4Pattern  *regexp.Regexp
}

// NewSanitizer creates a sanitizer. salt scopes hashes so they cannot be joined across deployments.
func NewSanitizer(level PIILevel, salt string) *Sanitizer {
	switch level {
	case PIILevelNone, PIILevelHashed, PIILevelFull:
	default:
		level = PIILevelHashed
	}
	return &Sanitizer{
		level:        level,
		salt:         salt,
		emailPattern: regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
		phonePattern: regexp.MustCompile(`(?:\+\d{2}[\s.-]?)?\b\d{3}[\s.-]?\d{2,3}[\s.-]?\d{2}[\s.-]?\d{2,3}\b`),
		ibanPattern:  regexp.MustCompile(`\b[A-Z]{2}\d{2}(?:\s?[A-Z0-9]{4}){3,7}(?:\s?[A-Z0-9]{1,4})?\b`),
		cardPattern:  regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`),
		nationalID:   regexp.MustCompile(`\b[XYZ]?\d{7,8}[A-Z]\b`),
		ipv4Pattern:  regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
	}
}

// Level returns the configured level.
func (s *Sanitizer) Level() PIILevel {
	return s.level
}

// Text sanitizes user text according to the configured level.
func (s *Sanitizer) Text(input string) string {
	switch s.level {
	case PIILevelNone:
		if input == "" {
			return ""
		}
		return "[REDACTED]"
	case PIILevelFull:
		return input
	default:
		return s.hashPII(input)
	}
}

// Clip sanitizes input and cuts it to at most maxRunes runes for log lines.
func (s *Sanitizer) Clip(input string, maxRunes int) string {
	out := s.Text(input)
	if maxRunes <= 0 || utf8.RuneCountInString(out) <= maxRunes {
		return out
	}
	runes := []rune(out)
	return string(runes[:maxRunes]) + "..."
}

func (s *Sanitizer) hashPII(input string) string {
	result := s.emailPattern.ReplaceAllStringFunc(input, func(match string) string {
		return fmt.Sprintf("[EMAIL:%s]", s.hash(match))
	})
	// IBAN and card numbers before phones, their digit runs overlap.
	result = s.ibanPattern.ReplaceAllString(result, "[IBAN:REDACTED]")
	result = s.cardPattern.ReplaceAllString(result, "[CARD:REDACTED]")
	result = s.nationalID.ReplaceAllString(result, "[ID:REDACTED]")
	result = s.ipv4Pattern.ReplaceAllStringFunc(result, func(match string) string {
		return fmt.Sprintf("[IP:%s]", s.hash(match))
	})
	result = s.phonePattern.ReplaceAllStringFunc(result, func(match string) string {
		return fmt.Sprintf("[PHONE:%s]", s.hash(match))
	})
	return result
}

// hash returns the first 8 hex chars of a salted SHA-256.
func (s *Sanitizer) hash(data string) string {
	h := sha256.New()
	h.Write([]byte(data + s.salt))
	return hex.EncodeToString(h.Sum(nil))[:8]
}
