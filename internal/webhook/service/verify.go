package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ferkcore/topadel/internal/webhook/domain"
)

// verifySignature checks the delivery signature: base64 of the
// HMAC-SHA256 of the raw body, compared in constant time. When no secret
// is configured the delivery is accepted open, which is only acceptable
// in development.
func (s *Service) verifySignature(body []byte, signature string) error {
	secret := s.webhookSecret()
	if secret == "" {
		s.log.Warn("webhook secret not configured, accepting unsigned delivery")
		return nil
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return domain.ErrMissingSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) != 1 {
		s.log.Warn("webhook signature mismatch")
		return domain.ErrInvalidSignature
	}
	return nil
}

// verifyTimestamp enforces the optional replay window. Absent header
// passes; present but unparseable or outside the window fails. The
// header carries either unix seconds or a date string.
func (s *Service) verifyTimestamp(timestamp string) error {
	timestamp = strings.TrimSpace(timestamp)
	if timestamp == "" {
		return nil
	}
	sent, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		parsed, perr := parseTimestampDate(timestamp)
		if perr != nil {
			return domain.ErrInvalidTimestamp
		}
		sent = parsed.Unix()
	}
	tolerance := s.cfg.Webhook.ToleranceSeconds
	if tolerance <= 0 {
		tolerance = 600
	}
	now := s.clk.Now().Unix()
	if diff := now - sent; diff > tolerance || diff < -tolerance {
		s.log.Warn("webhook timestamp outside tolerance",
			zap.Int64("sent", sent),
			zap.Int64("now", now),
		)
		return domain.ErrInvalidTimestamp
	}
	return nil
}

func parseTimestampDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return http.ParseTime(value)
}

func (s *Service) webhookSecret() string {
	if v := s.settings.Get().WebhookSecret; v != "" {
		return v
	}
	return s.cfg.Webhook.Secret
}
