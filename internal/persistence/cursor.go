// Package persistence contains helpers shared by repository implementations.
package persistence

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/siyabuilds/carbontrackr/internal/domain"
)

// EncodeCursor serialises the cursor to an opaque URL-safe token.
func EncodeCursor(c *domain.Cursor) string {
	if c == nil {
		return ""
	}
	raw := fmt.Sprintf("%s|%s", c.OccurredAt.UTC().Format(time.RFC3339Nano), c.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by EncodeCursor. An empty token is a nil cursor.
func DecodeCursor(token string) (*domain.Cursor, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	occurredAt, id, ok := strings.Cut(string(decoded), "|")
	if !ok || id == "" {
		return nil, fmt.Errorf("invalid cursor format")
	}
	ts, err := time.Parse(time.RFC3339Nano, occurredAt)
	if err != nil {
		return nil, fmt.Errorf("decode cursor time: %w", err)
	}
	return &domain.Cursor{OccurredAt: ts.UTC(), ID: id}, nil
}
