package store

// convert.go maps batch history values to and from pgtype values.
// Empty strings become NULL, and NULL reads back as the empty string.

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/shiplabel/internal/label"
)

// toPgText converts a string to pgtype.Text, invalid when blank.
func toPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// textString returns the string held by t, or "" for NULL.
func textString(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}

// toPgUUID converts a string to pgtype.UUID, invalid when s is not a UUID.
func toPgUUID(s string) pgtype.UUID {
	if s == "" {
		return pgtype.UUID{Valid: false}
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

// uuidString converts a pgtype.UUID to its canonical form, or "" for NULL.
func uuidString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// toPgDate parses a ship date in label.ShipDateLayout.
func toPgDate(s string) pgtype.Date {
	t, err := time.Parse(label.ShipDateLayout, strings.TrimSpace(s))
	if err != nil {
		return pgtype.Date{Valid: false}
	}
	return pgtype.Date{Time: t, Valid: true}
}

// dateString formats d in label.ShipDateLayout, or "" for NULL.
func dateString(d pgtype.Date) string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format(label.ShipDateLayout)
}
