package store

import (
	"database/sql"
	"time"
)

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func fromNullString(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}

func toNullInt(n int) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(n), Valid: true}
}

func toNullSeconds(d time.Duration) sql.NullFloat64 {
	if d == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: d.Seconds(), Valid: true}
}

func fromNullSeconds(nf sql.NullFloat64) time.Duration {
	if !nf.Valid {
		return 0
	}
	return time.Duration(nf.Float64 * float64(time.Second))
}
