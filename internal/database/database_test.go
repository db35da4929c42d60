package database

import (
	"strings"
	"testing"
)

func TestWithPassword(t *testing.T) {
	got, err := WithPassword("role@tcp(127.0.0.1:3306)/role", "s3cr3t")
	if err != nil {
		t.Fatalf("WithPassword: %v", err)
	}
	if !strings.HasPrefix(got, "role:s3cr3t@tcp(127.0.0.1:3306)/role") {
		t.Fatalf("dsn = %q", got)
	}
	if !strings.Contains(got, "parseTime=true") {
		t.Fatalf("parseTime missing: %q", got)
	}
}

func TestWithPassword_KeepsExisting(t *testing.T) {
	got, err := WithPassword("role:old@tcp(db:3306)/role", "")
	if err != nil {
		t.Fatalf("WithPassword: %v", err)
	}
	if !strings.HasPrefix(got, "role:old@") {
		t.Fatalf("password overwritten: %q", got)
	}
}

func TestWithPassword_BadDSN(t *testing.T) {
	if _, err := WithPassword("not a dsn", "x"); err == nil {
		t.Fatalf("expected parse error")
	}
}
