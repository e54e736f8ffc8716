package testutil

import (
	"strings"
	"testing"
)

func TestDSNWithSearchPath(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{"url", "postgres://u:p@h:5432/db?sslmode=disable", "postgres://u:p@h:5432/db?search_path=s1&sslmode=disable"},
		{"keyword replace", "host=h search_path=old", "host=h search_path=s1"},
		{"keyword append", "host=h dbname=db", "host=h dbname=db search_path=s1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dsnWithSearchPath(tt.dsn, "s1")
			if err != nil {
				t.Fatalf("dsnWithSearchPath() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("dsnWithSearchPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewSchemaName(t *testing.T) {
	got := newSchemaName("Source-Reader!")
	if !strings.HasPrefix(got, "t_source_reader_") {
		t.Errorf("newSchemaName() = %q, want prefix t_source_reader_", got)
	}
	if len(got) > 63 {
		t.Errorf("len(newSchemaName()) = %d, exceeds postgres identifier limit", len(got))
	}
}
