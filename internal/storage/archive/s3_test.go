// internal/storage/archive/s3_test.go
package archive

import (
	"strings"
	"testing"
)

func TestS3Storage_ImplementsStorage(t *testing.T) {
	var _ Storage = (*S3Storage)(nil)
}

func TestS3Config_Key(t *testing.T) {
	tests := []struct {
		prefix string
		path   string
		want   string
	}{
		{"", "file.txt", "file.txt"},
		{"archive", "file.txt", "archive/file.txt"},
		{"archive/", "file.txt", "archive/file.txt"},
	}

	for _, tt := range tests {
		s := &S3Storage{prefix: strings.TrimSuffix(tt.prefix, "/")}
		got := s.key(tt.path)
		if got != tt.want {
			t.Errorf("key(%q) with prefix %q = %q, want %q", tt.path, tt.prefix, got, tt.want)
		}
	}
}

func TestContentType(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"backtests/600519.json", "application/json"},
		{"reports/daily.txt", "text/plain; charset=utf-8"},
		{"bars/600519.parquet", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := contentType(tt.path); got != tt.want {
			t.Errorf("contentType(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestNewS3_DefaultRegion(t *testing.T) {
	s, err := NewS3(S3Config{Bucket: "reports", Prefix: "ashare/"})
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}
	if s.client.Options().Region != "us-east-1" {
		t.Errorf("region = %q, want us-east-1", s.client.Options().Region)
	}
	if s.prefix != "ashare" {
		t.Errorf("prefix = %q, want ashare", s.prefix)
	}
}
