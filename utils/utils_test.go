package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"warn", zapcore.WarnLevel},
		{"ERROR", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"loud", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in, zapcore.InfoLevel); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCheckHealth(t *testing.T) {
	mr := miniredis.RunT(t)
	up := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer up.Close()

	status := CheckHealth(context.Background(), []*redis.Client{up}, nil)
	if !status.Healthy() || status.Mongo != nil || len(status.Redis) != 1 {
		t.Fatalf("unexpected status %+v", status)
	}

	mr.Close()
	status = CheckHealth(context.Background(), []*redis.Client{up}, nil)
	if status.Healthy() {
		t.Fatalf("stopped redis reported healthy: %+v", status)
	}
	if got := GetHealthStatus(); !got.CheckedAt.Equal(status.CheckedAt) {
		t.Fatal("latest check not stored")
	}
}

func TestExtractIDFromToken(t *testing.T) {
	secret := []byte("k")
	token, err := GenerateToken(secret, "u1", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if sub, err := ExtractIDFromToken(secret, token); err != nil || sub != "u1" {
		t.Fatalf("sub=%q err=%v", sub, err)
	}

	expired, _ := GenerateToken(secret, "u1", -time.Minute)
	if _, err := ExtractIDFromToken(secret, expired); err == nil {
		t.Fatal("expired token accepted")
	}
}
