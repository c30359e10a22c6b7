package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid-redis", "redis://localhost:6379", false},
		{"valid-with-db", "redis://localhost:6379/0", false},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDelete_NoKeys(t *testing.T) {
	c := &Cache{Client: redis.NewClient(&redis.Options{Addr: "localhost:59999"})}
	defer c.Close()

	if err := c.Delete(context.Background()); err != nil {
		t.Errorf("Delete() with no keys error = %v", err)
	}
}

func TestGetJSON_UnreachableIsNotMiss(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	c := &Cache{Client: redis.NewClient(&redis.Options{Addr: "localhost:59999", MaxRetries: -1})}
	defer c.Close()

	var v map[string]string
	err := c.GetJSON(t.Context(), "k", &v)
	if err == nil {
		t.Fatal("GetJSON() should fail for unreachable host")
	}
	if errors.Is(err, ErrMiss) {
		t.Error("connection failures must not be reported as a cache miss")
	}
}

func TestNew_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	ctx := t.Context()
	_, err := New(ctx, "redis://localhost:59999")
	if err == nil {
		t.Fatal("New() should return error for unreachable host")
	}
}
