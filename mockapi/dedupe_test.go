package mockapi

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const createTaskRequest = "POST /api/workspaces/w1/projects/p1/columns/1/tasks/"

func TestMemoryDeduper(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDeduper(time.Minute)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	if _, claimed, _ := d.Claim(ctx, "u1", "k", createTaskRequest); !claimed {
		t.Fatal("expected first claim to succeed")
	}
	prior, claimed, _ := d.Claim(ctx, "u1", "k", "POST /other/")
	if claimed || prior != createTaskRequest {
		t.Fatalf("expected the key to stay bound to %q, got %q %v", createTaskRequest, prior, claimed)
	}
	if _, claimed, _ := d.Claim(ctx, "u2", "k", createTaskRequest); !claimed {
		t.Fatal("expected keys to be scoped per user")
	}
	if err := d.Release(ctx, "u1", "k"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, claimed, _ := d.Claim(ctx, "u1", "k", createTaskRequest); !claimed {
		t.Fatal("expected claim after release to succeed")
	}
	now = now.Add(2 * time.Minute)
	if _, claimed, _ := d.Claim(ctx, "u1", "k", createTaskRequest); !claimed {
		t.Fatal("expected expired claim to be replaced")
	}
}

func TestMemoryDeduperWithoutTTLKeepsClaims(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDeduper(0)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	if _, claimed, _ := d.Claim(ctx, "u1", "k", createTaskRequest); !claimed {
		t.Fatal("expected first claim to succeed")
	}
	now = now.Add(24 * time.Hour)
	if _, claimed, _ := d.Claim(ctx, "u1", "k", createTaskRequest); claimed {
		t.Fatal("expected claim without ttl to be kept")
	}
}

func TestRedisDeduper(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	d := NewRedisDeduper(client, time.Minute)

	_, claimed, err := d.Claim(ctx, "u1", "k", createTaskRequest)
	if err != nil || !claimed {
		t.Fatalf("expected first claim to succeed, got %v %v", claimed, err)
	}
	stored, err := mr.Get("teamlink:idem:u1:k")
	if err != nil || stored != createTaskRequest {
		t.Fatalf("expected the request to be stored, got %q %v", stored, err)
	}
	if ttl := mr.TTL("teamlink:idem:u1:k"); ttl != time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}
	prior, claimed, err := d.Claim(ctx, "u1", "k", createTaskRequest)
	if err != nil || claimed || prior != createTaskRequest {
		t.Fatalf("expected replay to be refused, got %q %v %v", prior, claimed, err)
	}
	if err := d.Release(ctx, "u1", "k"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, claimed, err := d.Claim(ctx, "u1", "k", createTaskRequest); err != nil || !claimed {
		t.Fatalf("expected claim after release to succeed, got %v %v", claimed, err)
	}
	mr.FastForward(2 * time.Minute)
	if _, claimed, err := d.Claim(ctx, "u1", "k", createTaskRequest); err != nil || !claimed {
		t.Fatalf("expected expired claim to be replaced, got %v %v", claimed, err)
	}
}

func TestRedisDeduperSurfacesConnectionErrors(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	if _, _, err := NewRedisDeduper(client, time.Minute).Claim(context.Background(), "u1", "k", createTaskRequest); err == nil {
		t.Fatal("expected an error from a closed redis")
	}
}
