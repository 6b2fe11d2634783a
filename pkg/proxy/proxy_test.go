package proxy

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPool_RotationAndDefaultScheme(t *testing.T) {
	p := NewPool(Config{})
	if err := p.Add("10.0.0.1:8080", "socks5://10.0.0.2:1080"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := p.Next().String(); got != "http://10.0.0.1:8080" {
		t.Errorf("first = %s", got)
	}
	if got := p.Next().String(); got != "socks5://10.0.0.2:1080" {
		t.Errorf("second = %s", got)
	}
	if got := p.Next().String(); got != "http://10.0.0.1:8080" {
		t.Errorf("wraparound = %s", got)
	}
}

func TestPool_CooldownAndRevival(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := NewPool(Config{MaxFailures: 2, Cooldown: time.Minute})
	p.now = func() time.Time { return now }
	_ = p.Add("http://a:1")

	u := p.Next()
	_ = p.MarkFailure(u)
	_ = p.MarkFailure(u)
	if p.Next() != nil {
		t.Fatal("proxy should be cooling down")
	}
	if !p.Stats()[0].Cooling {
		t.Error("stats should report cooling")
	}

	now = now.Add(2 * time.Minute)
	if p.Next() == nil {
		t.Fatal("proxy should be revived after cooldown")
	}
}

func TestPool_MarkUnknown(t *testing.T) {
	p := NewPool(Config{})
	if err := p.MarkSuccess(nil); !errors.Is(err, ErrUnknownProxy) {
		t.Errorf("got %v", err)
	}
}

func TestPool_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.txt")
	data := "# office\nhttp://a:1\n\nb:2\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	p := NewPool(Config{})
	if err := p.LoadFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Len() != 2 {
		t.Errorf("len = %d", p.Len())
	}
}

func TestPool_ProxyFuncEmptyIsDirect(t *testing.T) {
	p := NewPool(Config{})
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	u, err := p.ProxyFunc()(req)
	if err != nil || u != nil {
		t.Errorf("expected direct connection, got %v, %v", u, err)
	}
}
