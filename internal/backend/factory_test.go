package backend

import (
	"context"
	"path/filepath"
	"testing"

	"artis/internal/config"
)

func TestCreateMemoryBackend(t *testing.T) {
	factory := NewFactory(nil)

	result, err := factory.CreateBackend(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("create memory backend: %v", err)
	}
	if result.Service == nil || result.Lookup == nil {
		t.Fatalf("memory backend must provide service and lookup")
	}
	if result.Lister != nil {
		t.Fatalf("memory backend has no submission history")
	}

	// Builtin series must be reachable through the lookup port.
	v, ok, err := result.Lookup.Value(context.Background(), 2023, 5)
	if err != nil || !ok || v != 1300.51 {
		t.Fatalf("lookup 2023-05 = %v ok=%v err=%v", v, ok, err)
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	factory := NewFactory(nil)

	cfg := Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "artis.db"),
	}
	result, err := factory.CreateBackend(context.Background(), cfg)
	if err != nil {
		t.Fatalf("create sqlite backend: %v", err)
	}
	t.Cleanup(func() { _ = result.Cleanup() })

	if result.Lister == nil {
		t.Fatalf("sqlite backend must provide a submission lister")
	}
	v, ok, err := result.Lookup.Value(context.Background(), 2023, 5)
	if err != nil || !ok || v != 1300.51 {
		t.Fatalf("seeded lookup 2023-05 = %v ok=%v err=%v", v, ok, err)
	}
}

func TestCreateBackendInvalidType(t *testing.T) {
	factory := NewFactory(nil)

	if _, err := factory.CreateBackend(context.Background(), Config{Type: "bogus"}); err == nil {
		t.Fatalf("expected error for invalid backend type")
	}
}

func TestFromAppConfig(t *testing.T) {
	appCfg := &config.Config{
		DataBackend:  "sqlite",
		SQLiteDBPath: "./x.db",
		AMQPURL:      "amqp://localhost:5672/",
		AMQPExchange: "artis",
		AMQPQueue:    "export_submissions",
	}

	cfg, err := FromAppConfig(appCfg)
	if err != nil {
		t.Fatalf("from app config: %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "./x.db" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "bogus"}); err == nil {
		t.Fatalf("expected error for invalid backend name")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
