package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/gridsession-go/pkg/sessionstore"
)

func writeYAML(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestToStoreConfig_Defaults(t *testing.T) {
	cfg, err := ToStoreConfig(DefaultDemo().Store)
	if err != nil {
		t.Fatalf("ToStoreConfig() error = %v", err)
	}
	if cfg.TTL != sessionstore.DefaultTTL {
		t.Errorf("TTL = %v", cfg.TTL)
	}
	if cfg.Codec.Name() != "json" {
		t.Errorf("Codec = %s", cfg.Codec.Name())
	}
	if len(cfg.Maps) != 1 || cfg.Maps[0].Key != nil || cfg.Maps[0].Bean != nil {
		t.Errorf("Maps = %+v", cfg.Maps)
	}
	if err := sessionstore.MergeConfig(cfg).Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestToStoreConfig_TTLModes(t *testing.T) {
	sec := StoreSection{TTL: time.Hour, CookieTTL: true}
	cfg, err := ToStoreConfig(sec)
	if err != nil {
		t.Fatalf("ToStoreConfig() error = %v", err)
	}
	if cfg.TTL != sessionstore.CookieTTL {
		t.Errorf("TTL = %v, want CookieTTL", cfg.TTL)
	}

	cfg, _ = ToStoreConfig(StoreSection{DisableTTL: true})
	if !cfg.DisableTTL {
		t.Error("DisableTTL not carried")
	}
}

func TestToStoreConfig_Encryption(t *testing.T) {
	sec := StoreSection{Codec: "msgpack", EncryptionKey: "correct horse battery staple"}
	cfg, err := ToStoreConfig(sec)
	if err != nil {
		t.Fatalf("ToStoreConfig() error = %v", err)
	}
	if cfg.Codec.Name() != "sealed+msgpack" {
		t.Errorf("Codec = %s", cfg.Codec.Name())
	}

	data, err := cfg.Codec.Marshal(map[string]any{"user": "alice"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(data), "alice") {
		t.Error("sealed value contains plaintext")
	}
}

func TestToStoreConfig_BadCodec(t *testing.T) {
	if _, err := ToStoreConfig(StoreSection{Codec: "xml"}); err == nil {
		t.Error("unknown codec should fail")
	}
}

func TestToStoreConfig_KeyAndBean(t *testing.T) {
	sec := StoreSection{Maps: []MapSection{
		{Name: "Sessions"},
		{Name: "Profiles", BeanFields: []string{"user", "email"}},
		{Name: "ByUser", KeyField: "user"},
	}}
	cfg, err := ToStoreConfig(sec)
	if err != nil {
		t.Fatalf("ToStoreConfig() error = %v", err)
	}

	s := sessionstore.NewSession(time.Hour)
	s.SetValue("user", "alice")
	s.SetValue("email", "alice@example.com")
	s.SetValue("views", 3)

	bean, err := cfg.Maps[1].Bean(s)
	if err != nil {
		t.Fatalf("Bean() error = %v", err)
	}
	m := bean.(map[string]any)
	if len(m) != 2 || m["user"] != "alice" || m["email"] != "alice@example.com" {
		t.Errorf("bean = %v", m)
	}

	key, err := cfg.Maps[2].Key("sid-1", s)
	if err != nil || key != "alice" {
		t.Errorf("Key() = %q, %v", key, err)
	}

	if _, err := cfg.Maps[2].Key("sid-1", sessionstore.NewSession(time.Hour)); err == nil {
		t.Error("Key() without the field should fail")
	}
}

func TestFieldBean_MissingFields(t *testing.T) {
	bean, err := fieldBean([]string{"user"})(sessionstore.NewSession(time.Hour))
	if err != nil {
		t.Fatalf("Bean() error = %v", err)
	}
	if len(bean.(map[string]any)) != 0 {
		t.Errorf("bean = %v, want empty", bean)
	}
}
