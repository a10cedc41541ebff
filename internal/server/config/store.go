package config

import (
	"fmt"

	"github.com/yndnr/gridsession-go/pkg/crypto/adaptive"
	"github.com/yndnr/gridsession-go/pkg/sessionstore"
)

// ToStoreConfig turns a store section into a sessionstore.Config.
//
// key_field becomes a KeyFunc reading that data field; bean_fields becomes
// a BeanFunc projecting the listed data fields.
func ToStoreConfig(sec StoreSection) (sessionstore.Config, error) {
	codec, err := sessionstore.CodecByName(sec.Codec)
	if err != nil {
		return sessionstore.Config{}, err
	}
	if sec.EncryptionKey != "" {
		key, err := adaptive.ParseKey(sec.EncryptionKey)
		if err != nil {
			return sessionstore.Config{}, fmt.Errorf("store.encryption_key: %w", err)
		}
		sealer, err := adaptive.New(key)
		if err != nil {
			return sessionstore.Config{}, fmt.Errorf("store.encryption_key: %w", err)
		}
		codec = sessionstore.NewSealedCodec(codec, sealer)
	}

	cfg := sessionstore.Config{
		TTL:        sec.TTL,
		DisableTTL: sec.DisableTTL,
		Codec:      codec,
	}
	if sec.CookieTTL {
		cfg.TTL = sessionstore.CookieTTL
	}
	for _, m := range sec.Maps {
		desc := sessionstore.MapDescriptor{Name: m.Name}
		if m.KeyField != "" {
			desc.Key = fieldKey(m.KeyField)
		}
		if len(m.BeanFields) > 0 {
			desc.Bean = fieldBean(m.BeanFields)
		}
		cfg.Maps = append(cfg.Maps, desc)
	}
	return cfg, nil
}

func fieldKey(field string) sessionstore.KeyFunc {
	return func(_ string, s *sessionstore.Session) (string, error) {
		v, ok := s.Value(field)
		if !ok || v == nil {
			return "", fmt.Errorf("session has no %q field", field)
		}
		key := fmt.Sprint(v)
		if key == "" {
			return "", fmt.Errorf("session field %q is empty", field)
		}
		return key, nil
	}
}

func fieldBean(fields []string) sessionstore.BeanFunc {
	fields = append([]string(nil), fields...)
	return func(s *sessionstore.Session) (any, error) {
		bean := make(map[string]any, len(fields))
		for _, f := range fields {
			if v, ok := s.Value(f); ok {
				bean[f] = v
			}
		}
		return bean, nil
	}
}
