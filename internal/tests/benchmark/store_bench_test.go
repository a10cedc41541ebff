package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/yndnr/gridsession-go/pkg/sessionstore"
)

// BenchmarkStoreSet measures single-map writes on every engine.
func BenchmarkStoreSet(b *testing.B) {
	for _, e := range engines {
		b.Run("engine="+e.name, func(b *testing.B) {
			store := newStore(b, e.open(b), nil)
			ctx := context.Background()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := store.Set(ctx, fmt.Sprintf("sid-%d", i), newSession(i)); err != nil {
					b.Fatalf("Set: %v", err)
				}
			}
		})
	}
}

// BenchmarkStoreGet measures primary reads at several preload sizes.
func BenchmarkStoreGet(b *testing.B) {
	for _, e := range engines {
		for _, count := range SessionCounts {
			if e.name == "remote" && count > SessionCounts[0] {
				continue
			}
			b.Run(fmt.Sprintf("engine=%s/sessions=%d", e.name, count), func(b *testing.B) {
				store := newStore(b, e.open(b), nil)
				ids := prefill(b, store, count)
				ctx := context.Background()

				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					sess, err := store.Get(ctx, ids[i%len(ids)])
					if err != nil || sess == nil {
						b.Fatalf("Get: %v, %v", sess, err)
					}
				}
				b.StopTimer()
				reportMemory(b)
			})
		}
	}
}

// BenchmarkStoreFanout measures Set across several maps, which run
// concurrently.
func BenchmarkStoreFanout(b *testing.B) {
	bean := func(s *sessionstore.Session) (any, error) {
		v, _ := s.Value("user")
		return map[string]any{"user": v}, nil
	}
	for _, maps := range []int{1, 3, 5} {
		b.Run(fmt.Sprintf("maps=%d", maps), func(b *testing.B) {
			descs := []sessionstore.MapDescriptor{{Name: "Sessions"}}
			for i := 1; i < maps; i++ {
				descs = append(descs, sessionstore.MapDescriptor{Name: fmt.Sprintf("Beans%d", i), Bean: bean})
			}
			store := newStore(b, engines[0].open(b), nil, descs...)
			ctx := context.Background()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := store.Set(ctx, fmt.Sprintf("sid-%d", i), newSession(i)); err != nil {
					b.Fatalf("Set: %v", err)
				}
			}
		})
	}
}

// BenchmarkCodec compares value codecs on the memory engine.
func BenchmarkCodec(b *testing.B) {
	codecs := []sessionstore.Codec{sessionstore.JSONCodec{}, sessionstore.NewMsgpackCodec()}
	for _, codec := range codecs {
		b.Run("codec="+codec.Name(), func(b *testing.B) {
			store := newStore(b, engines[0].open(b), codec)
			ids := prefill(b, store, SessionCounts[0])
			ctx := context.Background()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				id := ids[i%len(ids)]
				sess, err := store.Get(ctx, id)
				if err != nil {
					b.Fatal(err)
				}
				if err := store.Touch(ctx, id, sess); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
