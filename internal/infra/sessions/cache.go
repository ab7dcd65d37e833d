package sessions

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	domain "github.com/bryanwahyu/thoraxsense/internal/domain/scans"
)

// Store implementasi domain.SessionStore di atas go-cache. Sesi punya TTL
// karena tidak ada yang hidup lebih lama dari satu sesi browsing; sesi yang
// kadaluarsa otomatis kembali Idle.
type Store struct {
	c *gocache.Cache
}

func New(ttl time.Duration) *Store {
	return &Store{c: gocache.New(ttl, 2*ttl)}
}

func (s *Store) Get(_ context.Context, tenant string) (*domain.ScanSession, bool) {
	v, ok := s.c.Get(tenant)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*domain.ScanSession)
	return sess, ok
}

func (s *Store) Save(_ context.Context, sess *domain.ScanSession) {
	s.c.Set(sess.TenantID, sess, gocache.DefaultExpiration)
}

func (s *Store) Delete(_ context.Context, tenant string) {
	s.c.Delete(tenant)
}
