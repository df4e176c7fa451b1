package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/invitebatch/pkg/response"
)

// OrgRateLimiter 每个组织一个令牌桶；长时间不用的桶定期清理
type OrgRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*orgBucket
	limit   rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time
}

type orgBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewOrgRateLimiter(rps float64, burst int) *OrgRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &OrgRateLimiter{
		buckets: make(map[string]*orgBucket),
		limit:   rate.Limit(rps),
		burst:   burst,
		idle:    10 * time.Minute,
		now:     time.Now,
	}
}

// Allow 消耗 orgID 的一个令牌
func (l *OrgRateLimiter) Allow(orgID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[orgID]
	if !ok {
		b = &orgBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[orgID] = b
		if len(l.buckets)%256 == 0 {
			l.sweepLocked(now)
		}
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

func (l *OrgRateLimiter) sweepLocked(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.idle {
			delete(l.buckets, k)
		}
	}
}

// Handler 按路径中的 org_id 限流；rps <= 0 时不限流
func (l *OrgRateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.limit <= 0 {
			c.Next()
			return
		}
		if !l.Allow(c.Param("org_id")) {
			c.Header("Retry-After", "1")
			response.TooManyRequests(c, "rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
