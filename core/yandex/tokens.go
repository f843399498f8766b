package yandex

import (
	"sync"
	"time"
)

// TokenPool hands out OAuth tokens round-robin. A token reported as rejected
// is skipped until its penalty expires.
type TokenPool struct {
	mu       sync.Mutex
	tokens   []string
	next     int
	disabled map[string]time.Time
	penalty  time.Duration
	now      func() time.Time
}

func NewTokenPool(tokens []string) *TokenPool {
	p := &TokenPool{
		disabled: make(map[string]time.Time),
		penalty:  10 * time.Minute,
		now:      time.Now,
	}
	p.Replace(tokens)
	return p
}

// Replace swaps the token set, keeping penalties of tokens that remain.
func (p *TokenPool) Replace(tokens []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens = append([]string(nil), tokens...)
	p.next = 0
	for t := range p.disabled {
		if !contains(p.tokens, t) {
			delete(p.disabled, t)
		}
	}
}

// Len returns the number of configured tokens, usable or not.
func (p *TokenPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tokens)
}

// Next returns the next usable token.
func (p *TokenPool) Next() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	for i := 0; i < len(p.tokens); i++ {
		t := p.tokens[p.next%len(p.tokens)]
		p.next = (p.next + 1) % len(p.tokens)
		if until, bad := p.disabled[t]; bad {
			if now.Before(until) {
				continue
			}
			delete(p.disabled, t)
		}
		return t, true
	}
	return "", false
}

// Disable benches a token the API refused.
func (p *TokenPool) Disable(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disabled[token] = p.now().Add(p.penalty)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
