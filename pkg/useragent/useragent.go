// Package useragent rotates browser User-Agent strings.
package useragent

import (
	"crypto/rand"
	"math/big"
	"sync/atomic"
)

// Identify is sent to APIs that ask callers to name themselves instead of
// posing as a browser.
const Identify = "LeadFinder/1.0"

// Browsers is a small set of current desktop browser User-Agents.
var Browsers = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:131.0) Gecko/20100101 Firefox/131.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.0 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36 Edg/129.0.0.0",
}

// Rotation selects how a Pool hands out strings.
type Rotation string

const (
	RoundRobin Rotation = "round-robin"
	Random     Rotation = "random"
)

// Pool hands out User-Agents. Safe for concurrent use.
type Pool struct {
	uas      []string
	rotation Rotation
	counter  atomic.Uint64
}

// NewPool copies uas into a pool, falling back to Browsers when empty.
func NewPool(uas []string, rotation Rotation) *Pool {
	if len(uas) == 0 {
		uas = Browsers
	}
	if rotation != Random {
		rotation = RoundRobin
	}
	return &Pool{uas: append([]string(nil), uas...), rotation: rotation}
}

// Next returns a User-Agent according to the pool's rotation.
func (p *Pool) Next() string {
	if p.rotation == Random {
		return p.random()
	}
	return p.sequential()
}

func (p *Pool) sequential() string {
	idx := p.counter.Add(1) - 1
	return p.uas[idx%uint64(len(p.uas))]
}

func (p *Pool) random() string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(p.uas))))
	if err != nil {
		return p.sequential()
	}
	return p.uas[n.Int64()]
}

// Len reports the pool size.
func (p *Pool) Len() int { return len(p.uas) }
