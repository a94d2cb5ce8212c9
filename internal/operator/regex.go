package operator

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/florijnhq/florijn/internal/common"
)

// RegexCache compiles patterns once and reuses them across a batch. With
// tens of thousands of transactions against hundreds of rules, recompiling
// per transaction is the dominant cost.
type RegexCache struct {
	mu      sync.RWMutex
	entries map[string]*regexEntry
}

type regexEntry struct {
	re  *regexp.Regexp
	err error
}

// NewRegexCache creates an empty regex cache.
func NewRegexCache() *RegexCache {
	return &RegexCache{entries: make(map[string]*regexEntry)}
}

// Get returns the compiled program for pattern, compiling on first use.
// A pattern that does not compile returns ErrInvalidPattern on every call;
// the failure is cached alongside successes.
func (c *RegexCache) Get(pattern string) (*regexp.Regexp, error) {
	c.mu.RLock()
	entry, ok := c.entries[pattern]
	c.mu.RUnlock()

	if !ok {
		entry = &regexEntry{}
		entry.re, entry.err = regexp.Compile(pattern)
		if entry.err != nil {
			entry.err = fmt.Errorf("%w: %q: %v", common.ErrInvalidPattern, pattern, entry.err)
		}

		c.mu.Lock()
		c.entries[pattern] = entry
		c.mu.Unlock()
	}

	return entry.re, entry.err
}

// CheckPattern verifies a pattern compiles without retaining it, for
// rule-construction-time validation.
func CheckPattern(pattern string) error {
	if _, err := regexp.Compile(pattern); err != nil {
		return fmt.Errorf("%w: %q: %v", common.ErrInvalidPattern, pattern, err)
	}
	return nil
}
