package translation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingTranslator struct {
	calls int
	fail  bool
}

func (c *countingTranslator) Translate(_ context.Context, text, _, target string) (string, error) {
	c.calls++
	if c.fail {
		return "", fmt.Errorf("backend down")
	}
	return "[" + target + "] " + text, nil
}

func TestCachedTranslator_HitWithinTTL(t *testing.T) {
	req := require.New(t)
	inner := &countingTranslator{}
	cached := NewCachedTranslator(inner, time.Minute)

	// When the same text is translated twice to the same language
	first, err := cached.Translate(context.Background(), "Hello", "en", "es")
	req.NoError(err)
	second, err := cached.Translate(context.Background(), "Hello", "en", "es")
	req.NoError(err)

	// Then the backend is only called once
	req.Equal(first, second)
	req.Equal(1, inner.calls)
}

func TestCachedTranslator_DistinctLanguagesMiss(t *testing.T) {
	req := require.New(t)
	inner := &countingTranslator{}
	cached := NewCachedTranslator(inner, time.Minute)

	_, err := cached.Translate(context.Background(), "Hello", "en", "es")
	req.NoError(err)
	_, err = cached.Translate(context.Background(), "Hello", "en", "fr")
	req.NoError(err)

	req.Equal(2, inner.calls)
}

func TestCachedTranslator_ExpiresAfterTTL(t *testing.T) {
	req := require.New(t)
	inner := &countingTranslator{}
	cached := NewCachedTranslator(inner, time.Minute)

	now := time.Now()
	cached.now = func() time.Time { return now }

	_, err := cached.Translate(context.Background(), "Hello", "en", "es")
	req.NoError(err)

	// When the TTL elapses
	now = now.Add(2 * time.Minute)

	_, err = cached.Translate(context.Background(), "Hello", "en", "es")
	req.NoError(err)
	req.Equal(2, inner.calls)
}

func TestCachedTranslator_FailuresNotCached(t *testing.T) {
	req := require.New(t)
	inner := &countingTranslator{fail: true}
	cached := NewCachedTranslator(inner, time.Minute)

	_, err := cached.Translate(context.Background(), "Hello", "en", "es")
	req.Error(err)

	inner.fail = false
	translated, err := cached.Translate(context.Background(), "Hello", "en", "es")
	req.NoError(err)
	req.Equal("[es] Hello", translated)
	req.Equal(2, inner.calls)
}
