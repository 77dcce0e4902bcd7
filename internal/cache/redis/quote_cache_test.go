package redis

import (
	"math/big"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

func TestParseQuoteHash(t *testing.T) {
	ts := time.Unix(1_700_000_000, 42).UTC()
	vals := map[string]string{
		"premium": "123456789012345678901234567890",
		"ts":      strconv.FormatInt(ts.UnixNano(), 10),
	}

	v, got, err := parseQuoteHash(vals, "premium")
	require.NoError(t, err)

	want, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.Equal(t, want, v)
	require.True(t, got.Equal(ts))
}

func TestParseQuoteHashMissingHash(t *testing.T) {
	_, _, err := parseQuoteHash(nil, "premium")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestParseQuoteHashMissingField(t *testing.T) {
	_, _, err := parseQuoteHash(map[string]string{"ts": "1"}, "premium")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestParseQuoteHashMalformedValue(t *testing.T) {
	_, _, err := parseQuoteHash(map[string]string{"premium": "lots", "ts": "1"}, "premium")
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestPremiumKeyIsAmountScoped(t *testing.T) {
	a := premiumKey(big.NewInt(100))
	b := premiumKey(big.NewInt(200))
	require.NotEqual(t, a, b)
	require.Contains(t, a, "quote:premium:")
}
