package money

import (
	"encoding/json"
	"testing"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"whole number", "100", "100.00", nil},
		{"two decimals", "1500.25", "1500.25", nil},
		{"trailing zero beyond scale", "10.500", "10.50", nil},
		{"negative", "-3.1", "-3.10", nil},
		{"three significant decimals", "10.005", "", apperrors.ErrInvalidAmount},
		{"not a number", "abc", "", apperrors.ErrInvalidAmount},
		{"out of range", "1000000000000000000", "", apperrors.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestFromFloat(t *testing.T) {
	m, err := FromFloat(10.5)
	require.NoError(t, err)
	assert.Equal(t, "10.50", m.String())

	_, err = FromFloat(10.005)
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)
}

func TestRoundDecimal_HalfUp(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"10.005", "10.01"},
		{"10.004", "10.00"},
		{"-10.005", "-10.01"},
		{"0.125", "0.13"},
		{"2.675", "2.68"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := RoundDecimal(decimal.RequireFromString(tt.input))
			assert.Equal(t, tt.want, got.String())
		})
	}
}

// 10.005 cannot be constructed directly; once rounded it is 10.01 and adding
// zero keeps it there.
func TestRoundingRuleForTenPointZeroZeroFive(t *testing.T) {
	_, err := Parse("10.005")
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)

	got := RoundDecimal(decimal.RequireFromString("10.005")).Add(Zero)
	assert.Equal(t, "10.01", got.String())
	assert.True(t, got.Equal(MustParse("10.01")))
}

func TestArithmetic(t *testing.T) {
	a := MustParse("50000.00")
	b := MustParse("20000.00")

	assert.Equal(t, "70000.00", a.Add(b).String())
	assert.Equal(t, "30000.00", a.Sub(b).String())
	assert.Equal(t, "-30000.00", b.Sub(a).Sub(b).Add(b).Add(b).Sub(b).Neg().Neg().String())
	assert.Equal(t, "150000.00", a.MulInt(3).String())
	assert.Equal(t, 1, a.Cmp(b))
	assert.Equal(t, -1, b.Cmp(a))
	assert.Equal(t, 0, a.Cmp(MustParse("50000")))
	assert.Equal(t, int64(5000000), a.Cents())
	assert.Equal(t, "70000.00", Sum(a, b).String())
	assert.Equal(t, b, Min(a, b))
	assert.Equal(t, a, Max(a, b))
}

func TestMulDecimal(t *testing.T) {
	total := MustParse("10000000.00")
	// 40% of the pool times a one-third ratio.
	ratio := decimal.NewFromInt(1).DivRound(decimal.NewFromInt(3), 16)
	got := total.MulDecimal(decimal.RequireFromString("0.4").Mul(ratio))
	assert.Equal(t, "1333333.33", got.String())
}

func TestDiv(t *testing.T) {
	got, err := MustParse("100.00").Div(decimal.NewFromInt(3))
	require.NoError(t, err)
	assert.Equal(t, "33.33", got.String())

	got, err = MustParse("0.05").Div(decimal.NewFromInt(2))
	require.NoError(t, err)
	assert.Equal(t, "0.03", got.String())

	_, err = MustParse("1.00").Div(decimal.Zero)
	assert.ErrorIs(t, err, apperrors.ErrArithmetic)
}

func TestZeroValue(t *testing.T) {
	var m Money
	assert.True(t, m.IsZero())
	assert.Equal(t, "0.00", m.String())
	assert.True(t, m.Equal(Zero))
}

func TestJSON(t *testing.T) {
	type payload struct {
		Amount Money `json:"amount"`
	}

	data, err := json.Marshal(payload{Amount: MustParse("12.5")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"12.50"}`, string(data))

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"99.99"}`), &p))
	assert.Equal(t, "99.99", p.Amount.String())

	err = json.Unmarshal([]byte(`{"amount":"1.234"}`), &p)
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)
}

func TestScanAndValue(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan("250.75"))
	assert.Equal(t, "250.75", m.String())

	require.NoError(t, m.Scan([]byte("1.10")))
	assert.Equal(t, "1.10", m.String())

	v, err := m.Value()
	require.NoError(t, err)
	assert.Equal(t, "1.10", v)

	assert.ErrorIs(t, m.Scan("0.001"), apperrors.ErrInvalidAmount)
}
