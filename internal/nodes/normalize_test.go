package nodes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptionalInt(t *testing.T) {
	assert.Equal(t, 2019, *OptionalInt(" 2019 "))
	assert.Equal(t, 0, *OptionalInt("0"))
	assert.Equal(t, 12345, *OptionalInt("12345"))
	for _, bad := range []string{"", "-1", "20.5", "2k19", "１２", "99999999999"} {
		assert.Nil(t, OptionalInt(bad), bad)
	}
}

func TestOptionalDecimal(t *testing.T) {
	assert.Equal(t, 5.5, *OptionalDecimal("5,5"))
	assert.Equal(t, 7.0, *OptionalDecimal("7"))
	assert.Equal(t, 0.25, *OptionalDecimal(" .25 "))
	for _, bad := range []string{"", "five", "NaN", "Inf", "1,2,3"} {
		assert.Nil(t, OptionalDecimal(bad), bad)
	}
}

func TestWholeNumber(t *testing.T) {
	assert.Equal(t, 85, *WholeNumber("85.7"))
	assert.Equal(t, 90, *WholeNumber("90,2"))
	assert.Nil(t, WholeNumber("hot"))
	assert.Nil(t, WholeNumber("1e30"))
}

func TestTimeOfDay(t *testing.T) {
	assert.Equal(t, "09:30", *TimeOfDay("09:30"))
	assert.Equal(t, "21:15", *TimeOfDay(" 21:15:59 "))
	assert.Equal(t, "7:5", *TimeOfDay("7:5"))
	assert.Nil(t, TimeOfDay("noon"))
	assert.Nil(t, TimeOfDay(""))
}

func TestLocalClock(t *testing.T) {
	now := time.Date(2025, 3, 1, 22, 45, 0, 0, time.UTC)
	assert.Equal(t, "22:45", LocalClock(now, 0))
	assert.Equal(t, "01:45", LocalClock(now, 180))
	assert.Equal(t, "17:15", LocalClock(now, -330))
}

func TestRating(t *testing.T) {
	tests := map[string]int{
		"7":                    7,
		" 10 ":                 10,
		"15":                   10,
		"0":                    0,
		"-3":                   0,
		"seven":                0,
		"":                     0,
		"99999999999999999999": 10,
	}
	for in, want := range tests {
		assert.Equal(t, want, Rating(in), in)
	}
}

func TestToggleIsIdempotentInPairs(t *testing.T) {
	sel := Toggle(nil, "Floral")
	sel = Toggle(sel, "Honey")
	assert.Equal(t, []string{"Floral", "Honey"}, sel)

	sel = Toggle(sel, "Floral")
	assert.Equal(t, []string{"Honey"}, sel)
	sel = Toggle(sel, "Honey")
	assert.Empty(t, sel)
}

func TestJoinSelection(t *testing.T) {
	assert.Nil(t, JoinSelection(nil, ", "))
	assert.Equal(t, "a, b", *JoinSelection([]string{"a", "b"}, ", "))
	assert.Equal(t, "a,b", *JoinSelection([]string{"a", "b"}, ","))
}

func TestParseTZ(t *testing.T) {
	ok := map[string]int{
		"+3":    180,
		"3":     180,
		"-5.5":  -330,
		"5:30":  330,
		"-0:45": -45,
		"0":     0,
		"14":    840,
	}
	for in, want := range ok {
		got, valid := ParseTZ(in)
		assert.True(t, valid, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "+", "15", "5:75", "abc", "--3"} {
		_, valid := ParseTZ(bad)
		assert.False(t, valid, bad)
	}
}
