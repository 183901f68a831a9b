package extensions

import (
	"testing"
	"time"
)

func Test_Extensions_FilterSingle(t *testing.T) {
	values := []string{"AAPL", "MSFT", "SPY"}

	res, err := FilterSingle(values, func(s string) bool { return s == "SPY" })
	if err != nil {
		t.Fatalf("error filtering single: %v", err)
	}
	AssertAreEqual(t, "single", "SPY", res)

	if _, err := FilterSingle(values, func(s string) bool { return len(s) == 4 }); err == nil {
		t.Fatalf("expected an error when more than one element matches")
	}
}

func Test_Extensions_Distinct(t *testing.T) {
	res := Distinct([]string{"BTC-USD", "MELI", "BTC-USD", "SPY", "MELI"})

	AssertAreEqual(t, "length", 3, len(res))
	AssertAreEqual(t, "first", "BTC-USD", res[0])
	AssertAreEqual(t, "second", "MELI", res[1])
	AssertAreEqual(t, "third", "SPY", res[2])
}

func Test_Extensions_DateOnly(t *testing.T) {
	loc := time.FixedZone("EST", -5*60*60)
	in := time.Date(2024, time.January, 2, 9, 30, 0, 0, loc)

	AssertAreEqual(t, "date", time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC), DateOnly(in))
	AssertAreEqual(t, "formatted", "2024-01-02", FmtShort(DateOnly(in)))
}

func Test_Extensions_Min(t *testing.T) {
	AssertAreEqual(t, "int", 2, Min(4, 2))
	AssertAreEqual(t, "float", 1.5, Min(1.5, 3.0))
}
