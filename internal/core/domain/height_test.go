package domain

import "testing"

func TestHeight_GT(t *testing.T) {
	cases := []struct {
		a, b Height
		want bool
	}{
		{Height{0, 10}, Height{0, 9}, true},
		{Height{0, 10}, Height{0, 10}, false},
		{Height{0, 9}, Height{0, 10}, false},
		{Height{1, 1}, Height{0, 100}, true},
		{Height{0, 100}, Height{1, 1}, false},
		{Height{0, 1}, ZeroHeight, true},
	}

	for _, c := range cases {
		if got := c.a.GT(c.b); got != c.want {
			t.Errorf("%s > %s: expected %v, got %v", c.a, c.b, c.want, got)
		}
	}
}

func TestChannelSpec_MinTotalLabel(t *testing.T) {
	c := ChannelSpec{MinTotal: 10}
	if c.MinTotalLabel() != "10" {
		t.Errorf("expected 10, got %s", c.MinTotalLabel())
	}
}
