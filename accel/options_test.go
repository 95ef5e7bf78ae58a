package accel

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"
)

func TestOptionsValidate(t *testing.T) {
	type spec struct {
		mutate    func(*Options)
		expOption string
	}
	specs := []spec{
		{func(o *Options) {}, ""},
		{func(o *Options) { o.BinCount = 1 }, "BinCount"},
		{func(o *Options) { o.BinCount = 0 }, "BinCount"},
		{func(o *Options) { o.MinLeafPrimitives = 0 }, "MinLeafPrimitives"},
		{func(o *Options) { o.MaxTreeDepth = 0 }, "MaxTreeDepth"},
		{func(o *Options) { o.CostTaabb = -0.1 }, "CostTaabb"},
		{func(o *Options) { o.CostTaabb = 1.5 }, "CostTaabb"},
		{func(o *Options) { o.CostTaabb = math32.NaN() }, "CostTaabb"},
		{func(o *Options) { o.CostTaabb = 1; o.BinCount = 2; o.MinLeafPrimitives = 1 }, ""},
	}

	for index, s := range specs {
		opts := DefaultOptions()
		s.mutate(&opts)
		err := opts.Validate()

		if s.expOption == "" {
			if err != nil {
				t.Fatalf("[spec %d] expected no error; got %v", index, err)
			}
			continue
		}

		var cfgErr *ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("[spec %d] expected a ConfigurationError; got %v", index, err)
		}
		if cfgErr.Option != s.expOption {
			t.Fatalf("[spec %d] expected error for option %q; got %q", index, s.expOption, cfgErr.Option)
		}
		if !errors.Is(err, ErrInvalidOptions) {
			t.Fatalf("[spec %d] expected error to match ErrInvalidOptions", index)
		}
	}
}

func TestStackCapacity(t *testing.T) {
	opts := DefaultOptions()
	if got := opts.stackCapacity(10); got != 512 {
		t.Fatalf("expected capacity 512; got %d", got)
	}

	opts.MaxTreeDepth = 2
	if got := opts.stackCapacity(10); got != 22 {
		t.Fatalf("expected capacity 22; got %d", got)
	}
}
