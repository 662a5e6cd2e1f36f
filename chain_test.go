package migrate

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestNewChainValidation(t *testing.T) {
	cases := []struct {
		name  string
		build func() error
		want  string
	}{
		{
			name: "empty chain",
			build: func() error {
				_, err := NewChain[configV1]()
				return err
			},
			want: "at least one schema",
		},
		{
			name: "first step is not a root",
			build: func() error {
				_, err := NewChain[configV2](
					Next[configV1, configV2](2, v1ToV2),
				)
				return err
			},
			want: "declared with Root",
		},
		{
			name: "duplicate versions",
			build: func() error {
				_, err := NewChain[configV2](
					Root[configV1](1),
					Next[configV1, configV2](1, v1ToV2),
				)
				return err
			},
			want: "duplicate version",
		},
		{
			name: "root redeclared mid-chain",
			build: func() error {
				_, err := NewChain[configV1](
					Root[configV1](1),
					Root[configV1](2),
				)
				return err
			},
			want: "redeclares the chain root",
		},
		{
			name: "predecessor type mismatch",
			build: func() error {
				_, err := NewChain[configV3](
					Root[configV1](1),
					Next[configV2, configV3](3, v2ToV3),
				)
				return err
			},
			want: "predecessor produces",
		},
		{
			name: "chain does not end in target type",
			build: func() error {
				_, err := NewChain[configV3](
					Root[configV1](1),
					Next[configV1, configV2](2, v1ToV2),
				)
				return err
			},
			want: "want",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.build()
			if err == nil {
				t.Fatalf("expected chain validation to fail")
			}
			var chainErr *ChainError
			if !errors.As(err, &chainErr) {
				t.Fatalf("expected *ChainError, got %T", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestChainIntrospection(t *testing.T) {
	chain := threeStepChain(t)

	if got := chain.Target(); got != 3 {
		t.Fatalf("unexpected target version: %d", got)
	}
	if got := chain.Len(); got != 3 {
		t.Fatalf("unexpected chain length: %d", got)
	}
	if got := chain.Versions(); !reflect.DeepEqual(got, []int64{1, 2, 3}) {
		t.Fatalf("unexpected versions: %v", got)
	}
}

func TestStepAccessors(t *testing.T) {
	root := Root[configV1](1)
	if root.Version() != 1 || !root.IsRoot() {
		t.Fatalf("unexpected root step: %+v", root)
	}

	next := Next[configV1, configV2](2, v1ToV2)
	if next.Version() != 2 || next.IsRoot() {
		t.Fatalf("unexpected next step: %+v", next)
	}
}

func TestChainVersionsDoNotNeedToBeOrdered(t *testing.T) {
	// Version numbers identify schemas; resolution order follows declaration
	// order, not numeric order.
	chain, err := NewChain[configV2](
		Root[configV1](10),
		Next[configV1, configV2](7, v1ToV2),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	config, migrated, err := Migrate(chain, []byte("version = 10\nname = \"MyApp\"\ntimeout = 60\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !migrated || config.Retries != 4 {
		t.Fatalf("unexpected result: %+v migrated=%v", config, migrated)
	}
}
