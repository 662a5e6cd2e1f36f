package defaults

import (
	"reflect"
	"testing"
)

type retryConfig struct {
	Attempts int
	Backoff  int
}

type serviceConfig struct {
	Name    string
	Timeout int
	Retry   *retryConfig
	Labels  map[string]string
	Hosts   []string
}

func TestMergeFillsZeroFields(t *testing.T) {
	fallback := serviceConfig{
		Name:    "defaults",
		Timeout: 30,
		Retry:   &retryConfig{Attempts: 3, Backoff: 5},
	}
	value := serviceConfig{Name: "api"}

	merged := Merge(value, fallback)

	if merged.Name != "api" {
		t.Fatalf("expected explicit name to win, got %q", merged.Name)
	}
	if merged.Timeout != 30 {
		t.Fatalf("expected zero timeout to be filled, got %d", merged.Timeout)
	}
	if merged.Retry == nil || merged.Retry.Attempts != 3 {
		t.Fatalf("expected nil pointer to be filled, got %+v", merged.Retry)
	}
}

func TestMergeNestedPointers(t *testing.T) {
	fallback := serviceConfig{Retry: &retryConfig{Attempts: 3, Backoff: 5}}
	value := serviceConfig{Retry: &retryConfig{Attempts: 10}}

	merged := Merge(value, fallback)

	if merged.Retry.Attempts != 10 {
		t.Fatalf("expected explicit attempts to win, got %d", merged.Retry.Attempts)
	}
	if merged.Retry.Backoff != 5 {
		t.Fatalf("expected zero backoff to be filled through the pointer, got %d", merged.Retry.Backoff)
	}
}

func TestMergeMaps(t *testing.T) {
	fallback := serviceConfig{Labels: map[string]string{"env": "dev", "team": "core"}}
	value := serviceConfig{Labels: map[string]string{"env": "prod"}}

	merged := Merge(value, fallback)

	want := map[string]string{"env": "prod", "team": "core"}
	if !reflect.DeepEqual(merged.Labels, want) {
		t.Fatalf("unexpected labels:\nwant: %v\n got: %v", want, merged.Labels)
	}
}

func TestMergeSlicesAreNotElementMerged(t *testing.T) {
	fallback := serviceConfig{Hosts: []string{"a", "b"}}

	merged := Merge(serviceConfig{Hosts: []string{"c"}}, fallback)
	if !reflect.DeepEqual(merged.Hosts, []string{"c"}) {
		t.Fatalf("expected explicit slice to replace the fallback, got %v", merged.Hosts)
	}

	merged = Merge(serviceConfig{}, fallback)
	if !reflect.DeepEqual(merged.Hosts, []string{"a", "b"}) {
		t.Fatalf("expected nil slice to be filled, got %v", merged.Hosts)
	}
}

func TestMergeFallbackOrder(t *testing.T) {
	weakest := serviceConfig{Name: "weakest", Timeout: 10}
	weaker := serviceConfig{Timeout: 20}

	merged := Merge(serviceConfig{}, weaker, weakest)

	if merged.Timeout != 20 {
		t.Fatalf("expected the stronger fallback to win, got %d", merged.Timeout)
	}
	if merged.Name != "weakest" {
		t.Fatalf("expected the weakest fallback to fill remaining gaps, got %q", merged.Name)
	}
}

func TestMergeDoesNotAliasInputs(t *testing.T) {
	fallback := serviceConfig{
		Retry:  &retryConfig{Attempts: 3},
		Labels: map[string]string{"env": "dev"},
	}

	merged := Merge(serviceConfig{}, fallback)
	merged.Retry.Attempts = 99
	merged.Labels["env"] = "prod"

	if fallback.Retry.Attempts != 3 {
		t.Fatalf("expected the fallback pointer to be copied, got %d", fallback.Retry.Attempts)
	}
	if fallback.Labels["env"] != "dev" {
		t.Fatalf("expected the fallback map to be copied, got %q", fallback.Labels["env"])
	}
}

func TestClone(t *testing.T) {
	original := serviceConfig{
		Name:   "api",
		Retry:  &retryConfig{Attempts: 3},
		Labels: map[string]string{"env": "dev"},
		Hosts:  []string{"a"},
	}

	clone := Clone(original)
	clone.Retry.Attempts = 99
	clone.Labels["env"] = "prod"
	clone.Hosts[0] = "z"

	if original.Retry.Attempts != 3 || original.Labels["env"] != "dev" || original.Hosts[0] != "a" {
		t.Fatalf("clone aliased the original: %+v", original)
	}
}

func TestCloneNilContainers(t *testing.T) {
	clone := Clone(serviceConfig{})
	if clone.Retry != nil || clone.Labels != nil || clone.Hosts != nil {
		t.Fatalf("expected nil containers to stay nil, got %+v", clone)
	}
}
