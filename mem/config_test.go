package mem_test

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sarchlab/mipsim/mem"
)

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mem.json")

	want := mem.DefaultConfig()
	want.L1.Size = 16 * 1024
	want.L1.WriteBack = false
	want.MemLatency = 55

	if err := want.SaveConfig(path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	got, err := mem.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config changed across save/load (-want +got):\n%s", diff)
	}
}

func TestCacheConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*mem.CacheConfig)
		wantErr bool
	}{
		{"default is valid", func(c *mem.CacheConfig) {}, false},
		{"zero size", func(c *mem.CacheConfig) { c.Size = 0 }, true},
		{"zero ways", func(c *mem.CacheConfig) { c.Associativity = 0 }, true},
		{"non-power-of-two block", func(c *mem.CacheConfig) { c.BlockSize = 24 }, true},
		{"size not divisible into sets", func(c *mem.CacheConfig) { c.Size = 1000 }, true},
		{"direct mapped", func(c *mem.CacheConfig) { c.Associativity = 1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := mem.DefaultCacheConfig()
			tt.mutate(&config)

			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
