package adminauth

import (
	"strings"
	"testing"
)

func TestGenerateAccessKeyShape(t *testing.T) {
	for i := 0; i < 200; i++ {
		key, err := GenerateAccessKey()
		if err != nil {
			t.Fatalf("GenerateAccessKey: %v", err)
		}
		if len(key) != KeyLength {
			t.Fatalf("unexpected length %d for %q", len(key), key)
		}
		if !strings.ContainsAny(key, upperChars) {
			t.Fatalf("key %q lacks an uppercase letter", key)
		}
		if !strings.ContainsAny(key, lowerChars) {
			t.Fatalf("key %q lacks a lowercase letter", key)
		}
		if !strings.ContainsAny(key, digitChars) {
			t.Fatalf("key %q lacks a digit", key)
		}
		for _, c := range key {
			if !strings.ContainsRune(keyChars, c) {
				t.Fatalf("key %q contains %q outside the safe charset", key, c)
			}
		}
	}
}

func TestGenerateAccessKeyUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := GenerateAccessKey()
		if err != nil {
			t.Fatalf("GenerateAccessKey: %v", err)
		}
		if seen[key] {
			t.Fatalf("duplicate key %q", key)
		}
		seen[key] = true
	}
}
