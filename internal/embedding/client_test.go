package embedding

import "testing"

// TestNewClient_MissingKey verifies construction fails without a key from
// either source.
func TestNewClient_MissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClient(""); err == nil {
		t.Fatal("Expected error when no API key is available")
	}
}

// TestNewClient_ExplicitKey verifies a passed key wins over the environment.
func TestNewClient_ExplicitKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	c, err := NewClient("test-key")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.Client() == nil {
		t.Error("Expected a usable underlying client")
	}
}

// TestNewClient_EnvFallback verifies the environment key is used when no
// key is passed.
func TestNewClient_EnvFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	if _, err := NewClient(""); err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
}
