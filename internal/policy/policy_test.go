package policy

import (
	"path/filepath"
	"testing"
)

func TestLoadMissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.json")
	p, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !p.AllowRunCommand || !p.AllowWrite {
		t.Fatalf("expected permissive defaults, got %+v", p)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(reloaded.BlockedCommandPatterns) != len(p.BlockedCommandPatterns) {
		t.Fatalf("expected reloaded defaults to match written defaults")
	}
}

func TestCheckCommandBlocksDefaultPatterns(t *testing.T) {
	p := Default()
	allowed, reason := p.CheckCommand("rm -rf /")
	if allowed {
		t.Fatalf("expected rm -rf / to be denied")
	}
	if reason == "" {
		t.Fatal("expected a reason for denial")
	}
}

func TestCheckCommandAllowsOrdinaryCommand(t *testing.T) {
	p := Default()
	allowed, _ := p.CheckCommand("npm test")
	if !allowed {
		t.Fatal("expected ordinary command to be allowed")
	}
}

func TestCheckCommandRequiresAllowedPrefix(t *testing.T) {
	p := Default()
	p.AllowedCommandPrefixes = []string{"npm "}
	if allowed, _ := p.CheckCommand("npm test"); !allowed {
		t.Fatal("expected prefix-matching command to be allowed")
	}
	if allowed, _ := p.CheckCommand("python script.py"); allowed {
		t.Fatal("expected non-matching command to be denied")
	}
}

func TestCheckWritePathBlocksEnvFiles(t *testing.T) {
	p := Default()
	cases := []string{".env", "nested/.env", "secrets/.env.local", "deploy/key.pem", ".git/HEAD"}
	for _, c := range cases {
		if allowed, _ := p.CheckWritePath(c); allowed {
			t.Fatalf("expected %q to be blocked", c)
		}
	}
}

func TestCheckWritePathAllowsOrdinaryFiles(t *testing.T) {
	p := Default()
	if allowed, _ := p.CheckWritePath("src/main.go"); !allowed {
		t.Fatal("expected ordinary path to be allowed")
	}
}

func TestDetectSecretsFindsKnownPatterns(t *testing.T) {
	content := "GROQ_API_KEY=gsk_abcdefghijklmnopqrstuvwx\nplain text\n"
	findings := DetectSecrets(content)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %+v", findings)
	}
	if findings[0].Type != "Groq API key" {
		t.Fatalf("unexpected finding type: %+v", findings[0])
	}
	if len(findings[0].MaskedSnippet) >= len(content) {
		t.Fatalf("expected masked snippet to be shorter than full content")
	}
}

func TestDetectSecretsCapsAtMax(t *testing.T) {
	var content string
	for i := 0; i < maxSecretFindings+5; i++ {
		content += "sk-abcdefghijklmnopqrstuvwxyz\n"
	}
	findings := DetectSecrets(content)
	if len(findings) != maxSecretFindings {
		t.Fatalf("expected findings capped at %d, got %d", maxSecretFindings, len(findings))
	}
}
