package security

import (
	"strings"
	"testing"
)

var testHasherConfig = Argon2Config{
	Memory:      8 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

func TestHashVerifyRoundTrip(t *testing.T) {
	hasher := NewPasswordHasher(testHasherConfig)

	encoded, err := hasher.Hash("Correct-Horse-7!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "argon2id$v=19$") {
		t.Fatalf("unexpected hash format: %q", encoded)
	}

	ok, err := hasher.Verify("Correct-Horse-7!", encoded)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatalf("correct password rejected")
	}

	ok, err = hasher.Verify("wrong-password", encoded)
	if err != nil {
		t.Fatalf("verify wrong: %v", err)
	}
	if ok {
		t.Fatalf("wrong password accepted")
	}
}

func TestHashIsSalted(t *testing.T) {
	hasher := NewPasswordHasher(testHasherConfig)

	first, err := hasher.Hash("same-password-1!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := hasher.Hash("same-password-1!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if first == second {
		t.Fatalf("two hashes of the same password are identical")
	}
}

func TestVerifyCrossParameterHashes(t *testing.T) {
	// A hash produced under old parameters must keep verifying after the
	// service parameters change, because parameters are read from the hash.
	old := NewPasswordHasher(Argon2Config{Memory: 8 * 1024, Iterations: 2, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	encoded, err := old.Hash("Correct-Horse-7!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	current := NewPasswordHasher(testHasherConfig)
	ok, err := current.Verify("Correct-Horse-7!", encoded)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatalf("hash with embedded parameters rejected")
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	hasher := NewPasswordHasher(testHasherConfig)

	for _, encoded := range []string{
		"not-a-hash",
		"bcrypt$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"argon2id$v=18$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"argon2id$v=19$m=8192,t=1$c2FsdA$aGFzaA",
	} {
		if _, err := hasher.Verify("password", encoded); err == nil {
			t.Fatalf("malformed hash %q accepted", encoded)
		}
	}
}

func TestVerifyEmptyInputs(t *testing.T) {
	hasher := NewPasswordHasher(testHasherConfig)

	encoded, err := hasher.Hash("Correct-Horse-7!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if ok, err := hasher.Verify("", encoded); err != nil || ok {
		t.Fatalf("empty password: ok=%v err=%v", ok, err)
	}
	if ok, err := hasher.Verify("Correct-Horse-7!", ""); err != nil || ok {
		t.Fatalf("empty hash: ok=%v err=%v", ok, err)
	}
}

func TestNewPasswordHasherClampsParameters(t *testing.T) {
	hasher := NewPasswordHasher(Argon2Config{})
	def := DefaultArgon2Config()
	if hasher.cfg != def {
		t.Fatalf("zero config not clamped to defaults: %+v", hasher.cfg)
	}
}
