package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var testSecret = []byte("abc123-abc123-abc123-abc123")

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func newHSCodec(t *testing.T, cfg Config) *Codec {
	t.Helper()
	if cfg.Secret == nil {
		cfg.Secret = testSecret
	}
	c, err := NewCodec(cfg)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return c
}

func TestSignVerifyRoundTrip(t *testing.T) {
	c := newHSCodec(t, Config{})
	if c.Algorithm() != AlgHS256 {
		t.Fatalf("expected default HS256, got %s", c.Algorithm())
	}

	token, err := c.Sign(Claims{"frodo": "baggins", "level": 3})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := c.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims["frodo"] != "baggins" {
		t.Fatalf("expected frodo claim, got %v", claims["frodo"])
	}
	if claims["level"] != float64(3) {
		t.Fatalf("expected numeric claim 3, got %v", claims["level"])
	}
	if _, err := uuid.Parse(claims.ID()); err != nil {
		t.Fatalf("expected uuid jti, got %q: %v", claims.ID(), err)
	}
}

func TestIssueReturnsSignedPayload(t *testing.T) {
	c := newHSCodec(t, Config{TTL: time.Minute, Issuer: "sessions", Audience: "api"})

	token, signed, err := c.Issue(Claims{ClaimSubject: "u-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := c.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if signed.ID() != claims.ID() {
		t.Fatalf("signed id %q does not match verified id %q", signed.ID(), claims.ID())
	}
	if claims.Subject() != "u-1" {
		t.Fatalf("expected subject u-1, got %q", claims.Subject())
	}
	if _, ok := claims["exp"]; !ok {
		t.Fatal("expected exp claim when TTL is set")
	}
}

func TestIssueIgnoresCallerSuppliedID(t *testing.T) {
	c := newHSCodec(t, Config{})
	input := Claims{ClaimID: "attacker-chosen"}

	_, signed, err := c.Issue(input)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if signed.ID() == "attacker-chosen" {
		t.Fatal("caller-supplied jti must be replaced")
	}
	if input[ClaimID] != "attacker-chosen" {
		t.Fatal("issue must not mutate the caller claims")
	}
}

func TestSignGeneratesUniqueIDs(t *testing.T) {
	c := newHSCodec(t, Config{})
	seen := make(map[string]struct{}, 64)
	for i := 0; i < 64; i++ {
		_, signed, err := c.Issue(nil)
		if err != nil {
			t.Fatalf("issue %d: %v", i, err)
		}
		if _, dup := seen[signed.ID()]; dup {
			t.Fatalf("duplicate id %q", signed.ID())
		}
		seen[signed.ID()] = struct{}{}
	}
}

func TestVerifyRejectsMissingID(t *testing.T) {
	c := newHSCodec(t, Config{})
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, gjwt.MapClaims{"frodo": "baggins"})
	token, err := tok.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	_, err = c.Verify(token)
	if !errors.Is(err, ErrInvalidToken) || !errors.Is(err, ErrMissingID) {
		t.Fatalf("expected missing id to be invalid, got %v", err)
	}
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	c, err := NewCodec(Config{Algorithm: AlgEdDSA, PublicKey: pub})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, gjwt.MapClaims{ClaimID: "s1"})
	token, err := tok.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := c.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected wrong algorithm to be rejected, got %v", err)
	}
}

func TestVerifyRejectsTamperedAndForeignTokens(t *testing.T) {
	c := newHSCodec(t, Config{})
	other := newHSCodec(t, Config{Secret: []byte("a-completely-different-secret")})

	foreign, err := other.Sign(Claims{"frodo": "baggins"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := c.Verify(foreign); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected foreign signature to fail, got %v", err)
	}

	for _, bad := range []string{"", "not.a.jwt", foreign + "x"} {
		if _, err := c.Verify(bad); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected %q to fail, got %v", bad, err)
		}
	}
}

func TestVerifyExpiryIssuerAudienceAndLeeway(t *testing.T) {
	_, priv := newEdKeys(t)
	c, err := NewCodec(Config{
		Algorithm:  AlgEdDSA,
		PrivateKey: priv,
		PublicKey:  priv.Public().(ed25519.PublicKey),
		Issuer:     "sessions",
		Audience:   "api",
		Leeway:     30 * time.Second,
	})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	token, err := c.Sign(Claims{"frodo": "baggins"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := c.Verify(token); err != nil {
		t.Fatalf("expected valid token to verify: %v", err)
	}

	sign := func(claims gjwt.MapClaims) string {
		t.Helper()
		s, err := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims).SignedString(priv)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	now := time.Now()

	cases := []struct {
		name   string
		claims gjwt.MapClaims
		ok     bool
	}{
		{"wrong issuer", gjwt.MapClaims{ClaimID: "s1", "iss": "other", "aud": "api"}, false},
		{"wrong audience", gjwt.MapClaims{ClaimID: "s1", "iss": "sessions", "aud": "other"}, false},
		{"expired within leeway", gjwt.MapClaims{ClaimID: "s1", "iss": "sessions", "aud": "api", "exp": now.Add(-15 * time.Second).Unix()}, true},
		{"expired", gjwt.MapClaims{ClaimID: "s1", "iss": "sessions", "aud": "api", "exp": now.Add(-2 * time.Minute).Unix()}, false},
		{"iat far in future", gjwt.MapClaims{ClaimID: "s1", "iss": "sessions", "aud": "api", "iat": now.Add(time.Hour).Unix()}, false},
	}
	for _, tc := range cases {
		_, err := c.Verify(sign(tc.claims))
		if tc.ok && err != nil {
			t.Fatalf("%s: expected success, got %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", tc.name, err)
		}
	}
}

func TestVerifyUnknownKidFails(t *testing.T) {
	pub1, priv1 := newEdKeys(t)
	c, err := NewCodec(Config{
		Algorithm:  AlgEdDSA,
		PrivateKey: priv1,
		PublicKey:  pub1,
		KeyID:      "k1",
		VerifyKeys: map[string][]byte{"k1": pub1},
	})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	tok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, gjwt.MapClaims{ClaimID: "s1"})
	tok.Header["kid"] = "k2"
	token, err := tok.SignedString(priv1)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := c.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected unknown kid failure, got %v", err)
	}

	good, err := c.Sign(nil)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := c.Verify(good); err != nil {
		t.Fatalf("expected own kid to verify: %v", err)
	}
}

func TestNewCodecRejectsInvalidConfig(t *testing.T) {
	pub, _ := newEdKeys(t)
	cases := []struct {
		name string
		cfg  Config
	}{
		{"hmac without secret", Config{Algorithm: AlgHS512}},
		{"unknown algorithm", Config{Algorithm: "none", Secret: testSecret}},
		{"eddsa without keys", Config{Algorithm: AlgEdDSA}},
		{"bad eddsa public key", Config{Algorithm: AlgEdDSA, PublicKey: []byte("short")}},
		{"negative ttl", Config{Secret: testSecret, TTL: -time.Second}},
		{"leeway too large", Config{Secret: testSecret, Leeway: time.Hour}},
		{"kid missing from verify keys", Config{Algorithm: AlgEdDSA, PublicKey: pub, KeyID: "k9", VerifyKeys: map[string][]byte{"k1": pub}}},
		{"empty kid", Config{Algorithm: AlgEdDSA, PublicKey: pub, VerifyKeys: map[string][]byte{" ": pub}}},
	}
	for _, tc := range cases {
		if _, err := NewCodec(tc.cfg); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestVerifyOnlyCodecCannotSign(t *testing.T) {
	pub, _ := newEdKeys(t)
	c, err := NewCodec(Config{Algorithm: AlgEdDSA, PublicKey: pub})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	if _, err := c.Sign(nil); err == nil {
		t.Fatal("expected signing without a private key to fail")
	}
}
