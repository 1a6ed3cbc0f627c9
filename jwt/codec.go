package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Algorithm names a supported signing algorithm using its JOSE `alg` value.
type Algorithm string

const (
	// AlgHS256 is HMAC-SHA256, the default.
	AlgHS256 Algorithm = "HS256"
	// AlgHS384 is HMAC-SHA384.
	AlgHS384 Algorithm = "HS384"
	// AlgHS512 is HMAC-SHA512.
	AlgHS512 Algorithm = "HS512"
	// AlgEdDSA is Ed25519.
	AlgEdDSA Algorithm = "EdDSA"
)

// Reserved claim names.
const (
	ClaimID      = "jti"
	ClaimSubject = "sub"
)

var (
	// ErrInvalidToken is returned by [Codec.Verify] for any token that does not
	// fully validate. The underlying parser error is wrapped after it.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingID marks a correctly signed token without a usable `jti`.
	ErrMissingID = errors.New("token has no session id")
)

// Config holds the signing material and validation rules of a [Codec].
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Algorithm Algorithm
	// Secret is the HMAC key for the HS* family.
	Secret []byte
	// PrivateKey and PublicKey are ed25519 keys, raw or PEM encoded.
	PrivateKey []byte
	PublicKey  []byte
	// TTL adds iat/exp to issued tokens when > 0. Zero issues tokens without
	// expiry; session reachability is then bounded by the store TTL only.
	TTL          time.Duration
	Issuer       string
	Audience     string
	Leeway       time.Duration
	MaxFutureIAT time.Duration
	KeyID        string
	VerifyKeys   map[string][]byte
}

// Claims is a decoded token payload.
type Claims map[string]any

// ID returns the session identifier carried in `jti`.
func (c Claims) ID() string {
	id, _ := c[ClaimID].(string)
	return id
}

// Subject returns the `sub` claim, used as the session owner.
func (c Claims) Subject() string {
	sub, _ := c[ClaimSubject].(string)
	return sub
}

// Clone returns a shallow copy of c.
func (c Claims) Clone() Claims {
	out := make(Claims, len(c)+1)
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Codec signs and verifies session tokens. It is safe for concurrent use.
type Codec struct {
	config Config
	method jwt.SigningMethod
}

// NewCodec validates cfg and returns a ready [Codec]. An empty Algorithm
// defaults to HS256.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.Algorithm == "" {
		cfg.Algorithm = AlgHS256
	}
	if cfg.TTL < 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	c := &Codec{config: cfg}
	switch cfg.Algorithm {
	case AlgHS256, AlgHS384, AlgHS512:
		if len(cfg.Secret) == 0 {
			return nil, fmt.Errorf("%s requires a secret", cfg.Algorithm)
		}
		c.method = jwt.GetSigningMethod(string(cfg.Algorithm))
	case AlgEdDSA:
		if len(cfg.PrivateKey) > 0 {
			if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.PublicKey) > 0 {
			if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.VerifyKeys) == 0 && len(cfg.PublicKey) == 0 {
			return nil, errors.New("EdDSA requires public key or verify key set")
		}
		c.method = jwt.SigningMethodEdDSA
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}

	for kid, key := range cfg.VerifyKeys {
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("verify key map contains empty kid")
		}
		if _, err := c.keyBytesToVerifyKey(key); err != nil {
			return nil, fmt.Errorf("invalid verify key for kid %q: %w", kid, err)
		}
	}
	if cfg.KeyID != "" && len(cfg.VerifyKeys) > 0 {
		if _, ok := cfg.VerifyKeys[cfg.KeyID]; !ok {
			return nil, errors.New("KeyID is not present in VerifyKeys")
		}
	}

	return c, nil
}

// Algorithm reports the configured signing algorithm.
func (c *Codec) Algorithm() Algorithm {
	return c.config.Algorithm
}

// Sign issues a token for claims under a freshly generated session id. The id
// is only returned embedded in the token.
func (c *Codec) Sign(claims Claims) (string, error) {
	token, _, err := c.Issue(claims)
	return token, err
}

// Issue signs claims merged with a fresh `jti` and returns both the token and
// the exact payload that was signed. A caller-supplied `jti` is discarded.
func (c *Codec) Issue(claims Claims) (string, Claims, error) {
	payload := claims.Clone()
	payload[ClaimID] = uuid.NewString()

	now := time.Now()
	if c.config.TTL > 0 {
		payload["iat"] = now.Unix()
		payload["exp"] = now.Add(c.config.TTL).Unix()
	}
	if c.config.Issuer != "" {
		payload["iss"] = c.config.Issuer
	}
	if c.config.Audience != "" {
		payload["aud"] = c.config.Audience
	}

	token := jwt.NewWithClaims(c.method, jwt.MapClaims(payload))
	if c.config.KeyID != "" {
		token.Header["kid"] = c.config.KeyID
	}

	signKey, err := c.signKey()
	if err != nil {
		return "", nil, err
	}
	signed, err := token.SignedString(signKey)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, payload, nil
}

// Verify validates signature, algorithm, time claims, issuer, audience and
// key id, and requires a non-empty string `jti`. Every failure wraps
// [ErrInvalidToken].
func (c *Codec) Verify(tokenStr string) (Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}
	if c.config.Audience != "" {
		options = append(options, jwt.WithAudience(c.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, jwt.MapClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != c.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}

		if len(c.config.VerifyKeys) > 0 {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("missing kid")
			}
			key, ok := c.config.VerifyKeys[kid]
			if !ok {
				return nil, errors.New("unknown kid")
			}
			return c.keyBytesToVerifyKey(key)
		}

		if c.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("missing kid")
			}
			if kid != c.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}

		return c.verifyKey()
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, jwt.ErrTokenInvalidClaims)
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		if iat.Time.After(time.Now().Add(c.config.MaxFutureIAT)) {
			return nil, fmt.Errorf("%w: iat too far in the future", ErrInvalidToken)
		}
	}

	claims := Claims(mapClaims)
	if claims.ID() == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrMissingID)
	}
	return claims, nil
}

func (c *Codec) signKey() (interface{}, error) {
	switch c.config.Algorithm {
	case AlgEdDSA:
		if len(c.config.PrivateKey) == 0 {
			return nil, errors.New("EdDSA signing requires a private key")
		}
		return parseEdPrivateKey(c.config.PrivateKey)
	default:
		return c.config.Secret, nil
	}
}

func (c *Codec) verifyKey() (interface{}, error) {
	switch c.config.Algorithm {
	case AlgEdDSA:
		return parseEdPublicKey(c.config.PublicKey)
	default:
		return c.config.Secret, nil
	}
}

func (c *Codec) keyBytesToVerifyKey(key []byte) (interface{}, error) {
	switch c.config.Algorithm {
	case AlgEdDSA:
		return parseEdPublicKey(key)
	default:
		if len(key) == 0 {
			return nil, errors.New("empty hmac verify key")
		}
		return key, nil
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
