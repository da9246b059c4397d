package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	algorithm = "argon2id"

	floorMemoryKB  uint32 = 8 * 1024
	floorSaltBytes        = 16
	floorKeyBytes         = 16

	// DefaultMaxPasswordBytes applies when Config.MaxPasswordBytes is zero.
	DefaultMaxPasswordBytes = 1024
)

var (
	// ErrPasswordLength is returned when a password is shorter than
	// Config.MinLength or longer than Config.MaxPasswordBytes.
	ErrPasswordLength = errors.New("password length out of range")

	// ErrMalformedHash wraps every failure to decode a stored hash.
	ErrMalformedHash = errors.New("malformed argon2id hash")
)

var b64 = base64.RawStdEncoding

// Config holds Argon2id cost parameters and password length bounds in
// bytes. MinLength must be at least 1; a zero MaxPasswordBytes means
// [DefaultMaxPasswordBytes].
type Config struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MinLength        int
	MaxPasswordBytes int
}

// DefaultConfig returns the Argon2id parameters goCrud ships with.
func DefaultConfig() Config {
	return Config{
		Memory:           64 * 1024,
		Time:             3,
		Parallelism:      2,
		SaltLength:       16,
		KeyLength:        32,
		MinLength:        1,
		MaxPasswordBytes: DefaultMaxPasswordBytes,
	}
}

func (c Config) validate() error {
	switch {
	case c.Memory < floorMemoryKB:
		return fmt.Errorf("password memory must be >= %d KiB", floorMemoryKB)
	case c.Time < 1:
		return errors.New("password time must be >= 1")
	case c.Parallelism < 1:
		return errors.New("password parallelism must be >= 1")
	case c.SaltLength < floorSaltBytes:
		return fmt.Errorf("password salt length must be >= %d", floorSaltBytes)
	case c.KeyLength < floorKeyBytes:
		return fmt.Errorf("password key length must be >= %d", floorKeyBytes)
	case c.MaxPasswordBytes < 1:
		return errors.New("password max bytes must be >= 1")
	case c.MinLength < 1 || c.MinLength > c.MaxPasswordBytes:
		return errors.New("password min length must be in [1, max bytes]")
	}
	return nil
}

// params are the cost settings recorded in a hash.
type params struct {
	memory      uint32
	time        uint32
	parallelism uint8
}

// phc is a decoded "$argon2id$v=19$m=..,t=..,p=..$salt$key" string.
type phc struct {
	params
	salt []byte
	key  []byte
}

func (p phc) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithm, argon2.Version,
		p.memory, p.time, p.parallelism,
		b64.EncodeToString(p.salt), b64.EncodeToString(p.key))
}

func (p phc) derive(password string) []byte {
	return argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.key)))
}

// Argon2 hashes and verifies passwords as PHC-encoded Argon2id strings. It
// is safe for concurrent use.
type Argon2 struct {
	cfg Config
}

// NewArgon2 validates cfg and returns an [Argon2].
func NewArgon2(cfg Config) (*Argon2, error) {
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Argon2{cfg: cfg}, nil
}

// Hash returns a PHC string with a fresh random salt, so hashing the same
// password twice yields different strings. Passwords are hashed as raw bytes
// with no Unicode normalization.
func (a *Argon2) Hash(password string) (string, error) {
	if n := len(password); n < a.cfg.MinLength || n > a.cfg.MaxPasswordBytes {
		return "", ErrPasswordLength
	}

	h := phc{
		params: params{memory: a.cfg.Memory, time: a.cfg.Time, parallelism: a.cfg.Parallelism},
		salt:   make([]byte, a.cfg.SaltLength),
		key:    make([]byte, a.cfg.KeyLength),
	}
	if _, err := rand.Read(h.salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	h.key = h.derive(password)
	return h.String(), nil
}

// Verify reports whether password matches encoded. The cost parameters come
// from encoded, not from the current config.
func (a *Argon2) Verify(password, encoded string) (bool, error) {
	if len(password) > a.cfg.MaxPasswordBytes {
		return false, ErrPasswordLength
	}
	h, err := decode(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(h.derive(password), h.key) == 1, nil
}

// NeedsUpgrade reports whether encoded was produced with weaker parameters
// than the current config.
func (a *Argon2) NeedsUpgrade(encoded string) (bool, error) {
	h, err := decode(encoded)
	if err != nil {
		return false, err
	}
	return h.memory < a.cfg.Memory ||
		h.time < a.cfg.Time ||
		h.parallelism < a.cfg.Parallelism ||
		uint32(len(h.key)) != a.cfg.KeyLength, nil
}

func malformed(what string) error {
	return fmt.Errorf("%w: %s", ErrMalformedHash, what)
}

func decode(encoded string) (phc, error) {
	var h phc

	// "", algorithm, version, params, salt, key
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" {
		return h, malformed("expected 5 sections")
	}
	if fields[1] != algorithm {
		return h, malformed("algorithm " + strconv.Quote(fields[1]))
	}

	version, ok := strings.CutPrefix(fields[2], "v=")
	if !ok {
		return h, malformed("missing version")
	}
	if v, err := strconv.Atoi(version); err != nil || v != argon2.Version {
		return h, malformed("unsupported version " + version)
	}

	p, err := decodeParams(fields[3])
	if err != nil {
		return h, err
	}
	h.params = p

	if h.salt, err = b64.DecodeString(fields[4]); err != nil || len(h.salt) < floorSaltBytes {
		return h, malformed("salt")
	}
	if h.key, err = b64.DecodeString(fields[5]); err != nil || len(h.key) == 0 {
		return h, malformed("key")
	}
	return h, nil
}

func decodeParams(field string) (params, error) {
	var (
		p    params
		seen = map[string]bool{}
	)
	for _, pair := range strings.Split(field, ",") {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || seen[name] {
			return p, malformed("parameter " + strconv.Quote(pair))
		}
		seen[name] = true

		switch name {
		case "m":
			v, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || uint32(v) < floorMemoryKB {
				return p, malformed("memory")
			}
			p.memory = uint32(v)
		case "t":
			v, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || v < 1 {
				return p, malformed("time")
			}
			p.time = uint32(v)
		case "p":
			v, err := strconv.ParseUint(raw, 10, 8)
			if err != nil || v < 1 {
				return p, malformed("parallelism")
			}
			p.parallelism = uint8(v)
		default:
			return p, malformed("unknown parameter " + strconv.Quote(name))
		}
	}
	if len(seen) != 3 {
		return p, malformed("missing parameters")
	}
	return p, nil
}
