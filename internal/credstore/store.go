// Package credstore keeps signing key material encrypted at rest.
//
// Records live in a storage.DB under the "cred/" namespace. Each record is
// addressed by the BLAKE3 hash of its owner id and sealed with Argon2id +
// XChaCha20-Poly1305, with the record id bound as associated data so a
// sealed blob cannot be replayed under another owner. A small plaintext
// metadata entry sits beside every record so List never needs the password.
package credstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Klingon-tech/kaswallet/internal/log"
	"github.com/Klingon-tech/kaswallet/internal/storage"
	"github.com/Klingon-tech/kaswallet/pkg/crypto"
)

// Store errors.
var (
	ErrNotFound      = errors.New("credential not found")
	ErrAlreadyExists = errors.New("credential already exists")
	ErrEmptyPassword = errors.New("password must not be empty")
	ErrInvalidOwner  = errors.New("invalid owner id")
	ErrInvalidKind   = errors.New("invalid key kind")
)

var (
	namespace  = []byte("cred/")
	recPrefix  = []byte("rec/")
	metaPrefix = []byte("meta/")
)

// KeyKind tells how Raw in KeyMaterial is to be interpreted.
type KeyKind uint8

const (
	// KindRaw is a 32-byte secp256k1 private key.
	KindRaw KeyKind = 1
	// KindExtended is a serialized extended private key (kprv/xprv).
	KindExtended KeyKind = 2
)

// String returns the kind name.
func (k KeyKind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindExtended:
		return "extended"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// ParseKeyKind parses "raw" or "extended".
func ParseKeyKind(s string) (KeyKind, error) {
	switch s {
	case "raw":
		return KindRaw, nil
	case "extended":
		return KindExtended, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

func (k KeyKind) valid() bool {
	return k == KindRaw || k == KindExtended
}

// KeyMaterial is decrypted signing material. Callers must Zero it when done.
type KeyMaterial struct {
	Kind KeyKind
	Raw  []byte
}

// Zero overwrites the key bytes.
func (m *KeyMaterial) Zero() {
	if m == nil {
		return
	}
	clear(m.Raw)
	m.Raw = nil
}

// Info is the public metadata of a record.
type Info struct {
	Owner     string    `json:"owner"`
	Kind      KeyKind   `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is an encrypted key store. It is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	db       *storage.PrefixDB
	password []byte
	params   EncryptionParams
}

// New opens a store over db. The password is copied and held until Close.
func New(db storage.DB, password []byte, params EncryptionParams) (*Store, error) {
	if len(password) == 0 {
		return nil, ErrEmptyPassword
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Store{
		db:       storage.NewPrefixDB(db, namespace),
		password: bytes.Clone(password),
		params:   params,
	}, nil
}

// recordID returns the storage id for an owner.
func recordID(owner string) []byte {
	h := crypto.Hash([]byte(owner))
	return []byte(h.String())
}

func recKey(id []byte) []byte  { return append(bytes.Clone(recPrefix), id...) }
func metaKey(id []byte) []byte { return append(bytes.Clone(metaPrefix), id...) }

// Put encrypts and stores material for owner. It fails with ErrAlreadyExists
// if owner already has a record; Delete it first to replace.
func (s *Store) Put(owner string, m *KeyMaterial) error {
	if owner == "" {
		return ErrInvalidOwner
	}
	if m == nil || !m.Kind.valid() {
		return ErrInvalidKind
	}
	if len(m.Raw) == 0 {
		return fmt.Errorf("%w: empty key material", ErrInvalidKind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.password == nil {
		return ErrEmptyPassword
	}

	id := recordID(owner)
	exists, err := s.db.Has(recKey(id))
	if err != nil {
		return fmt.Errorf("check record: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, owner)
	}

	plain := make([]byte, 0, 1+len(m.Raw))
	plain = append(plain, byte(m.Kind))
	plain = append(plain, m.Raw...)
	defer clear(plain)

	sealed, err := Seal(plain, s.password, id, s.params)
	if err != nil {
		return fmt.Errorf("seal record: %w", err)
	}
	meta, err := json.Marshal(Info{Owner: owner, Kind: m.Kind, CreatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	batch := s.db.NewBatch()
	defer batch.Cancel()
	if err := batch.Put(recKey(id), sealed); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := batch.Put(metaKey(id), meta); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}

	log.Store.Debug().Str("owner", owner).Str("kind", m.Kind.String()).Msg("Credential stored")
	return nil
}

// GetPrivateKeyForUser decrypts the material stored for owner.
func (s *Store) GetPrivateKeyForUser(owner string) (*KeyMaterial, error) {
	if owner == "" {
		return nil, ErrInvalidOwner
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.password == nil {
		return nil, ErrEmptyPassword
	}

	id := recordID(owner)
	sealed, err := s.db.Get(recKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, owner)
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}

	plain, err := Open(sealed, s.password, id)
	if err != nil {
		return nil, err
	}
	if len(plain) < 2 || !KeyKind(plain[0]).valid() {
		clear(plain)
		return nil, fmt.Errorf("%w: corrupted record for %s", ErrInvalidKind, owner)
	}
	m := &KeyMaterial{Kind: KeyKind(plain[0]), Raw: bytes.Clone(plain[1:])}
	clear(plain)
	return m, nil
}

// Delete removes owner's record. Deleting a missing record returns ErrNotFound.
func (s *Store) Delete(owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := recordID(owner)
	exists, err := s.db.Has(recKey(id))
	if err != nil {
		return fmt.Errorf("check record: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, owner)
	}
	batch := s.db.NewBatch()
	defer batch.Cancel()
	if err := batch.Delete(recKey(id)); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if err := batch.Delete(metaKey(id)); err != nil {
		return fmt.Errorf("delete metadata: %w", err)
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	log.Store.Debug().Str("owner", owner).Msg("Credential deleted")
	return nil
}

// List returns metadata for every record, sorted by owner. Nothing is decrypted.
func (s *Store) List() ([]Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Info
	err := s.db.ForEach(metaPrefix, func(_, value []byte) error {
		var info Info
		if err := json.Unmarshal(value, &info); err != nil {
			return fmt.Errorf("decode metadata: %w", err)
		}
		out = append(out, info)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Owner < out[j].Owner })
	return out, nil
}

// Close forgets the password. The underlying DB is owned by the caller.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.password)
	s.password = nil
}
