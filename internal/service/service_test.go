package service_test

import (
	"context"
	"strings"
	"testing"

	"keypears/internal/cryptocore"
	"keypears/internal/domain"
	"keypears/internal/dto"
	"keypears/internal/entropy"
	"keypears/internal/service"
	"keypears/internal/store"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testDomain = "pears.test"

// testLoginKey stands in for the output of the client-side KDF.
const testLoginKey = "4d795365637265744b65794d795365637265744b65794d79536563726574214d" +
	"79536563726574"

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// One connection keeps concurrent test writers from tripping over
	// sqlite's locking.
	sqlDB.SetMaxOpenConns(1)

	st := store.New(db)
	if err := st.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return st
}

func newTestEntropy(t *testing.T) *entropy.Store {
	t.Helper()
	ent, err := entropy.Parse(strings.Repeat("11", 32) + "," + strings.Repeat("22", 32))
	if err != nil {
		t.Fatalf("parse entropy: %v", err)
	}
	return ent
}

// registerVault creates a vault with a fresh keypair and returns it together
// with the vault private key the "client" would keep.
func registerVault(t *testing.T, st *store.Store, name string) (*domain.Vault, *secp256k1.PrivateKey) {
	t.Helper()

	priv, err := cryptocore.GenerateVaultKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	svc := service.NewVaultService(st, service.NewLoginKeyHasher(), testDomain)
	resp, err := svc.Register(context.Background(), dto.RegisterVaultRequest{
		Name:              name,
		VaultPubKey:       cryptocore.PubKeyHex(priv.PubKey()),
		LoginKey:          testLoginKey,
		EncryptedVaultKey: []byte("ciphertext"),
	})
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}

	id, err := uuid.Parse(resp.VaultID)
	if err != nil {
		t.Fatalf("vault id: %v", err)
	}
	vault, err := st.Vaults().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load vault: %v", err)
	}
	return vault, priv
}

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	if err != nil {
		t.Fatalf("parse uuid %q: %v", s, err)
	}
	return id
}

func wantKind(t *testing.T, err error, kind domain.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := domain.KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s: %v", kind, got, err)
	}
}
