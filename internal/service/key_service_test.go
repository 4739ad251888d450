package service_test

import (
	"context"
	"encoding/hex"
	"testing"

	"keypears/internal/cryptocore"
	"keypears/internal/domain"
	"keypears/internal/service"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/google/uuid"
)

func TestDeriveEngagementKeyIdempotent(t *testing.T) {
	st := newTestStore(t)
	keys := service.NewKeyService(st, newTestEntropy(t), testDomain)
	ctx := context.Background()

	vault, _ := registerVault(t, st, "alice")
	senderPub := randomPubKeyHex(t)

	first, err := keys.DeriveEngagementKey(ctx, vault, domain.PurposeReceive, "bob@other.test", senderPub)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	second, err := keys.DeriveEngagementKey(ctx, vault, domain.PurposeReceive, "bob@other.test", senderPub)
	if err != nil {
		t.Fatalf("re-derive: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected the same key on repeat derivation, got %s and %s", first.ID, second.ID)
	}
	if first.EngagementPubKey != second.EngagementPubKey {
		t.Fatalf("engagement keys differ across identical derivations")
	}

	// A different counterparty gets a different key.
	other, err := keys.DeriveEngagementKey(ctx, vault, domain.PurposeReceive, "carol@other.test", randomPubKeyHex(t))
	if err != nil {
		t.Fatalf("derive for carol: %v", err)
	}
	if other.EngagementPubKey == first.EngagementPubKey {
		t.Fatalf("distinct counterparties produced the same engagement key")
	}
}

func TestGetEngagementKeyForSendingIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	keys := service.NewKeyService(st, newTestEntropy(t), testDomain)
	ctx := context.Background()

	vault, _ := registerVault(t, st, "alice")

	first, err := keys.GetEngagementKeyForSending(ctx, vault, "bob@other.test")
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := keys.GetEngagementKeyForSending(ctx, vault, "bob@other.test")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if first.EngagementKeyID != second.EngagementKeyID {
		t.Fatalf("identical requests returned different keys: %s, %s", first.EngagementKeyID, second.EngagementKeyID)
	}
}

func TestManualKeysAreAlwaysFresh(t *testing.T) {
	st := newTestStore(t)
	keys := service.NewKeyService(st, newTestEntropy(t), testDomain)
	ctx := context.Background()

	vault, _ := registerVault(t, st, "alice")

	a, err := keys.DeriveEngagementKey(ctx, vault, domain.PurposeManual, "", "")
	if err != nil {
		t.Fatalf("first manual key: %v", err)
	}
	b, err := keys.DeriveEngagementKey(ctx, vault, domain.PurposeManual, "", "")
	if err != nil {
		t.Fatalf("second manual key: %v", err)
	}
	if a.ID == b.ID || a.EngagementPubKey == b.EngagementPubKey {
		t.Fatalf("manual keys must not be deduplicated")
	}
}

// The owner-side completion property: vault scalar plus the revealed
// derivation scalar yields the private key for the published engagement
// public key.
func TestDerivationPrivKeyCompletesToEngagementKey(t *testing.T) {
	st := newTestStore(t)
	keys := service.NewKeyService(st, newTestEntropy(t), testDomain)
	ctx := context.Background()

	vault, vaultPriv := registerVault(t, st, "alice")

	key, err := keys.DeriveEngagementKey(ctx, vault, domain.PurposeSend, "bob@other.test", "")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}

	resp, err := keys.GetDerivationPrivKey(ctx, vault, key.ID.String())
	if err != nil {
		t.Fatalf("get derivation scalar: %v", err)
	}

	raw, err := hex.DecodeString(resp.DerivationPrivKey)
	if err != nil {
		t.Fatalf("scalar hex: %v", err)
	}
	var derivScalar secp256k1.ModNScalar
	if overflow := derivScalar.SetByteSlice(raw); overflow {
		t.Fatalf("scalar out of range")
	}

	full := cryptocore.AddScalars(&vaultPriv.Key, &derivScalar)
	if got := cryptocore.PubKeyHex(cryptocore.ScalarPubKey(full)); got != key.EngagementPubKey {
		t.Fatalf("completed key %s does not match engagement key %s", got, key.EngagementPubKey)
	}
}

func TestGetDerivationPrivKeyOwnership(t *testing.T) {
	st := newTestStore(t)
	keys := service.NewKeyService(st, newTestEntropy(t), testDomain)
	ctx := context.Background()

	alice, _ := registerVault(t, st, "alice")
	mallory, _ := registerVault(t, st, "mallory")

	key, err := keys.DeriveEngagementKey(ctx, alice, domain.PurposeSend, "bob@other.test", "")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}

	_, err = keys.GetDerivationPrivKey(ctx, mallory, key.ID.String())
	wantKind(t, err, domain.KindForbidden)

	_, err = keys.GetDerivationPrivKey(ctx, alice, uuid.NewString())
	wantKind(t, err, domain.KindNotFound)
}

func TestVerifyOwnership(t *testing.T) {
	st := newTestStore(t)
	keys := service.NewKeyService(st, newTestEntropy(t), testDomain)
	ctx := context.Background()

	vault, _ := registerVault(t, st, "alice")

	key, err := keys.DeriveEngagementKey(ctx, vault, domain.PurposeSend, "bob@other.test", "")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}

	ok, err := keys.VerifyOwnership(ctx, "alice@"+testDomain, key.EngagementPubKey)
	if err != nil || !ok {
		t.Fatalf("expected ownership to verify, got ok=%v err=%v", ok, err)
	}

	ok, err = keys.VerifyOwnership(ctx, "alice@"+testDomain, randomPubKeyHex(t))
	if err != nil || ok {
		t.Fatalf("foreign key must not verify, got ok=%v err=%v", ok, err)
	}

	ok, err = keys.VerifyOwnership(ctx, "nobody@"+testDomain, key.EngagementPubKey)
	if err != nil || ok {
		t.Fatalf("unknown vault must not verify, got ok=%v err=%v", ok, err)
	}

	_, err = keys.VerifyOwnership(ctx, "alice@elsewhere.test", key.EngagementPubKey)
	wantKind(t, err, domain.KindBadRequest)
}

func randomPubKeyHex(t *testing.T) string {
	t.Helper()
	priv, err := cryptocore.GenerateVaultKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	return cryptocore.PubKeyHex(priv.PubKey())
}
