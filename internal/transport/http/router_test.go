package http_test

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"keypears/internal/cryptocore"
	"keypears/internal/dto"
	"keypears/internal/entropy"
	"keypears/internal/federation"
	"keypears/internal/pow"
	"keypears/internal/service"
	"keypears/internal/store"
	transport "keypears/internal/transport/http"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testLoginKey = "4d795365637265744b65794d795365637265744b65794d795365637265742121"

var dbSeq atomic.Int64

// testServer is a complete keypears node listening on a loopback port. Its
// federated domain is the host:port of the listener, so two nodes in one
// test can verify each other over real HTTP.
type testServer struct {
	ts     *httptest.Server
	domain string
	store  *store.Store
}

func newServer(t *testing.T) *testServer {
	t.Helper()

	dsn := fmt.Sprintf("file:transport%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	st := store.New(db)
	if err := st.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	ent, err := entropy.Parse(strings.Repeat("42", 32))
	if err != nil {
		t.Fatalf("entropy: %v", err)
	}

	// The router needs the advertised API URL, which is only known once the
	// listener exists, so the handler is swapped in after the fact.
	var router http.Handler
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)
	domain := strings.TrimPrefix(ts.URL, "http://")

	hasher := service.NewLoginKeyHasher()
	pows := service.NewPowService(st, pow.Pow64b, 10*time.Minute, 1)
	keys := service.NewKeyService(st, ent, domain)
	fed := federation.NewClient(2*time.Second, "http")
	svc := transport.Services{
		Vaults:   service.NewVaultService(st, hasher, domain),
		Sessions: service.NewSessionService(st, hasher, time.Hour),
		Pow:      pows,
		Keys:     keys,
		Exchange: service.NewExchangeService(st, pows, keys, fed, domain, 2*time.Second, 1),
		Messages: service.NewMessageService(st, domain),
	}
	router = transport.NewRouter(svc, ts.URL+"/api")

	return &testServer{ts: ts, domain: domain, store: st}
}

// rpc POSTs a procedure call and decodes the response, failing the test on
// any status other than wantStatus.
func (s *testServer) rpc(t *testing.T, proc, token string, req, resp any, wantStatus int) {
	t.Helper()

	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal %s request: %v", proc, err)
	}
	httpReq, err := http.NewRequest(http.MethodPost, s.ts.URL+"/api/"+proc, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build %s request: %v", proc, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if token != "" {
		httpReq.Header.Set(transport.SessionTokenHeader, token)
	}
	res, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		t.Fatalf("%s: %v", proc, err)
	}
	defer res.Body.Close()

	if res.StatusCode != wantStatus {
		raw, _ := io.ReadAll(res.Body)
		t.Fatalf("%s: status %d, want %d: %s", proc, res.StatusCode, wantStatus, raw)
	}
	if resp != nil {
		if err := json.NewDecoder(res.Body).Decode(resp); err != nil {
			t.Fatalf("decode %s response: %v", proc, err)
		}
	}
}

func (s *testServer) register(t *testing.T, name string) (string, *secp256k1.PrivateKey) {
	t.Helper()

	priv, err := cryptocore.GenerateVaultKeypair()
	if err != nil {
		t.Fatalf("keypair: %v", err)
	}
	var resp dto.RegisterVaultResponse
	s.rpc(t, "registerVault", "", dto.RegisterVaultRequest{
		Name:              name,
		VaultPubKey:       cryptocore.PubKeyHex(priv.PubKey()),
		LoginKey:          testLoginKey,
		EncryptedVaultKey: []byte("ciphertext"),
	}, &resp, http.StatusOK)
	return resp.VaultID, priv
}

func (s *testServer) login(t *testing.T, vaultID string) string {
	t.Helper()

	var resp dto.LoginResponse
	s.rpc(t, "login", "", dto.LoginRequest{
		VaultID:  vaultID,
		LoginKey: testLoginKey,
		DeviceID: "test-device",
	}, &resp, http.StatusOK)
	return resp.SessionToken
}

// solvePow fetches a challenge from the server and mines it.
func (s *testServer) solvePow(t *testing.T) (challengeID string, solved, hash []byte) {
	t.Helper()

	var c dto.GetPowChallengeResponse
	s.rpc(t, "getPowChallenge", "", dto.GetPowChallengeRequest{}, &c, http.StatusOK)

	alg, err := pow.ParseAlgorithm(c.Algorithm)
	if err != nil {
		t.Fatalf("algorithm: %v", err)
	}
	header, h, ok := pow.Mine(alg, c.Header, c.Target, 2_000_000)
	if !ok {
		t.Fatalf("mining failed at difficulty %d", c.Difficulty)
	}
	return c.ChallengeID, header, h[:]
}

// TestFederatedMessageFlow walks the whole protocol across two independent
// servers: bob (on server B) performs a key exchange with alice (on server
// A) and delivers a message, with A verifying bob's key ownership against B
// over HTTP.
func TestFederatedMessageFlow(t *testing.T) {
	serverA := newServer(t)
	serverB := newServer(t)

	aliceID, _ := serverA.register(t, "alice")
	bobID, bobPriv := serverB.register(t, "bob")

	aliceAddr := "alice@" + serverA.domain
	bobAddr := "bob@" + serverB.domain

	// Bob prepares his side on his own server.
	bobToken := serverB.login(t, bobID)
	var sendKey dto.GetEngagementKeyForSendingResponse
	serverB.rpc(t, "getEngagementKeyForSending", bobToken,
		dto.GetEngagementKeyForSendingRequest{CounterpartyAddress: aliceAddr}, &sendKey, http.StatusOK)

	var scalarResp dto.GetDerivationPrivKeyResponse
	serverB.rpc(t, "getDerivationPrivKey", bobToken,
		dto.GetDerivationPrivKeyRequest{EngagementKeyID: sendKey.EngagementKeyID}, &scalarResp, http.StatusOK)

	raw, err := hex.DecodeString(scalarResp.DerivationPrivKey)
	if err != nil {
		t.Fatalf("scalar hex: %v", err)
	}
	var derivScalar secp256k1.ModNScalar
	derivScalar.SetByteSlice(raw)
	engagementPriv := secp256k1.NewPrivateKey(cryptocore.AddScalars(&bobPriv.Key, &derivScalar))
	if got := cryptocore.PubKeyHex(engagementPriv.PubKey()); got != sendKey.EngagementPubKey {
		t.Fatalf("completed private key %s does not match published key %s", got, sendKey.EngagementPubKey)
	}

	// Bob spends a proof-of-work on alice's server for her receiving key.
	// Server A calls back to server B to check bob really owns his key.
	challengeID, solved, hash := serverA.solvePow(t)
	var exResp dto.GetCounterpartyEngagementKeyResponse
	serverA.rpc(t, "getCounterpartyEngagementKey", "", dto.GetCounterpartyEngagementKeyRequest{
		RecipientAddress: aliceAddr,
		SenderAddress:    bobAddr,
		SenderPubKey:     sendKey.EngagementPubKey,
		PowChallengeID:   challengeID,
		SolvedHeader:     solved,
		SolvedHash:       hash,
		Signature:        hex.EncodeToString(cryptocore.SignHash(engagementPriv, hash)),
	}, &exResp, http.StatusOK)
	if exResp.EngagementPubKey == "" {
		t.Fatalf("no receiving key returned")
	}

	var sent dto.SendMessageResponse
	serverA.rpc(t, "sendMessage", "", dto.SendMessageRequest{
		SenderAddress:    bobAddr,
		RecipientAddress: aliceAddr,
		SenderPubKey:     sendKey.EngagementPubKey,
		RecipientPubKey:  exResp.EngagementPubKey,
		PowChallengeID:   challengeID,
		EncryptedContent: []byte("sealed payload"),
	}, &sent, http.StatusOK)
	if sent.OrderInChannel != 1 {
		t.Fatalf("first message got order %d", sent.OrderInChannel)
	}

	// Alice reads it.
	aliceToken := serverA.login(t, aliceID)
	var channels dto.GetChannelsResponse
	serverA.rpc(t, "getChannels", aliceToken, struct{}{}, &channels, http.StatusOK)
	if len(channels.Channels) != 1 || channels.Channels[0].CounterpartyAddress != bobAddr {
		t.Fatalf("unexpected channels: %+v", channels.Channels)
	}

	var msgs dto.GetChannelMessagesResponse
	serverA.rpc(t, "getChannelMessages", aliceToken,
		dto.GetChannelMessagesRequest{ChannelID: channels.Channels[0].ChannelID}, &msgs, http.StatusOK)
	if len(msgs.Messages) != 1 || string(msgs.Messages[0].EncryptedContent) != "sealed payload" {
		t.Fatalf("unexpected messages: %+v", msgs.Messages)
	}
}

func TestAuthenticatedProceduresRejectMissingToken(t *testing.T) {
	s := newServer(t)

	for _, proc := range []string{"getChannels", "getEngagementKeyForSending", "getDerivationPrivKey", "markMessagesRead"} {
		s.rpc(t, proc, "", struct{}{}, nil, http.StatusUnauthorized)
	}
}

func TestLogoutIsIdempotentOverHTTP(t *testing.T) {
	s := newServer(t)

	vaultID, _ := s.register(t, "alice")
	token := s.login(t, vaultID)

	var out dto.LogoutResponse
	s.rpc(t, "logout", token, struct{}{}, &out, http.StatusOK)
	if !out.LoggedOut {
		t.Fatalf("first logout: %+v", out)
	}

	// The token is dead for authenticated procedures.
	s.rpc(t, "getChannels", token, struct{}{}, nil, http.StatusUnauthorized)

	// Repeating logout with the dead token still succeeds.
	s.rpc(t, "logout", token, struct{}{}, &out, http.StatusOK)
	if !out.LoggedOut {
		t.Fatalf("second logout: %+v", out)
	}

	// As does logout with no token at all.
	s.rpc(t, "logout", "", struct{}{}, &out, http.StatusOK)
	if !out.LoggedOut {
		t.Fatalf("tokenless logout: %+v", out)
	}
}

func TestDiscoveryDocument(t *testing.T) {
	s := newServer(t)

	res, err := http.Get(s.ts.URL + federation.WellKnownPath)
	if err != nil {
		t.Fatalf("fetch discovery doc: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}

	var doc federation.Document
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Version != 1 || doc.APIURL != s.ts.URL+"/api" {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestHealthAndErrorShape(t *testing.T) {
	s := newServer(t)

	res, err := http.Get(s.ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", res.StatusCode)
	}

	// Errors carry a machine-readable kind.
	req, _ := http.NewRequest(http.MethodPost, s.ts.URL+"/api/checkNameAvailability",
		strings.NewReader(`{"name":"Not Valid"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("rpc: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", resp.StatusCode)
	}
	var body struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Kind != "bad_request" || body.Error == "" {
		t.Fatalf("unexpected error body: %+v", body)
	}
}
