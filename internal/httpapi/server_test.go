package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/service"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/store"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/store/memory"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
	"github.com/BrandonDHaskell/Custos/server/internal/httpapi"
	"github.com/BrandonDHaskell/Custos/server/internal/wire"
)

const zeros31 = "00000000000000000000000000000000000000000000000000000000000000"

// newTestServer wires up the full dependency graph over an in-memory store
// and returns an httptest.Server whose URL can be hit with a plain
// http.Client.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return newTestServerOver(t, memory.New())
}

// newTestServerOver bootstraps a fresh ledger over st, as a restarted
// process would.
func newTestServerOver(t *testing.T, st store.Store) *httptest.Server {
	t.Helper()

	ledger := service.NewLedger(st, service.DefaultPolicy())
	_, err := ledger.Bootstrap(context.Background(), "")
	require.NoError(t, err)

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger: log.New(io.Discard, "", 0),
		Addr:   ":0",
		Ledger: ledger,
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"error"`
}

// do sends a JSON request as principal at logical time now and decodes the
// response into out when out is non-nil.
func do(t *testing.T, ts *httptest.Server, method, path string, principal types.PrincipalID, now uint64, body any, out any) *http.Response {
	t.Helper()

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if principal != "" {
		req.Header.Set("X-Custos-Principal", string(principal))
	}
	if now != 0 {
		req.Header.Set("X-Custos-Time", strconv.FormatUint(now, 10))
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func storeBody(owner string) map[string]any {
	return map[string]any{
		"owner":        owner,
		"kind":         "lab-result",
		"content_hash": "01" + zeros31,
		"key_hash":     "02" + zeros31,
		"metadata":     "lipid panel",
	}
}

// ── Records ──────────────────────────────────────────────────────────────────

func TestStoreAndGetRecord(t *testing.T) {
	ts := newTestServer(t)

	var created types.IDResponse
	resp := do(t, ts, http.MethodPost, "/v1/records", "bob", 5, storeBody("alice"), &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, uint64(1), created.ID)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var rec store.Record
	resp = do(t, ts, http.MethodGet, "/v1/records/1", "", 0, nil, &rec)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, types.PrincipalID("alice"), rec.Owner)
	assert.Equal(t, types.PrincipalID("bob"), rec.Custodian)
	assert.Equal(t, types.KindLabResult, rec.Kind)
	assert.Equal(t, types.LogicalTime(5), rec.CreatedAt)
	assert.Equal(t, byte(0x01), rec.ContentHash[0])

	var owned struct {
		Records []uint64 `json:"records"`
	}
	do(t, ts, http.MethodGet, "/v1/owners/alice/records", "", 0, nil, &owned)
	assert.Equal(t, []uint64{1}, owned.Records)
}

func TestStoreRecord_InvalidHash(t *testing.T) {
	ts := newTestServer(t)

	body := storeBody("alice")
	body["content_hash"] = ""

	var env errorEnvelope
	resp := do(t, ts, http.MethodPost, "/v1/records", "bob", 1, body, &env)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)
	assert.Equal(t, "content_hash", env.Error.Field)
}

func TestStoreRecord_UnknownField(t *testing.T) {
	ts := newTestServer(t)

	body := storeBody("alice")
	body["colour"] = "red"

	var env errorEnvelope
	resp := do(t, ts, http.MethodPost, "/v1/records", "bob", 1, body, &env)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "BAD_JSON", env.Error.Code)
}

func TestUpdateLockArchive(t *testing.T) {
	ts := newTestServer(t)
	do(t, ts, http.MethodPost, "/v1/records", "bob", 1, storeBody("alice"), nil)

	update := map[string]any{"content_hash": "03" + zeros31, "key_hash": "04" + zeros31, "change_note": "amended"}

	var rev types.IDResponse
	resp := do(t, ts, http.MethodPut, "/v1/records/1/hash", "bob", 2, update, &rev)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, uint64(1), rev.ID)

	var latest types.IDResponse
	do(t, ts, http.MethodGet, "/v1/records/1/revisions/latest", "", 0, nil, &latest)
	assert.Equal(t, uint64(1), latest.ID)

	var snap store.Revision
	resp = do(t, ts, http.MethodGet, "/v1/records/1/revisions/1", "", 0, nil, &snap)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "amended", snap.ChangeNote)
	assert.Equal(t, byte(0x01), snap.ContentHash[0])

	var env errorEnvelope
	resp = do(t, ts, http.MethodPut, "/v1/records/1/hash", "alice", 3, update, &env)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "ACCESS_DENIED", env.Error.Code)

	resp = do(t, ts, http.MethodPost, "/v1/records/1/lock", "alice", 3, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, ts, http.MethodPut, "/v1/records/1/hash", "bob", 4, update, &env)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "LOCKED", env.Error.Code)

	resp = do(t, ts, http.MethodPost, "/v1/records/1/archive", "alice", 5, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, ts, http.MethodPost, "/v1/records/1/archive", "alice", 6, nil, &env)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_STATUS", env.Error.Code)
}

func TestGetRecord_NotFoundAndBadID(t *testing.T) {
	ts := newTestServer(t)

	var env errorEnvelope
	resp := do(t, ts, http.MethodGet, "/v1/records/9", "", 0, nil, &env)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "record_id", env.Error.Field)

	resp = do(t, ts, http.MethodGet, "/v1/records/nine", "", 0, nil, &env)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "id", env.Error.Field)
}

func TestLogAccess(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, ts, http.MethodPost, "/v1/records/3/access-log", "carol", 7, map[string]any{"access_type": "view"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ind store.AccessIndicator
	resp = do(t, ts, http.MethodGet, "/v1/records/3/access-log/carol", "", 0, nil, &ind)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "view", ind.AccessType)
	assert.Equal(t, types.LogicalTime(7), ind.AccessedAt)
}

// ── Grants ───────────────────────────────────────────────────────────────────

func TestGrantLifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, ts, http.MethodPost, "/v1/records/7/owner", "alice", 10, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env errorEnvelope
	resp = do(t, ts, http.MethodPost, "/v1/records/7/owner", "bob", 10, nil, &env)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "ALREADY_OWNED", env.Error.Code)

	grant := map[string]any{"grantee": "bob", "grant_type": "temporary", "expiry": 20, "reason": "follow-up", "level": 1}
	resp = do(t, ts, http.MethodPost, "/v1/records/7/grants", "alice", 10, grant, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var access types.AccessResponse
	do(t, ts, http.MethodGet, "/v1/records/7/access/bob", "", 20, nil, &access)
	assert.True(t, access.Granted)
	assert.Equal(t, types.LogicalTime(20), access.At)

	do(t, ts, http.MethodGet, "/v1/records/7/access/bob", "", 21, nil, &access)
	assert.False(t, access.Granted)

	resp = do(t, ts, http.MethodPost, "/v1/records/7/grants", "alice", 21, grant, &env)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "expiry now lies in the past")
	assert.Equal(t, "expiry", env.Error.Field)

	resp = do(t, ts, http.MethodDelete, "/v1/records/7/grants/bob", "alice", 22, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, ts, http.MethodDelete, "/v1/records/7/grants/bob", "alice", 23, nil, &env)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "ALREADY_REVOKED", env.Error.Code)

	var g store.Grant
	do(t, ts, http.MethodGet, "/v1/records/7/grants/bob", "", 0, nil, &g)
	assert.True(t, g.Revoked)
	require.NotNil(t, g.RevokedAt)
	assert.Equal(t, types.LogicalTime(22), *g.RevokedAt)
}

func TestGrantAccess_NotOwner(t *testing.T) {
	ts := newTestServer(t)

	var env errorEnvelope
	grant := map[string]any{"grantee": "bob", "grant_type": "individual", "reason": "x", "level": 0}
	resp := do(t, ts, http.MethodPost, "/v1/records/7/grants", "mallory", 1, grant, &env)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "NOT_OWNER", env.Error.Code)
}

func TestTimeHeader_StaleTimeRejected(t *testing.T) {
	ts := newTestServer(t)

	do(t, ts, http.MethodPost, "/v1/records/7/owner", "alice", 100, nil, nil)

	var env errorEnvelope
	resp := do(t, ts, http.MethodGet, "/v1/records/7/access/bob", "", 50, nil, &env)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)
	assert.Equal(t, "x-custos-time", env.Error.Field)

	// Omitted time runs at the clock mark.
	var access types.AccessResponse
	do(t, ts, http.MethodGet, "/v1/records/7/access/bob", "", 0, nil, &access)
	assert.Equal(t, types.LogicalTime(100), access.At)
}

func TestTimeHeader_MarkSurvivesRestart(t *testing.T) {
	st := memory.New()
	ts := newTestServerOver(t, st)

	do(t, ts, http.MethodPost, "/v1/records/7/owner", "alice", 10, nil, nil)
	grant := map[string]any{"grantee": "bob", "grant_type": "temporary", "expiry": 20, "reason": "follow-up", "level": 1}
	require.Equal(t, http.StatusCreated, do(t, ts, http.MethodPost, "/v1/records/7/grants", "alice", 10, grant, nil).StatusCode)

	var access types.AccessResponse
	do(t, ts, http.MethodGet, "/v1/records/7/access/bob", "", 21, nil, &access)
	require.False(t, access.Granted)

	restarted := newTestServerOver(t, st)
	do(t, restarted, http.MethodGet, "/v1/records/7/access/bob", "", 0, nil, &access)
	assert.False(t, access.Granted)
	assert.Equal(t, types.LogicalTime(21), access.At)

	var env errorEnvelope
	resp := do(t, restarted, http.MethodGet, "/v1/records/7/access/bob", "", 20, nil, &env)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "x-custos-time", env.Error.Field)
}

func TestTimeHeader_Malformed(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/v1/records/7/access/bob", nil)
	require.NoError(t, err)
	req.Header.Set("X-Custos-Time", "yesterday")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// ── Groups ───────────────────────────────────────────────────────────────────

func TestGroupMembership(t *testing.T) {
	ts := newTestServer(t)

	var created types.IDResponse
	resp := do(t, ts, http.MethodPost, "/v1/groups", "carol", 1, map[string]any{"name": "radiology"}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	path := "/v1/groups/" + strconv.FormatUint(created.ID, 10) + "/members/bob"

	var env errorEnvelope
	resp = do(t, ts, http.MethodPut, path, "bob", 2, nil, &env)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "NOT_CREATOR", env.Error.Code)

	resp = do(t, ts, http.MethodPut, path, "carol", 2, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var m types.MembershipResponse
	do(t, ts, http.MethodGet, path, "", 0, nil, &m)
	assert.True(t, m.IsMember)

	var g struct {
		Name    string              `json:"name"`
		Creator types.PrincipalID   `json:"creator"`
		Members []types.PrincipalID `json:"members"`
	}
	do(t, ts, http.MethodGet, "/v1/groups/"+strconv.FormatUint(created.ID, 10), "", 0, nil, &g)
	assert.Equal(t, "radiology", g.Name)
	assert.Equal(t, []types.PrincipalID{"bob"}, g.Members)

	resp = do(t, ts, http.MethodDelete, path, "carol", 3, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	do(t, ts, http.MethodGet, path, "", 0, nil, &m)
	assert.False(t, m.IsMember)
}

// ── Admin and audit ──────────────────────────────────────────────────────────

func TestAdminAndAudit(t *testing.T) {
	ts := newTestServer(t)

	var env errorEnvelope
	resp := do(t, ts, http.MethodPut, "/v1/admin/max-grants", "dave", 1, map[string]any{"max_grants": 1}, &env)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "NOT_ADMIN", env.Error.Code)

	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPost, "/v1/admin/claim", "dave", 1, nil, nil).StatusCode)
	require.Equal(t, http.StatusOK, do(t, ts, http.MethodPut, "/v1/admin/max-grants", "dave", 2, map[string]any{"max_grants": 1}, nil).StatusCode)

	var settings store.Settings
	do(t, ts, http.MethodGet, "/v1/admin/settings", "", 0, nil, &settings)
	assert.Equal(t, store.Settings{Admin: "dave", MaxGrantsPerRecord: 1, AuditEnabled: true}, settings)

	do(t, ts, http.MethodPost, "/v1/records/7/owner", "alice", 3, nil, nil)
	grant := func(grantee string) map[string]any {
		return map[string]any{"grantee": grantee, "grant_type": "individual", "reason": "care team", "level": 2}
	}
	require.Equal(t, http.StatusCreated, do(t, ts, http.MethodPost, "/v1/records/7/grants", "alice", 4, grant("bob"), nil).StatusCode)

	resp = do(t, ts, http.MethodPost, "/v1/records/7/grants", "alice", 5, grant("carol"), &env)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "LIMIT_EXCEEDED", env.Error.Code)

	var entries struct {
		Entries []store.AuditEntry `json:"entries"`
	}
	do(t, ts, http.MethodGet, "/v1/audit?record_id=7", "", 0, nil, &entries)
	require.Len(t, entries.Entries, 2)
	assert.Equal(t, "owner-bound", entries.Entries[0].Action)
	assert.Equal(t, "access-granted", entries.Entries[1].Action)

	var appended struct {
		ID       uint64 `json:"id"`
		Recorded bool   `json:"recorded"`
	}
	resp = do(t, ts, http.MethodPost, "/v1/audit", "erin", 6, map[string]any{"action": "exported", "record_id": 7}, &appended)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, appended.Recorded)

	var e store.AuditEntry
	do(t, ts, http.MethodGet, "/v1/audit/"+strconv.FormatUint(appended.ID, 10), "", 0, nil, &e)
	assert.Equal(t, "exported", e.Action)
	assert.Equal(t, types.PrincipalID("erin"), e.Actor)

	do(t, ts, http.MethodGet, "/v1/audit?after=1&limit=1", "", 0, nil, &entries)
	require.Len(t, entries.Entries, 1)
	assert.Equal(t, uint64(2), entries.Entries[0].ID)
}

// ── Protobuf bodies ──────────────────────────────────────────────────────────

func TestProtobufRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	body, err := wire.Marshal(map[string]any{"name": "pathology"})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/groups", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-protobuf")
	req.Header.Set("X-Custos-Principal", "carol")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/x-protobuf", resp.Header.Get("Content-Type"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out types.IDResponse
	require.NoError(t, wire.Unmarshal(data, &out))
	assert.Equal(t, uint64(1), out.ID)
}

func TestOversizedBody(t *testing.T) {
	ts := newTestServer(t)
	huge := map[string]any{"name": strings.Repeat("a", 20<<10)}

	jsonBody, err := json.Marshal(huge)
	require.NoError(t, err)
	protoBody, err := wire.Marshal(huge)
	require.NoError(t, err)

	for ct, body := range map[string][]byte{
		"application/json":       jsonBody,
		"application/x-protobuf": protoBody,
	} {
		t.Run(ct, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/groups", bytes.NewReader(body))
			require.NoError(t, err)
			req.Header.Set("Content-Type", ct)
			req.Header.Set("Accept", "application/json")
			req.Header.Set("X-Custos-Principal", "carol")

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
		})
	}
}

func TestRequestID(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	_, err = uuid.Parse(resp.Header.Get("X-Request-ID"))
	assert.NoError(t, err, "assigned id is a UUID")

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "trace-42")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "trace-42", resp.Header.Get("X-Request-ID"))
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
