package cli

import (
	"bytes"
	"context"
	"io"
	"log"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/service"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/store/memory"
	"github.com/BrandonDHaskell/Custos/server/internal/grpcapi"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "custosctl", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	paths := [][]string{
		{"hash"},
		{"record", "store"}, {"record", "update"}, {"record", "get"}, {"record", "lock"},
		{"record", "archive"}, {"record", "revision"}, {"record", "latest-revision"},
		{"record", "log-access"}, {"record", "owned"}, {"record", "custody"},
		{"owner", "bind"}, {"owner", "get"},
		{"grant", "add"}, {"grant", "group"}, {"grant", "revoke"}, {"grant", "get"}, {"grant", "list"},
		{"access"},
		{"group", "create"}, {"group", "show"}, {"group", "add"}, {"group", "remove"}, {"group", "is-member"},
		{"admin", "claim"}, {"admin", "settings"}, {"admin", "max-grants"}, {"admin", "audit"},
		{"audit", "list"}, {"audit", "get"}, {"audit", "append"},
		{"config", "init"}, {"config", "show"},
	}

	for _, path := range paths {
		t.Run(strings.Join(path, "_"), func(t *testing.T) {
			sub, _, err := cmd.Find(path)
			require.NoError(t, err)
			assert.Equal(t, path[len(path)-1], sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	addr := cmd.PersistentFlags().Lookup("addr")
	require.NotNil(t, addr)
	assert.Equal(t, "localhost:9090", addr.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("as"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("at"))
}

func TestInvalidFormat(t *testing.T) {
	_, err := runCLI(t, nil, "--format", "xml", "admin", "settings")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

// ── End to end over an in-memory gRPC listener ──────────────────────────

func newTestConn(t *testing.T) grpc.ClientConnInterface {
	t.Helper()

	srv := grpcapi.NewServer(grpcapi.Dependencies{
		Logger: log.New(io.Discard, "", 0),
		Ledger: service.NewLedger(memory.New(), service.DefaultPolicy()),
	})
	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.GRPCServer().Serve(lis) }()
	t.Cleanup(srv.GRPCServer().Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func runCLI(t *testing.T, conn grpc.ClientConnInterface, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := newRootCommand(&RootOptions{Conn: conn})
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

const (
	hexA = "0101010101010101010101010101010101010101010101010101010101010101"
	hexB = "0202020202020202020202020202020202020202020202020202020202020202"
)

func TestRecordAndGrantFlow(t *testing.T) {
	conn := newTestConn(t)

	out, err := runCLI(t, conn, "--as", "dr-jones", "--at", "10", "record", "store",
		"--owner", "patient-7", "--kind", "lab-result",
		"--content-hash", hexA, "--key-hash", hexB, "--metadata", "CBC panel")
	require.NoError(t, err)
	assert.Equal(t, "id: 1\n", out)

	out, err = runCLI(t, conn, "--format", "json", "record", "get", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `"content_hash": "`+hexA+`"`)
	assert.Contains(t, out, `"custodian": "dr-jones"`)

	_, err = runCLI(t, conn, "--as", "patient-7", "--at", "11", "owner", "bind", "1")
	require.NoError(t, err)

	_, err = runCLI(t, conn, "--as", "patient-7", "--at", "12", "grant", "add", "1", "dr-who",
		"--type", "temporary", "--expiry", "20", "--reason", "second opinion", "--level", "1")
	require.NoError(t, err)

	out, err = runCLI(t, conn, "--at", "20", "access", "1", "dr-who")
	require.NoError(t, err)
	assert.Contains(t, out, "granted: true\n")

	out, err = runCLI(t, conn, "--at", "21", "access", "1", "dr-who")
	require.NoError(t, err)
	assert.Contains(t, out, "granted: false\n")
}

func TestRejectedCallExitCode(t *testing.T) {
	conn := newTestConn(t)

	_, err := runCLI(t, conn, "--as", "mallory", "grant", "revoke", "1", "bob")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "NOT_OWNER")
}

func TestBadArgumentExitCode(t *testing.T) {
	conn := newTestConn(t)

	_, err := runCLI(t, conn, "record", "get", "one")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = runCLI(t, conn, "record", "store", "--content-hash", "abc", "--content-hash-file", "x")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestAdminAndAuditCommands(t *testing.T) {
	conn := newTestConn(t)

	_, err := runCLI(t, conn, "--as", "ops", "admin", "claim")
	require.NoError(t, err)
	_, err = runCLI(t, conn, "--as", "ops", "admin", "max-grants", "3")
	require.NoError(t, err)

	out, err := runCLI(t, conn, "admin", "settings")
	require.NoError(t, err)
	assert.Contains(t, out, "admin: ops\n")
	assert.Contains(t, out, "max_grants_per_record: 3\n")

	_, err = runCLI(t, conn, "--as", "ops", "admin", "audit", "maybe")
	require.Error(t, err)

	out, err = runCLI(t, conn, "--as", "ops", "audit", "append", "backup-verified", "--details", "nightly")
	require.NoError(t, err)
	assert.Contains(t, out, "recorded: true\n")

	out, err = runCLI(t, conn, "--format", "json", "audit", "list", "--action", "backup-verified")
	require.NoError(t, err)
	assert.Contains(t, out, `"details": "nightly"`)
}
