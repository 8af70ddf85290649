package service_test

import (
	"testing"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/service"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/store/memory"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

const (
	alice types.PrincipalID = "alice"
	bob   types.PrincipalID = "bob"
	carol types.PrincipalID = "carol"
	dave  types.PrincipalID = "dave"
)

// newTestLedger builds a Ledger over a fresh in-memory store.
func newTestLedger(t *testing.T, mutate ...func(*service.Policy)) (*service.Ledger, *memory.Store) {
	t.Helper()

	p := service.DefaultPolicy()
	for _, m := range mutate {
		m(&p)
	}
	st := memory.New()
	t.Cleanup(func() { st.Close() })
	return service.NewLedger(st, p), st
}

func call(p types.PrincipalID, now types.LogicalTime) types.Call {
	return types.Call{Caller: p, Now: now}
}

// hashOf returns a non-zero digest filled with b.
func hashOf(b byte) types.Hash {
	var h types.Hash
	for i := range h {
		h[i] = b
	}
	return h
}

func at(t types.LogicalTime) *types.LogicalTime { return &t }

func storeReq(owner types.PrincipalID) types.StoreRecordRequest {
	return types.StoreRecordRequest{
		Owner:       owner,
		Kind:        types.KindConsultation,
		ContentHash: hashOf(1),
		KeyHash:     hashOf(2),
		Metadata:    "follow-up visit",
	}
}
