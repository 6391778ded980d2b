package txresolve

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

func buildTransferTx(t *testing.T, from, to solana.PublicKey, lamports uint64) *solana.Transaction {
	t.Helper()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(lamports, from, to).Build()},
		solana.Hash{},
		solana.TransactionPayer(from),
	)
	if err != nil {
		t.Fatalf("build transaction: %v", err)
	}
	return tx
}

func TestFastPath_UncompilesTopLevelInstructions(t *testing.T) {
	from := solana.NewWallet().PublicKey()
	to := solana.NewWallet().PublicKey()
	tx := buildTransferTx(t, from, to, 1000)

	resolved, err := FastPath(tx)
	if err != nil {
		t.Fatalf("FastPath() error: %v", err)
	}
	if len(resolved.Instructions) != 1 {
		t.Fatalf("len(Instructions) = %d, want 1", len(resolved.Instructions))
	}
	if !resolved.Instructions[0].ProgramID.Equals(solana.SystemProgramID) {
		t.Errorf("ProgramID = %s, want system program", resolved.Instructions[0].ProgramID)
	}
}

func TestFastPath_RejectsLookupTables(t *testing.T) {
	from := solana.NewWallet().PublicKey()
	to := solana.NewWallet().PublicKey()
	tx := buildTransferTx(t, from, to, 1000)
	tx.Message.AddressTableLookups = append(tx.Message.AddressTableLookups, solana.MessageAddressTableLookup{
		AccountKey: solana.NewWallet().PublicKey(),
	})

	if _, err := FastPath(tx); err == nil {
		t.Fatal("expected an error for a transaction carrying address lookup tables")
	}
}

func TestFindFeePayerSlot(t *testing.T) {
	from := solana.NewWallet().PublicKey()
	to := solana.NewWallet().PublicKey()
	tx := buildTransferTx(t, from, to, 1000)

	resolved, err := FastPath(tx)
	if err != nil {
		t.Fatalf("FastPath() error: %v", err)
	}

	slot, err := resolved.FindFeePayerSlot(from)
	if err != nil {
		t.Fatalf("FindFeePayerSlot() error: %v", err)
	}
	if slot != 0 {
		t.Errorf("slot = %d, want 0 (fee payer is the transaction payer)", slot)
	}

	if _, err := resolved.FindFeePayerSlot(solana.NewWallet().PublicKey()); err == nil {
		t.Fatal("expected an error for a public key absent from the account list")
	}
}

func TestGetOrParseSystem_CachesResult(t *testing.T) {
	from := solana.NewWallet().PublicKey()
	to := solana.NewWallet().PublicKey()
	tx := buildTransferTx(t, from, to, 1000)

	resolved, err := FastPath(tx)
	if err != nil {
		t.Fatalf("FastPath() error: %v", err)
	}

	first, err := resolved.GetOrParseSystem(0)
	if err != nil {
		t.Fatalf("GetOrParseSystem() error: %v", err)
	}
	if first == nil {
		t.Fatal("expected a parsed system transfer, got nil")
	}
	if first.Lamports != 1000 {
		t.Errorf("Lamports = %d, want 1000", first.Lamports)
	}

	second, err := resolved.GetOrParseSystem(0)
	if err != nil {
		t.Fatalf("GetOrParseSystem() second call error: %v", err)
	}
	if second != first {
		t.Error("expected the cached pointer to be returned on the second call")
	}
}

type fakeLookupTables struct {
	addresses map[solana.PublicKey][]solana.PublicKey
}

func (f *fakeLookupTables) Resolve(_ context.Context, table solana.PublicKey) ([]solana.PublicKey, error) {
	return f.addresses[table], nil
}

type fakeSimulator struct {
	result *SimulationResult
}

func (f *fakeSimulator) Simulate(_ context.Context, _ *solana.Transaction) (*SimulationResult, error) {
	return f.result, nil
}

func TestConstruct_ExpandsLookupTableIndices(t *testing.T) {
	from := solana.NewWallet().PublicKey()
	to := solana.NewWallet().PublicKey()
	tx := buildTransferTx(t, from, to, 1000)

	extra := solana.NewWallet().PublicKey()
	table := solana.NewWallet().PublicKey()
	tx.Message.AddressTableLookups = []solana.MessageAddressTableLookup{
		{AccountKey: table, WritableIndexes: []uint8{0}},
	}

	r := New(
		&fakeLookupTables{addresses: map[solana.PublicKey][]solana.PublicKey{table: {extra}}},
		&fakeSimulator{result: &SimulationResult{}},
	)

	resolved, err := r.Construct(context.Background(), tx)
	if err != nil {
		t.Fatalf("Construct() error: %v", err)
	}

	found := false
	for _, k := range resolved.AllAccountKeys {
		if k.Equals(extra) {
			found = true
		}
	}
	if !found {
		t.Error("expected the lookup table's resolved address to appear in AllAccountKeys")
	}
}

func TestConstruct_FailsOnSimulationError(t *testing.T) {
	from := solana.NewWallet().PublicKey()
	to := solana.NewWallet().PublicKey()
	tx := buildTransferTx(t, from, to, 1000)

	r := New(
		&fakeLookupTables{},
		&fakeSimulator{result: &SimulationResult{Err: "custom program error: 0x1", Logs: []string{"log line"}}},
	)

	if _, err := r.Construct(context.Background(), tx); err == nil {
		t.Fatal("expected a SimulationFailed error")
	}
}
