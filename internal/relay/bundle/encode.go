package bundle

import (
	"encoding/base64"

	"github.com/gagliardetto/solana-go"

	"github.com/kora-labs/relayer/internal/errors"
	"github.com/kora-labs/relayer/internal/relay/txresolve"
)

// DecodeTransaction decodes a base64-encoded wire transaction.
func DecodeTransaction(encoded string) (*solana.Transaction, error) {
	tx, err := solana.TransactionFromBase64(encoded)
	if err != nil {
		return nil, errors.Validation("decode transaction: %v", err)
	}
	return tx, nil
}

// EncodeTransaction re-encodes tx to the same base64 wire format.
func EncodeTransaction(tx *solana.Transaction) (string, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", errors.Validation("encode transaction: %v", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// EncodeAll re-encodes every resolved transaction's signed form, in order.
func EncodeAll(elements []*txresolve.ResolvedTransaction) ([]string, error) {
	out := make([]string, len(elements))
	for i, el := range elements {
		encoded, err := EncodeTransaction(el.Tx)
		if err != nil {
			return nil, err
		}
		out[i] = encoded
	}
	return out, nil
}
