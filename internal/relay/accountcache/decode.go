// Package accountcache is the one RPC-backed account/mint reader the
// fee engine, validator, and payment detector all resolve against: a
// single read-through cache in front of getAccountInfo, decoding raw
// SPL Token and Token-2022 account/mint state by hand since no
// library in reach of this module exposes the Token-2022 extension
// TLV layout.
package accountcache

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"github.com/kora-labs/relayer/internal/errors"
	"github.com/kora-labs/relayer/internal/relay/tokenfee"
)

const (
	tokenAccountLen = 165
	tokenMintLen    = 82

	extensionTypeOffset = tokenAccountLen // account-type discriminator byte, same index for accounts and mints
	extensionTLVStart   = extensionTypeOffset + 1

	extTypeTransferFeeConfig    = 1
	extTypeNonTransferable      = 9
	extTypeCPIGuard             = 11
	extTypeNonTransferableAcct  = 13
	extTypePermanentDelegate    = 12
)

// extensionNames maps the extension type IDs this relayer cares about
// to the names an operator's blocked_account_extensions /
// blocked_mint_extensions list would name them by.
var extensionNames = map[uint16]string{
	extTypeNonTransferable:     "non_transferable",
	extTypeCPIGuard:            "cpi_guard",
	extTypeNonTransferableAcct: "non_transferable_account",
	extTypePermanentDelegate:   "permanent_delegate",
}

const programNameToken, programNameToken2022 = "token", "token-2022"

// decodedAccount is a token account's decoded wallet-facing state.
type decodedAccount struct {
	owner          solana.PublicKey
	mint           solana.PublicKey
	amount         uint64
	program        string
	extensions     []string
	cpiGuardLocked bool
}

func decodeTokenAccount(data []byte, programID solana.PublicKey) (*decodedAccount, error) {
	if len(data) < tokenAccountLen {
		return nil, errors.Validation("token account data is %d bytes, want at least %d", len(data), tokenAccountLen)
	}
	program := programNameToken
	if programID.Equals(solana.Token2022ProgramID) {
		program = programNameToken2022
	}

	out := &decodedAccount{
		mint:    solana.PublicKeyFromBytes(data[0:32]),
		owner:   solana.PublicKeyFromBytes(data[32:64]),
		amount:  binary.LittleEndian.Uint64(data[64:72]),
		program: program,
	}

	if program == programNameToken2022 && len(data) > extensionTLVStart {
		out.extensions = walkExtensions(data, func(extType uint16, value []byte) {
			if extType == extTypeCPIGuard && len(value) >= 1 && value[0] == 1 {
				out.cpiGuardLocked = true
			}
		})
	}
	return out, nil
}

// decodedMint is a mint's decoded state plus any Token-2022 transfer
// fee configuration extension it carries.
type decodedMint struct {
	program         string
	nonTransferable bool
	transferFee     *tokenfee.Config
}

func decodeMint(data []byte, programID solana.PublicKey) (*decodedMint, error) {
	if len(data) < tokenMintLen {
		return nil, errors.Validation("mint account data is %d bytes, want at least %d", len(data), tokenMintLen)
	}
	program := programNameToken
	if programID.Equals(solana.Token2022ProgramID) {
		program = programNameToken2022
	}

	out := &decodedMint{program: program}
	if program != programNameToken2022 || len(data) <= extensionTLVStart {
		return out, nil
	}

	var feeCfg *tokenfee.Config
	names := walkExtensions(data, func(extType uint16, value []byte) {
		switch extType {
		case extTypeNonTransferable:
			out.nonTransferable = true
		case extTypeTransferFeeConfig:
			feeCfg = decodeTransferFeeConfig(value)
		}
	})
	_ = names // mint extension names aren't surfaced today; only accounts report blocked extensions
	out.transferFee = feeCfg
	return out, nil
}

// walkExtensions scans the Token-2022 extension TLV stream starting
// at extensionTLVStart, returning the recognised extension names it
// found (used for an account's blocked-extension check) and invoking
// onExtension, if given, with every extension's raw type and value
// (used to pull the TransferFeeConfig payload off a mint).
func walkExtensions(data []byte, onExtension func(extType uint16, value []byte)) []string {
	var names []string
	pos := extensionTLVStart
	for pos+4 <= len(data) {
		extType := binary.LittleEndian.Uint16(data[pos : pos+2])
		extLen := int(binary.LittleEndian.Uint16(data[pos+2 : pos+4]))
		valStart := pos + 4
		valEnd := valStart + extLen
		if valEnd > len(data) {
			break
		}
		value := data[valStart:valEnd]

		if name, ok := extensionNames[extType]; ok {
			names = append(names, name)
		}
		if onExtension != nil {
			onExtension(extType, value)
		}
		pos = valEnd
	}
	return names
}

// decodeTransferFeeConfig parses a TransferFeeConfig extension's
// value into the older/newer basis-point schedule tokenfee.Compute
// needs, skipping the leading authority fields this relayer never
// consults.
func decodeTransferFeeConfig(value []byte) *tokenfee.Config {
	const (
		olderOffset = 72 // two 32-byte COption<Pubkey> authority fields, then an 8-byte withheld amount
		transferFeeWidth = 18 // epoch(8) + maximum_fee(8) + basis_points(2)
	)
	if len(value) < olderOffset+2*transferFeeWidth {
		return nil
	}
	older := value[olderOffset : olderOffset+transferFeeWidth]
	newer := value[olderOffset+transferFeeWidth : olderOffset+2*transferFeeWidth]
	return &tokenfee.Config{
		OlderEpoch:       binary.LittleEndian.Uint64(older[0:8]),
		OlderMaximumFee:  binary.LittleEndian.Uint64(older[8:16]),
		OlderBasisPoints: binary.LittleEndian.Uint16(older[16:18]),
		NewerEpoch:       binary.LittleEndian.Uint64(newer[0:8]),
		NewerMaximumFee:  binary.LittleEndian.Uint64(newer[8:16]),
		NewerBasisPoints: binary.LittleEndian.Uint16(newer[16:18]),
	}
}
