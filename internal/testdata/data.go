package testdata

import (
	"encoding/hex"
	"time"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/script"
	sdkTx "github.com/bsv-blockchain/go-sdk/transaction"
)

var (
	// BeefHex holds a proven parent and an unconfirmed child spending its first output.
	BeefHex = "0100beef01fe636d0c0007021400fe507c0c7aa754cef1f7889d5fd395cf1f785dd7de98eed895dbedfe4e5bc70d1502ac4e164f5bc16746bb0868404292ac8318bbac3800e4aad13a014da427adce3e010b00bc4ff395efd11719b277694cface5aa50d085a0bb81f613f70313acd28cf4557010400574b2d9142b8d28b61d88e3b2c3f44d858411356b49a28a4643b6d1a6a092a5201030051a05fc84d531b5d250c23f4f886f6812f9fe3f402d61607f977b4ecd2701c19010000fd781529d58fc2523cf396a7f25440b409857e7e221766c57214b1d38c7b481f01010062f542f45ea3660f86c013ced80534cb5fd4c19d66c56e7e8c5d4bf2d40acc5e010100b121e91836fd7cd5102b654e9f72f3cf6fdbfd0b161c53a9c54b12c841126331020100000001cd4e4cac3c7b56920d1e7655e7e260d31f29d9a388d04910f1bbd72304a79029010000006b483045022100e75279a205a547c445719420aa3138bf14743e3f42618e5f86a19bde14bb95f7022064777d34776b05d816daf1699493fcdf2ef5a5ab1ad710d9c97bfb5b8f7cef3641210263e2dee22b1ddc5e11f6fab8bcd2378bdd19580d640501ea956ec0e786f93e76ffffffff013e660000000000001976a9146bfd5c7fbe21529d45803dbcf0c87dd3c71efbc288ac0000000001000100000001ac4e164f5bc16746bb0868404292ac8318bbac3800e4aad13a014da427adce3e000000006a47304402203a61a2e931612b4bda08d541cfb980885173b8dcf64a3471238ae7abcd368d6402204cbf24f04b9aa2256d8901f0ed97866603d2be8324c2bfb7a37bf8fc90edd5b441210263e2dee22b1ddc5e11f6fab8bcd2378bdd19580d640501ea956ec0e786f93e76ffffffff013c660000000000001976a9146bfd5c7fbe21529d45803dbcf0c87dd3c71efbc288ac0000000000"
	Beef, _ = hex.DecodeString(BeefHex)

	BlockHeight = uint32(814435)

	ParentRawString = "0100000001cd4e4cac3c7b56920d1e7655e7e260d31f29d9a388d04910f1bbd72304a79029010000006b483045022100e75279a205a547c445719420aa3138bf14743e3f42618e5f86a19bde14bb95f7022064777d34776b05d816daf1699493fcdf2ef5a5ab1ad710d9c97bfb5b8f7cef3641210263e2dee22b1ddc5e11f6fab8bcd2378bdd19580d640501ea956ec0e786f93e76ffffffff013e660000000000001976a9146bfd5c7fbe21529d45803dbcf0c87dd3c71efbc288ac00000000"
	ParentRaw, _    = sdkTx.NewTransactionFromHex(ParentRawString)
	ParentTxID      = "3ecead27a44d013ad1aae40038acbb1883ac9242406808bb4667c15b4f164eac"
	ParentHash, _   = chainhash.NewHashFromHex(ParentTxID)

	ChildRawString = "0100000001ac4e164f5bc16746bb0868404292ac8318bbac3800e4aad13a014da427adce3e000000006a47304402203a61a2e931612b4bda08d541cfb980885173b8dcf64a3471238ae7abcd368d6402204cbf24f04b9aa2256d8901f0ed97866603d2be8324c2bfb7a37bf8fc90edd5b441210263e2dee22b1ddc5e11f6fab8bcd2378bdd19580d640501ea956ec0e786f93e76ffffffff013c660000000000001976a9146bfd5c7fbe21529d45803dbcf0c87dd3c71efbc288ac00000000"
	ChildRaw, _    = sdkTx.NewTransactionFromHex(ChildRawString)
	ChildTxID      = "157428aee67d11123203735e4c540fa1bdab3b36d5882c6f8c5ff79f07d20d1c"
	ChildHash, _   = chainhash.NewHashFromHex(ChildTxID)

	// ChildOutputScriptOffset is where the locking script of the child's only output starts.
	ChildOutputScriptOffset = uint64(162)
	ChildOutputScript       = "76a9146bfd5c7fbe21529d45803dbcf0c87dd3c71efbc288ac"

	P2PKHScript = "76a914c2b6fd4319122b9b5156a2a0060d19864c24f49a88ac"

	Time = time.Date(2009, 1, 0o3, 18, 15, 0o5, 0, time.UTC)
)

// SpendingTx builds an unsigned transaction spending output vout of parent into the given outputs.
func SpendingTx(parent *sdkTx.Transaction, vout uint32, lockTime uint32, sequence uint32, outputs ...*sdkTx.TransactionOutput) *sdkTx.Transaction {
	unlocking := script.NewFromBytes([]byte{0x51})

	return &sdkTx.Transaction{
		Version: 1,
		Inputs: []*sdkTx.TransactionInput{
			{
				SourceTXID:       parent.TxID(),
				SourceTxOutIndex: vout,
				UnlockingScript:  unlocking,
				SequenceNumber:   sequence,
			},
		},
		Outputs:  outputs,
		LockTime: lockTime,
	}
}

func Output(satoshis uint64, lockingScriptHex string) *sdkTx.TransactionOutput {
	lockingScript, _ := script.NewFromHex(lockingScriptHex)

	return &sdkTx.TransactionOutput{
		Satoshis:      satoshis,
		LockingScript: lockingScript,
	}
}
