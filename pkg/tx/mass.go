package tx

// Mass parameters. Mass is the weight a node charges fees against.
const (
	MassPerTxByte           = 1
	MassPerScriptPubKeyByte = 10
	MassPerSigOp            = 1000

	// MaxStandardMass is the largest mass a node relays.
	MaxStandardMass = 100_000

	// EstimatedSignatureScriptSize is the size of a schnorr or ECDSA
	// signature script: OP_DATA_65 | sig(64) | hash type(1).
	EstimatedSignatureScriptSize = 1 + 64 + 1
)

// SerializedSize returns the estimated wire size of tx. Inputs without a
// signature script are counted as if they carried a standard one, so the
// size of a transaction does not change when it is signed.
func (tx *Transaction) SerializedSize() uint64 {
	size := uint64(2) // version
	size += 8         // input count
	for _, in := range tx.Inputs {
		size += inputSize(in)
	}
	size += 8 // output count
	for _, out := range tx.Outputs {
		size += outputSize(out)
	}
	size += 8  // lock time
	size += 20 // subnetwork
	size += 8  // gas
	size += 32 // payload hash
	size += 8 + uint64(len(tx.Payload))
	return size
}

func inputSize(in Input) uint64 {
	sig := uint64(len(in.SignatureScript))
	if sig == 0 {
		sig = EstimatedSignatureScriptSize
	}
	// txid | index | script length | script | sig op count | sequence
	return 32 + 4 + 8 + sig + 1 + 8
}

func outputSize(out Output) uint64 {
	// value | script version | script length | script
	return 8 + 2 + 8 + uint64(len(out.ScriptPublicKey.Script))
}

// Mass returns the compute mass of tx.
func (tx *Transaction) Mass() uint64 {
	mass := tx.SerializedSize() * MassPerTxByte
	for _, out := range tx.Outputs {
		mass += (2 + uint64(len(out.ScriptPublicKey.Script))) * MassPerScriptPubKeyByte
	}
	for _, in := range tx.Inputs {
		mass += uint64(in.SigOpCount) * MassPerSigOp
	}
	return mass
}
