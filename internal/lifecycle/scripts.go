package lifecycle

import (
	"errors"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/util"
	"github.com/ccoveille/go-safecast"
)

const (
	versionSize  = 4
	outpointSize = 36
	sequenceSize = 4
	satoshisSize = 8
	lockTimeSize = 4
)

var errTrailingBytes = errors.New("trailing bytes after lock time")

// ScriptOffset locates a script inside a serialized transaction.
type ScriptOffset struct {
	Offset uint64
	Length uint64
}

type ScriptOffsets struct {
	Inputs  []ScriptOffset
	Outputs []ScriptOffset
}

// ParseScriptOffsets walks the serialized transaction and records where each unlocking and
// locking script starts and how long it is.
func ParseScriptOffsets(rawTx []byte) (*ScriptOffsets, error) {
	r := util.NewReader(rawTx)

	_, err := r.ReadBytes(versionSize)
	if err != nil {
		return nil, errors.Join(ErrScriptOffsets, fmt.Errorf("version: %w", err))
	}

	inputCount, err := r.ReadVarInt()
	if err != nil {
		return nil, errors.Join(ErrScriptOffsets, fmt.Errorf("input count: %w", err))
	}

	offsets := &ScriptOffsets{}
	for i := uint64(0); i < inputCount; i++ {
		_, err = r.ReadBytes(outpointSize)
		if err != nil {
			return nil, errors.Join(ErrScriptOffsets, fmt.Errorf("outpoint of input %d: %w", i, err))
		}

		offset, err := readScript(r)
		if err != nil {
			return nil, errors.Join(ErrScriptOffsets, fmt.Errorf("script of input %d: %w", i, err))
		}

		_, err = r.ReadBytes(sequenceSize)
		if err != nil {
			return nil, errors.Join(ErrScriptOffsets, fmt.Errorf("sequence of input %d: %w", i, err))
		}

		offsets.Inputs = append(offsets.Inputs, offset)
	}

	outputCount, err := r.ReadVarInt()
	if err != nil {
		return nil, errors.Join(ErrScriptOffsets, fmt.Errorf("output count: %w", err))
	}

	for i := uint64(0); i < outputCount; i++ {
		_, err = r.ReadBytes(satoshisSize)
		if err != nil {
			return nil, errors.Join(ErrScriptOffsets, fmt.Errorf("satoshis of output %d: %w", i, err))
		}

		offset, err := readScript(r)
		if err != nil {
			return nil, errors.Join(ErrScriptOffsets, fmt.Errorf("script of output %d: %w", i, err))
		}

		offsets.Outputs = append(offsets.Outputs, offset)
	}

	_, err = r.ReadBytes(lockTimeSize)
	if err != nil {
		return nil, errors.Join(ErrScriptOffsets, fmt.Errorf("lock time: %w", err))
	}

	if !r.IsComplete() {
		return nil, errors.Join(ErrScriptOffsets, errTrailingBytes)
	}

	return offsets, nil
}

func readScript(r *util.Reader) (ScriptOffset, error) {
	length, err := r.ReadVarInt()
	if err != nil {
		return ScriptOffset{}, err
	}

	offset, err := safecast.ToUint64(r.Pos)
	if err != nil {
		return ScriptOffset{}, err
	}

	n, err := safecast.ToInt(length)
	if err != nil {
		return ScriptOffset{}, err
	}

	_, err = r.ReadBytes(n)
	if err != nil {
		return ScriptOffset{}, err
	}

	return ScriptOffset{Offset: offset, Length: length}, nil
}

// Script returns the bytes of the script at offset in rawTx.
func (o ScriptOffset) Script(rawTx []byte) ([]byte, bool) {
	end := o.Offset + o.Length
	if end < o.Offset || end > uint64(len(rawTx)) {
		return nil, false
	}

	return rawTx[o.Offset:end], true
}
