package lnlayer

import (
	"errors"
	"fmt"
)

// Validator accumulates errors found while checking frame fields so that
// callers can inspect every inconsistency of a frame in one pass.
// The zero value is ready to use.
type Validator struct {
	accum       []error
	accumBitpos []BitPosErr
}

// ResetErr discards accumulated errors.
func (v *Validator) ResetErr() {
	v.accum = v.accum[:0]
	v.accumBitpos = v.accumBitpos[:0]
}

func (v *Validator) HasError() bool {
	return len(v.accum) != 0
}

// Err returns the accumulated errors joined, or nil if there were none.
func (v *Validator) Err() error {
	if len(v.accum) == 1 {
		return v.accum[0]
	} else if len(v.accum) == 0 {
		return nil
	}
	return errors.Join(v.accum...)
}

// ErrPop returns the accumulated error and resets the validator.
func (v *Validator) ErrPop() error {
	err := v.Err()
	v.ResetErr()
	return err
}

func (v *Validator) AddError(err error) {
	if err == nil {
		panic("error argument to AddError cannot be nil")
	}
	v.accum = append(v.accum, err)
}

// AddBitPosErr adds an error located at a bit range of the frame.
func (v *Validator) AddBitPosErr(bitStart, bitLen int, err error) {
	if err == nil {
		panic("err argument to AddBitPosErr cannot be nil")
	} else if bitLen <= 0 {
		panic("bitLen must be positive")
	}
	v.accumBitpos = append(v.accumBitpos, BitPosErr{BitStart: bitStart, BitLen: bitLen, Err: err})
	bpe := v.accumBitpos[len(v.accumBitpos)-1]
	v.accum = append(v.accum, &bpe)
}

// BitPosErr is an error tied to a field of a frame by its bit position.
type BitPosErr struct {
	BitStart int
	BitLen   int
	Err      error
}

func (bpe *BitPosErr) Error() string {
	return fmt.Sprintf("%s at bits %d..%d", bpe.Err.Error(), bpe.BitStart, bpe.BitStart+bpe.BitLen)
}

func (bpe *BitPosErr) Unwrap() error { return bpe.Err }
