// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cfgutil

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
)

// AmountFlag embeds a btcutil.Amount and implements the flags.Marshaler and
// Unmarshaler interfaces so it can be used as a config struct field.
//
// Values are read as whole coins, optionally suffixed with " BTC", or as
// satoshis when suffixed with "sat".
type AmountFlag struct {
	btcutil.Amount
}

// NewAmountFlag creates an AmountFlag with a default btcutil.Amount.
func NewAmountFlag(defaultValue btcutil.Amount) *AmountFlag {
	return &AmountFlag{defaultValue}
}

// MarshalFlag satisfies the flags.Marshaler interface.
func (a *AmountFlag) MarshalFlag() (string, error) {
	return a.Amount.String(), nil
}

// UnmarshalFlag satisfies the flags.Unmarshaler interface.
func (a *AmountFlag) UnmarshalFlag(value string) error {
	value = strings.TrimSpace(value)

	var amount btcutil.Amount
	if sats, ok := strings.CutSuffix(value, "sat"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(sats), 10, 64)
		if err != nil {
			return err
		}
		amount = btcutil.Amount(n)
	} else {
		value = strings.TrimSuffix(value, " BTC")
		valueF64, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		amount, err = btcutil.NewAmount(valueF64)
		if err != nil {
			return err
		}
	}

	if amount < 0 || amount > btcutil.MaxSatoshi {
		return fmt.Errorf("amount %v out of range", amount)
	}
	a.Amount = amount

	return nil
}
