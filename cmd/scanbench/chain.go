package main

import (
	"encoding/binary"
	"fmt"
	"iter"
	"math/rand/v2"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/shieldscan/noteenc"
)

// account is the key tag used by the scanner: the index of the wallet account
// owning an incoming viewing key.
type account uint32

// chainTx is a synthesized transaction with shielded outputs.
type chainTx struct {
	txid    chainhash.Hash
	outputs []noteenc.CompactOutput
}

// chainBlock is a synthesized block.
type chainBlock struct {
	height uint32
	hash   chainhash.Hash
	txs    []chainTx
}

// walletNote is a note the synthesizer paid to one of the wallet's accounts.
type walletNote struct {
	account account
	value   btcutil.Amount
}

// deriveAccountKeys derives one incoming viewing key per account.
func deriveAccountKeys(numAccounts int) ([]*noteenc.IncomingViewingKey,
	error) {

	keys := make([]*noteenc.IncomingViewingKey, numAccounts)
	for i := range keys {
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(i))
		seed := chainhash.TaggedHash([]byte("scanbench/account"), buf[:])

		ivk, err := noteenc.NewIncomingViewingKey(*seed)
		if err != nil {
			return nil, fmt.Errorf("account %d: %w", i, err)
		}
		keys[i] = ivk
	}

	return keys, nil
}

// accountKeys yields the keys tagged with their account.
func accountKeys(
	keys []*noteenc.IncomingViewingKey) iter.Seq2[account,
	*noteenc.IncomingViewingKey] {

	return func(yield func(account, *noteenc.IncomingViewingKey) bool) {
		for i, ivk := range keys {
			if !yield(account(i), ivk) {
				return
			}
		}
	}
}

// chainGen synthesizes a chain of blocks whose outputs are paid either to the
// wallet's accounts or to an unrelated key.
type chainGen struct {
	rng    *rand.Rand
	params noteenc.Params

	txsPerBlock  int
	outputsPerTx int
	hitRate      float64
	maxValue     btcutil.Amount

	// addrs holds the diversified addresses of each account.
	addrs    [][]noteenc.PaymentAddress
	stranger noteenc.PaymentAddress

	height   uint32
	prevHash chainhash.Hash

	// expected records every note paid to the wallet.
	expected map[wire.OutPoint]walletNote
}

// newChainGen creates a synthesizer paying to the given account keys.
func newChainGen(cfg *config,
	keys []*noteenc.IncomingViewingKey) (*chainGen, error) {

	g := &chainGen{
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x5ca9)),
		params: noteenc.Params{
			Zip212Height:   cfg.Zip212Height,
			GracePeriodEnd: cfg.GracePeriodEnd,
		},
		txsPerBlock:  cfg.TxsPerBlock,
		outputsPerTx: cfg.OutputsPerTx,
		hitRate:      cfg.HitRate,
		maxValue:     cfg.MaxValue.Amount,
		addrs:        make([][]noteenc.PaymentAddress, len(keys)),
		expected:     make(map[wire.OutPoint]walletNote),
	}

	for i, ivk := range keys {
		for j := 0; j < cfg.AddrsPerAcct; j++ {
			addr, err := ivk.Address(g.randDiversifier())
			if err != nil {
				return nil, fmt.Errorf("account %d address: %w",
					i, err)
			}
			g.addrs[i] = append(g.addrs[i], addr)
		}
	}

	strangerKey, err := noteenc.NewIncomingViewingKey(
		chainhash.HashH([]byte("scanbench/stranger")),
	)
	if err != nil {
		return nil, err
	}
	g.stranger, err = strangerKey.Address(g.randDiversifier())
	if err != nil {
		return nil, err
	}

	return g, nil
}

func (g *chainGen) randDiversifier() noteenc.Diversifier {
	var d noteenc.Diversifier
	for i := range d {
		d[i] = byte(g.rng.Uint32())
	}
	return d
}

func (g *chainGen) randHash() [32]byte {
	var h [32]byte
	for i := 0; i < len(h); i += 8 {
		binary.LittleEndian.PutUint64(h[i:], g.rng.Uint64())
	}
	return h
}

// leadByte returns the plaintext version a sender uses at height.
func (g *chainGen) leadByte(height uint32) byte {
	if g.params.Zip212Enforcement(height) == noteenc.Zip212Off {
		return noteenc.LeadByteV1
	}
	return noteenc.LeadByteV2
}

// nextBlock synthesizes the block on top of the previous one.
func (g *chainGen) nextBlock() (*chainBlock, error) {
	var buf [chainhash.HashSize + 4]byte
	copy(buf[:], g.prevHash[:])
	binary.LittleEndian.PutUint32(buf[chainhash.HashSize:], g.height)

	block := &chainBlock{
		height: g.height,
		hash:   chainhash.DoubleHashH(buf[:]),
		txs:    make([]chainTx, g.txsPerBlock),
	}
	lead := g.leadByte(block.height)

	for i := range block.txs {
		binary.LittleEndian.PutUint32(buf[chainhash.HashSize:],
			uint32(i))
		copy(buf[:], block.hash[:])
		tx := chainTx{
			txid:    chainhash.DoubleHashH(buf[:]),
			outputs: make([]noteenc.CompactOutput, g.outputsPerTx),
		}

		for j := range tx.outputs {
			addr := g.stranger
			value := btcutil.Amount(1 + g.rng.Int64N(int64(g.maxValue)))

			mine := g.rng.Float64() < g.hitRate
			if mine {
				acct := g.rng.IntN(len(g.addrs))
				addrs := g.addrs[acct]
				addr = addrs[g.rng.IntN(len(addrs))]

				op := outpoint(tx.txid, j)
				g.expected[op] = walletNote{
					account: account(acct),
					value:   value,
				}
			}

			out, err := noteenc.Encrypt(addr, noteenc.Note{
				Value:    value,
				Rseed:    g.randHash(),
				LeadByte: lead,
			})
			if err != nil {
				return nil, fmt.Errorf("block %d tx %d output "+
					"%d: %w", block.height, i, j, err)
			}
			tx.outputs[j] = out
		}

		block.txs[i] = tx
	}

	g.prevHash = block.hash
	g.height++

	return block, nil
}

// outpoint returns the outpoint of output index of txid.
func outpoint(txid chainhash.Hash, index int) wire.OutPoint {
	return wire.OutPoint{Hash: txid, Index: uint32(index)}
}
