// Command entitlement builds the Merkle commitment for a box type's
// allowlist. Input is a JSON array of {"account", "amount"} entries; output
// is the root plus one proof per entry, using the same leaf and pair
// conventions the engine verifies against.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"github.com/KristianPeter/blo-box/internal/merkle"
)

type entry struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type output struct {
	Root   common.Hash   `json:"root"`
	Proofs []proofRecord `json:"proofs"`
}

type proofRecord struct {
	Account string        `json:"account"`
	Amount  string        `json:"amount"`
	Leaf    common.Hash   `json:"leaf"`
	Proof   []common.Hash `json:"proof"`
}

func main() {
	input := flag.String("allowlist", "", "Path to allowlist JSON file")
	flag.Parse()

	if *input == "" {
		log.Fatal("allowlist file required")
	}

	data, err := os.ReadFile(*input)
	if err != nil {
		log.Fatalf("read allowlist: %v", err)
	}

	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Fatalf("parse allowlist: %v", err)
	}
	if len(entries) == 0 {
		log.Fatal("allowlist is empty")
	}

	leaves := make([]common.Hash, len(entries))
	for i, e := range entries {
		amount, ok := new(big.Int).SetString(e.Amount, 10)
		if !ok {
			log.Fatalf("entry %d: invalid amount %q", i, e.Amount)
		}
		leaves[i] = merkle.Leaf(common.HexToAddress(e.Account), amount)
	}

	tree := merkle.NewTree(leaves)
	out := output{Root: tree.Root()}
	for i, e := range entries {
		proof, err := tree.Proof(i)
		if err != nil {
			log.Fatalf("entry %d: %v", i, err)
		}
		out.Proofs = append(out.Proofs, proofRecord{
			Account: e.Account,
			Amount:  e.Amount,
			Leaf:    leaves[i],
			Proof:   proof,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("encode output: %v", err)
	}
}
