package merkle

import (
	"bytes"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

var ErrLeafNotFound = errors.New("merkle: leaf index out of range")

// Leaf combines an account and a maximum claimable amount into a single
// commitment value: keccak256 over the 20-byte address followed by the
// 32-byte big-endian amount. This must match byte for byte the construction
// used when the allowlist tree was built off-system.
func Leaf(account common.Address, amount *big.Int) common.Hash {
	u, _ := uint256.FromBig(amount)
	enc := u.Bytes32()
	return common.BytesToHash(crypto.Keccak256(account.Bytes(), enc[:]))
}

// Verify runs a standard inclusion check: proof nodes are folded into the
// leaf pairwise, smaller hash first, and the result is compared to root.
// An empty proof is valid only when the leaf itself equals the root
// (single-leaf tree). A zero root is not special-cased; with an unset root
// every non-trivial proof fails.
func Verify(root, leaf common.Hash, proof []common.Hash) bool {
	computed := leaf
	for _, node := range proof {
		computed = hashPair(computed, node)
	}
	return computed == root
}

// hashPair hashes two nodes in sorted order so proofs need no left/right
// position flags.
func hashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		a, b = b, a
	}
	return common.BytesToHash(crypto.Keccak256(a.Bytes(), b.Bytes()))
}

// Tree is the prover-side counterpart of Verify, used by the entitlement
// CLI and by tests to build commitments with the identical convention:
// sorted-pair keccak, odd node at the end of a level promoted unchanged.
type Tree struct {
	layers [][]common.Hash // layers[0] = leaves, last layer = root
}

func NewTree(leaves []common.Hash) *Tree {
	layers := [][]common.Hash{append([]common.Hash(nil), leaves...)}
	for level := layers[0]; len(level) > 1; {
		next := make([]common.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, hashPair(level[i], level[i+1]))
			} else {
				next = append(next, level[i])
			}
		}
		layers = append(layers, next)
		level = next
	}
	return &Tree{layers: layers}
}

// Root returns the tree's commitment. A zero-leaf tree has a zero root.
func (t *Tree) Root() common.Hash {
	top := t.layers[len(t.layers)-1]
	if len(top) == 0 {
		return common.Hash{}
	}
	return top[0]
}

// Proof returns the sibling path for leaf i, bottom up.
func (t *Tree) Proof(i int) ([]common.Hash, error) {
	if i < 0 || i >= len(t.layers[0]) {
		return nil, ErrLeafNotFound
	}
	var proof []common.Hash
	for _, level := range t.layers[:len(t.layers)-1] {
		sibling := i ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
		i /= 2
	}
	return proof, nil
}
