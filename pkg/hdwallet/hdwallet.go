// Package hdwallet derives Ethereum accounts from a BIP-39 recovery phrase
// via BIP-32/BIP-44 child-key derivation.
package hdwallet

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/chainkit/usdc-go/pkg/account"
	"github.com/chainkit/usdc-go/pkg/werrors"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
)

// DefaultDerivationPath is the BIP-44 Ethereum coin-type path with the
// account index left to be appended by the caller.
const DefaultDerivationPath = "m/44'/60'/0'/0"

// Wallet derives one Account per index from a single BIP-32 master key,
// memoizing both derived accounts and per-contract ERC-20 clients.
type Wallet struct {
	masterKey      *bip32.Key
	recoveryPhrase string // empty if the wallet was constructed without one
	derivationPath string
	accountIndex   uint32
	rpcURL         string

	mu       sync.Mutex
	account  *account.Account
	erc20Cache map[string]interface{} // checksum address -> *erc20.Client, boxed to avoid an import cycle
}

// Generate samples fresh entropy for wordCount words (one of 12, 15, 18,
// 21, 24), derives a mnemonic and master seed, and returns a wallet that
// remembers the phrase.
func Generate(wordCount int, path string) (*Wallet, error) {
	entropyBits, err := entropyBitsForWordCount(wordCount)
	if err != nil {
		return nil, err
	}
	entropy := make([]byte, entropyBits/8)
	if _, err := rand.Read(entropy); err != nil {
		return nil, fmt.Errorf("hdwallet: read entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("hdwallet: build mnemonic: %w", err)
	}
	return FromPhrase(mnemonic, path)
}

// FromPhrase parses an existing BIP-39 mnemonic and derives the master key.
func FromPhrase(phrase string, path string) (*Wallet, error) {
	if !bip39.IsMnemonicValid(phrase) {
		return nil, &werrors.InvalidPhrase{Reason: "failed mnemonic checksum/wordlist validation"}
	}
	seed := bip39.NewSeed(phrase, "")
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("hdwallet: derive master key: %w", err)
	}
	if path == "" {
		path = DefaultDerivationPath
	}
	return &Wallet{
		masterKey:      master,
		recoveryPhrase: phrase,
		derivationPath: path,
		accountIndex:   0,
		erc20Cache:     make(map[string]interface{}),
	}, nil
}

// RecoveryPhrase returns the stored mnemonic, or "" if the wallet was
// constructed from a master key without one.
func (w *Wallet) RecoveryPhrase() string { return w.recoveryPhrase }

// DerivationPath returns the base path (without the appended account
// index) this wallet derives from.
func (w *Wallet) DerivationPath() string { return w.derivationPath }

// AccountIndex returns the index appended to DerivationPath for this
// wallet's Account.
func (w *Wallet) AccountIndex() uint32 { return w.accountIndex }

// SetRPCURL associates an RPC endpoint with this wallet. Selecting a new
// account via SelectAccount carries the URL forward but constructs a
// fresh RPC client rather than sharing this wallet's client instance.
func (w *Wallet) SetRPCURL(url string) { w.rpcURL = url }

// RPCURL returns the associated RPC endpoint, if any.
func (w *Wallet) RPCURL() string { return w.rpcURL }

// Account returns the Account derived at this wallet's path/index,
// deriving and memoizing it on first access.
func (w *Wallet) Account() (*account.Account, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.account != nil {
		return w.account, nil
	}
	acc, err := deriveAccount(w.masterKey, w.derivationPath, w.accountIndex)
	if err != nil {
		return nil, err
	}
	w.account = acc
	return acc, nil
}

// SelectAccount returns a new Wallet sharing this wallet's master key and
// stored phrase (if any) and RPC URL, with accountIndex set to n. This
// wallet is left unchanged; the returned wallet constructs its own
// Account and ERC-20 cache lazily.
func (w *Wallet) SelectAccount(n uint32) *Wallet {
	return &Wallet{
		masterKey:      w.masterKey,
		recoveryPhrase: w.recoveryPhrase,
		derivationPath: w.derivationPath,
		accountIndex:   n,
		rpcURL:         w.rpcURL,
		erc20Cache:     make(map[string]interface{}),
	}
}

// ERC20Client returns a cached value keyed by checksum contract address,
// or (nil, false) on a cache miss. StoreERC20Client populates the cache.
// The value type is left to the caller (pkg/erc20) to avoid an import
// cycle between hdwallet and erc20.
func (w *Wallet) ERC20Client(checksumAddress string) (interface{}, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.erc20Cache[checksumAddress]
	return v, ok
}

// StoreERC20Client memoizes client under checksumAddress.
func (w *Wallet) StoreERC20Client(checksumAddress string, client interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.erc20Cache[checksumAddress] = client
}

func deriveAccount(master *bip32.Key, basePath string, index uint32) (*account.Account, error) {
	key, err := deriveChildKey(master, basePath, index)
	if err != nil {
		return nil, err
	}
	return account.FromPrivateKey(key.Key)
}

// deriveChildKey walks basePath (e.g. "m/44'/60'/0'/0") followed by the
// account index, hardening any path segment that ends in "'".
func deriveChildKey(master *bip32.Key, basePath string, index uint32) (*bip32.Key, error) {
	segments := strings.Split(strings.TrimPrefix(basePath, "m/"), "/")
	key := master
	for _, seg := range segments {
		child, err := deriveSegment(key, seg)
		if err != nil {
			return nil, err
		}
		key = child
	}
	return key.NewChildKey(index)
}

func deriveSegment(key *bip32.Key, seg string) (*bip32.Key, error) {
	hardened := strings.HasSuffix(seg, "'")
	digits := strings.TrimSuffix(seg, "'")
	n, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("hdwallet: invalid derivation path segment %q: %w", seg, err)
	}
	if hardened {
		return key.NewChildKey(bip32.FirstHardenedChild + uint32(n))
	}
	return key.NewChildKey(uint32(n))
}

func entropyBitsForWordCount(wordCount int) (int, error) {
	switch wordCount {
	case 12:
		return 128, nil
	case 15:
		return 160, nil
	case 18:
		return 192, nil
	case 21:
		return 224, nil
	case 24:
		return 256, nil
	default:
		return 0, &werrors.InvalidParameter{Field: "wordCount", Reason: "must be one of 12, 15, 18, 21, 24"}
	}
}
