// Package templates maps a contract-type tag to its precompiled {abi,
// bytecode} pair. There is no compiler here: the three supported templates
// ship as embedded build artifacts, and "compilation" is a lookup.
package templates

import (
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/dkurguzov/betkeeper/internal/common"
)

//go:embed artifacts/*.json
var artifactFS embed.FS

// Supported contract-type tags.
const (
	KindERC20Token    = "ERC20Token"
	KindSimpleStorage = "SimpleStorage"
	KindBetting       = "Betting"
)

var artifactFiles = map[string]string{
	KindERC20Token:    "artifacts/erc20token.json",
	KindSimpleStorage: "artifacts/simplestorage.json",
	KindBetting:       "artifacts/betting.json",
}

// Template is one deployable contract artifact.
type Template struct {
	Kind     string
	ABI      abi.ABI
	RawABI   string // ABI JSON as stored alongside contract records
	Bytecode []byte
}

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[string]*Template
)

// load parses every embedded artifact exactly once.
func load() error {
	loadOnce.Do(func() {
		templates = make(map[string]*Template, len(artifactFiles))
		for kind, path := range artifactFiles {
			raw, err := artifactFS.ReadFile(path)
			if err != nil {
				loadErr = fmt.Errorf("failed to read artifact %s: %w", path, err)
				return
			}

			var artifact struct {
				ABI      json.RawMessage `json:"abi"`
				Bytecode string          `json:"bytecode"`
			}
			if err := json.Unmarshal(raw, &artifact); err != nil {
				loadErr = fmt.Errorf("failed to unmarshal artifact %s: %w", path, err)
				return
			}

			parsed, err := abi.JSON(strings.NewReader(string(artifact.ABI)))
			if err != nil {
				loadErr = fmt.Errorf("failed to parse ABI for %s: %w", kind, err)
				return
			}

			bytecode, err := hex.DecodeString(strings.TrimPrefix(artifact.Bytecode, "0x"))
			if err != nil {
				loadErr = fmt.Errorf("failed to decode bytecode for %s: %w", kind, err)
				return
			}

			templates[kind] = &Template{
				Kind:     kind,
				ABI:      parsed,
				RawABI:   string(artifact.ABI),
				Bytecode: bytecode,
			}
		}
	})
	return loadErr
}

// Lookup returns the template for the given contract-type tag, or
// common.ErrUnsupportedContractType for unknown tags.
func Lookup(kind string) (*Template, error) {
	if err := load(); err != nil {
		return nil, err
	}
	tpl, ok := templates[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrUnsupportedContractType, kind)
	}
	return tpl, nil
}

// Kinds lists the supported contract-type tags.
func Kinds() []string {
	return []string{KindERC20Token, KindSimpleStorage, KindBetting}
}
