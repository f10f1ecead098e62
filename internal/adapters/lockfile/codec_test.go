package lockfile_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/knot/internal/adapters/lockfile"
	"go.trai.ch/knot/internal/core/domain"
)

const suiRepo = "https://github.com/MystenLabs/sui.git"

const legacyLock = `# @generated by Move, please check-in and do not edit manually.

[move]
version = 2
manifest_digest = "6F0E9B5C"
deps_digest = "F8BBB0CCB2491CA29A3DF03D6F92277A4F3574266507ACD77214D37ECA3F3082"
dependencies = [
  { name = "Sui" },
]

[[move.package]]
name = "MoveStdlib"
source = { git = "https://github.com/MystenLabs/sui.git", rev = "framework/testnet", subdir = "crates/sui-framework/packages/move-stdlib" }

[[move.package]]
name = "Sui"
source = { git = "https://github.com/MystenLabs/sui.git", rev = "framework/testnet", subdir = "crates/sui-framework/packages/sui-framework" }

dependencies = [
  { name = "MoveStdlib" },
]

[move.toolchain-version]
compiler-version = "1.30.0"
edition = "2024.beta"
flavor = "sui"

[env.testnet]
chain-id = "4c78adac"
original-published-id = "0x1"
latest-published-id = "0x3"
published-version = "2"
`

const unversionedLock = `[move]
dependencies = ["Sui"]
order = ["Sui", "MoveStdlib"]

[[move.package]]
name = "MoveStdlib"
source = { local = "../stdlib" }

[[move.package]]
name = "Sui"
source = { local = "../sui" }
dependencies = ["MoveStdlib"]
`

const v3Lock = `[move]
version = 3
manifest_digest = "AB"
deps_digest = "CD"
dependencies = [
  { id = "Sui", name = "Sui" },
]

[[move.package]]
id = "MoveStdlib"
source = { git = "https://github.com/MystenLabs/sui.git", rev = "framework/testnet", subdir = "crates/sui-framework/packages/move-stdlib" }

[[move.package]]
id = "Sui"
source = { git = "https://github.com/MystenLabs/sui.git", rev = "framework/testnet", subdir = "crates/sui-framework/packages/sui-framework" }

dependencies = [
  { id = "MoveStdlib", name = "MoveStdlib" },
]
`

const v4Lock = `[move]
version = 4

[pinned.testnet.Demo]
source = { root = true }
use_environment = "testnet"
manifest_digest = "AAAA"
deps = { Sui = "Sui" }

[pinned.testnet.Sui]
source = { git = "https://github.com/MystenLabs/sui.git", subdir = "crates/sui-framework/packages/sui-framework", rev = "framework/testnet" }
manifest-digest = "BBBB"
deps = {}

[pinned.mainnet.Demo]
source = { root = true }
`

func TestCodec_Parse_Legacy(t *testing.T) {
	lock, err := lockfile.NewCodec().Parse(legacyLock)
	require.NoError(t, err)
	require.Equal(t, domain.SchemaLegacy, lock.Schema())
	assert.Equal(t, 2, lock.Version())

	legacy, ok := lock.(*domain.LegacyLockfile)
	require.True(t, ok)
	assert.Equal(t, []string{"Sui"}, legacy.RootDependencies)
	require.Len(t, legacy.Packages, 2)
	assert.Equal(t, "MoveStdlib", legacy.Packages[0].Name)
	assert.Equal(t, []string{"MoveStdlib"}, legacy.Packages[1].Dependencies)
	assert.Equal(t, domain.GitCoordinate{
		Repo:   suiRepo,
		Rev:    "framework/testnet",
		Subdir: "crates/sui-framework/packages/sui-framework",
	}, legacy.Packages[1].Source.Git)

	env, ok := legacy.Envs["testnet"]
	require.True(t, ok)
	assert.Equal(t, domain.MustParseAddress("0x1"), env.Original)
	assert.Equal(t, domain.MustParseAddress("0x3"), env.Latest)
	assert.Equal(t, "4c78adac", env.ChainID)
}

func TestCodec_Parse_Unversioned(t *testing.T) {
	lock, err := lockfile.NewCodec().Parse(unversionedLock)
	require.NoError(t, err)
	require.Equal(t, domain.SchemaLegacy, lock.Schema())
	assert.Equal(t, 0, lock.Version())

	legacy := lock.(*domain.LegacyLockfile)
	assert.Equal(t, []string{"Sui"}, legacy.RootDependencies)
	ordered := legacy.OrderedPackages()
	require.Len(t, ordered, 2)
	assert.Equal(t, "Sui", ordered[0].Name)
	assert.Equal(t, "../sui", ordered[0].Source.Local)
	assert.Equal(t, []string{"MoveStdlib"}, ordered[0].Dependencies)
}

func TestCodec_Parse_V3(t *testing.T) {
	lock, err := lockfile.NewCodec().Parse(v3Lock)
	require.NoError(t, err)
	require.Equal(t, domain.SchemaV3, lock.Schema())

	v3 := lock.(*domain.V3Lockfile)
	assert.Equal(t, []string{"Sui"}, v3.RootDependencyNames())
	require.Len(t, v3.Packages, 2)
	assert.Equal(t, "MoveStdlib", v3.Packages[0].ID, "array order is kept verbatim")
	assert.Equal(t, "Sui", v3.Packages[1].ID)
	assert.Equal(t, []domain.V3Dependency{{ID: "MoveStdlib", Name: "MoveStdlib"}}, v3.Packages[1].Dependencies)
}

func TestCodec_Parse_V4(t *testing.T) {
	lock, err := lockfile.NewCodec().Parse(v4Lock)
	require.NoError(t, err)
	require.Equal(t, domain.SchemaV4, lock.Schema())

	v4 := lock.(*domain.V4Lockfile)
	assert.Equal(t, []string{"mainnet", "testnet"}, v4.Environments())

	pins, ok := v4.Pins("testnet")
	require.True(t, ok)
	assert.True(t, pins["Demo"].Source.Root)
	assert.Equal(t, "AAAA", pins["Demo"].ManifestDigest)
	assert.Equal(t, map[string]string{"Sui": "Sui"}, pins["Demo"].Deps)
	assert.Equal(t, "BBBB", pins["Sui"].ManifestDigest, "hyphenated digest key is accepted")
	assert.True(t, pins["Sui"].Source.IsGit())

	rootID, ok := v4.RootPinID("testnet")
	require.True(t, ok)
	assert.Equal(t, "Demo", rootID)
}

func TestCodec_Parse_Errors(t *testing.T) {
	codec := lockfile.NewCodec()

	_, err := codec.Parse("[move\nversion = ")
	assert.ErrorContains(t, err, domain.ErrLockfileParseFailed.Error())

	_, err = codec.Parse("[move]\ndependencies = [1]\n")
	assert.ErrorContains(t, err, domain.ErrLockfileParseFailed.Error())

	_, err = codec.Parse("[move]\nversion = -1\n")
	assert.ErrorContains(t, err, domain.ErrLockfileParseFailed.Error())
}

func sampleV4() *domain.V4Lockfile {
	return &domain.V4Lockfile{
		LockVersion: domain.CurrentLockfileVersion,
		Pinned: map[string]map[string]domain.Pin{
			"testnet": {
				"Sui": {
					Source: domain.PinSource{Git: domain.GitCoordinate{
						Repo:   suiRepo,
						Rev:    "framework/testnet",
						Subdir: "crates/sui-framework/packages/sui-framework",
					}},
					UseEnvironment: "testnet",
					ManifestDigest: "BBBB",
					Deps:           map[string]string{"MoveStdlib": "MoveStdlib"},
				},
				"Demo": {
					Source:         domain.PinSource{Root: true},
					UseEnvironment: "testnet",
					ManifestDigest: "AAAA",
					Deps:           map[string]string{"Sui": "Sui", "Lib": "Lib_1"},
				},
				"Lib_1": {
					Source:         domain.PinSource{Local: "../lib"},
					UseEnvironment: "testnet",
					Deps:           map[string]string{},
				},
				"MoveStdlib": {
					Source: domain.PinSource{Git: domain.GitCoordinate{
						Repo:   suiRepo,
						Rev:    "framework/testnet",
						Subdir: "crates/sui-framework/packages/move-stdlib",
					}},
					UseEnvironment: "testnet",
					ManifestDigest: "CCCC",
				},
			},
			"mainnet": {
				"Demo": {Source: domain.PinSource{Root: true}, UseEnvironment: "mainnet"},
			},
		},
	}
}

func TestCodec_Encode_RoundTrip(t *testing.T) {
	codec := lockfile.NewCodec()
	lock := sampleV4()

	text, err := codec.Encode(lock)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, lockfile.Header))

	decoded, err := codec.Parse(text)
	require.NoError(t, err)
	require.Equal(t, domain.SchemaV4, decoded.Schema())

	// Encoding normalizes nil deps to an empty table.
	want := sampleV4()
	pin := want.Pinned["testnet"]["MoveStdlib"]
	pin.Deps = map[string]string{}
	want.Pinned["testnet"]["MoveStdlib"] = pin
	mainnet := want.Pinned["mainnet"]["Demo"]
	mainnet.Deps = map[string]string{}
	want.Pinned["mainnet"]["Demo"] = mainnet

	if diff := cmp.Diff(want, decoded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCodec_Encode_Deterministic(t *testing.T) {
	codec := lockfile.NewCodec()

	first, err := codec.Encode(sampleV4())
	require.NoError(t, err)
	for range 5 {
		again, err := codec.Encode(sampleV4())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	// [move] first, then environments and ids in lexicographic order.
	positions := []int{
		strings.Index(first, "[move]"),
		strings.Index(first, "version = 4"),
		strings.Index(first, "[pinned.mainnet.Demo]"),
		strings.Index(first, "[pinned.testnet.Demo]"),
		strings.Index(first, "[pinned.testnet.Lib_1]"),
		strings.Index(first, "[pinned.testnet.MoveStdlib]"),
		strings.Index(first, "[pinned.testnet.Sui]"),
	}
	for i, pos := range positions {
		require.GreaterOrEqual(t, pos, 0, "section %d missing from:\n%s", i, first)
		if i > 0 {
			assert.Greater(t, pos, positions[i-1], "section %d out of order in:\n%s", i, first)
		}
	}

	assert.Contains(t, first, `deps = { Lib = "Lib_1", Sui = "Sui" }`)
	assert.Contains(t, first, `source = { local = "../lib" }`)
	assert.Contains(t, first, `source = { root = true }`)
	assert.Contains(t, first, `manifest_digest = "AAAA"`)
}

func TestCodec_Encode_QuotesSpecialCharacters(t *testing.T) {
	codec := lockfile.NewCodec()
	lock := &domain.V4Lockfile{
		LockVersion: 4,
		Pinned: map[string]map[string]domain.Pin{
			"testnet": {
				"Odd": {
					Source: domain.PinSource{Local: `dir "with" quotes\and slash`},
					Deps:   map[string]string{"needs.quote": "Odd"},
				},
			},
		},
	}

	text, err := codec.Encode(lock)
	require.NoError(t, err)

	decoded, err := codec.Parse(text)
	require.NoError(t, err)
	pin := decoded.(*domain.V4Lockfile).Pinned["testnet"]["Odd"]
	assert.Equal(t, `dir "with" quotes\and slash`, pin.Source.Local)
	assert.Equal(t, map[string]string{"needs.quote": "Odd"}, pin.Deps)
}

func TestCodec_Encode_Nil(t *testing.T) {
	_, err := lockfile.NewCodec().Encode(nil)
	assert.ErrorIs(t, err, domain.ErrLockfileEncodeFailed)
}
