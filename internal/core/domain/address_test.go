package domain_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/knot/internal/core/domain"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "short", input: "0x2", want: "0x" + strings.Repeat("0", 63) + "2"},
		{name: "odd length", input: "0xabc", want: "0x" + strings.Repeat("0", 61) + "abc"},
		{name: "no prefix", input: "1", want: "0x" + strings.Repeat("0", 63) + "1"},
		{name: "uppercase", input: "0XABCDEF", want: "0x" + strings.Repeat("0", 58) + "abcdef"},
		{name: "full width", input: "0x" + strings.Repeat("f", 64), want: "0x" + strings.Repeat("f", 64)},
		{name: "zero", input: "0x0", want: "0x" + strings.Repeat("0", 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.ParseAddress(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseAddress_Invalid(t *testing.T) {
	for _, input := range []string{"", "0x", "0xzz", "0x" + strings.Repeat("1", 65)} {
		_, err := domain.ParseAddress(input)
		assert.True(t, errors.Is(err, domain.ErrInvalidAddress), "input %q", input)
	}
}

func TestAddress_ZeroSentinel(t *testing.T) {
	assert.True(t, domain.ZeroAddress.IsZero())
	assert.True(t, domain.MustParseAddress("0x0").IsZero())
	assert.False(t, domain.MustParseAddress("0x1").IsZero())
	assert.Equal(t, "0x"+strings.Repeat("0", 64), domain.ZeroAddress.String())
}

func TestAddress_Text(t *testing.T) {
	a := domain.MustParseAddress("0x2")
	text, err := a.MarshalText()
	require.NoError(t, err)

	var b domain.Address
	require.NoError(t, b.UnmarshalText(text))
	assert.Equal(t, a, b)
}

func TestPublication_Roles(t *testing.T) {
	original := domain.MustParseAddress("0x1")
	published := domain.MustParseAddress("0x2")
	latest := domain.MustParseAddress("0x3")

	p := domain.Publication{Original: original, Published: published, Latest: latest}
	assert.Equal(t, original, p.BuildAddress())
	out, ok := p.OutputAddress()
	assert.True(t, ok)
	assert.Equal(t, latest, out)

	p = domain.Publication{Published: published}
	assert.Equal(t, published, p.BuildAddress())
	out, ok = p.OutputAddress()
	assert.True(t, ok)
	assert.Equal(t, published, out)

	p = domain.Publication{}
	assert.True(t, p.BuildAddress().IsZero())
	_, ok = p.OutputAddress()
	assert.False(t, ok)

	filled := domain.Publication{Original: original}.Fill(domain.Publication{Original: latest, Latest: latest})
	assert.Equal(t, original, filled.Original)
	assert.Equal(t, latest, filled.Latest)
}

func TestGitCoordinate_Join(t *testing.T) {
	root := domain.GitCoordinate{Repo: "R", Rev: "v1", Subdir: "pkg"}
	got := root.Join("../shared")
	assert.Equal(t, domain.GitCoordinate{Repo: "R", Rev: "v1", Subdir: "shared"}, got)

	top := domain.GitCoordinate{Repo: "R", Rev: "v1"}
	assert.Equal(t, "nested/dep", top.Join("./nested/dep").Subdir)
	assert.Equal(t, "R|v1|", top.Key())
	assert.Equal(t, top.Key(), domain.GitCoordinate{Repo: "R", Rev: "v1", Subdir: "./"}.Key())
}

func TestParseEdition(t *testing.T) {
	e, err := domain.ParseEdition("")
	require.NoError(t, err)
	assert.Equal(t, domain.EditionLegacy, e)

	e, err = domain.ParseEdition("2024.beta")
	require.NoError(t, err)
	assert.Equal(t, domain.Edition2024Beta, e)

	_, err = domain.ParseEdition("2030")
	assert.ErrorIs(t, err, domain.ErrInvalidEdition)
}
