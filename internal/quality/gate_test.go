package quality

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckBoundary14vs15Chars(t *testing.T) {
	assert.NotNil(t, Check(strings.Repeat("a", 14)))
	assert.Nil(t, Check("Always use const in this codebase"[:15]))
}

func TestCheckBoundary500vs501Chars(t *testing.T) {
	ok := strings.Repeat("word ", 100)[:500]
	assert.Nil(t, Check(ok))

	tooLong := strings.Repeat("word ", 110)[:501]
	rej := Check(tooLong)
	if assert.NotNil(t, rej) {
		assert.Equal(t, RuleTooLong, rej.Rule)
	}
}

func TestCheckGenericPhraseBlacklist(t *testing.T) {
	rej := Check("Please use best practices when writing this code")
	if assert.NotNil(t, rej) {
		assert.Equal(t, RuleGenericPhrase, rej.Rule)
	}
}

func TestCheckAllCaps(t *testing.T) {
	rej := Check("ALWAYS VALIDATE USER INPUT BEFORE USE")
	if assert.NotNil(t, rej) {
		assert.Equal(t, RuleAllCaps, rej.Rule)
	}
}

func TestCheckRepeatedChar(t *testing.T) {
	rej := Check("this is sooooooooo important to remember always")
	if assert.NotNil(t, rej) {
		assert.Equal(t, RuleRepeatedChar, rej.Rule)
	}
}

func TestCheckBareURL(t *testing.T) {
	rej := Check("https://example.com/some/very/long/path/to/docs")
	if assert.NotNil(t, rej) {
		assert.Equal(t, RuleBareURL, rej.Rule)
	}
}

func TestCheckWhitespaceOnly(t *testing.T) {
	rej := Check("    \t\n   ")
	if assert.NotNil(t, rej) {
		assert.Equal(t, RuleWhitespace, rej.Rule)
	}
}

func TestCheckAcceptsReasonableContent(t *testing.T) {
	assert.Nil(t, Check("Always use Zod for schema validation in this project"))
}

func TestIsDuplicateIntent(t *testing.T) {
	assert.True(t, IsDuplicateIntent(
		"Always use functional components in React",
		"Always use functional components in React apps",
	))
	assert.False(t, IsDuplicateIntent(
		"Always use functional components in React",
		"The deployment pipeline runs nightly on Kubernetes",
	))
}
