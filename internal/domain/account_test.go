package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccountNames(t *testing.T) {
	assert.Equal(t, "treasury:g1", TreasuryAccountName("g1"))
	assert.Equal(t, "burn:g1", BurnAccountName("g1"))
	assert.Equal(t, "user:g1:42", UserAccountName("g1", 42))
	assert.Equal(t, "treasury:g1", SystemAccountName("treasury", "g1"))
}

func TestIsMint(t *testing.T) {
	assert.True(t, (&Account{Type: AccountTypeTreasury}).IsMint())
	assert.True(t, (&Account{Type: AccountTypeBurn}).IsMint())
	assert.False(t, (&Account{Type: AccountTypeUser}).IsMint())
}
