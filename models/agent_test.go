package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTierLadder(t *testing.T) {
	require.Equal(t, "Summit", Tier(2450))
	require.Equal(t, "Summit", Tier(2000))
	require.Equal(t, "Mountain", Tier(1999))
	require.Equal(t, "Mountain", Tier(1600))
	require.Equal(t, "Forest", Tier(1200))
	require.Equal(t, "Cabin", Tier(800))
	require.Equal(t, "Wood", Tier(799))
	require.Equal(t, "Wood", Tier(0))
}

func TestClaimed(t *testing.T) {
	require.False(t, (&Agent{ClaimStatus: ClaimPending}).Claimed())
	require.True(t, (&Agent{ClaimStatus: ClaimClaimed}).Claimed())
}

func TestGamePlayerHelpers(t *testing.T) {
	g := &Game{WhiteID: "w", BlackID: "b"}
	require.True(t, g.HasPlayer("w"))
	require.True(t, g.HasPlayer("b"))
	require.False(t, g.HasPlayer("x"))
	require.Equal(t, "b", g.OpponentID("w"))
	require.Equal(t, "w", g.OpponentID("b"))
}
