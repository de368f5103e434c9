package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLiveSpace_IsLive(t *testing.T) {
	var nilSpace *LiveSpace
	assert.False(t, nilSpace.IsLive())
	assert.False(t, (&LiveSpace{State: StateOffline}).IsLive())
	assert.True(t, (&LiveSpace{State: StateLive}).IsLive())
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleHost))
	assert.True(t, ValidRole(RoleSpeaker))
	assert.True(t, ValidRole(RoleListener))
	assert.False(t, ValidRole("moderator"))
	assert.False(t, ValidRole(""))
}
