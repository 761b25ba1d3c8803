package settingstypes

import (
	"testing"

	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/stretchr/testify/assert"
)

func TestParseRoleList(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want RoleSet
	}{
		{name: "empty", in: "", want: RoleSet{}},
		{name: "comma separated", in: "200,100", want: RoleSet{"100", "200"}},
		{name: "drops non numeric tokens", in: "100, admin, 12a, 300", want: RoleSet{"100", "300"}},
		{name: "mentions and whitespace", in: "<@&100>  <@&200>;100", want: RoleSet{"100", "200"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRoleList(tt.in))
		})
	}
}

func TestRoleSet_Membership(t *testing.T) {
	s := NewRoleSet("300", "100", "100", "")
	assert.Equal(t, RoleSet{"100", "300"}, s)
	assert.True(t, s.Contains("300"))
	assert.False(t, s.Contains("200"))
	assert.True(t, s.Intersects([]sharedtypes.RoleID{"200", "100"}))
	assert.False(t, s.Intersects(nil))
	assert.Equal(t, "100,300", s.String())
	assert.Equal(t, s, RoleSetFromStrings(s.Strings()))
}

func TestCountingConfig_IsMilestone(t *testing.T) {
	c := CountingConfig{Milestones: []int64{100, 250}}
	assert.True(t, c.IsMilestone(250))
	assert.False(t, c.IsMilestone(251))
}
