package testutils

import (
	"time"

	sharedtypes "github.com/Black-And-White-Club/counting-bot/pkg/types/shared"
	"github.com/brianvoe/gofakeit/v7"
)

// TestDataGenerator produces Discord-shaped identifiers and chat content.
type TestDataGenerator struct {
	faker *gofakeit.Faker
	seed  int64
}

// NewTestDataGenerator creates a new test data generator with optional seed
func NewTestDataGenerator(seed ...int64) *TestDataGenerator {
	var s int64
	if len(seed) > 0 {
		s = seed[0]
	} else {
		s = time.Now().UnixNano()
	}

	return &TestDataGenerator{
		faker: gofakeit.New(uint64(s)),
		seed:  s,
	}
}

// Seed returns the seed, for reproducing a failing run.
func (g *TestDataGenerator) Seed() int64 { return g.seed }

func (g *TestDataGenerator) snowflake() string {
	return g.faker.Numerify("1#################")
}

func (g *TestDataGenerator) GuildID() sharedtypes.GuildID { return sharedtypes.GuildID(g.snowflake()) }
func (g *TestDataGenerator) ChannelID() sharedtypes.ChannelID {
	return sharedtypes.ChannelID(g.snowflake())
}
func (g *TestDataGenerator) UserID() sharedtypes.UserID { return sharedtypes.UserID(g.snowflake()) }
func (g *TestDataGenerator) MessageID() sharedtypes.MessageID {
	return sharedtypes.MessageID(g.snowflake())
}

// UserIDs returns count distinct user IDs.
func (g *TestDataGenerator) UserIDs(count int) []sharedtypes.UserID {
	seen := make(map[sharedtypes.UserID]struct{}, count)
	out := make([]sharedtypes.UserID, 0, count)
	for len(out) < count {
		id := g.UserID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Chatter is a short non-numeric message.
func (g *TestDataGenerator) Chatter() string {
	return g.faker.Word() + " " + g.faker.Word() + "!"
}

// SaveName is a valid save point name.
func (g *TestDataGenerator) SaveName() string {
	return g.faker.Word() + "-" + g.faker.Numerify("###")
}
